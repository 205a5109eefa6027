package main

import "github.com/liamcoop/cardiorisk/bands"

// API response models. Assessment endpoints return session.View directly.

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string   `json:"status" example:"healthy"`
	Tables   []string `json:"tables" example:"ap_hi,ap_lo"`
	Sessions int      `json:"sessions" example:"3"`
	Strict   bool     `json:"strictValidation" example:"false"`
} // @name HealthResponse

// BandsResponse lists the active blood-pressure band tables
type BandsResponse struct {
	Tables []bands.Table `json:"tables"`
} // @name BandsResponse
