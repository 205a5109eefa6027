package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/cardiorisk/assessment"
	"github.com/liamcoop/cardiorisk/bands"
	"github.com/liamcoop/cardiorisk/internal/config"
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/predictor"
	"github.com/liamcoop/cardiorisk/session"
	"github.com/liamcoop/cardiorisk/web"
)

const sessionCookie = "cardio_session"

type Server struct {
	cfg      config.Config
	registry *bands.Registry
	client   *predictor.Client
	sessions *session.Manager
	renderer *web.Renderer
	router   *chi.Mux
}

func NewServer(cfg config.Config) (*Server, error) {
	registry := bands.NewDefaultRegistry()
	if cfg.BandsFile != "" {
		if err := registry.LoadFile(cfg.BandsFile); err != nil {
			return nil, fmt.Errorf("failed to load band tables: %w", err)
		}
		logger.Info("Loaded band tables", "file", cfg.BandsFile, "tables", registry.Names())
	}

	transformer, err := assessment.NewTransformer(registry)
	if err != nil {
		return nil, err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	client := predictor.NewClient(cfg.EndpointURL, predictor.WithTimeout(cfg.PredictTimeout))

	s := &Server{
		cfg:      cfg,
		registry: registry,
		client:   client,
		renderer: renderer,
		sessions: session.NewManager(session.Deps{
			Transformer: transformer,
			Predictor:   client,
			Strict:      cfg.StrictValidation,
		}, cfg.SessionIdleTTL),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.cfg.SlowRequestThreshold))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Page
	r.Get("/", s.handleIndex)
	r.Post("/assess", s.handleAssessForm)
	r.Post("/theme", s.handleToggleTheme)
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/bands", s.handleListBands)

		r.Get("/assess", s.handleGetAssessment)
		r.Post("/assess", s.handleAssessJSON)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// session resolves the caller's session from its cookie, starting a new
// one when the cookie is missing or stale.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.IsProd(),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// Page handlers

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.session(w, r).View())
}

func (s *Server) handleAssessForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form", err)
		return
	}

	sess := s.session(w, r)
	req := assessment.FromValues(func(key string) (string, bool) {
		vs, ok := r.PostForm[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	})

	if _, err := sess.Submit(r.Context(), req); err != nil {
		if errors.Is(err, session.ErrSubmissionInFlight) {
			s.renderPage(w, http.StatusConflict, sess.View())
			return
		}
		respondError(w, http.StatusInternalServerError, "submission failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	s.session(w, r).ToggleTheme()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, v session.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderer.Render(w, v); err != nil {
		logger.Error("Failed to render page", "session_id", v.ID, "error", err)
	}
}

// API handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Tables:   s.registry.Names(),
		Sessions: s.sessions.Len(),
		Strict:   s.cfg.StrictValidation,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, logger.Snapshot())
}

func (s *Server) handleListBands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, BandsResponse{Tables: s.registry.Tables()})
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session(w, r).View())
}

func (s *Server) handleAssessJSON(w http.ResponseWriter, r *http.Request) {
	req := assessment.NewRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := s.session(w, r).Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, session.ErrSubmissionInFlight) {
			respondError(w, http.StatusConflict, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "submission failed", err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

// loadSettings reads the configuration, including any .env file, before
// the logger reads LOG_LEVEL, ERROR_SAMPLE_RATE and OTEL_ENABLED from the
// environment.
func loadSettings(ctx context.Context, envFiles ...string) (config.Config, error) {
	cfg, err := config.Load(envFiles...)
	logger.Setup(ctx)
	return cfg, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(ctx)
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}

	go server.sessions.RunSweeper(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "endpoint", cfg.EndpointURL, "strict", cfg.StrictValidation)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
}
