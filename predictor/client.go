package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenericFailureMessage is shown when the service gives no usable reason.
const GenericFailureMessage = "Failed to get prediction. Please try again."

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Response is the success body of the prediction service.
type Response struct {
	Output int `json:"Output"`
}

// Error describes a failed prediction call.
type Error struct {
	StatusCode    int    // 0 for transport failures
	ServerMessage string // the body's "error" field, if any
	Err           error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.ServerMessage != "":
		return fmt.Sprintf("prediction service returned %d: %s", e.StatusCode, e.ServerMessage)
	case e.StatusCode != 0:
		return fmt.Sprintf("prediction service returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("prediction request failed: %v", e.Err)
	}
	return "prediction request failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text to show the user.
func (e *Error) Message() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return GenericFailureMessage
}

// UserMessage extracts the displayable text from any error returned by Predict.
func UserMessage(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return GenericFailureMessage
}

// Client posts payloads to a fixed prediction endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict sends one payload and decodes the result. It makes exactly one
// attempt. requestID, when non-empty, is sent as X-Request-ID.
// Every error it returns is a *Error.
func (c *Client) Predict(ctx context.Context, requestID string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			StatusCode:    resp.StatusCode,
			ServerMessage: serverMessage(raw),
		}
	}

	return decodeResponse(resp.StatusCode, raw)
}

func decodeResponse(status int, raw []byte) (*Response, error) {
	var body struct {
		Output *int `json:"Output"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &Error{StatusCode: status, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if body.Output == nil {
		return nil, &Error{
			StatusCode:    status,
			ServerMessage: serverMessage(raw),
			Err:           errors.New("malformed response: missing Output"),
		}
	}
	if *body.Output != 0 && *body.Output != 1 {
		return nil, &Error{
			StatusCode: status,
			Err:        fmt.Errorf("malformed response: Output %d is not 0 or 1", *body.Output),
		}
	}

	return &Response{Output: *body.Output}, nil
}

// serverMessage returns the "error" string of a JSON body, or "".
func serverMessage(raw []byte) string {
	var body struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if s, ok := body.Error.(string); ok {
		return s
	}
	return ""
}
