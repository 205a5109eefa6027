package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liamcoop/cardiorisk/assessment"
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/predictor"
)

// ErrSubmissionInFlight is returned when a session already has a request outstanding.
var ErrSubmissionInFlight = errors.New("a risk assessment is already being processed")

// State is the submission lifecycle of one session.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Predictor is the outbound call a session makes on submit.
type Predictor interface {
	Predict(ctx context.Context, requestID string, payload any) (*predictor.Response, error)
}

// Deps are shared by every session.
type Deps struct {
	Transformer *assessment.Transformer
	Predictor   Predictor
	Strict      bool // validate the payload before sending
}

// View is an immutable snapshot of a session for rendering.
type View struct {
	ID      string              `json:"id"`
	State   State               `json:"state"`
	Loading bool                `json:"loading"`
	Form    assessment.Request  `json:"form"`
	Result  *assessment.Outcome `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`
	Theme   Theme               `json:"theme"`
}

// Session owns one form record and its last result or error.
type Session struct {
	id   string
	deps *Deps

	mu       sync.Mutex
	state    State
	form     assessment.Request
	result   *assessment.Outcome
	errMsg   string
	theme    Theme
	lastSeen time.Time
}

func newSession(id string, deps *Deps) *Session {
	return &Session{
		id:       id,
		deps:     deps,
		form:     assessment.NewRequest(),
		theme:    ThemeLight,
		lastSeen: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:      s.id,
		State:   s.state,
		Loading: s.state == StateSubmitting,
		Form:    s.form,
		Error:   s.errMsg,
		Theme:   s.theme,
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}

// ToggleTheme flips light/dark and returns the new theme.
func (s *Session) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = s.theme.Toggle()
	s.touchLocked()
	return s.theme
}

// Submit stores req as the form, sends one prediction request and records
// the outcome. It returns ErrSubmissionInFlight without side effects if a
// submission is already outstanding. Prediction failures are not returned
// as errors; they are recorded on the session and visible in the View.
func (s *Session) Submit(ctx context.Context, req assessment.Request) (View, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return View{}, ErrSubmissionInFlight
	}
	s.state = StateSubmitting
	s.form = req
	s.result = nil
	s.errMsg = ""
	s.touchLocked()
	s.mu.Unlock()

	outcome, errMsg := s.run(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if errMsg != "" {
		s.state = StateFailed
		s.errMsg = errMsg
	} else {
		s.state = StateSucceeded
		s.result = &outcome
	}
	s.touchLocked()
	return s.viewLocked(), nil
}

func (s *Session) run(ctx context.Context, req assessment.Request) (assessment.Outcome, string) {
	submissionID := uuid.NewString()
	payload := s.deps.Transformer.Build(req)

	if s.deps.Strict {
		if err := assessment.Validate(payload); err != nil {
			logger.Info("Assessment rejected before sending", "session_id", s.id, "submission_id", submissionID, "error", err)
			return assessment.Outcome{}, err.Error()
		}
	}

	logger.Debug("Sending payload", "session_id", s.id, "submission_id", submissionID, "payload", payload)

	resp, err := s.deps.Predictor.Predict(ctx, submissionID, payload)
	if err != nil {
		logger.RecordUpstreamFailure()
		logger.Warn("Prediction failed", "session_id", s.id, "submission_id", submissionID, "error", err)
		return assessment.Outcome{}, predictor.UserMessage(err)
	}

	logger.Debug("Response received", "session_id", s.id, "submission_id", submissionID, "output", resp.Output)

	outcome, ok := assessment.NewOutcome(resp.Output)
	if !ok {
		logger.RecordUpstreamFailure()
		logger.Warn("Prediction returned unknown output", "submission_id", submissionID, "output", resp.Output)
		return assessment.Outcome{}, predictor.GenericFailureMessage
	}

	logger.RecordOutcome(outcome.IsHigh())
	return outcome, ""
}

func (s *Session) touchLocked() {
	s.lastSeen = time.Now()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.state == StateSubmitting
}
