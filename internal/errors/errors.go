package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoActiveServer     = errors.New("no active server selected")
	ErrNoUser             = errors.New("no user identity available")
	ErrPlaybackBlocked    = errors.New("audio output blocked")
	ErrIndexOutOfRange    = errors.New("queue index out of range")
	ErrRateLimited        = errors.New("rate limited")
	ErrNetworkError       = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrConfigNotFound     = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// RiffcordError wraps an error with a user-friendly suggestion.
type RiffcordError struct {
	Err        error
	Suggestion string
}

func (e *RiffcordError) Error() string {
	return e.Err.Error()
}

func (e *RiffcordError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &RiffcordError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ActionError reports a failed playback action. Subject, when set, names the
// track the action was about.
type ActionError struct {
	Action  string
	Subject string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("failed to %s %q: %v", e.Action, e.Subject, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Message returns the short user-facing form without the cause.
func (e *ActionError) Message() string {
	if e.Subject != "" {
		return fmt.Sprintf("Failed to %s %q", e.Action, e.Subject)
	}
	return fmt.Sprintf("Failed to %s", e.Action)
}

// Action wraps err as an ActionError.
func Action(action string, err error) error {
	return &ActionError{Action: action, Err: err}
}

// ActionOn wraps err as an ActionError naming a subject.
func ActionOn(action, subject string, err error) *ActionError {
	return &ActionError{Action: action, Subject: subject, Err: err}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	// Check if it's already a RiffcordError with suggestion
	var rcErr *RiffcordError
	if errors.As(err, &rcErr) && rcErr.Suggestion != "" {
		return rcErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	// Authentication errors
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrNoUser) ||
		strings.Contains(errStr, "not authenticated") || strings.Contains(errStr, "401") {
		return "Run 'riffcord auth login' to sign in with Discord"
	}

	// Context errors
	if errors.Is(err, ErrNoActiveServer) {
		return "Run 'riffcord servers use <id>' to select a server"
	}

	if errors.Is(err, ErrPlaybackBlocked) {
		return "Check that an audio output device is available, or switch back with 'riffcord mode server'"
	}

	if errors.Is(err, ErrIndexOutOfRange) {
		return "Run 'riffcord queue' to see valid positions"
	}

	if errors.Is(err, ErrReconnectExhausted) {
		return "The bot server is unreachable. Re-select the server to retry"
	}

	// Rate limiting
	if errors.Is(err, ErrRateLimited) || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") {
		return "Too many requests. Wait a moment and try again"
	}

	// Network errors
	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check your internet connection and try again"
	}

	// Config errors
	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) ||
		strings.Contains(errStr, "config") {
		return "Run 'riffcord config init' to set up your configuration"
	}

	// Server errors
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "server error") {
		return "The bot backend is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// Err joins all collected errors, or returns nil.
func (p *PartialResult[T]) Err() error {
	return errors.Join(p.Errors...)
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(p.Errors)))
	for i, err := range p.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
