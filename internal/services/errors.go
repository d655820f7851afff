package services

import (
	"errors"
	"fmt"

	"github.com/classpulse/quiz-session-engine/internal/validator"
)

// Sentinel errors returned by the session, grading, outbox and reward
// services. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotActive     = errors.New("session is not in progress")
	ErrSessionLocked        = errors.New("session is locked")
	ErrAlreadySubmitted     = errors.New("attempt already submitted")
	ErrNoAttemptsLeft       = errors.New("no attempts remaining")
	ErrQuizUnavailable      = errors.New("quiz is not available")
	ErrGradingNotAllowed    = errors.New("question kind requires manual review")
	ErrUnknownQuestionKind  = errors.New("unknown question kind")
	ErrUnknownSignal        = errors.New("unknown signal type")
	ErrQuestionAnswered     = errors.New("question already answered")
	ErrPreviewReadOnly      = errors.New("preview sessions cannot submit")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrTransientNetwork     = errors.New("remote store unreachable")
	ErrPermanentData        = errors.New("permanently invalid data")
)

// ValidationError wraps field-level failures that must reject an operation
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Errors.Error())
}

// NewValidationError builds a ValidationError from field errors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	return &ValidationError{Errors: errs}
}

// IsValidationError checks whether err carries validation failures
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IntegrityError reports that a scope crossed the infraction threshold.
// Recovery requires an instructor removing the lock record.
type IntegrityError struct {
	ScopeID string
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("quiz locked for %s: %s", e.ScopeID, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return ErrSessionLocked
}

// NewIntegrityError builds an IntegrityError for a scope
func NewIntegrityError(scopeID, reason string) *IntegrityError {
	return &IntegrityError{ScopeID: scopeID, Reason: reason}
}

// IsIntegrityError checks whether err is an integrity lock
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// NewTransientNetworkError wraps a remote-store failure so callers can fall
// back to local state and retry later.
func NewTransientNetworkError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientNetwork, err)
}
