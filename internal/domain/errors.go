package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks configuration problems that prevent a run from starting.
	ErrConfig = errors.New("config error")
	// ErrLedgerIO marks an unreadable or unwritable ledger.
	ErrLedgerIO = errors.New("ledger io error")
)

type ErrorClass string

const (
	ClassTransient  ErrorClass = "transient"
	ClassPermanent  ErrorClass = "permanent"
	ClassExtraction ErrorClass = "extraction"
	ClassTimeout    ErrorClass = "timeout" // run deadline hit before the source finished
)

// SourceError is a per-source failure. It never ends a run; the orchestrator
// records it in RunReport.Errors.
type SourceError struct {
	SourceID   string     `json:"source_id"`
	Class      ErrorClass `json:"class"`
	StatusCode int        `json:"status_code,omitempty"`
	Attempts   int        `json:"attempts,omitempty"`
	Reason     string     `json:"reason"`
	Err        error      `json:"-"`
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.SourceID, e.Class, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s: %s error: %s", e.SourceID, e.Class, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Retryable() bool { return e.Class == ClassTransient }

func NewSourceError(sourceID string, class ErrorClass, err error) *SourceError {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return &SourceError{SourceID: sourceID, Class: class, Reason: reason, Err: err}
}

func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func LedgerErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLedgerIO, fmt.Sprintf(format, args...))
}
