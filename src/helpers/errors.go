package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Error Kinds
// -----------------------------------------------------------------------------

type ErrorKind string

const (
	KindInvalidTimeframe     ErrorKind = "InvalidTimeframe"
	KindInvalidParameter     ErrorKind = "InvalidParameter"
	KindInsufficientData     ErrorKind = "InsufficientData"
	KindMisalignedSeries     ErrorKind = "MisalignedSeries"
	KindDegenerateRegression ErrorKind = "DegenerateRegression"
	KindStoreUnavailable     ErrorKind = "StoreUnavailable"
	KindInternal             ErrorKind = "Internal"
)

// Sentinels for errors.Is. Any AnalyticsError of the same kind matches.
var (
	ErrInvalidTimeframe     = &AnalyticsError{Kind: KindInvalidTimeframe, Message: "invalid timeframe"}
	ErrInvalidParameter     = &AnalyticsError{Kind: KindInvalidParameter, Message: "invalid parameter"}
	ErrInsufficientData     = &AnalyticsError{Kind: KindInsufficientData, Message: "insufficient data"}
	ErrMisalignedSeries     = &AnalyticsError{Kind: KindMisalignedSeries, Message: "series share no timestamps"}
	ErrDegenerateRegression = &AnalyticsError{Kind: KindDegenerateRegression, Message: "degenerate regression"}
	ErrStoreUnavailable     = &AnalyticsError{Kind: KindStoreUnavailable, Message: "tick store unavailable"}
)

// -----------------------------------------------------------------------------
// Custom Error Type
// -----------------------------------------------------------------------------

// AnalyticsError tags a failure with its kind and the stage that raised it.
type AnalyticsError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Cause   error
}

func (e *AnalyticsError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AnalyticsError) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind. MisalignedSeries is a sub-case of
// InsufficientData.
func (e *AnalyticsError) Is(target error) bool {
	t, ok := target.(*AnalyticsError)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindInsufficientData && e.Kind == KindMisalignedSeries
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewError builds an AnalyticsError without a cause.
func NewError(kind ErrorKind, stage, format string, args ...interface{}) *AnalyticsError {
	return &AnalyticsError{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an AnalyticsError around cause.
func WrapError(kind ErrorKind, stage string, cause error, format string, args ...interface{}) *AnalyticsError {
	return &AnalyticsError{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// -----------------------------------------------------------------------------

// KindOf returns the kind of the first AnalyticsError in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AnalyticsError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsInsufficientData reports whether the caller should show "not enough data"
// rather than a hard failure.
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
