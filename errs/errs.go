// Package errs implements the error taxonomy of §7: a small closed set of
// error Kinds that every layer of the system maps its failures onto, so the
// Runner and the State Machine can switch on Kind rather than on
// package-specific sentinel errors.
package errs

import "fmt"

// Kind is one row of the §7 error taxonomy table.
type Kind string

const (
	Config           Kind = "Config"
	Io               Kind = "Io"
	NoData           Kind = "NoData"
	Parse            Kind = "Parse"
	Network          Kind = "Network"
	RateLimit        Kind = "RateLimit"
	OrderReject      Kind = "OrderReject"
	BalanceInquiry   Kind = "BalanceInquiry"
	PredictionFailed Kind = "PredictionFailed"
	Shutdown         Kind = "Shutdown"
)

// Error wraps an underlying cause with its taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "marketdata.GetDailyData"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether the error's Kind is one the Broker Adapter's
// retry policy should act on (§5, §7).
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == Network || k == RateLimit
}
