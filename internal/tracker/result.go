package tracker

import (
	"fmt"
	"time"
)

type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeUnchanged
	OutcomeChanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeChanged:
		return "changed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type FailureKind string

const (
	FailureFetch  FailureKind = "fetch"
	FailureDelete FailureKind = "delete"
	FailurePost   FailureKind = "post"
	FailureStore  FailureKind = "store"
)

// Failure is a non-fatal error from one step of the cycle.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f Failure) Error() string { return string(f.Kind) + ": " + f.Err.Error() }
func (f Failure) Unwrap() error { return f.Err }

// Result describes what one Update did.
type Result struct {
	EntityID string
	Target   string
	Outcome  Outcome

	Count    int64
	Previous *int64

	Message   string
	Milestone int64

	NotificationID string
	Deleted        bool

	Failures []Failure
	Took     time.Duration
}

func (r *Result) fail(kind FailureKind, err error) {
	r.Failures = append(r.Failures, Failure{Kind: kind, Err: err})
}

// Failed reports whether a failure of kind was recorded.
func (r Result) Failed(kind FailureKind) bool {
	for _, f := range r.Failures {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
