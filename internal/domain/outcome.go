package domain

import "errors"

// Marker is a visible status reaction on the triggering message.
type Marker string

const (
	MarkerNone     Marker = ""
	MarkerPending  Marker = "pending"
	MarkerError    Marker = "error"
	MarkerTooLarge Marker = "too_large"
)

// CanTransition reports whether a message showing m may move to next.
// Pending is only ever entered from no marker, and terminal markers are final.
func (m Marker) CanTransition(next Marker) bool {
	switch m {
	case MarkerNone:
		return next == MarkerPending
	case MarkerPending:
		return next == MarkerError || next == MarkerTooLarge
	default:
		return false
	}
}

// OutcomeStatus is the result class of a pipeline run.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Reason is a structured code for a non-delivered outcome.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonTooLarge Reason = "too_large"
	ReasonNotFound Reason = "not_found"
	ReasonGeneric  Reason = "generic"
)

// Outcome is the explicit result of the video pipeline.
type Outcome struct {
	Status OutcomeStatus
	Reason Reason
	Err    error
}

// Delivered returns a successful outcome.
func Delivered() Outcome {
	return Outcome{Status: OutcomeDelivered}
}

// TooLarge returns the size-policy rejection outcome.
func TooLarge() Outcome {
	return Outcome{Status: OutcomeRejected, Reason: ReasonTooLarge}
}

// Failed classifies err into a failed outcome.
func Failed(err error) Outcome {
	reason := ReasonGeneric
	if errors.Is(err, ErrNotFound) {
		reason = ReasonNotFound
	}
	return Outcome{Status: OutcomeFailed, Reason: reason, Err: err}
}

// Marker returns the terminal marker for the outcome. Not-found and generic
// failures share the error marker; delivered runs have none.
func (o Outcome) Marker() Marker {
	switch o.Status {
	case OutcomeRejected:
		return MarkerTooLarge
	case OutcomeFailed:
		return MarkerError
	default:
		return MarkerNone
	}
}
