package domain

import (
	"time"
)

// RunID is a unique identifier for a pipeline run.
type RunID string

// String returns the string representation of the RunID.
func (id RunID) String() string {
	return string(id)
}

// RunStatus represents the current state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusDelivered RunStatus = "delivered"
	RunStatusRejected  RunStatus = "rejected"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusAborted is a run whose error escaped the pipeline; its pending
	// marker may still be attached to the message.
	RunStatusAborted RunStatus = "aborted"
)

// Run is the in-memory record of one link pipeline execution.
type Run struct {
	ID         RunID      `json:"id"`
	MessageID  MessageID  `json:"message_id"`
	ChannelID  ChannelID  `json:"channel_id"`
	URL        string     `json:"url"`
	Kind       Kind       `json:"kind,omitempty"`
	Status     RunStatus  `json:"status"`
	Reason     Reason     `json:"reason,omitempty"`
	Error      string     `json:"error,omitempty"`
	Photos     int        `json:"photos,omitempty"`
	RawSize    int64      `json:"raw_size,omitempty"`
	OutputSize int64      `json:"output_size,omitempty"`
	Seconds    float64    `json:"duration_seconds,omitempty"`
	VideoCodec string     `json:"video_codec,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a running record for link.
func NewRun(id RunID, link Link) *Run {
	return &Run{
		ID:        id,
		MessageID: link.MessageID,
		ChannelID: link.ChannelID,
		URL:       link.URL,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
}

// Done returns true once the run reached a terminal status.
func (r *Run) Done() bool {
	return r.Status != RunStatusRunning
}

// Duration returns the elapsed run time.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Finish records the outcome of the run.
func (r *Run) Finish(o Outcome) {
	switch o.Status {
	case OutcomeDelivered:
		r.Status = RunStatusDelivered
	case OutcomeRejected:
		r.Status = RunStatusRejected
	default:
		r.Status = RunStatusFailed
	}
	r.Reason = o.Reason
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	r.finish()
}

// Abort records an error that propagated out of the pipeline.
func (r *Run) Abort(err error) {
	r.Status = RunStatusAborted
	r.Error = err.Error()
	r.finish()
}

func (r *Run) finish() {
	now := time.Now()
	r.FinishedAt = &now
}
