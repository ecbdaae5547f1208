package submission

import (
	"slices"

	"github.com/cv-app-yz/cv-app/internal/result"
)

// Status is the lifecycle state of the controller.
type Status int

const (
	Idle Status = iota
	InFlight
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome tells the caller what a Submit call did.
type Outcome int

const (
	// OutcomeRejected means input validation failed and nothing was sent.
	OutcomeRejected Outcome = iota
	// OutcomeBlocked means another submission was still in flight.
	OutcomeBlocked
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	Status       Status
	FeedbackText string
	DownloadURL  string
	Jobs         []result.JobListing
	// Notice is a user-facing hint about rejected input.
	Notice    string
	AttemptID string

	// seq orders snapshots for delivery.
	seq uint64
}

// Blocked reports whether the submit action should be disabled.
func (s Snapshot) Blocked() bool {
	return s.Status == InFlight
}

func (s Snapshot) HasDownload() bool {
	return s.DownloadURL != ""
}

func (s Snapshot) clone() Snapshot {
	s.Jobs = slices.Clone(s.Jobs)
	return s
}
