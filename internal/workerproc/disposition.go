package workerproc

import (
	"time"

	"notes-backend/internal/queue"
)

// Action is what the consumer does with a message after handling it.
type Action int

const (
	// ActionDelete removes the message from the queue.
	ActionDelete Action = iota
	// ActionRetry hides the message for Delay so the broker redelivers it.
	ActionRetry
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	default:
		return "delete"
	}
}

// Disposition reasons, used in logs and metrics.
const (
	ReasonCompleted        = "completed"
	ReasonUnrecoverable    = "unrecoverable"
	ReasonRetry            = "retry_scheduled"
	ReasonRetriesExhausted = "retries_exhausted"
)

// Disposition is the outcome of Decide.
type Disposition struct {
	Action Action
	Delay  time.Duration
	Reason string
}

// Decide maps a handler result and the broker's receive count to a queue action.
// Payload errors are dropped, everything else is redelivered with backoff until
// the policy runs out of attempts.
func Decide(err error, receiveCount int, policy queue.RetryPolicy) Disposition {
	if err == nil {
		return Disposition{Action: ActionDelete, Reason: ReasonCompleted}
	}
	if IsUnrecoverable(err) {
		return Disposition{Action: ActionDelete, Reason: ReasonUnrecoverable}
	}
	if receiveCount < 1 {
		receiveCount = 1
	}
	if policy.Exhausted(receiveCount) {
		return Disposition{Action: ActionDelete, Reason: ReasonRetriesExhausted}
	}
	return Disposition{Action: ActionRetry, Delay: policy.Delay(receiveCount), Reason: ReasonRetry}
}
