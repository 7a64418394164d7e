package model

import "time"

// Operation status values.
const (
	OperationRunning = "running"
	OperationSuccess = "success"
	OperationFailed  = "failed"
)

// Operation is one recorded mutating command.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long the operation ran, or 0 while it is running.
func (o *Operation) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
