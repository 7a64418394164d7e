package app

import "knot-go/internal/model"

// Operation tracks a CLI command that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them, taking an auto-increment ID that doubles as the version of
// any snapshot written afterwards.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // model.OperationSuccess or model.OperationFailed
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     model.OperationSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = model.OperationFailed
}

// Failed reports whether Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == model.OperationFailed
}
