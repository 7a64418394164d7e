package knot

import (
	"fmt"

	"knot-go/internal/model"
)

// GetHistory returns the most recent recorded operations, newest first.
func (s *KnotService) GetHistory(limit int) ([]*model.Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
