package core

import (
	"github.com/google/uuid"
)

// BatchID identifies one export batch in logs and events.
type BatchID string

// NewBatchID returns a fresh random batch identifier.
func NewBatchID() BatchID {
	return BatchID(uuid.New().String())
}

// Short returns the first block of the identifier, enough to tell batches apart in a log.
func (id BatchID) Short() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
