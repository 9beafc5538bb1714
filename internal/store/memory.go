package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/acadion/examgate-backend/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process SubmissionStore. Records are kept serialized so
// reads observe the same shapes a durable backend would return. Used in
// tests and as an embeddable backend.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func memoryKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d/%s", studentID, examID)
}

// Get returns the stored record, or (nil, nil) when absent or unparsable.
func (m *Memory) Get(_ context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error) {
	m.mu.RLock()
	raw, ok := m.records[memoryKey(studentID, examID)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var rec model.SubmissionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Corrupted payloads count as absent.
		return nil, nil
	}
	return &rec, nil
}

// Put stores the record, replacing any prior one for the key.
func (m *Memory) Put(_ context.Context, studentID int, examID uuid.UUID, rec *model.SubmissionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	m.mu.Lock()
	m.records[memoryKey(studentID, examID)] = raw
	m.mu.Unlock()
	return nil
}

// Corrupt overwrites the stored payload with garbage. Test hook for the
// absence-on-corruption contract.
func (m *Memory) Corrupt(studentID int, examID uuid.UUID) {
	m.mu.Lock()
	m.records[memoryKey(studentID, examID)] = []byte("{not json")
	m.mu.Unlock()
}
