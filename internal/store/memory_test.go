package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/acadion/examgate-backend/internal/model"
)

func TestMemoryAbsentIsNilNil(t *testing.T) {
	m := NewMemory()
	rec, err := m.Get(context.Background(), 1, uuid.New())
	if err != nil || rec != nil {
		t.Fatalf("Get absent = (%v, %v), want (nil, nil)", rec, err)
	}
}

func TestMemoryPutOverwrites(t *testing.T) {
	m := NewMemory()
	examID := uuid.New()

	if err := m.Put(context.Background(), 1, examID, &model.SubmissionRecord{Score: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := m.Put(context.Background(), 1, examID, &model.SubmissionRecord{Score: 8}); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	rec, err := m.Get(context.Background(), 1, examID)
	if err != nil || rec == nil {
		t.Fatalf("Get = (%v, %v)", rec, err)
	}
	if rec.Score != 8 {
		t.Fatalf("score = %v, want last write 8", rec.Score)
	}
}

func TestMemoryCorruptIsAbsent(t *testing.T) {
	m := NewMemory()
	examID := uuid.New()

	if err := m.Put(context.Background(), 1, examID, &model.SubmissionRecord{Score: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	m.Corrupt(1, examID)

	rec, err := m.Get(context.Background(), 1, examID)
	if err != nil || rec != nil {
		t.Fatalf("Get corrupt = (%v, %v), want (nil, nil)", rec, err)
	}
}
