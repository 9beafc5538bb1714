package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/config"
	"github.com/acadion/examgate-backend/internal/model"
)

func newTestRedis(t *testing.T, fallback DurableFallback) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedis(rdb, fallback, zerolog.Nop()), mr
}

func sampleRecord() *model.SubmissionRecord {
	qid := uuid.New()
	return &model.SubmissionRecord{
		Responses:        model.ResponseSet{qid: model.OptionAnswer("b")},
		TimeTakenSeconds: 120,
		RetakeCount:      1,
		Score:            5,
		MaxScore:         10,
		SubmissionDate:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestRedisGetAbsent(t *testing.T) {
	s, _ := newTestRedis(t, nil)

	rec, err := s.Get(context.Background(), 7, uuid.New())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("rec = %+v, want nil for absent key", rec)
	}
}

func TestRedisPutGetRoundTrip(t *testing.T) {
	s, _ := newTestRedis(t, nil)
	examID := uuid.New()
	want := sampleRecord()

	if err := s.Put(context.Background(), 7, examID, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(context.Background(), 7, examID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("record absent after Put")
	}
	if got.Score != want.Score || got.RetakeCount != want.RetakeCount {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.SubmissionDate.Equal(want.SubmissionDate) {
		t.Errorf("submission date = %v, want %v", got.SubmissionDate, want.SubmissionDate)
	}
}

func TestRedisCorruptRecordTreatedAsAbsent(t *testing.T) {
	s, mr := newTestRedis(t, nil)
	examID := uuid.New()
	key := config.CacheKey.StudentSubmissionKey(examID.String(), 7)
	mr.Set(key, "{not json")

	rec, err := s.Get(context.Background(), 7, examID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("rec = %+v, want nil for corrupt payload", rec)
	}
	if mr.Exists(key) {
		t.Fatal("corrupt entry should be deleted")
	}
}

type fallbackFunc func(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error)

func (f fallbackFunc) GetSubmission(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error) {
	return f(ctx, studentID, examID)
}

func TestRedisMissFallsBackAndSelfHeals(t *testing.T) {
	want := sampleRecord()
	calls := 0
	fb := fallbackFunc(func(_ context.Context, studentID int, _ uuid.UUID) (*model.SubmissionRecord, error) {
		calls++
		if studentID != 7 {
			t.Errorf("fallback studentID = %d, want 7", studentID)
		}
		return want, nil
	})
	s, mr := newTestRedis(t, fb)
	examID := uuid.New()

	got, err := s.Get(context.Background(), 7, examID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Score != want.Score {
		t.Fatalf("got %+v, want mirror record", got)
	}
	if !mr.Exists(config.CacheKey.StudentSubmissionKey(examID.String(), 7)) {
		t.Fatal("cache not healed after fallback hit")
	}

	// Second read is a cache hit.
	if _, err := s.Get(context.Background(), 7, examID); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fallback called %d times, want 1", calls)
	}
}

func TestRedisPutEnqueuesDurableWrite(t *testing.T) {
	s, mr := newTestRedis(t, nil)
	examID := uuid.New()
	rec := sampleRecord()

	if err := s.Put(context.Background(), 7, examID, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, err := mr.Lpop(config.WorkerKey.PersistSubmissionsQueue)
	if err != nil {
		t.Fatalf("queue read: %v", err)
	}
	var env submissionEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.StudentID != 7 || env.ExamID != examID.String() {
		t.Errorf("envelope key = %d/%s, want 7/%s", env.StudentID, env.ExamID, examID)
	}
	if env.Record == nil || env.Record.Score != rec.Score {
		t.Errorf("envelope record = %+v", env.Record)
	}
}
