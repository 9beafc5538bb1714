package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/config"
	"github.com/acadion/examgate-backend/internal/model"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
)

// SubmissionWorker consumes persist_submissions_queue and upserts finalized
// submission records into the durable PostgreSQL mirror.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

type submissionPayload struct {
	StudentID int                     `json:"student_id"`
	ExamID    string                  `json:"exam_id"`
	Record    *model.SubmissionRecord `json:"record"`
}

func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*submissionPayload, 0, SubmissionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SubmissionBatchSize || time.Since(lastFlush) >= SubmissionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SubmissionPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p submissionPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			if p.Record == nil {
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*submissionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
		return
	}

	// A durable submission supersedes the draft answer buffers.
	w.bulkClearAutosavedAnswers(ctx, batch)
}

// bulkUpsert writes a batch in a single round-trip via UNNEST. A later
// record for the same key wins.
func (w *SubmissionWorker) bulkUpsert(ctx context.Context, batch []*submissionPayload) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	responses := make([][]byte, 0, n)
	timesTaken := make([]int, 0, n)
	retakes := make([]int, 0, n)
	scores := make([]float64, 0, n)
	maxScores := make([]float64, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		respJSON, err := json.Marshal(p.Record.Responses)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, eID)
		students = append(students, p.StudentID)
		responses = append(responses, respJSON)
		timesTaken = append(timesTaken, p.Record.TimeTakenSeconds)
		retakes = append(retakes, p.Record.RetakeCount)
		scores = append(scores, p.Record.Score)
		maxScores = append(maxScores, p.Record.MaxScore)
		submittedAts = append(submittedAts, p.Record.SubmissionDate)
	}

	query := `
		INSERT INTO submissions
			(exam_id, student_id, responses, time_taken_seconds, retake_count, score, max_score, submitted_at)
		SELECT u.exam_id, u.student_id, u.responses, u.time_taken_seconds,
		       u.retake_count, u.score, u.max_score, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::jsonb[],
			$4::int[],
			$5::int[],
			$6::float8[],
			$7::float8[],
			$8::timestamptz[]
		) AS u (exam_id, student_id, responses, time_taken_seconds, retake_count, score, max_score, submitted_at)
		ON CONFLICT (exam_id, student_id) DO UPDATE
		SET responses = EXCLUDED.responses,
		    time_taken_seconds = EXCLUDED.time_taken_seconds,
		    retake_count = EXCLUDED.retake_count,
		    score = EXCLUDED.score,
		    max_score = EXCLUDED.max_score,
		    submitted_at = EXCLUDED.submitted_at
	`

	_, err := w.pool.Exec(ctx, query, examIDs, students, responses, timesTaken, retakes, scores, maxScores, submittedAts)
	return err
}

func (w *SubmissionWorker) bulkClearAutosavedAnswers(ctx context.Context, batch []*submissionPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		key := config.CacheKey.StudentAnswersKey(p.ExamID, p.StudentID)
		pipe.Del(ctx, key)
	}

	_, _ = pipe.Exec(ctx)
}

func (w *SubmissionWorker) persistSingle(ctx context.Context, p *submissionPayload) error {
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	respJSON, err := json.Marshal(p.Record.Responses)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO submissions
			(exam_id, student_id, responses, time_taken_seconds, retake_count, score, max_score, submitted_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET responses = EXCLUDED.responses,
		     time_taken_seconds = EXCLUDED.time_taken_seconds,
		     retake_count = EXCLUDED.retake_count,
		     score = EXCLUDED.score,
		     max_score = EXCLUDED.max_score,
		     submitted_at = EXCLUDED.submitted_at`,
		eID, p.StudentID, respJSON, p.Record.TimeTakenSeconds, p.Record.RetakeCount,
		p.Record.Score, p.Record.MaxScore, p.Record.SubmissionDate,
	)
	return err
}
