package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/pkg/ident"
)

// Record is the durable shadow of a job's desired configuration. It mirrors
// desired state, never the live task handle: the registry is rebuilt from
// records at boot.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CronExpr    string    `json:"cronExpr"`
	JobID       string    `json:"jobId"`
	JobKind     string    `json:"jobKind"`
	Running     bool      `json:"running"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RecordStore persists schedule records in Postgres.
type RecordStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewRecordStore creates a schedule record store backed by the given pool.
func NewRecordStore(pool *pgxpool.Pool, logger zerolog.Logger) *RecordStore {
	return &RecordStore{
		pool:   pool,
		logger: logger.With().Str("component", "schedule-records").Logger(),
	}
}

const recordColumns = `id, name, description, cron_expr, job_id, job_kind, running, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Description, &rec.CronExpr,
		&rec.JobID, &rec.JobKind, &rec.Running, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all schedule records.
func (s *RecordStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM schedule_records ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule record: %w", err)
		}
		records = append(records, *rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating schedule records: %w", rows.Err())
	}
	return records, nil
}

// GetByID returns a record, or nil when it does not exist.
func (s *RecordStore) GetByID(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM schedule_records WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query schedule record: %w", err)
	}
	return rec, nil
}

// Create inserts a new record, assigning an id when none is given.
func (s *RecordStore) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = ident.New(ident.PrefixSchedule)
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_records (id, name, description, cron_expr, job_id, job_kind, running, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.Name, rec.Description, rec.CronExpr, rec.JobID, rec.JobKind, rec.Running, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Failed to create schedule record")
		return fmt.Errorf("failed to create schedule record: %w", err)
	}

	s.logger.Info().
		Str("record_id", rec.ID).
		Str("job_id", rec.JobID).
		Str("cron", rec.CronExpr).
		Msg("Schedule record created")
	return nil
}

// Update rewrites a record's fields. The caller is responsible for cancelling
// and re-registering the live job first when schedule or kind changed; the
// mirror never migrates a live job on its own.
func (s *RecordStore) Update(ctx context.Context, rec *Record) (bool, error) {
	rec.UpdatedAt = time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE schedule_records
		SET name = $2, description = $3, cron_expr = $4, job_id = $5,
		    job_kind = $6, running = $7, updated_at = $8
		WHERE id = $1
	`, rec.ID, rec.Name, rec.Description, rec.CronExpr, rec.JobID, rec.JobKind, rec.Running, rec.UpdatedAt)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Failed to update schedule record")
		return false, fmt.Errorf("failed to update schedule record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetRunningByJobID flips the desired running flag on every record mirroring
// the given job.
func (s *RecordStore) SetRunningByJobID(ctx context.Context, jobID string, running bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE schedule_records SET running = $2, updated_at = NOW() WHERE job_id = $1
	`, jobID, running)
	if err != nil {
		return fmt.Errorf("failed to update schedule record running flag: %w", err)
	}
	return nil
}

// DeleteByJobID removes the records mirroring a cancelled job.
func (s *RecordStore) DeleteByJobID(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM schedule_records WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule records for job: %w", err)
	}
	return nil
}

// Delete removes a record. The live job, if any, is untouched.
func (s *RecordStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedule_records WHERE id = $1`, id)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", id).Msg("Failed to delete schedule record")
		return false, fmt.Errorf("failed to delete schedule record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
