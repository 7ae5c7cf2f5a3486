package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/jmoiron/sqlx"
)

const syncJobColumns = `id, sequence, kind, channel, title, status, progress, total, message, error, started_at, finished_at`

// SyncJobRepository persists [models.SyncJob] rows.
type SyncJobRepository struct {
	db *sqlx.DB
}

// NewSyncJobRepository creates a new SyncJobRepository with the given database connection
func NewSyncJobRepository(db *sqlx.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts a job with a generated ID and sequence
func (r *SyncJobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.ID = shared.GenerateID()
	job.Sequence = sequence
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync_jobs (` + syncJobColumns + `)
		VALUES (:id, :sequence, :kind, :channel, :title, :status, :progress, :total, :message, :error, :started_at, :finished_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("failed to insert sync job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (r *SyncJobRepository) Get(ctx context.Context, id string) (*models.SyncJob, error) {
	var job models.SyncJob
	err := r.db.GetContext(ctx, &job, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync job %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	return &job, nil
}

// Progress stores the latest progress of a running job
func (r *SyncJobRepository) Progress(ctx context.Context, job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sync_jobs
		SET title = :title, progress = :progress, total = :total
		WHERE id = :id AND status = 'running'
	`
	return r.update(ctx, query, job)
}

// Finish stores the terminal status of a job
func (r *SyncJobRepository) Finish(ctx context.Context, job *models.SyncJob) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("%w: status %q is not terminal", shared.ErrInvalidArgument, job.Status)
	}
	if job.FinishedAt == nil {
		now := time.Now().UTC()
		job.FinishedAt = &now
	}

	query := `
		UPDATE sync_jobs
		SET title = :title, status = :status, progress = :progress, total = :total,
			error = :error, finished_at = :finished_at
		WHERE id = :id AND status = 'running'
	`
	return r.update(ctx, query, job)
}

func (r *SyncJobRepository) update(ctx context.Context, query string, job *models.SyncJob) error {
	result, err := r.db.NamedExecContext(ctx, query, job)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: running sync job %s", shared.ErrNotFound, job.ID)
	}
	return nil
}

// ListOptions filters [SyncJobRepository.List]. Zero values match everything.
type ListOptions struct {
	Kind   models.SyncKind
	Status models.SyncStatus
	Limit  int
}

// List returns jobs newest first
func (r *SyncJobRepository) List(ctx context.Context, opts ListOptions) ([]models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE 1 = 1`
	args := []any{}

	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}

	query += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	jobs := []models.SyncJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	return jobs, nil
}

// SyncJobRecorder implements tasks.JobRecorder using SyncJobRepository.
type SyncJobRecorder struct {
	repo *SyncJobRepository
}

// NewSyncJobRecorder creates a new SyncJobRecorder with the given repository
func NewSyncJobRecorder(repo *SyncJobRepository) *SyncJobRecorder {
	return &SyncJobRecorder{repo: repo}
}

// Start records a newly acknowledged job
func (a *SyncJobRecorder) Start(ctx context.Context, kind models.SyncKind, ack models.SyncAck) (*models.SyncJob, error) {
	job := models.NewSyncJob(kind, ack)
	if err := a.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Progress copies ev onto job and saves it
func (a *SyncJobRecorder) Progress(ctx context.Context, job *models.SyncJob, ev models.ProgressEvent) error {
	job.Progress, job.Total = ev.Progress, ev.Total
	if ev.Title != "" {
		job.Title = ev.Title
	}
	return a.repo.Progress(ctx, job)
}

// Finish marks job with status, keeping the error text of cause
func (a *SyncJobRecorder) Finish(ctx context.Context, job *models.SyncJob, status models.SyncStatus, cause error) error {
	job.Status = status
	if cause != nil {
		job.Error = cause.Error()
	}
	return a.repo.Finish(ctx, job)
}
