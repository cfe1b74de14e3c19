package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pop-scanner/internal/models"
	"github.com/pop-scanner/internal/types"
)

// ScrapeJobRepository handles scrape job state transitions. Jobs are created
// by the scheduler; this service only moves them to completed or failed.
type ScrapeJobRepository struct {
	db *PostgresDB
}

// NewScrapeJobRepository creates a new scrape job repository
func NewScrapeJobRepository(db *PostgresDB) *ScrapeJobRepository {
	return &ScrapeJobRepository{db: db}
}

// Get retrieves a scrape job by id
func (r *ScrapeJobRepository) Get(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	query := `
		SELECT id, funko_pop_id, status, error_message,
			   last_scraped, next_scrape_due, updated_at
		FROM scrape_jobs
		WHERE id = $1
	`

	var job models.ScrapeJob
	err := r.db.Pool().QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&job.FunkoPopID,
		&job.Status,
		&job.ErrorMessage,
		&job.LastScraped,
		&job.NextScrapeDue,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("scrape job not found: %s", jobID)
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}

	return &job, nil
}

// ClaimDue atomically claims up to limit due jobs by marking them running.
// SKIP LOCKED keeps concurrent worker replicas from claiming the same job.
func (r *ScrapeJobRepository) ClaimDue(ctx context.Context, limit int) ([]*models.ScrapeJob, error) {
	query := `
		UPDATE scrape_jobs
		SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM scrape_jobs
			WHERE next_scrape_due IS NOT NULL
			  AND next_scrape_due <= now()
			  AND status IN ($2, $3)
			ORDER BY next_scrape_due
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, funko_pop_id, status, error_message,
				  last_scraped, next_scrape_due, updated_at
	`

	rows, err := r.db.Pool().Query(ctx, query,
		types.JobStatusRunning, types.JobStatusPending, types.JobStatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due scrape jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScrapeJob
	for rows.Next() {
		var job models.ScrapeJob
		if err := rows.Scan(
			&job.ID,
			&job.FunkoPopID,
			&job.Status,
			&job.ErrorMessage,
			&job.LastScraped,
			&job.NextScrapeDue,
			&job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan claimed scrape job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed scrape jobs: %w", err)
	}

	return jobs, nil
}

// MarkCompleted transitions a job to completed and stamps the scheduling
// fields.
func (r *ScrapeJobRepository) MarkCompleted(ctx context.Context, jobID string, lastScraped, nextScrapeDue time.Time) error {
	query := `
		UPDATE scrape_jobs
		SET status = $2, error_message = NULL,
			last_scraped = $3, next_scrape_due = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		jobID, types.JobStatusCompleted, lastScraped, nextScrapeDue, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark scrape job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scrape job not found: %s", jobID)
	}

	return nil
}

// MarkFailed transitions a job to failed with an error message.
func (r *ScrapeJobRepository) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE scrape_jobs
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		jobID, types.JobStatusFailed, errorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark scrape job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scrape job not found: %s", jobID)
	}

	return nil
}
