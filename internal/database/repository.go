package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// Repository archives finished requests to Postgres. The in-process store
// remains the source of truth while a request runs; this is history for
// reporting and cross-restart dedup checks.
type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// transaction-mode poolers (pgbouncer and friends) break prepared
	// statements, so stay on plain exec mode
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Ping to ensure connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// ---------------- JOB OPERATIONS ----------------

// SaveJob inserts a new job or updates an existing one (based on source + url)
func (r *Repository) SaveJob(ctx context.Context, job models.JobPosting) (string, error) {
	query := `
		INSERT INTO jobs (source, url, title, company, location, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, url)
		DO UPDATE SET title = EXCLUDED.title, company = EXCLUDED.company, description = EXCLUDED.description
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query, job.Source, job.URL, job.Title, job.Company, job.Location, job.Description).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save job: %w", err)
	}
	return id, nil
}

// ---------------- APPLICATION OPERATIONS ----------------

// ArchiveRequest persists every item of a finished request.
func (r *Repository) ArchiveRequest(ctx context.Context, req *models.ApplicationRequest) error {
	for _, item := range req.Items {
		jobID, err := r.SaveJob(ctx, item.Posting)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO applications (request_id, job_id, applicant_email, status, score, error, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (request_id, job_id)
			DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error, sent_at = EXCLUDED.sent_at`

		var sentAt *time.Time
		if item.Delivery != nil {
			sentAt = &item.Delivery.SentAt
		}
		if _, err := r.db.Exec(ctx, query,
			req.ID, jobID, req.Profile.Email, string(item.Status), item.Score, item.Error, sentAt); err != nil {
			return fmt.Errorf("failed to archive application: %w", err)
		}
	}
	return nil
}

// SentCount reports how many applications a given applicant has sent.
func (r *Repository) SentCount(ctx context.Context, applicantEmail string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM applications WHERE applicant_email = $1 AND status = $2",
		applicantEmail, string(models.ItemSent)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sent applications: %w", err)
	}
	return n, nil
}
