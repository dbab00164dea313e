package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
)

// CreateJob persists a job and its input file associations, creating unpersisted input files first
func (s *Storage) CreateJob(ctx context.Context, q Querier, job *domain.Job) error {
	if job.Status == "" {
		job.Status = domain.JobStatusCreated
	}
	now := s.now()

	id, err := insertReturningID(ctx, q,
		`INSERT INTO wmbs_job (name, status, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`,
		job.Name, job.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	assoc := q.Rebind(`INSERT INTO wmbs_job_assoc (job_id, file_id) VALUES (?, ?) ON CONFLICT (job_id, file_id) DO NOTHING`)
	for i := range job.Files {
		if err := s.ensureFile(ctx, q, &job.Files[i]); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, assoc, id, job.Files[i].ID); err != nil {
			return fmt.Errorf("failed to associate input file with job: %w", err)
		}
	}

	job.ID = id
	job.CreatedAt = now
	job.UpdatedAt = now

	s.logger.Debug("Job created",
		slog.Int64("job_id", id),
		slog.String("name", job.Name),
		slog.Int("input_files", len(job.Files)),
	)
	return nil
}

// LoadJob retrieves a job with its current status and input files
func (s *Storage) LoadJob(ctx context.Context, q Querier, id int64) (*domain.Job, error) {
	var job domain.Job
	err := getOne(ctx, q, &job, `SELECT id, name, status, created_at, updated_at FROM wmbs_job WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %d: %w", id, domain.ErrMissingDependency)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	query := `
		SELECT f.id, f.lfn, f.size, f.events
		FROM wmbs_job_assoc a
		JOIN wmbs_file f ON f.id = a.file_id
		WHERE a.job_id = ?
		ORDER BY f.id
	`
	if err := selectAll(ctx, q, &job.Files, query, id); err != nil {
		return nil, fmt.Errorf("failed to load job input files: %w", err)
	}

	return &job, nil
}

// ChangeJobStatus moves a job to a new status
func (s *Storage) ChangeJobStatus(ctx context.Context, q Querier, id int64, status string) error {
	result, err := q.ExecContext(ctx,
		q.Rebind(`UPDATE wmbs_job SET status = ?, updated_at = ? WHERE id = ?`),
		status, s.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job %d: %w", id, domain.ErrMissingDependency)
	}

	s.logger.Info("Job status updated",
		slog.Int64("job_id", id),
		slog.String("status", status),
	)
	return nil
}

// AddJobOutput records file as an output of the job, persisting the file when needed
func (s *Storage) AddJobOutput(ctx context.Context, q Querier, jobID int64, file *domain.File) error {
	if err := s.ensureFile(ctx, q, file); err != nil {
		return err
	}

	query := `INSERT INTO wmbs_job_output (job_id, file_id) VALUES (?, ?) ON CONFLICT (job_id, file_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, q.Rebind(query), jobID, file.ID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("job %d: %w", jobID, domain.ErrMissingDependency)
		}
		return fmt.Errorf("failed to add job output: %w", err)
	}
	return nil
}

// JobOutputFiles lists the output files recorded for a job
func (s *Storage) JobOutputFiles(ctx context.Context, q Querier, jobID int64) ([]domain.File, error) {
	query := `
		SELECT f.id, f.lfn, f.size, f.events
		FROM wmbs_job_output o
		JOIN wmbs_file f ON f.id = o.file_id
		WHERE o.job_id = ?
		ORDER BY f.id
	`

	var files []domain.File
	if err := selectAll(ctx, q, &files, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to load job output files: %w", err)
	}
	return files, nil
}

// CountJobsByStatus summarizes the jobs of a workflow's job groups by status
func (s *Storage) CountJobsByStatus(ctx context.Context, q Querier, workflow string) ([]domain.JobStatusCount, error) {
	query := `
		SELECT w.name AS workflow, j.status AS status, COUNT(DISTINCT j.id) AS count
		FROM wmbs_job j
		JOIN wmbs_jobgroup_job l ON l.job_id = j.id
		JOIN wmbs_jobgroup g ON g.id = l.jobgroup_id
		JOIN wmbs_subscription s ON s.id = g.subscription_id
		JOIN wmbs_workflow w ON w.id = s.workflow_id
		WHERE w.name = ?
		GROUP BY w.name, j.status
		ORDER BY j.status
	`

	var counts []domain.JobStatusCount
	if err := selectAll(ctx, q, &counts, query, workflow); err != nil {
		return nil, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	return counts, nil
}
