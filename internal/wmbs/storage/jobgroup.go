package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
)

// JobGroupFilter selects a page of job groups ordered by id
type JobGroupFilter struct {
	SubscriptionID int64 // 0 selects every subscription
	PageSize       int
	Cursor         *JobGroupCursor
}

// JobGroupCursor marks the last job group of the previous page
type JobGroupCursor struct {
	ID int64
}

// InsertJobGroup inserts a job group row and returns its surrogate id
func (s *Storage) InsertJobGroup(ctx context.Context, q Querier, uid string, subscriptionID, outputFilesetID int64) (int64, error) {
	query := `
		INSERT INTO wmbs_jobgroup (uid, subscription_id, output_fileset_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	id, err := insertReturningID(ctx, q, query, uid, subscriptionID, outputFilesetID, s.now())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: %v", domain.ErrMissingDependency, err)
		}
		return 0, fmt.Errorf("failed to insert job group: %w", err)
	}

	s.logger.Info("Job group inserted",
		slog.Int64("jobgroup_id", id),
		slog.String("uid", uid),
		slog.Int64("subscription_id", subscriptionID),
	)

	return id, nil
}

// JobGroupIDByID reports whether a job group with the given id is visible to q
func (s *Storage) JobGroupIDByID(ctx context.Context, q Querier, id int64) (int64, bool, error) {
	found, ok, err := lookupID(ctx, q, `SELECT id FROM wmbs_jobgroup WHERE id = ?`, id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up job group: %w", err)
	}
	return found, ok, nil
}

// JobGroupIDByUID resolves a job group uid to its surrogate id
func (s *Storage) JobGroupIDByUID(ctx context.Context, q Querier, uid string) (int64, bool, error) {
	found, ok, err := lookupID(ctx, q, `SELECT id FROM wmbs_jobgroup WHERE uid = ?`, uid)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up job group by uid: %w", err)
	}
	return found, ok, nil
}

// GetJobGroup retrieves a job group row by its id
func (s *Storage) GetJobGroup(ctx context.Context, q Querier, id int64) (*domain.JobGroupRow, error) {
	query := `
		SELECT id, uid, subscription_id, output_fileset_id, created_at
		FROM wmbs_jobgroup
		WHERE id = ?
	`

	var row domain.JobGroupRow
	if err := getOne(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job group: %w", err)
	}

	return &row, nil
}

// DeleteJobGroup removes a job group, its membership links and its output fileset.
// Member jobs are left in place, and so is an output fileset that still feeds a subscription.
func (s *Storage) DeleteJobGroup(ctx context.Context, q Querier, id int64) error {
	row, err := s.GetJobGroup(ctx, q, id)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM wmbs_jobgroup_job WHERE jobgroup_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete job group membership: %w", err)
	}

	result, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM wmbs_jobgroup WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete job group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	_, feeds, err := lookupID(ctx, q, `SELECT id FROM wmbs_subscription WHERE fileset_id = ? LIMIT 1`, row.OutputFilesetID)
	if err != nil {
		return fmt.Errorf("failed to look up subscriptions on output fileset: %w", err)
	}
	if !feeds {
		if err := s.DeleteFileset(ctx, q, row.OutputFilesetID); err != nil {
			return err
		}
	}

	s.logger.Info("Job group deleted",
		slog.Int64("jobgroup_id", id),
		slog.Int64("output_fileset_id", row.OutputFilesetID),
		slog.Bool("output_fileset_kept", feeds),
	)

	return nil
}

// InsertJobGroupLink associates a persisted job with a job group
func (s *Storage) InsertJobGroupLink(ctx context.Context, q Querier, jobGroupID, jobID int64) error {
	query := `INSERT INTO wmbs_jobgroup_job (jobgroup_id, job_id) VALUES (?, ?)`

	if _, err := q.ExecContext(ctx, q.Rebind(query), jobGroupID, jobID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("job %d or job group %d: %w", jobID, jobGroupID, domain.ErrMissingDependency)
		}
		return fmt.Errorf("failed to link job %d to job group %d: %w", jobID, jobGroupID, err)
	}
	return nil
}

// JobGroupJobIDs lists the committed member job ids of a job group
func (s *Storage) JobGroupJobIDs(ctx context.Context, q Querier, jobGroupID int64) ([]int64, error) {
	query := `SELECT job_id FROM wmbs_jobgroup_job WHERE jobgroup_id = ? ORDER BY job_id`

	var ids []int64
	if err := selectAll(ctx, q, &ids, query, jobGroupID); err != nil {
		return nil, fmt.Errorf("failed to list job group members: %w", err)
	}
	return ids, nil
}

// JobGroupMemberStatuses reads the current status of every committed member job
func (s *Storage) JobGroupMemberStatuses(ctx context.Context, q Querier, jobGroupID int64) ([]string, error) {
	query := `
		SELECT j.status
		FROM wmbs_jobgroup_job l
		JOIN wmbs_job j ON j.id = l.job_id
		WHERE l.jobgroup_id = ?
	`

	var statuses []string
	if err := selectAll(ctx, q, &statuses, query, jobGroupID); err != nil {
		return nil, fmt.Errorf("failed to read member job statuses: %w", err)
	}
	return statuses, nil
}

// ListJobGroups returns up to PageSize+1 job groups so the caller can detect another page
func (s *Storage) ListJobGroups(ctx context.Context, q Querier, filter JobGroupFilter) ([]domain.JobGroupRow, error) {
	query := `
		SELECT id, uid, subscription_id, output_fileset_id, created_at
		FROM wmbs_jobgroup
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.SubscriptionID != 0 {
		query += " AND subscription_id = ?"
		args = append(args, filter.SubscriptionID)
	}

	if filter.Cursor != nil {
		query += " AND id > ?"
		args = append(args, filter.Cursor.ID)
	}

	query += " ORDER BY id LIMIT ?"
	args = append(args, filter.PageSize+1)

	var rows []domain.JobGroupRow
	if err := selectAll(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list job groups: %w", err)
	}
	return rows, nil
}
