package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/jmoiron/sqlx"
)

// CreateWorkflow inserts a workflow definition
func (s *Storage) CreateWorkflow(ctx context.Context, q Querier, spec, owner, name string) (*domain.Workflow, error) {
	id, err := insertReturningID(ctx, q,
		`INSERT INTO wmbs_workflow (spec, owner, name) VALUES (?, ?, ?) RETURNING id`,
		spec, owner, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return &domain.Workflow{ID: id, Spec: spec, Owner: owner, Name: name}, nil
}

// CreateSubscription binds a fileset to a workflow
func (s *Storage) CreateSubscription(ctx context.Context, q Querier, filesetID, workflowID int64) (*domain.Subscription, error) {
	id, err := insertReturningID(ctx, q,
		`INSERT INTO wmbs_subscription (fileset_id, workflow_id) VALUES (?, ?) RETURNING id`,
		filesetID, workflowID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrMissingDependency, err)
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.Info("Subscription created",
		slog.Int64("subscription_id", id),
		slog.Int64("fileset_id", filesetID),
		slog.Int64("workflow_id", workflowID),
	)

	return &domain.Subscription{ID: id, FilesetID: filesetID, WorkflowID: workflowID}, nil
}

// SubscriptionExists reports whether a subscription row is visible to q
func (s *Storage) SubscriptionExists(ctx context.Context, q Querier, id int64) (bool, error) {
	_, ok, err := lookupID(ctx, q, `SELECT id FROM wmbs_subscription WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return ok, nil
}

// LoadSubscription retrieves the subscription summary including its workflow and fileset names
func (s *Storage) LoadSubscription(ctx context.Context, q Querier, id int64) (*domain.Subscription, error) {
	query := `
		SELECT s.id, s.fileset_id, s.workflow_id, f.name AS fileset_name, w.name AS workflow_name
		FROM wmbs_subscription s
		JOIN wmbs_fileset f ON f.id = s.fileset_id
		JOIN wmbs_workflow w ON w.id = s.workflow_id
		WHERE s.id = ?
	`

	var sub domain.Subscription
	if err := getOne(ctx, q, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription %d: %w", id, domain.ErrMissingDependency)
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// MarkSubscriptionFiles records state for the given files of a subscription, replacing earlier states
func (s *Storage) MarkSubscriptionFiles(ctx context.Context, q Querier, subscriptionID int64, fileIDs []int64, state string) error {
	query := q.Rebind(`
		INSERT INTO wmbs_sub_files (subscription_id, file_id, state) VALUES (?, ?, ?)
		ON CONFLICT (subscription_id, file_id) DO UPDATE SET state = excluded.state
	`)

	for _, fileID := range fileIDs {
		if _, err := q.ExecContext(ctx, query, subscriptionID, fileID, state); err != nil {
			return fmt.Errorf("failed to mark file %d as %s: %w", fileID, state, err)
		}
	}

	s.logger.Debug("Subscription files marked",
		slog.Int64("subscription_id", subscriptionID),
		slog.String("state", state),
		slog.Int("files", len(fileIDs)),
	)
	return nil
}

// SubscriptionFileStates returns the recorded state of every tracked file of a subscription
func (s *Storage) SubscriptionFileStates(ctx context.Context, q Querier, subscriptionID int64) (map[int64]string, error) {
	var rows []struct {
		FileID int64  `db:"file_id"`
		State  string `db:"state"`
	}
	err := selectAll(ctx, q, &rows, `SELECT file_id, state FROM wmbs_sub_files WHERE subscription_id = ?`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription file states: %w", err)
	}

	states := make(map[int64]string, len(rows))
	for _, row := range rows {
		states[row.FileID] = row.State
	}
	return states, nil
}

// JobInputFileIDs lists the distinct input file ids of the given jobs
func (s *Storage) JobInputFileIDs(ctx context.Context, q Querier, jobIDs []int64) ([]int64, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT DISTINCT file_id FROM wmbs_job_assoc WHERE job_id IN (?) ORDER BY file_id`, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build input file query: %w", err)
	}

	var fileIDs []int64
	if err := selectAll(ctx, q, &fileIDs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list job input files: %w", err)
	}
	return fileIDs, nil
}
