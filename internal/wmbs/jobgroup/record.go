package jobgroup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
)

// RecordAcquire marks the input files of every committed member job as acquired by the subscription
func (g *Group) RecordAcquire(ctx context.Context, q storage.Querier) error {
	return g.recordFiles(ctx, q, domain.FileStateAcquired)
}

// RecordComplete marks the input files of every committed member job as completed
func (g *Group) RecordComplete(ctx context.Context, q storage.Querier) error {
	return g.recordFiles(ctx, q, domain.FileStateCompleted)
}

// RecordFail marks the input files of every committed member job as failed
func (g *Group) RecordFail(ctx context.Context, q storage.Querier) error {
	return g.recordFiles(ctx, q, domain.FileStateFailed)
}

func (g *Group) recordFiles(ctx context.Context, q storage.Querier, state string) error {
	return storage.InTx(ctx, q, func(tx storage.Querier) error {
		id, err := g.mustExist(ctx, tx)
		if err != nil {
			return err
		}

		row, err := g.svc.store.GetJobGroup(ctx, tx, id)
		if err != nil {
			return err
		}

		jobIDs, err := g.svc.store.JobGroupJobIDs(ctx, tx, id)
		if err != nil {
			return err
		}

		fileIDs, err := g.svc.store.JobInputFileIDs(ctx, tx, jobIDs)
		if err != nil {
			return err
		}

		if err := g.svc.store.MarkSubscriptionFiles(ctx, tx, row.SubscriptionID, fileIDs, state); err != nil {
			return fmt.Errorf("failed to record %s files for job group %d: %w", state, id, err)
		}

		g.svc.logger.Info("Job group files recorded",
			slog.Int64("jobgroup_id", id),
			slog.Int64("subscription_id", row.SubscriptionID),
			slog.String("state", state),
			slog.Int("files", len(fileIDs)),
		)
		return nil
	})
}
