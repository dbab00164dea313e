package jobgroup

import (
	"context"
	"fmt"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
)

// Aggregate derives a job group status from the statuses of its member jobs.
// Any FAILED member makes the group FAILED; a non-empty set of COMPLETE members
// makes it COMPLETE; everything else, including no members, is ACTIVE.
func Aggregate(statuses []string) string {
	complete := 0
	for _, status := range statuses {
		switch status {
		case domain.JobStatusFailed:
			return domain.GroupStatusFailed
		case domain.JobStatusComplete:
			complete++
		}
	}

	if complete > 0 && complete == len(statuses) {
		return domain.GroupStatusComplete
	}
	return domain.GroupStatusActive
}

// Status re-reads every committed member job and aggregates their statuses.
// Nothing is cached between calls.
func (g *Group) Status(ctx context.Context, q storage.Querier) (string, error) {
	id, err := g.mustExist(ctx, q)
	if err != nil {
		return "", err
	}

	statuses, err := g.svc.store.JobGroupMemberStatuses(ctx, q, id)
	if err != nil {
		return "", fmt.Errorf("failed to compute job group status: %w", err)
	}

	return Aggregate(statuses), nil
}

// AddOutput records file in the group's output fileset, persisting the file when needed.
// It has no status precondition.
func (g *Group) AddOutput(ctx context.Context, q storage.Querier, file *domain.File) error {
	id, err := g.mustExist(ctx, q)
	if err != nil {
		return err
	}

	row, err := g.svc.store.GetJobGroup(ctx, q, id)
	if err != nil {
		return err
	}

	var created bool
	err = storage.InTx(ctx, q, func(tx storage.Querier) error {
		if file.ID == 0 {
			if err := g.svc.store.CreateFile(ctx, tx, file); err != nil {
				return err
			}
			created = true
		}
		return g.svc.store.AddFileToFileset(ctx, tx, row.OutputFilesetID, file.ID)
	})
	if err != nil {
		if created {
			file.ID = 0
		}
		return fmt.Errorf("failed to add output to job group %d: %w", id, err)
	}

	g.OutputFileset.ID = row.OutputFilesetID
	return nil
}

// Output returns the group's output fileset once every member job is COMPLETE.
// ready is false, with a nil fileset, while the group status is anything else.
func (g *Group) Output(ctx context.Context, q storage.Querier) (fileset *domain.Fileset, ready bool, err error) {
	status, err := g.Status(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if status != domain.GroupStatusComplete {
		return nil, false, nil
	}

	id, err := g.mustExist(ctx, q)
	if err != nil {
		return nil, false, err
	}

	row, err := g.svc.store.GetJobGroup(ctx, q, id)
	if err != nil {
		return nil, false, err
	}

	fileset, err = g.svc.store.LoadFileset(ctx, q, row.OutputFilesetID)
	if err != nil {
		return nil, false, err
	}

	g.OutputFileset = *fileset
	return fileset, true, nil
}
