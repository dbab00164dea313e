package jobgroup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/google/uuid"
)

// Store is the persistence surface the job group engine consumes
type Store interface {
	SubscriptionExists(ctx context.Context, q storage.Querier, id int64) (bool, error)
	LoadSubscription(ctx context.Context, q storage.Querier, id int64) (*domain.Subscription, error)
	MarkSubscriptionFiles(ctx context.Context, q storage.Querier, subscriptionID int64, fileIDs []int64, state string) error

	CreateFileset(ctx context.Context, q storage.Querier, name string) (*domain.Fileset, error)
	LoadFileset(ctx context.Context, q storage.Querier, id int64) (*domain.Fileset, error)
	AddFileToFileset(ctx context.Context, q storage.Querier, filesetID, fileID int64) error
	CreateFile(ctx context.Context, q storage.Querier, file *domain.File) error

	CreateJob(ctx context.Context, q storage.Querier, job *domain.Job) error
	LoadJob(ctx context.Context, q storage.Querier, id int64) (*domain.Job, error)
	JobInputFileIDs(ctx context.Context, q storage.Querier, jobIDs []int64) ([]int64, error)

	InsertJobGroup(ctx context.Context, q storage.Querier, uid string, subscriptionID, outputFilesetID int64) (int64, error)
	JobGroupIDByID(ctx context.Context, q storage.Querier, id int64) (int64, bool, error)
	JobGroupIDByUID(ctx context.Context, q storage.Querier, uid string) (int64, bool, error)
	GetJobGroup(ctx context.Context, q storage.Querier, id int64) (*domain.JobGroupRow, error)
	DeleteJobGroup(ctx context.Context, q storage.Querier, id int64) error
	InsertJobGroupLink(ctx context.Context, q storage.Querier, jobGroupID, jobID int64) error
	JobGroupJobIDs(ctx context.Context, q storage.Querier, jobGroupID int64) ([]int64, error)
	JobGroupMemberStatuses(ctx context.Context, q storage.Querier, jobGroupID int64) ([]string, error)
}

var _ Store = (*storage.Storage)(nil)

// Service builds job group handles bound to one store
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new Service instance
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// New returns an unpersisted job group bound to sub with a freshly minted uid
func (s *Service) New(sub domain.Subscription) *Group {
	return &Group{
		svc:          s,
		UID:          uuid.NewString(),
		Subscription: sub,
	}
}

// Ref returns a handle on a persisted job group; call Load or LoadData to populate it
func (s *Service) Ref(key Key) *Group {
	g := &Group{svc: s}
	switch key.kind {
	case keyID:
		g.ID = key.id
		g.hasID = true
	case keyUID:
		g.UID = key.uid
	}
	return g
}

// Group is one in-memory view of a job group.
// Several Groups may describe the same persisted row; each keeps its own
// staged and committed member lists.
type Group struct {
	svc *Service

	ID            int64
	UID           string
	Subscription  domain.Subscription
	OutputFileset domain.Fileset

	hasID bool

	// pending holds jobs staged by Add and not yet committed
	pending []*domain.Job
	// jobs holds the members committed through this object or read by LoadData
	jobs []*domain.Job
}

// Key returns the identity used to resolve the group: its uid when known, its id otherwise.
// Ids can be reissued after a rollback; uids never are.
func (g *Group) Key() Key {
	if g.UID != "" || !g.hasID {
		return ByUID(g.UID)
	}
	return ByID(g.ID)
}

// Create persists the group row and its empty output fileset as one unit inside q
func (g *Group) Create(ctx context.Context, q storage.Querier) error {
	var (
		id     int64
		output *domain.Fileset
	)

	err := storage.InTx(ctx, q, func(tx storage.Querier) error {
		if _, ok, err := g.Exists(ctx, tx); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("job group %s: %w", g.Key(), domain.ErrAlreadyExists)
		}

		ok, err := g.svc.store.SubscriptionExists(ctx, tx, g.Subscription.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("subscription %d: %w", g.Subscription.ID, domain.ErrMissingDependency)
		}

		output, err = g.svc.store.CreateFileset(ctx, tx, outputFilesetName(g.UID))
		if err != nil {
			return err
		}

		id, err = g.svc.store.InsertJobGroup(ctx, tx, g.UID, g.Subscription.ID, output.ID)
		return err
	})
	if err != nil {
		return err
	}

	g.ID = id
	g.hasID = true
	g.OutputFileset = *output

	g.svc.logger.Info("Job group created",
		slog.Int64("jobgroup_id", id),
		slog.String("uid", g.UID),
		slog.Int64("subscription_id", g.Subscription.ID),
		slog.Int64("output_fileset_id", output.ID),
	)
	return nil
}

// Delete removes the group row, its membership links and its output fileset.
// Member jobs are kept.
func (g *Group) Delete(ctx context.Context, q storage.Querier) error {
	return storage.InTx(ctx, q, func(tx storage.Querier) error {
		id, err := g.mustExist(ctx, tx)
		if err != nil {
			return err
		}
		return g.svc.store.DeleteJobGroup(ctx, tx, id)
	})
}

// Add stages job for the next Commit. It touches no storage and does not deduplicate.
func (g *Group) Add(job *domain.Job) {
	g.pending = append(g.pending, job)
}

// Commit persists every staged job that has no id yet and links all of them to the group.
// The staged list is cleared and the local member list extended only on success.
// A later rollback of q's transaction does not shrink the local member list.
func (g *Group) Commit(ctx context.Context, q storage.Querier) error {
	if len(g.pending) == 0 {
		return nil
	}

	id, err := g.mustExist(ctx, q)
	if err != nil {
		return err
	}

	var (
		created      []*domain.Job
		createdFiles []*domain.File
	)
	err = storage.InTx(ctx, q, func(tx storage.Querier) error {
		for _, job := range g.pending {
			if job.ID == 0 {
				for i := range job.Files {
					if job.Files[i].ID == 0 {
						createdFiles = append(createdFiles, &job.Files[i])
					}
				}
				created = append(created, job)
				if err := g.svc.store.CreateJob(ctx, tx, job); err != nil {
					return err
				}
			}
			if err := g.svc.store.InsertJobGroupLink(ctx, tx, id, job.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for _, job := range created {
			job.ID = 0
		}
		for _, file := range createdFiles {
			file.ID = 0
		}
		g.svc.logger.Error("Failed to commit job group membership",
			slog.Int64("jobgroup_id", id),
			slog.Int("staged", len(g.pending)),
			slog.Any("error", err),
		)
		return domain.NewCommitError(id, err)
	}

	g.jobs = append(g.jobs, g.pending...)
	g.pending = nil

	g.svc.logger.Info("Job group membership committed",
		slog.Int64("jobgroup_id", id),
		slog.Int("members", len(g.jobs)),
	)
	return nil
}

// Load populates the group's identity plus the ids of its subscription and output fileset
func (g *Group) Load(ctx context.Context, q storage.Querier) error {
	id, err := g.mustExist(ctx, q)
	if err != nil {
		return err
	}

	row, err := g.svc.store.GetJobGroup(ctx, q, id)
	if err != nil {
		return err
	}

	g.ID = row.ID
	g.hasID = true
	g.UID = row.UID
	g.Subscription = domain.Subscription{ID: row.SubscriptionID}
	g.OutputFileset = domain.Fileset{ID: row.OutputFilesetID}
	return nil
}

// LoadData performs Load and then reads the subscription summary, every committed
// member job and the output fileset's files. The local member list is replaced.
func (g *Group) LoadData(ctx context.Context, q storage.Querier) error {
	if err := g.Load(ctx, q); err != nil {
		return err
	}

	sub, err := g.svc.store.LoadSubscription(ctx, q, g.Subscription.ID)
	if err != nil {
		return err
	}

	output, err := g.svc.store.LoadFileset(ctx, q, g.OutputFileset.ID)
	if err != nil {
		return err
	}

	jobIDs, err := g.svc.store.JobGroupJobIDs(ctx, q, g.ID)
	if err != nil {
		return err
	}

	jobs := make([]*domain.Job, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		job, err := g.svc.store.LoadJob(ctx, q, jobID)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	g.Subscription = *sub
	g.OutputFileset = *output
	g.jobs = jobs

	g.svc.logger.Debug("Job group data loaded",
		slog.Int64("jobgroup_id", g.ID),
		slog.Int("members", len(jobs)),
		slog.Int("output_files", len(output.Files)),
	)
	return nil
}

// JobIDs returns the ids of the known member jobs
func (g *Group) JobIDs() []int64 {
	ids := make([]int64, 0, len(g.jobs))
	for _, job := range g.jobs {
		ids = append(ids, job.ID)
	}
	return ids
}

// Jobs returns the known member jobs
func (g *Group) Jobs() []*domain.Job {
	jobs := make([]*domain.Job, len(g.jobs))
	copy(jobs, g.jobs)
	return jobs
}

// Pending returns the number of jobs staged and not yet committed
func (g *Group) Pending() int {
	return len(g.pending)
}

func outputFilesetName(uid string) string {
	return "jobgroup-output-" + uid
}
