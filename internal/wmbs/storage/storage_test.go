package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage/storagetest"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, store := storagetest.NewDB(t)

		var id int64
		err := storage.InTx(ctx, db, func(q storage.Querier) error {
			fs, err := store.CreateFileset(ctx, q, "committed")
			id = fs.ID
			return err
		})
		require.NoError(t, err)

		fs, err := store.LoadFileset(ctx, db, id)
		require.NoError(t, err)
		assert.Equal(t, "committed", fs.Name)
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, store := storagetest.NewDB(t)
		boom := errors.New("boom")

		var id int64
		err := storage.InTx(ctx, db, func(q storage.Querier) error {
			fs, err := store.CreateFileset(ctx, q, "discarded")
			require.NoError(t, err)
			id = fs.ID
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = store.LoadFileset(ctx, db, id)
		assert.ErrorIs(t, err, domain.ErrMissingDependency)
	})

	t.Run("joins the caller's transaction", func(t *testing.T) {
		db, store := storagetest.NewDB(t)

		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)

		var id int64
		err = storage.InTx(ctx, tx, func(q storage.Querier) error {
			assert.Same(t, tx, q)
			fs, err := store.CreateFileset(ctx, q, "ambient")
			id = fs.ID
			return err
		})
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		_, err = store.LoadFileset(ctx, db, id)
		assert.ErrorIs(t, err, domain.ErrMissingDependency)
	})
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	db, store := storagetest.NewDB(t)

	other := sqlx.NewDb(db.DB, "mysql")
	err := store.Migrate(context.Background(), other)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	job := domain.NewJob("TestJobA", storagetest.NewFile("/this/is/a/lfnA"))
	require.NoError(t, f.Store.CreateJob(ctx, f.DB, job))
	require.NotZero(t, job.ID)
	require.NotZero(t, job.Files[0].ID, "input file should be persisted with the job")

	loaded, err := f.Store.LoadJob(ctx, f.DB, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "TestJobA", loaded.Name)
	assert.Equal(t, domain.JobStatusCreated, loaded.Status)
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, "/this/is/a/lfnA", loaded.Files[0].LFN)

	require.NoError(t, f.Store.ChangeJobStatus(ctx, f.DB, job.ID, domain.JobStatusActive))
	loaded, err = f.Store.LoadJob(ctx, f.DB, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusActive, loaded.Status)

	out := storagetest.NewFile("/this/is/a/lfnOut")
	require.NoError(t, f.Store.AddJobOutput(ctx, f.DB, job.ID, &out))
	require.NoError(t, f.Store.AddJobOutput(ctx, f.DB, job.ID, &out))
	outputs, err := f.Store.JobOutputFiles(ctx, f.DB, job.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, out.ID, outputs[0].ID)

	err = f.Store.ChangeJobStatus(ctx, f.DB, job.ID+100, domain.JobStatusFailed)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)

	_, err = f.Store.LoadJob(ctx, f.DB, job.ID+100)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestInsertJobGroup(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	output, err := f.Store.CreateFileset(ctx, f.DB, "output")
	require.NoError(t, err)

	id, err := f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	require.NoError(t, err)

	byID, ok, err := f.Store.JobGroupIDByID(ctx, f.DB, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, byID)

	byUID, ok, err := f.Store.JobGroupIDByUID(ctx, f.DB, "uid-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, byUID)

	_, ok, err = f.Store.JobGroupIDByUID(ctx, f.DB, "uid-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.Store.InsertJobGroup(ctx, f.DB, "uid-3", f.Subscription.ID+100, output.ID)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestDeleteJobGroup_KeepsJobs(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	output, err := f.Store.CreateFileset(ctx, f.DB, "output")
	require.NoError(t, err)
	file := storagetest.NewFile("/out/1")
	require.NoError(t, f.Store.CreateFile(ctx, f.DB, &file))
	require.NoError(t, f.Store.AddFileToFileset(ctx, f.DB, output.ID, file.ID))

	id, err := f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	require.NoError(t, err)

	job := domain.NewJob("member")
	require.NoError(t, f.Store.CreateJob(ctx, f.DB, job))
	require.NoError(t, f.Store.InsertJobGroupLink(ctx, f.DB, id, job.ID))

	require.NoError(t, f.Store.DeleteJobGroup(ctx, f.DB, id))

	_, ok, err := f.Store.JobGroupIDByID(ctx, f.DB, id)
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := f.Store.JobGroupJobIDs(ctx, f.DB, id)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = f.Store.LoadFileset(ctx, f.DB, output.ID)
	assert.ErrorIs(t, err, domain.ErrMissingDependency, "output fileset is owned by the group")

	_, err = f.Store.LoadJob(ctx, f.DB, job.ID)
	assert.NoError(t, err, "member jobs survive the group")

	assert.ErrorIs(t, f.Store.DeleteJobGroup(ctx, f.DB, id), domain.ErrNotFound)
}

func TestDeleteJobGroup_KeepsOutputFeedingSubscription(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	output, err := f.Store.CreateFileset(ctx, f.DB, "output")
	require.NoError(t, err)
	id, err := f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	require.NoError(t, err)

	_, err = f.Store.CreateSubscription(ctx, f.DB, output.ID, f.Workflow.ID)
	require.NoError(t, err)

	require.NoError(t, f.Store.DeleteJobGroup(ctx, f.DB, id))

	_, ok, err := f.Store.JobGroupIDByID(ctx, f.DB, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.Store.LoadFileset(ctx, f.DB, output.ID)
	assert.NoError(t, err, "output fileset read by a subscription is kept")
}

func TestInsertJobGroupLink_MissingJob(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	output, err := f.Store.CreateFileset(ctx, f.DB, "output")
	require.NoError(t, err)
	id, err := f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	require.NoError(t, err)

	err = f.Store.InsertJobGroupLink(ctx, f.DB, id, 4242)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestListJobGroups(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	other, err := f.Store.CreateSubscription(ctx, f.DB, f.Fileset.ID, f.Workflow.ID)
	require.NoError(t, err)

	var ids []int64
	for i, sub := range []int64{f.Subscription.ID, other.ID, f.Subscription.ID, f.Subscription.ID} {
		output, err := f.Store.CreateFileset(ctx, f.DB, "output")
		require.NoError(t, err)
		id, err := f.Store.InsertJobGroup(ctx, f.DB, string(rune('a'+i)), sub, output.ID)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	tests := []struct {
		name    string
		filter  storage.JobGroupFilter
		wantIDs []int64
	}{
		{
			name:    "all groups, one extra row signals another page",
			filter:  storage.JobGroupFilter{PageSize: 2},
			wantIDs: ids[:3],
		},
		{
			name:    "after cursor",
			filter:  storage.JobGroupFilter{PageSize: 10, Cursor: &storage.JobGroupCursor{ID: ids[1]}},
			wantIDs: ids[2:],
		},
		{
			name:    "by subscription",
			filter:  storage.JobGroupFilter{PageSize: 10, SubscriptionID: f.Subscription.ID},
			wantIDs: []int64{ids[0], ids[2], ids[3]},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.Store.ListJobGroups(ctx, f.DB, tt.filter)
			require.NoError(t, err)

			got := make([]int64, len(rows))
			for i, row := range rows {
				got[i] = row.ID
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestMarkSubscriptionFiles(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	a := storagetest.NewFile("/a")
	b := storagetest.NewFile("/b")
	require.NoError(t, f.Store.CreateFile(ctx, f.DB, &a))
	require.NoError(t, f.Store.CreateFile(ctx, f.DB, &b))

	ids := []int64{a.ID, b.ID}
	require.NoError(t, f.Store.MarkSubscriptionFiles(ctx, f.DB, f.Subscription.ID, ids, domain.FileStateAcquired))
	require.NoError(t, f.Store.MarkSubscriptionFiles(ctx, f.DB, f.Subscription.ID, ids[:1], domain.FileStateCompleted))

	states, err := f.Store.SubscriptionFileStates(ctx, f.DB, f.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{
		a.ID: domain.FileStateCompleted,
		b.ID: domain.FileStateAcquired,
	}, states)
}

func TestCountJobsByStatus(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	output, err := f.Store.CreateFileset(ctx, f.DB, "output")
	require.NoError(t, err)
	id, err := f.Store.InsertJobGroup(ctx, f.DB, "uid-1", f.Subscription.ID, output.ID)
	require.NoError(t, err)

	for _, status := range []string{domain.JobStatusActive, domain.JobStatusActive, domain.JobStatusFailed} {
		job := domain.NewJob("job")
		job.Status = status
		require.NoError(t, f.Store.CreateJob(ctx, f.DB, job))
		require.NoError(t, f.Store.InsertJobGroupLink(ctx, f.DB, id, job.ID))
	}

	counts, err := f.Store.CountJobsByStatus(ctx, f.DB, "wf001")
	require.NoError(t, err)
	assert.Equal(t, []domain.JobStatusCount{
		{Workflow: "wf001", Status: domain.JobStatusActive, Count: 2},
		{Workflow: "wf001", Status: domain.JobStatusFailed, Count: 1},
	}, counts)

	counts, err = f.Store.CountJobsByStatus(ctx, f.DB, "unknown")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestLoadSubscription(t *testing.T) {
	ctx := context.Background()
	f := storagetest.NewFixture(t)

	sub, err := f.Store.LoadSubscription(ctx, f.DB, f.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf001", sub.WorkflowName)
	assert.Equal(t, "TestFileset", sub.FilesetName)

	ok, err := f.Store.SubscriptionExists(ctx, f.DB, f.Subscription.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.Store.CreateSubscription(ctx, f.DB, f.Fileset.ID+100, f.Workflow.ID)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}
