// Package storagetest opens throwaway sqlite stores with the job group schema applied.
package storagetest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Fixture bundles a migrated store with a workflow, fileset and subscription ready for job groups
type Fixture struct {
	DB           *sqlx.DB
	Store        *storage.Storage
	Workflow     *domain.Workflow
	Fileset      *domain.Fileset
	Subscription *domain.Subscription
}

// NewDB opens a sqlite database in t's temp dir and applies the schema
func NewDB(t testing.TB) (*sqlx.DB, *storage.Storage) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		filepath.Join(t.TempDir(), "wmbs.db"))

	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewStorage(slog.New(slog.DiscardHandler))
	require.NoError(t, store.Migrate(context.Background(), db))

	return db, store
}

// NewFixture creates the store plus workflow "wf001" and fileset "TestFileset" bound by a subscription
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	ctx := context.Background()

	db, store := NewDB(t)

	workflow, err := store.CreateWorkflow(ctx, db, "spec.xml", "Simon", "wf001")
	require.NoError(t, err)

	fileset, err := store.CreateFileset(ctx, db, "TestFileset")
	require.NoError(t, err)

	sub, err := store.CreateSubscription(ctx, db, fileset.ID, workflow.ID)
	require.NoError(t, err)

	return &Fixture{
		DB:           db,
		Store:        store,
		Workflow:     workflow,
		Fileset:      fileset,
		Subscription: sub,
	}
}

// NewFile returns an unpersisted file with the given lfn
func NewFile(lfn string) domain.File {
	return domain.File{LFN: lfn, Size: 1024, Events: 10}
}
