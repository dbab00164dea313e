package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
)

// CreateFileset inserts a new, empty fileset
func (s *Storage) CreateFileset(ctx context.Context, q Querier, name string) (*domain.Fileset, error) {
	fileset := &domain.Fileset{Name: name, CreatedAt: s.now()}

	id, err := insertReturningID(ctx, q,
		`INSERT INTO wmbs_fileset (name, created_at) VALUES (?, ?) RETURNING id`,
		fileset.Name, fileset.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fileset: %w", err)
	}

	fileset.ID = id
	return fileset, nil
}

// LoadFileset retrieves a fileset together with its member files
func (s *Storage) LoadFileset(ctx context.Context, q Querier, id int64) (*domain.Fileset, error) {
	var fileset domain.Fileset
	err := getOne(ctx, q, &fileset, `SELECT id, name, created_at FROM wmbs_fileset WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fileset %d: %w", id, domain.ErrMissingDependency)
		}
		return nil, fmt.Errorf("failed to get fileset: %w", err)
	}

	files, err := s.LoadFilesetFiles(ctx, q, id)
	if err != nil {
		return nil, err
	}
	fileset.Files = files

	return &fileset, nil
}

// LoadFilesetFiles lists the files of a fileset ordered by id
func (s *Storage) LoadFilesetFiles(ctx context.Context, q Querier, filesetID int64) ([]domain.File, error) {
	query := `
		SELECT f.id, f.lfn, f.size, f.events
		FROM wmbs_fileset_files ff
		JOIN wmbs_file f ON f.id = ff.file_id
		WHERE ff.fileset_id = ?
		ORDER BY f.id
	`

	var files []domain.File
	if err := selectAll(ctx, q, &files, query, filesetID); err != nil {
		return nil, fmt.Errorf("failed to load fileset files: %w", err)
	}
	return files, nil
}

// AddFileToFileset associates a persisted file with a fileset; adding it twice is a no-op
func (s *Storage) AddFileToFileset(ctx context.Context, q Querier, filesetID, fileID int64) error {
	query := `
		INSERT INTO wmbs_fileset_files (fileset_id, file_id) VALUES (?, ?)
		ON CONFLICT (fileset_id, file_id) DO NOTHING
	`

	if _, err := q.ExecContext(ctx, q.Rebind(query), filesetID, fileID); err != nil {
		return fmt.Errorf("failed to add file to fileset: %w", err)
	}
	return nil
}

// DeleteFileset removes a fileset and its file associations; the files themselves stay
func (s *Storage) DeleteFileset(ctx context.Context, q Querier, id int64) error {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM wmbs_fileset_files WHERE fileset_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete fileset files: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM wmbs_fileset WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete fileset: %w", err)
	}
	return nil
}

// CreateFile inserts a file and sets its id
func (s *Storage) CreateFile(ctx context.Context, q Querier, file *domain.File) error {
	id, err := insertReturningID(ctx, q,
		`INSERT INTO wmbs_file (lfn, size, events) VALUES (?, ?, ?) RETURNING id`,
		file.LFN, file.Size, file.Events,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("file %s already exists: %w", file.LFN, err)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	file.ID = id
	return nil
}

// ensureFile persists file unless it already carries a store id
func (s *Storage) ensureFile(ctx context.Context, q Querier, file *domain.File) error {
	if file.ID != 0 {
		return nil
	}
	return s.CreateFile(ctx, q, file)
}
