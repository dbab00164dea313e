package domain

import "errors"

var (
	// ErrInvalidIdentity is returned when neither an id nor a uid identifies a job group
	ErrInvalidIdentity = errors.New("job group identity requires an id or a uid")

	// ErrMissingDependency is returned when a referenced subscription or job is not persisted
	ErrMissingDependency = errors.New("referenced entity does not exist")

	// ErrAlreadyExists is returned when creating a job group that is already persisted
	ErrAlreadyExists = errors.New("job group already exists")

	// ErrNotFound is returned when operating on a job group that does not exist
	ErrNotFound = errors.New("job group not found")
)

// CommitError wraps a storage failure raised while committing staged membership
type CommitError struct {
	JobGroupID int64
	Err        error
}

func (e *CommitError) Error() string {
	return "commit error: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// NewCommitError creates a new commit error for the given job group
func NewCommitError(jobGroupID int64, err error) error {
	return &CommitError{JobGroupID: jobGroupID, Err: err}
}
