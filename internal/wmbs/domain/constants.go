package domain

// Job status constants
const (
	JobStatusCreated  = "CREATED"
	JobStatusActive   = "ACTIVE"
	JobStatusComplete = "COMPLETE"
	JobStatusFailed   = "FAILED"
)

// Job group status constants
const (
	GroupStatusActive   = "ACTIVE"
	GroupStatusComplete = "COMPLETE"
	GroupStatusFailed   = "FAILED"
)

// Subscription file states recorded by a job group
const (
	FileStateAcquired  = "acquired"
	FileStateCompleted = "completed"
	FileStateFailed    = "failed"
)
