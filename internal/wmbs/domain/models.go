package domain

import "time"

// Workflow is a processing definition that subscriptions apply to filesets
type Workflow struct {
	ID    int64  `db:"id"`
	Spec  string `db:"spec"`
	Owner string `db:"owner"`
	Name  string `db:"name"`
}

// File is a single logical file tracked by filesets and jobs
type File struct {
	ID     int64  `db:"id"`
	LFN    string `db:"lfn"`
	Size   int64  `db:"size"`
	Events int64  `db:"events"`
}

// Fileset is a named collection of files
type Fileset struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	Files     []File    `db:"-"`
}

// Subscription binds a fileset to a workflow
type Subscription struct {
	ID           int64  `db:"id"`
	FilesetID    int64  `db:"fileset_id"`
	WorkflowID   int64  `db:"workflow_id"`
	FilesetName  string `db:"fileset_name"`
	WorkflowName string `db:"workflow_name"`
}

// Job is a unit of execution with its own lifecycle status
type Job struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	// Files are the job's input files
	Files []File `db:"-"`
}

// NewJob returns an unpersisted job in CREATED status with the given input files
func NewJob(name string, files ...File) *Job {
	return &Job{
		Name:   name,
		Status: JobStatusCreated,
		Files:  files,
	}
}

// JobGroupRow is the persisted shape of a job group
type JobGroupRow struct {
	ID              int64     `db:"id"`
	UID             string    `db:"uid"`
	SubscriptionID  int64     `db:"subscription_id"`
	OutputFilesetID int64     `db:"output_fileset_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// JobStatusCount is one row of the jobs-by-status-per-workflow summary
type JobStatusCount struct {
	Workflow string `db:"workflow" json:"workflow"`
	Status   string `db:"status" json:"status"`
	Count    int64  `db:"count" json:"count"`
}
