package dto

type ListJobGroupsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobGroupsResponse struct {
	JobGroups  []JobGroupDTO `json:"jobgroups"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type JobGroupDTO struct {
	ID              int64  `json:"id"`
	UID             string `json:"uid"`
	SubscriptionID  int64  `json:"subscription_id"`
	OutputFilesetID int64  `json:"output_fileset_id"`
	CreatedAt       string `json:"created_at,omitempty"`
}

type SubscriptionDTO struct {
	ID           int64  `json:"id"`
	FilesetID    int64  `json:"fileset_id"`
	FilesetName  string `json:"fileset_name,omitempty"`
	WorkflowID   int64  `json:"workflow_id"`
	WorkflowName string `json:"workflow_name,omitempty"`
}

type JobGroupMembersResponse struct {
	JobGroupID   int64           `json:"jobgroup_id"`
	UID          string          `json:"uid"`
	Subscription SubscriptionDTO `json:"subscription"`
	Jobs         []JobDTO        `json:"jobs"`
}

type JobDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Files     []FileDTO `json:"files"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type FileDTO struct {
	ID     int64  `json:"id"`
	LFN    string `json:"lfn"`
	Size   int64  `json:"size"`
	Events int64  `json:"events"`
}

type JobGroupStatusResponse struct {
	JobGroupID int64  `json:"jobgroup_id"`
	Status     string `json:"status"`
}

type JobGroupOutputResponse struct {
	JobGroupID int64     `json:"jobgroup_id"`
	FilesetID  int64     `json:"fileset_id"`
	Name       string    `json:"name"`
	Files      []FileDTO `json:"files"`
}

type JobsByStatusResponse struct {
	Workflow string           `json:"workflow"`
	Counts   []StatusCountDTO `json:"counts"`
}

type StatusCountDTO struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}
