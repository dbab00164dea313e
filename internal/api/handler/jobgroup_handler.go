package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cuongbtq/jobgroups/internal/api/dto"
	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/jobgroup"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%s must be a non-negative integer", name),
		})
		return 0, false
	}
	return id, true
}

// GetJobGroup handles GET /api/v1/jobgroups/:id
func (h *JobGroupHandler) GetJobGroup(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.loadJobGroup(c, jobgroup.ByID(id))
}

// GetJobGroupByUID handles GET /api/v1/jobgroups/uid/:uid
func (h *JobGroupHandler) GetJobGroupByUID(c *gin.Context) {
	uid := c.Param("uid")
	if _, err := uuid.Parse(uid); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "uid must be a valid UUID",
		})
		return
	}
	h.loadJobGroup(c, jobgroup.ByUID(uid))
}

func (h *JobGroupHandler) loadJobGroup(c *gin.Context, key jobgroup.Key) {
	g := h.service.Ref(key)
	if err := g.Load(c.Request.Context(), h.db); err != nil {
		h.respondError(c, err, "Failed to load job group")
		return
	}

	c.JSON(http.StatusOK, dto.JobGroupDTO{
		ID:              g.ID,
		UID:             g.UID,
		SubscriptionID:  g.Subscription.ID,
		OutputFilesetID: g.OutputFileset.ID,
	})
}

// ListMembers handles GET /api/v1/jobgroups/:id/jobs
func (h *JobGroupHandler) ListMembers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	g := h.service.Ref(jobgroup.ByID(id))
	if err := g.LoadData(c.Request.Context(), h.db); err != nil {
		h.respondError(c, err, "Failed to load job group members")
		return
	}

	jobs := g.Jobs()
	resp := dto.JobGroupMembersResponse{
		JobGroupID: g.ID,
		UID:        g.UID,
		Subscription: dto.SubscriptionDTO{
			ID:           g.Subscription.ID,
			FilesetID:    g.Subscription.FilesetID,
			FilesetName:  g.Subscription.FilesetName,
			WorkflowID:   g.Subscription.WorkflowID,
			WorkflowName: g.Subscription.WorkflowName,
		},
		Jobs: make([]dto.JobDTO, len(jobs)),
	}
	for i, job := range jobs {
		resp.Jobs[i] = dto.JobDTO{
			ID:        job.ID,
			Name:      job.Name,
			Status:    job.Status,
			Files:     toFileDTOs(job.Files),
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
			UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetStatus handles GET /api/v1/jobgroups/:id/status
func (h *JobGroupHandler) GetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	status, err := h.service.Ref(jobgroup.ByID(id)).Status(c.Request.Context(), h.db)
	if err != nil {
		h.respondError(c, err, "Failed to compute job group status")
		return
	}

	c.JSON(http.StatusOK, dto.JobGroupStatusResponse{
		JobGroupID: id,
		Status:     status,
	})
}

// GetOutput handles GET /api/v1/jobgroups/:id/output.
// It answers 409 until every member job is COMPLETE.
func (h *JobGroupHandler) GetOutput(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileset, ready, err := h.service.Ref(jobgroup.ByID(id)).Output(c.Request.Context(), h.db)
	if err != nil {
		h.respondError(c, err, "Failed to read job group output")
		return
	}
	if !ready {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "job group output is not ready",
			"jobgroup_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, dto.JobGroupOutputResponse{
		JobGroupID: id,
		FilesetID:  fileset.ID,
		Name:       fileset.Name,
		Files:      toFileDTOs(fileset.Files),
	})
}

// DeleteJobGroup handles DELETE /api/v1/jobgroups/:id
func (h *JobGroupHandler) DeleteJobGroup(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		h.respondError(c, err, "Failed to delete job group")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if err := h.service.Ref(jobgroup.ByID(id)).Delete(ctx, tx); err != nil {
		h.respondError(c, err, "Failed to delete job group")
		return
	}
	if err := tx.Commit(); err != nil {
		h.respondError(c, err, "Failed to delete job group")
		return
	}

	h.logger.Info("Job group deleted", slog.Int64("jobgroup_id", id))
	c.Status(http.StatusNoContent)
}

// ListSubscriptionJobGroups handles GET /api/v1/subscriptions/:id/jobgroups
func (h *JobGroupHandler) ListSubscriptionJobGroups(c *gin.Context) {
	subID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ListJobGroupsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobGroupCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.SubscriptionExists(ctx, h.db, subID)
	if err != nil {
		h.respondError(c, err, "Failed to list job groups")
		return
	}
	if !exists {
		h.respondError(c, fmt.Errorf("subscription %d: %w", subID, domain.ErrNotFound), "Subscription not found")
		return
	}

	rows, err := h.store.ListJobGroups(ctx, h.db, storage.JobGroupFilter{
		SubscriptionID: subID,
		PageSize:       req.PageSize,
		Cursor:         cursor,
	})
	if err != nil {
		h.respondError(c, err, "Failed to list job groups")
		return
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	resp := dto.ListJobGroupsResponse{
		JobGroups: make([]dto.JobGroupDTO, len(rows)),
	}
	for i, row := range rows {
		resp.JobGroups[i] = dto.JobGroupDTO{
			ID:              row.ID,
			UID:             row.UID,
			SubscriptionID:  row.SubscriptionID,
			OutputFilesetID: row.OutputFilesetID,
			CreatedAt:       row.CreatedAt.Format(time.RFC3339),
		}
	}
	if hasMore {
		resp.NextCursor = EncodeJobGroupCursor(&storage.JobGroupCursor{ID: rows[len(rows)-1].ID})
	}

	c.JSON(http.StatusOK, resp)
}

// JobsByStatus handles GET /api/v1/workflows/:name/jobs-by-status
func (h *JobGroupHandler) JobsByStatus(c *gin.Context) {
	workflow := c.Param("name")

	counts, err := h.store.CountJobsByStatus(c.Request.Context(), h.db, workflow)
	if err != nil {
		h.respondError(c, err, "Failed to count jobs by status")
		return
	}

	resp := dto.JobsByStatusResponse{
		Workflow: workflow,
		Counts:   make([]dto.StatusCountDTO, len(counts)),
	}
	for i, row := range counts {
		resp.Counts[i] = dto.StatusCountDTO{Status: row.Status, Count: row.Count}
	}

	c.JSON(http.StatusOK, resp)
}

func toFileDTOs(files []domain.File) []dto.FileDTO {
	out := make([]dto.FileDTO, len(files))
	for i, f := range files {
		out[i] = dto.FileDTO{ID: f.ID, LFN: f.LFN, Size: f.Size, Events: f.Events}
	}
	return out
}

