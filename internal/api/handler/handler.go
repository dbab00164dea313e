package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/jobgroup"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	DB          *sqlx.DB
	Store       *storage.Storage
	Service     *jobgroup.Service
	HealthCheck func(ctx context.Context) error
}

// JobGroupHandler serves the job group read and admin endpoints
type JobGroupHandler struct {
	logger  *slog.Logger
	db      *sqlx.DB
	store   *storage.Storage
	service *jobgroup.Service
}

// NewJobGroupHandler creates a new JobGroupHandler instance
func NewJobGroupHandler(deps *Dependencies) *JobGroupHandler {
	return &JobGroupHandler{
		logger:  deps.Logger,
		db:      deps.DB,
		store:   deps.Store,
		service: deps.Service,
	}
}

// respondError maps engine errors onto HTTP status codes
func (h *JobGroupHandler) respondError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidIdentity):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg,
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
	}
	_ = c.Error(err)

	c.JSON(status, gin.H{
		"error": msg,
	})
}
