package router

import (
	"net/http"

	"github.com/cuongbtq/jobgroups/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const serviceName = "jobgroup-api"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": serviceName,
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	h := handler.NewJobGroupHandler(deps)

	v1 := r.Group("/api/v1")
	{
		groups := v1.Group("/jobgroups")
		{
			groups.GET("/uid/:uid", h.GetJobGroupByUID)
			groups.GET("/:id", h.GetJobGroup)
			groups.GET("/:id/jobs", h.ListMembers)
			groups.GET("/:id/status", h.GetStatus)
			groups.GET("/:id/output", h.GetOutput)
			groups.DELETE("/:id", h.DeleteJobGroup)
		}

		v1.GET("/subscriptions/:id/jobgroups", h.ListSubscriptionJobGroups)
		v1.GET("/workflows/:name/jobs-by-status", h.JobsByStatus)
	}

	return r
}
