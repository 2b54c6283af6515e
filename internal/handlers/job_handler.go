package handlers

import (
	"net/http"

	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Job Status
// @Description Get the background worker status (admin only)
// @Tags Jobs
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// ExpireTenders runs the overdue tender sweep now
// @Summary Expire Tenders
// @Description Run the overdue tender sweep now (admin only)
// @Tags Jobs
// @Accept json
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /jobs/expire_tenders [post]
func (h *JobHandler) ExpireTenders(c *gin.Context) {
	expired, err := h.jobService.ExpireTendersNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
