package v1

import (
	"net/http"

	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressUC domain.ProgressUsecase
}

func NewProgressHandler(protected *gin.RouterGroup, progressUC domain.ProgressUsecase) {
	handler := &ProgressHandler{progressUC: progressUC}

	progress := protected.Group("/progress")
	{
		progress.GET("/today", handler.Today)
		progress.GET("/week", handler.Week)
		progress.GET("/summary", handler.Summary)
		progress.POST("/cigarettes", handler.LogCigarettes)
	}
}

func (h *ProgressHandler) Today(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	p, err := h.progressUC.Today(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Today's progress", p)
}

func (h *ProgressHandler) Week(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	week, err := h.progressUC.Week(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	if week == nil {
		week = []domain.Progress{}
	}
	response.Success(c, http.StatusOK, "Last 7 days", week)
}

func (h *ProgressHandler) Summary(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	summary, err := h.progressUC.Summary(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Lifetime summary", summary)
}

type LogCigarettesRequest struct {
	Count *int `json:"count" binding:"required,min=0"`
}

// LogCigarettes records today's cigarette count and recomputes the
// derived savings and streak.
func (h *ProgressHandler) LogCigarettes(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var req LogCigarettesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	p, err := h.progressUC.LogCigarettes(c.Request.Context(), userID, *req.Count)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Progress updated", p)
}
