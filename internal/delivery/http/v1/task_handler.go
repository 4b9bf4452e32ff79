package v1

import (
	"net/http"

	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskUC domain.TaskUsecase
}

func NewTaskHandler(protected *gin.RouterGroup, taskUC domain.TaskUsecase) {
	handler := &TaskHandler{taskUC: taskUC}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("/today", handler.Today)
		tasks.POST("/:id/complete", handler.Complete)
	}
}

// Today godoc
// @Summary      Today's Tasks
// @Description  List the pending micro-tasks assigned to the current weekday.
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /tasks/today [get]
func (h *TaskHandler) Today(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	tasks, err := h.taskUC.TodayTasks(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	response.Success(c, http.StatusOK, "Today's tasks", tasks)
}

// Complete godoc
// @Summary      Complete Task
// @Description  Mark a task as completed and award its points. Safe to retry.
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	taskID := c.Param("id")

	task, err := h.taskUC.CompleteTask(c.Request.Context(), userID, taskID)
	if err != nil {
		c.Error(err)
		return
	}

	metrics.TasksCompleted.Inc()
	response.Success(c, http.StatusOK, "Task completed", task)
}
