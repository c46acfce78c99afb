package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reloop-app/sync-engine/internal/adapters/handler/http/middleware"
	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/reloop-app/sync-engine/internal/core/services"
)

type TaskHandler struct {
	svc *services.TaskService
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

type createTaskRequest struct {
	Description string  `json:"description" binding:"required"`
	OneTime     bool    `json:"one_time"`
	ParentID    *string `json:"parent_task_id"`
}

type reorderTaskRequest struct {
	Position int `json:"position"`
}

type nestTaskRequest struct {
	NewParentID string `json:"new_parent_id" binding:"required"`
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	loops := router.Group("/loops/:id/tasks")
	{
		loops.POST("", h.Create)
		loops.GET("", h.ListTree)
		loops.POST("/:taskId/reorder", h.Reorder)
		loops.POST("/:taskId/promote", h.Promote)
		loops.POST("/:taskId/nest", h.Nest)
	}

	tasks := router.Group("/tasks")
	{
		tasks.POST("/:taskId/toggle", h.Toggle)
		tasks.DELETE("/:taskId", h.Delete)
	}
}

func (h *TaskHandler) handleErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLoopNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
	case errors.Is(err, domain.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, domain.ErrTaskDescEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), services.CreateTaskInput{
		LoopID:      c.Param("id"),
		UserID:      userID,
		Description: req.Description,
		OneTime:     req.OneTime,
		ParentID:    req.ParentID,
	})
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ListTree(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	forest, err := h.svc.ListTree(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": forest})
}

func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	task, err := h.svc.ToggleComplete(c.Request.Context(), c.Param("taskId"), userID)
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Reorder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req reorderTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forest, err := h.svc.Reorder(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Position, userID)
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": forest})
}

func (h *TaskHandler) Promote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	forest, err := h.svc.Promote(c.Request.Context(), c.Param("id"), c.Param("taskId"), userID)
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": forest})
}

func (h *TaskHandler) Nest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req nestTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forest, err := h.svc.NestUnder(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.NewParentID, userID)
	if err != nil {
		h.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": forest})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("taskId"), userID); err != nil {
		h.handleErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
