package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reloop-app/sync-engine/internal/adapters/handler/http/middleware"
	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/reloop-app/sync-engine/internal/core/services"
)

type LoopHandler struct {
	svc      *services.LoopService
	resetSvc *services.ResetService
}

func NewLoopHandler(svc *services.LoopService, resetSvc *services.ResetService) *LoopHandler {
	return &LoopHandler{
		svc:      svc,
		resetSvc: resetSvc,
	}
}

type createLoopRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	Color           string `json:"color"`
	PracticeMode    bool   `json:"practice_mode"`
	ResetRule       string `json:"reset_rule"`
	ResetTime       string `json:"reset_time"`
	ResetDayOfWeek  int    `json:"reset_day_of_week"`
	CustomResetDays []int  `json:"custom_reset_days"`
}

type updateLoopRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	Color           string `json:"color"`
	ResetRule       string `json:"reset_rule"`
	ResetTime       string `json:"reset_time"`
	ResetDayOfWeek  int    `json:"reset_day_of_week"`
	CustomResetDays []int  `json:"custom_reset_days"`
	Version         int    `json:"version"`
}

func (h *LoopHandler) RegisterRoutes(router *gin.RouterGroup) {
	loops := router.Group("/loops")
	{
		loops.POST("", h.Create)
		loops.GET("", h.List)
		loops.GET("/sync", h.Sync)
		loops.GET("/:id", h.Get)
		loops.PUT("/:id", h.Update)
		loops.DELETE("/:id", h.Delete)
		loops.POST("/:id/favorite", h.ToggleFavorite)
		loops.POST("/:id/reloop", h.Reloop)
		loops.POST("/:id/reset", h.ResetAll)
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, domain.ErrLoopTitleEmpty) ||
		errors.Is(err, domain.ErrLoopTitleTooLong) ||
		errors.Is(err, domain.ErrLoopDescTooLong) ||
		errors.Is(err, domain.ErrInvalidColor) ||
		errors.Is(err, domain.ErrInvalidResetRule) ||
		errors.Is(err, domain.ErrInvalidResetDays) ||
		errors.Is(err, domain.ErrInvalidResetTime) ||
		errors.Is(err, domain.ErrInvalidResetDay)
}

func (h *LoopHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createLoopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateLoopInput{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Kind:            req.Kind,
		Color:           req.Color,
		PracticeMode:    req.PracticeMode,
		ResetRule:       req.ResetRule,
		ResetTime:       req.ResetTime,
		ResetDayOfWeek:  req.ResetDayOfWeek,
		CustomResetDays: req.CustomResetDays,
	}

	loop, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		if isValidationErr(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, loop)
}

func (h *LoopHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *LoopHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	loop, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loop":        loop,
		"description": domain.DescribeRule(loop.ResetRule, loop.ResetTime, loop.ResetDayOfWeek, loop.CustomResetDays),
	})
}

func (h *LoopHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	lastSyncStr := c.Query("last_sync")
	var lastSync time.Time
	var err error

	if lastSyncStr != "" {
		lastSync, err = time.Parse(time.RFC3339, lastSyncStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_sync format, use RFC3339"})
			return
		}
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

func (h *LoopHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateLoopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateLoopInput{
		ID:              c.Param("id"),
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Kind:            req.Kind,
		Color:           req.Color,
		ResetRule:       req.ResetRule,
		ResetTime:       req.ResetTime,
		ResetDayOfWeek:  req.ResetDayOfWeek,
		CustomResetDays: req.CustomResetDays,
		Version:         req.Version,
	}

	loop, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoopConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "version conflict",
				"message": "Data has been modified elsewhere. Please sync.",
			})
		case errors.Is(err, domain.ErrLoopNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
		case isValidationErr(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, loop)
}

func (h *LoopHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	loop, err := h.svc.ToggleFavorite(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, loop)
}

func (h *LoopHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LoopHandler) Reloop(c *gin.Context) {
	h.runReset(c, h.resetSvc.Reloop)
}

func (h *LoopHandler) ResetAll(c *gin.Context) {
	h.runReset(c, h.resetSvc.ResetAll)
}

func (h *LoopHandler) runReset(c *gin.Context, apply func(ctx context.Context, loopID, userID string) (*services.ResetOutcome, error)) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	outcome, err := apply(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}
