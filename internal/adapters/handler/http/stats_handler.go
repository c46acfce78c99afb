package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reloop-app/sync-engine/internal/adapters/handler/http/middleware"
	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/reloop-app/sync-engine/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/loops/:id/momentum", h.GetMomentum)
	r.GET("/loops/:id/streak", h.GetStreak)
}

const maxMomentumDays = 90

func (h *StatsHandler) GetMomentum(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	days := domain.DefaultMomentumDays
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days, expected a positive integer"})
			return
		}
		days = parsed
	}

	if days > maxMomentumDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days too large, max 90 allowed"})
		return
	}

	points, err := h.svc.GetMomentum(c.Request.Context(), c.Param("id"), userID, days)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute momentum"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"momentum": points})
}

func (h *StatsHandler) GetStreak(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	summary, err := h.svc.GetStreak(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrLoopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute streak"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
