package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsHarvester/internal/usecase"
)

// Handler serves the status endpoints.
type Handler struct {
	runs   RunController
	stats  StatsReader
	now    func() time.Time
	logger *slog.Logger
}

// NewHandler wires the run controller and the store statistics.
func NewHandler(runs RunController, stats StatsReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runs:   runs,
		stats:  stats,
		now:    time.Now,
		logger: logger.With("component", "api"),
	}
}

// HealthCheck reports liveness and the stage of the last run.
func (h *Handler) HealthCheck(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": h.now().Format(time.RFC3339),
	}

	if latest, ok := h.runs.Latest(); ok {
		health["last_run"] = gin.H{
			"run_id":      latest.RunID,
			"stage":       string(latest.Stage),
			"finished_at": latest.FinishedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, health)
}

// LatestRun returns the summary of the most recent finished run.
func (h *Handler) LatestRun(c *gin.Context) {
	latest, ok := h.runs.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, newRunResponse(latest))
}

// TriggerRun executes a run and returns its summary. The run is detached
// from the request so a dropped client does not abort it.
func (h *Handler) TriggerRun(c *gin.Context) {
	summary, err := h.runs.Trigger(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, usecase.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("trigger run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run failed"})
		return
	}

	status := http.StatusOK
	if summary.Aborted() {
		status = http.StatusBadGateway
	}
	c.JSON(status, newRunResponse(summary))
}

// Stats returns record counts per source.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("store stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}

	bySource := stats.BySource
	if bySource == nil {
		bySource = map[string]int64{}
	}
	c.JSON(http.StatusOK, StatsResponse{Total: stats.Total, BySource: bySource})
}
