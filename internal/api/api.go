package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/report"
)

// API holds the handler dependencies
type API struct {
	jobs  *report.Manager
	db    *database.DB
	redis *redis.Client
}

// New creates the API
func New(jobs *report.Manager, db *database.DB, redisClient *redis.Client) *API {
	return &API{jobs: jobs, db: db, redis: redisClient}
}

// Router builds the gin engine with all routes registered
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/trigger_report", a.TriggerReport)
	r.GET("/get_report", a.GetReport)
	r.DELETE("/report", a.DiscardReport)
	r.GET("/health", a.HealthCheck)

	return r
}

// TriggerReport starts a new report job and returns its id immediately
func (a *API) TriggerReport(c *gin.Context) {
	reportID, err := a.jobs.Trigger(c.Request.Context())
	if err != nil {
		log.Printf("trigger_report failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"report_id": reportID})
}

// GetReport returns the job status, or the CSV artifact once complete
func (a *API) GetReport(c *gin.Context) {
	reportID := c.Query("report_id")
	if reportID == "" {
		respondError(c, http.StatusBadRequest, "report_id is required")
		return
	}

	rec, artifact, err := a.jobs.Result(c.Request.Context(), reportID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, "report not found")
			return
		}
		log.Printf("get_report %s failed: %v", reportID, err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	switch rec.Status {
	case report.StatusRunning:
		c.JSON(http.StatusOK, gin.H{"status": report.StatusRunning})
	case report.StatusFailed:
		// The caller gets the error kind only; the detail stays in the logs
		c.JSON(http.StatusOK, gin.H{
			"status": report.StatusFailed,
			"error":  rec.ErrorKind,
		})
	default:
		c.Header("Content-Disposition", `attachment; filename=report.csv`)
		c.Data(http.StatusOK, "text/csv", artifact)
	}
}

// DiscardReport deletes a terminal job and its artifact
func (a *API) DiscardReport(c *gin.Context) {
	reportID := c.Query("report_id")
	if reportID == "" {
		respondError(c, http.StatusBadRequest, "report_id is required")
		return
	}

	if err := a.jobs.Discard(c.Request.Context(), reportID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			respondError(c, http.StatusNotFound, "report not found")
		case errors.Is(err, apperrors.ErrValidation):
			respondError(c, http.StatusConflict, "report is still running")
		default:
			log.Printf("discard report %s failed: %v", reportID, err)
			respondError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// HealthCheck verifies the storage dependencies are reachable
func (a *API) HealthCheck(c *gin.Context) {
	if err := a.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": "unreachable",
		})
		return
	}
	if err := a.redis.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"redis":  "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
