// Package api exposes the analytics core over HTTP for the dashboard UI.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"repo-insights/internal/analytics"
	"repo-insights/internal/config"
	"repo-insights/internal/github"
	"repo-insights/internal/service"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest mirrors nginx's convention for a request
// aborted by the client.
const statusClientClosedRequest = 499

// Handler serves the dashboard API.
type Handler struct {
	config  *config.Config
	service *service.Service
}

// NewHandler creates an API handler.
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{config: cfg, service: svc}
}

// Register wires the routes onto a router group.
func (h *Handler) Register(v1 *gin.RouterGroup) {
	v1.GET("/health", h.Health)

	repos := v1.Group("/repos/:owner/:repo")
	{
		repos.GET("/analytics", h.Analytics)
		repos.GET("/heatmap", h.Heatmap)
		repos.GET("/trends", h.Trends)
		repos.GET("/timeline", h.Timeline)
		repos.GET("/files", h.FileChanges)
		repos.GET("/branches", h.Branches)
		repos.GET("/activity", h.WeeklyActivity)
	}

	v1.GET("/cache/stats", h.CacheStats)
	v1.DELETE("/cache", h.AuthMiddleware(), h.InvalidateCache)
}

// AuthMiddleware checks the bearer token on mutating endpoints.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")

		// Accept both "Bearer TOKEN" and "TOKEN" formats
		token = strings.TrimPrefix(token, "Bearer ")

		if h.config.Server.AuthToken == "" || token != h.config.Server.AuthToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// period parses the period query parameter, defaulting to 30 days.
func period(c *gin.Context) (analytics.Period, bool) {
	raw := c.DefaultQuery("period", string(analytics.Period30Days))
	p, err := analytics.ParsePeriod(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

// renderError maps the closed error taxonomy onto HTTP statuses. The
// rate-limit kind carries its reset time for user display.
func renderError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": string(github.KindOf(err))}
	status := http.StatusBadGateway

	switch github.KindOf(err) {
	case github.KindNotFound:
		status = http.StatusNotFound
	case github.KindRateLimitExceeded:
		status = http.StatusTooManyRequests
		var apiErr *github.Error
		if errors.As(err, &apiErr) && !apiErr.RateReset.IsZero() {
			body["rate_limit_reset"] = apiErr.RateReset.Format(time.RFC3339)
		}
	case github.KindAccessForbidden:
		status = http.StatusForbidden
	case github.KindValidation:
		status = http.StatusUnprocessableEntity
	case github.KindCancelled:
		status = statusClientClosedRequest
	case github.KindServiceUnavailable, github.KindNetwork:
		status = http.StatusBadGateway
	}

	c.JSON(status, body)
}

// Analytics handles GET /repos/:owner/:repo/analytics.
func (h *Handler) Analytics(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	result, err := h.service.AnalyticsData(c.Request.Context(), c.Param("owner"), c.Param("repo"), p, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Heatmap handles GET /repos/:owner/:repo/heatmap.
func (h *Handler) Heatmap(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	result, err := h.service.Heatmap(c.Request.Context(), c.Param("owner"), c.Param("repo"), p, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Trends handles GET /repos/:owner/:repo/trends.
func (h *Handler) Trends(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	result, err := h.service.ContributorTrends(c.Request.Context(), c.Param("owner"), c.Param("repo"), p, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Timeline handles GET /repos/:owner/:repo/timeline.
func (h *Handler) Timeline(c *gin.Context) {
	result, err := h.service.Timeline(c.Request.Context(), c.Param("owner"), c.Param("repo"), nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FileChanges handles GET /repos/:owner/:repo/files.
func (h *Handler) FileChanges(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	result, err := h.service.FileChanges(c.Request.Context(), c.Param("owner"), c.Param("repo"), p, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Branches handles GET /repos/:owner/:repo/branches.
func (h *Handler) Branches(c *gin.Context) {
	result, err := h.service.Branches(c.Request.Context(), c.Param("owner"), c.Param("repo"), nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": result})
}

// WeeklyActivity handles GET /repos/:owner/:repo/activity.
func (h *Handler) WeeklyActivity(c *gin.Context) {
	result, err := h.service.WeeklyActivity(c.Request.Context(), c.Param("owner"), c.Param("repo"), nil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": result})
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.CacheStats())
}

// InvalidateCache handles DELETE /cache. With owner and repo query
// params it drops one repository's entries; without, it clears all.
func (h *Handler) InvalidateCache(c *gin.Context) {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if (owner == "") != (repo == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner and repo must be set together"})
		return
	}
	removed := h.service.InvalidateCache(owner, repo)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
