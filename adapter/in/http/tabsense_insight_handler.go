package http

import (
	"strings"
	"time"

	"tabsense_server/core/port/in"
	"tabsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// InsightHandler handles HTTP requests for behavioral detection
type InsightHandler struct {
	service in.InsightService
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(service in.InsightService) *InsightHandler {
	return &InsightHandler{service: service}
}

// Register registers insight routes
func (h *InsightHandler) Register(router fiber.Router) {
	insights := router.Group("/insights")

	insights.Get("/hoarder-tabs", h.HoarderTabs)
	insights.Get("/research-sessions", h.ResearchSessions)
	insights.Get("/routine/:domain", h.Routine)
	insights.Get("/serial-openers", h.SerialOpeners)
	insights.Get("/serial-openers/comparison", h.SerialOpenerComparison)
}

// HoarderTabs runs hoarder detection over the lookback window
// @Summary Detect hoarder tabs
// @Tags Insights
// @Produce json
// @Param lookback_days query number false "Analysis window in days (default 7)"
// @Param min_score query number false "Minimum score filter"
// @Param age_min query number false "Minimum tab age in days"
// @Param domain query string false "Restrict to one domain"
// @Param exclude_domains query string false "Comma-separated domains to skip"
// @Param sort_by query string false "hoarder_score (default), value_rank, or age"
// @Param limit query int false "Truncate after sort"
// @Router /api/v1/insights/hoarder-tabs [get]
func (h *InsightHandler) HoarderTabs(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	opts := &in.HoarderTabOptions{
		LookbackDays: c.QueryFloat("lookback_days", 0),
		MinScore:     c.QueryFloat("min_score", 0),
		AgeMinDays:   c.QueryFloat("age_min", 0),
		Domain:       c.Query("domain"),
		Limit:        c.QueryInt("limit", 0),
		SortBy:       in.HoarderSort(c.Query("sort_by", string(in.SortByScore))),
	}
	if exclude := c.Query("exclude_domains"); exclude != "" {
		opts.ExcludeDomains = strings.Split(exclude, ",")
	}

	switch opts.SortBy {
	case in.SortByScore, in.SortByValueRank, in.SortByAge:
	default:
		return response.BadRequest(c, "sort_by must be one of hoarder_score, value_rank, age")
	}

	results, err := h.service.DetectHoarderTabs(c.Context(), userID, opts)
	if err != nil {
		return AppErrorResponse(c, err, "hoarder detection")
	}

	return response.OK(c, fiber.Map{
		"tabs":  results,
		"count": len(results),
	})
}

// ResearchSessions segments the visit stream into research sessions
// @Summary Detect research sessions
// @Tags Insights
// @Produce json
// @Param min_tabs query int false "Minimum tabs per session (default 3)"
// @Param time_window_min query int false "Grouping window in minutes (default 15)"
// @Param min_duration_min query int false "Minimum session duration in minutes (default 10)"
// @Router /api/v1/insights/research-sessions [get]
func (h *InsightHandler) ResearchSessions(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	params := &in.SessionParams{
		MinTabs:     c.QueryInt("min_tabs", 0),
		TimeWindow:  time.Duration(c.QueryInt("time_window_min", 0)) * time.Minute,
		MinDuration: time.Duration(c.QueryInt("min_duration_min", 0)) * time.Minute,
	}

	sessions, err := h.service.DetectResearchSessions(c.Context(), userID, params)
	if err != nil {
		return AppErrorResponse(c, err, "session detection")
	}

	return response.OK(c, fiber.Map{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// Routine scores one domain's routine strength
// @Summary Detect domain routine
// @Tags Insights
// @Produce json
// @Param domain path string true "Domain to analyze"
// @Param lookback_days query int false "Analysis window in days (default 30)"
// @Router /api/v1/insights/routine/{domain} [get]
func (h *InsightHandler) Routine(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	domainName := c.Params("domain")
	if domainName == "" {
		return response.BadRequest(c, "domain is required")
	}

	result, err := h.service.DetectRoutine(c.Context(), userID, domainName, c.QueryInt("lookback_days", 0))
	if err != nil {
		return AppErrorResponse(c, err, "routine detection")
	}

	return response.OK(c, result)
}

// SerialOpeners classifies repeatedly-reopened resources
// @Summary Detect serial openers
// @Tags Insights
// @Produce json
// @Param lookback_days query number false "Analysis window in days (default 7)"
// @Router /api/v1/insights/serial-openers [get]
func (h *InsightHandler) SerialOpeners(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	results, err := h.service.DetectSerialOpeners(c.Context(), userID, c.QueryFloat("lookback_days", 0))
	if err != nil {
		return AppErrorResponse(c, err, "serial opener detection")
	}

	return response.OK(c, fiber.Map{
		"resources": results,
		"count":     len(results),
	})
}

// SerialOpenerComparison diffs the current period against the previous one
// @Summary Compare serial opener periods
// @Tags Insights
// @Produce json
// @Param period_days query number false "Period length in days (default 7)"
// @Router /api/v1/insights/serial-openers/comparison [get]
func (h *InsightHandler) SerialOpenerComparison(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	report, err := h.service.CompareSerialOpeners(c.Context(), userID, c.QueryFloat("period_days", 0))
	if err != nil {
		return AppErrorResponse(c, err, "serial opener comparison")
	}

	return response.OK(c, report)
}
