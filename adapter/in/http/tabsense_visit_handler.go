package http

import (
	"strconv"
	"time"

	"tabsense_server/core/domain"
	in "tabsense_server/core/port/in"
	"tabsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// VisitHandler handles HTTP requests for visit ingestion and lookup
type VisitHandler struct {
	service in.VisitService
}

// NewVisitHandler creates a new VisitHandler
func NewVisitHandler(service in.VisitService) *VisitHandler {
	return &VisitHandler{service: service}
}

// Register registers visit routes
func (h *VisitHandler) Register(router fiber.Router) {
	visits := router.Group("/visits")

	visits.Get("/", h.List)
	visits.Post("/", h.Create)
	visits.Post("/batch", h.CreateBatch)
	visits.Get("/:id", h.Get)
	visits.Post("/:id/closure", h.ReportClosure)
}

// List lists the user's visits with filters
// @Summary List visits
// @Tags Visits
// @Produce json
// @Param domain query string false "Filter by domain"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Limit (default 100)"
// @Param offset query int false "Offset"
// @Router /api/v1/visits [get]
func (h *VisitHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	pagination := response.GetPagination(c, 100, 1000)
	filter := &domain.VisitFilter{
		Domain: c.Query("domain"),
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return response.BadRequest(c, "from must be RFC3339")
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return response.BadRequest(c, "to must be RFC3339")
		}
		filter.To = &t
	}

	visits, total, err := h.service.ListVisits(c.Context(), userID, filter)
	if err != nil {
		return AppErrorResponse(c, err, "list visits")
	}

	return response.OKWithMeta(c, visits, &response.Meta{
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
		Returned: len(visits),
		HasMore:  filter.Offset+len(visits) < total,
	})
}

// Create ingests a single visit
// @Summary Ingest a visit
// @Tags Visits
// @Accept json
// @Produce json
// @Param request body in.CreateVisitRequest true "Visit data"
// @Router /api/v1/visits [post]
func (h *VisitHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req in.CreateVisitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	visit, err := h.service.CreateVisit(c.Context(), userID, &req)
	if err != nil {
		return AppErrorResponse(c, err, "create visit")
	}

	return response.Created(c, visit)
}

// CreateBatch ingests up to 500 visits atomically
// @Summary Ingest a batch of visits
// @Tags Visits
// @Accept json
// @Produce json
// @Param request body []in.CreateVisitRequest true "Visit batch"
// @Router /api/v1/visits/batch [post]
func (h *VisitHandler) CreateBatch(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var reqs []*in.CreateVisitRequest
	if err := c.BodyParser(&reqs); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	visits, err := h.service.CreateVisits(c.Context(), userID, reqs)
	if err != nil {
		return AppErrorResponse(c, err, "create visits")
	}

	return response.Created(c, fiber.Map{
		"visits": visits,
		"count":  len(visits),
	})
}

// Get retrieves one visit
// @Summary Get a visit
// @Tags Visits
// @Produce json
// @Param id path int true "Visit ID"
// @Router /api/v1/visits/{id} [get]
func (h *VisitHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid visit ID")
	}

	visit, err := h.service.GetVisit(c.Context(), userID, id)
	if err != nil {
		return AppErrorResponse(c, err, "get visit")
	}

	return response.OK(c, visit)
}

// ReportClosure stores the closure record for a visit
// @Summary Report a tab closure
// @Tags Visits
// @Accept json
// @Produce json
// @Param id path int true "Visit ID"
// @Param request body in.ReportClosureRequest true "Closure data"
// @Router /api/v1/visits/{id}/closure [post]
func (h *VisitHandler) ReportClosure(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid visit ID")
	}

	var req in.ReportClosureRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := h.service.ReportClosure(c.Context(), userID, id, &req); err != nil {
		return AppErrorResponse(c, err, "report closure")
	}

	return response.NoContent(c)
}
