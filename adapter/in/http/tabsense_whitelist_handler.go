package http

import (
	"tabsense_server/core/domain"
	in "tabsense_server/core/port/in"
	"tabsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// WhitelistHandler handles HTTP requests for whitelist management
type WhitelistHandler struct {
	service in.WhitelistManager
}

// NewWhitelistHandler creates a new WhitelistHandler
func NewWhitelistHandler(service in.WhitelistManager) *WhitelistHandler {
	return &WhitelistHandler{service: service}
}

// Register registers whitelist routes
func (h *WhitelistHandler) Register(router fiber.Router) {
	whitelist := router.Group("/whitelist")

	whitelist.Get("/", h.List)
	whitelist.Post("/", h.Add)
	whitelist.Delete("/:domain", h.Remove)
}

type addWhitelistRequest struct {
	Domain string `json:"domain"`
}

// List returns the user's active whitelist entries
// @Summary List whitelist entries
// @Tags Whitelist
// @Produce json
// @Router /api/v1/whitelist [get]
func (h *WhitelistHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	entries, err := h.service.ListActive(c.Context(), userID)
	if err != nil {
		return AppErrorResponse(c, err, "list whitelist")
	}

	return response.OK(c, fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}

// Add manually whitelists a domain. Manual entries are never touched by
// the periodic routine refresh.
// @Summary Whitelist a domain
// @Tags Whitelist
// @Accept json
// @Produce json
// @Param request body addWhitelistRequest true "Domain to whitelist"
// @Router /api/v1/whitelist [post]
func (h *WhitelistHandler) Add(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req addWhitelistRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Domain == "" {
		return response.BadRequest(c, "domain is required")
	}

	entry := &domain.WhitelistEntry{
		UserID: userID,
		Domain: req.Domain,
		Reason: domain.ReasonManual,
	}
	if err := h.service.AddOrUpdate(c.Context(), entry); err != nil {
		return AppErrorResponse(c, err, "add whitelist entry")
	}

	return response.Created(c, entry)
}

// Remove deactivates a whitelist entry
// @Summary Remove a domain from the whitelist
// @Tags Whitelist
// @Produce json
// @Param domain path string true "Domain to remove"
// @Router /api/v1/whitelist/{domain} [delete]
func (h *WhitelistHandler) Remove(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	domainName := c.Params("domain")
	if domainName == "" {
		return response.BadRequest(c, "domain is required")
	}

	if err := h.service.Deactivate(c.Context(), userID, domainName); err != nil {
		return AppErrorResponse(c, err, "remove whitelist entry")
	}

	return response.NoContent(c)
}
