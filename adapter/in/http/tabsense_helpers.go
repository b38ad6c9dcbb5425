package http

import (
	"errors"

	"tabsense_server/pkg/apperr"
	"tabsense_server/pkg/logger"
	"tabsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ErrUnauthorized = errors.New("unauthorized")

// GetUserID safely extracts user_id from fiber context
// Returns error if not authenticated
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, ErrUnauthorized
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

// AppErrorResponse maps an error onto the response envelope. AppErrors keep
// their code and status; anything else is logged and returned as a generic
// 500 so internals never leak to clients.
func AppErrorResponse(c *fiber.Ctx, err error, operation string) error {
	if apperr.IsAppError(err) {
		appErr := apperr.AsAppError(err)
		return response.Error(c, appErr.Status, appErr.Code, appErr.Message)
	}
	logger.WithError(err).WithField("operation", operation).Error("request failed")
	return response.InternalError(c, operation+" failed")
}
