package middleware

import (
	"strings"

	"settings-service/internal/logging"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const (
	// Settings permissions
	ReadAllSettingsPermission = "read:settings:all"
	UpdateSettingsPermission  = "update:settings"
	DeleteSettingsPermission  = "delete:settings"

	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

const (
	UserIDHeader      = "X-User-ID"
	PermissionsHeader = "X-User-Permissions"
)

// Permissions splits the comma separated permission header.
func Permissions(c fiber.Ctx) []string {
	header := c.Get(PermissionsHeader)
	if header == "" {
		return nil
	}

	var permissions []string
	for _, perm := range strings.Split(header, ",") {
		if perm = strings.TrimSpace(perm); perm != "" {
			permissions = append(permissions, perm)
		}
	}
	return permissions
}

// IsElevated reports whether perm grants every permission.
func IsElevated(perm string) bool {
	return strings.HasPrefix(perm, AdminPermission) || strings.HasPrefix(perm, ManagerPermission)
}

func HasPermission(c fiber.Ctx, required string) bool {
	for _, perm := range Permissions(c) {
		if perm == required || IsElevated(perm) {
			return true
		}
	}
	return false
}

func PermissionRequired(logger *zap.Logger, requiredPermission string) fiber.Handler {
	logger = logging.OrNop(logger)
	return func(c fiber.Ctx) error {
		logger.Debug("Permission check",
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.String("permission", requiredPermission))

		if !HasPermission(c, requiredPermission) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// OwnerPermissionRequired admits the owner of userID, or of the :userId route
// parameter when userID is empty. Callers holding read:settings:all or an
// elevated permission are admitted for any user.
func OwnerPermissionRequired(logger *zap.Logger, userID string) fiber.Handler {
	logger = logging.OrNop(logger)
	return func(c fiber.Ctx) error {
		logger.Debug("Owner check",
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()))

		ownerID := userID
		if ownerID == "" {
			ownerID = c.Params("userId")
		}
		if ownerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		currentUserID := c.Get(UserIDHeader)
		if currentUserID != "" && currentUserID == ownerID {
			return c.Next()
		}

		if HasPermission(c, ReadAllSettingsPermission) {
			return c.Next()
		}

		logger.Debug("Owner check denied",
			zap.String("ownerId", ownerID),
			zap.String("userId", currentUserID))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
}
