package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"settings-service/internal/logging"
	"settings-service/internal/middleware"
	"settings-service/internal/models"
	"settings-service/internal/service"
	"settings-service/internal/settings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
	logger          *zap.Logger
}

func NewSettingsHandler(settingsService *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logging.OrNop(logger),
	}
}

func (h *SettingsHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Handlers come first; fiber runs the trailing middleware ahead of them.
	publicGroup := app.Group("/public/settings")
	publicGroup.Get("/defaults", h.GetDefaults, instrument("defaults"))
	publicGroup.Get("/preferences/keys", h.GetPreferenceKeys, instrument("preference_keys"))

	protectedGroup := app.Group("/protected/settings")
	canUpdate := middleware.PermissionRequired(h.logger, middleware.UpdateSettingsPermission)
	canDelete := middleware.PermissionRequired(h.logger, middleware.DeleteSettingsPermission)

	// Self-service endpoints
	protectedGroup.Get("/me", h.GetMe, instrument("get"))
	protectedGroup.Put("/me", h.UpdateMe, instrument("update"), canUpdate)
	protectedGroup.Delete("/me", h.DeleteMe, instrument("delete"), canDelete)
	protectedGroup.Post("/me/reset", h.ResetMe, instrument("reset"), canUpdate)
	protectedGroup.Put("/me/preferences/:key", h.SetPreference, instrument("set_preference"), canUpdate)
	protectedGroup.Post("/me/preferences/:key/toggle", h.TogglePreference, instrument("toggle_preference"), canUpdate)
	protectedGroup.Post("/me/translation/disabled", h.DisableTranslationLanguage, instrument("disable_translation"), canUpdate)
	protectedGroup.Delete("/me/translation/disabled/:language", h.EnableTranslationLanguage, instrument("enable_translation"), canUpdate)

	// Owner, read:settings:all or admin access
	protectedGroup.Get("/user/:userId", h.GetSettingsByUserID, instrument("get_by_user"), middleware.OwnerPermissionRequired(h.logger, ""))
}

func (h *SettingsHandler) HealthCheck(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("Settings Service is healthy")
}

// GetDefaults returns the settings a new user would start with. The language
// is negotiated from Accept-Language unless server=true is given.
func (h *SettingsHandler) GetDefaults(c fiber.Ctx) error {
	env := environment(c)
	if c.Query("server") == "true" {
		env = settings.ServerEnvironment()
	}

	var languages []string
	if raw := c.Query("languages"); raw != "" {
		languages = splitList(raw)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": h.settingsService.Defaults(env, languages),
		},
	})
}

func (h *SettingsHandler) GetPreferenceKeys(c fiber.Ctx) error {
	defaults := settings.DefaultPreferences()
	keys := settings.PreferenceKeys()

	definitions := make([]models.PreferenceDefinition, 0, len(keys))
	for _, key := range keys {
		value, err := defaults.Value(key)
		if err != nil {
			return h.handleError(c, err, "list preferences")
		}
		definitions = append(definitions, models.PreferenceDefinition{Key: key, Default: value})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"preferences": definitions,
		},
	})
}

func (h *SettingsHandler) GetMe(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	doc, err := h.settingsService.Get(ctx, userID, environment(c))
	if err != nil {
		return h.handleError(c, err, "retrieve settings")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) UpdateMe(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	var req models.UpdateSettingsRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, err := h.settingsService.Update(ctx, userID, &req)
	if err != nil {
		return h.handleError(c, err, "update settings")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Settings updated successfully",
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) DeleteMe(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	if err := h.settingsService.Delete(ctx, userID); err != nil {
		return h.handleError(c, err, "delete settings")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Settings deleted successfully",
	})
}

func (h *SettingsHandler) ResetMe(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, err := h.settingsService.Reset(ctx, userID, environment(c))
	if err != nil {
		return h.handleError(c, err, "reset settings")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Settings reset to defaults",
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

// SetPreference sets a single flag. A null value unsets it.
func (h *SettingsHandler) SetPreference(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)
	key := c.Params("key")

	var req models.SetPreferenceRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, err := h.settingsService.SetPreference(ctx, userID, key, req.Value)
	if err != nil {
		return h.handleError(c, err, "update preference")
	}

	action := "set"
	if req.Value == nil {
		action = "unset"
	}
	preferenceChanges.WithLabelValues(key, action).Inc()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) TogglePreference(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)
	key := c.Params("key")

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, value, err := h.settingsService.TogglePreference(ctx, userID, key)
	if err != nil {
		return h.handleError(c, err, "toggle preference")
	}
	preferenceChanges.WithLabelValues(key, "toggle").Inc()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"key":      key,
			"value":    value,
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) DisableTranslationLanguage(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	var req models.TranslationLanguageRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, err := h.settingsService.DisableTranslationLanguage(ctx, userID, req.Language)
	if err != nil {
		return h.handleError(c, err, "disable translation language")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) EnableTranslationLanguage(c fiber.Ctx) error {
	userID := c.Get(middleware.UserIDHeader)

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	doc, err := h.settingsService.EnableTranslationLanguage(ctx, userID, c.Params("language"))
	if err != nil {
		return h.handleError(c, err, "enable translation language")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) GetSettingsByUserID(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	doc, err := h.settingsService.Find(ctx, c.Params("userId"))
	if err != nil {
		return h.handleError(c, err, "retrieve settings")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"settings": doc,
		},
	})
}

func (h *SettingsHandler) handleError(c fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, models.ErrInvalidUserID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User authentication required",
		})
	case errors.Is(err, models.ErrSettingsNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Settings not found",
		})
	case errors.Is(err, models.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Settings were modified concurrently, please retry",
		})
	case errors.Is(err, models.ErrValidation), errors.Is(err, settings.ErrUnknownPreference):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.logger.Error("Failed to "+action,
		zap.String("userId", c.Get(middleware.UserIDHeader)),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to " + action,
	})
}

// requestContext bounds a storage call by timeout. It derives from the request
// context so deadlines and cancellation set by upstream middleware apply.
func requestContext(c fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), timeout)
}

func environment(c fiber.Ctx) settings.Environment {
	return settings.EnvironmentFromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
