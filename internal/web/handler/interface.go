package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/provision"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, prov *provision.Service, authService *auth.Service)
}
