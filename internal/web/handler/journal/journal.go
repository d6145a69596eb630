// Package journal serves the provisioning journal.
package journal

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	journaldb "github.com/scim-bridge/scim-bridge/internal/db/controller/journal"
	"github.com/scim-bridge/scim-bridge/internal/db/models"
	"github.com/scim-bridge/scim-bridge/internal/provision"
	"github.com/scim-bridge/scim-bridge/internal/web/handler"
)

// Path is the journal endpoint.
const Path = "/api/v1/journal"

// Response is the journal body.
type Response struct {
	Entries []models.JournalEntry `json:"entries"`
}

// Service is the journal handler service.
type Service struct {
	handler.Service
	prov *provision.Service
}

var (
	// Handler is the journal handler.
	Handler = Service{}
)

// Init registers GET /api/v1/journal behind bearer authentication.
func (s *Service) Init(app *fiber.App, cfg *config.Config, prov *provision.Service, authService *auth.Service) {
	if app == nil || cfg == nil || prov == nil {
		log.Fatal().Msg(handler.ErrNilACPFatalLogMsg)
		return
	}

	s.prov = prov

	app.Get(Path, auth.RequireBearer(authService), s.Get)
}

// Get lists the newest entries. Query parameters: limit, external_id.
func (s *Service) Get(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", journaldb.DefaultLimit)
	if limit < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}

	entries, err := s.prov.Journal(c.Query("external_id"), limit)
	if err != nil {
		if errors.Is(err, journaldb.ErrDBNil) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "journal is not configured")
		}

		log.Error().Err(err).Msg("failed to list journal entries")

		return fiber.NewError(fiber.StatusInternalServerError, "failed to list journal entries")
	}

	if entries == nil {
		entries = []models.JournalEntry{}
	}

	return c.JSON(Response{Entries: entries})
}
