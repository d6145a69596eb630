// Package health serves the unauthenticated health endpoint used by load balancers.
package health

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	// Path is the health endpoint.
	Path = "/health"

	// Version is reported in every health response.
	Version = "1.0.0"

	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// Response is the health body.
type Response struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Services  map[string]bool `json:"services"`
	Version   string          `json:"version"`
}

// Service is the health handler service.
type Service struct {
	alive func() bool
	ready func() map[string]bool
	now   func() time.Time
}

var (
	// Handler is the health handler.
	Handler = Service{}
)

// Init registers GET /health. alive reports false while the server shuts
// down, ready reports the state of each collaborator.
func (s *Service) Init(app *fiber.App, alive func() bool, ready func() map[string]bool) {
	if app == nil || alive == nil || ready == nil {
		log.Fatal().Msg("app, alive or ready is nil")
		return
	}

	s.alive = alive
	s.ready = ready
	s.now = time.Now

	app.Get(Path, s.Get)
}

// Get returns 200 when every service is ready and 503 otherwise.
func (s *Service) Get(c *fiber.Ctx) error {
	services := s.ready()
	services["web"] = s.alive()

	resp := Response{
		Status:    statusHealthy,
		Timestamp: s.now().UTC(),
		Services:  services,
		Version:   Version,
	}

	for _, ok := range services {
		if !ok {
			resp.Status = statusDegraded
		}
	}

	c.Set(fiber.HeaderCacheControl, "no-store")

	if resp.Status != statusHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}

	return c.JSON(resp)
}
