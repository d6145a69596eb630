// Package web wires the HTTP surface of the bridge on fiber.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	fiberlogger "github.com/scim-bridge/scim-bridge/internal/logger/adapter/fiber"
	"github.com/scim-bridge/scim-bridge/internal/provision"
	"github.com/scim-bridge/scim-bridge/internal/web/handler/health"
	"github.com/scim-bridge/scim-bridge/internal/web/handler/journal"
	"github.com/scim-bridge/scim-bridge/internal/web/handler/scim"
)

// MetricsPath is the Prometheus exposition endpoint.
const MetricsPath = "/metrics"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	provisioner  *provision.Service
	authService  *auth.Service
}

// Start serves on addr until the server is shut down.
func (s *Service) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("starting http server")

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// WaitShutdown blocks until ctx is done and shuts the server down gracefully.
func (s *Service) WaitShutdown(ctx context.Context) error {
	<-ctx.Done()
	log.Info().Msgf("shutdown request (%v)", context.Cause(ctx))

	// Graceful shutdown for reverse proxies: set status to fail, so /health returns 503.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Msg("http server was stopped ... good bye...")

	return nil
}

// Alive reports false once a shutdown started.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, prov *provision.Service, authService *auth.Service) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if prov == nil || authService == nil {
		panic("provisioner and auth service cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			AppName:               "scim-bridge",
			CaseSensitive:         true,
			Immutable:             true,
			DisableStartupMessage: !cfg.DevMode,
			BodyLimit:             cfg.Webserver.BodyLimit,
			ReadTimeout:           cfg.Webserver.ReadTimeout,
			WriteTimeout:          cfg.Webserver.WriteTimeout,
			ErrorHandler:          scim.ErrorHandler,
		},
	)

	app.Use(requestid.New(requestid.Config{ContextKey: fiberlogger.RequestIDKey}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:    cfg.Log,
		HealthURI: health.Path,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	// init web service
	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
		provisioner:  prov,
		authService:  authService,
	}
	service.alive.Store(true)

	health.Handler.Init(app, service.Alive, prov.Ready)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	scim.Handler.Init(app, cfg, prov, authService)
	journal.Handler.Init(app, cfg, prov, authService)

	return service
}
