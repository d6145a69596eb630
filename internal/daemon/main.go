// Package daemon assembles the bridge and runs it until a signal arrives.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/db"
	"github.com/scim-bridge/scim-bridge/internal/gitops"
	"github.com/scim-bridge/scim-bridge/internal/identity"
	"github.com/scim-bridge/scim-bridge/internal/provision"
	"github.com/scim-bridge/scim-bridge/internal/store"
	"github.com/scim-bridge/scim-bridge/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	gateway    gitops.Gateway
	webService *web.Service
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	journalDB, err := db.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal database")
	}

	gw, err := gitops.New(cfg.Git)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gateway")
	}

	mapping, err := store.New(cfg.Store.MappingFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mapping store")
	}

	prov := provision.New(ProvisionConfig(cfg), gw, identity.NewBuilder(IdentityConfig(cfg)), mapping, journalDB)

	authService, err := auth.NewService(cfg.SCIM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create auth service")
	}

	return &Daemon{
		cfg:        cfg,
		db:         journalDB,
		gateway:    gw,
		webService: web.New(cfg, prov, authService),
	}, nil
}

// Run checks out the repository, serves until SIGINT or SIGTERM and shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer d.close()

	if err := d.gateway.Refresh(ctx); err != nil {
		return errors.Wrap(err, "failed to prepare repository")
	}

	log.Info().Str("repository", d.gateway.WorkDir()).Str("provider", d.cfg.Git.Provider).
		Msg("repository ready")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
	})

	g.Go(func() error {
		return d.webService.WaitShutdown(gctx)
	})

	return g.Wait() //nolint:wrapcheck
}

func (d *Daemon) close() {
	sqlDB, err := d.db.DB()
	if err != nil {
		return
	}

	if err = sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
