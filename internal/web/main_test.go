package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/gitops"
	"github.com/scim-bridge/scim-bridge/internal/identity"
	"github.com/scim-bridge/scim-bridge/internal/provision"
	"github.com/scim-bridge/scim-bridge/internal/store"
	"github.com/scim-bridge/scim-bridge/internal/web/handler/health"
	"github.com/scim-bridge/scim-bridge/internal/web/handler/scim"
)

func newService(t *testing.T) *Service {
	t.Helper()

	root := t.TempDir()
	gw := gitops.NewLocal(filepath.Join(root, "repo"))
	require.NoError(t, gw.Refresh(context.Background()))

	st, err := store.New(filepath.Join(root, "user_mapping.json"))
	require.NoError(t, err)

	// the store file only exists after the first write
	require.NoError(t, st.Put("seed", "Seed", "entraid_human_seed.yaml", nil))

	prov := provision.New(provision.Config{}, gw, identity.NewBuilder(identity.Config{}), st, nil)

	cfg := &config.Config{
		Webserver: config.Webserver{URL: "http://localhost:8080", BodyLimit: 1024 * 1024},
		SCIM:      config.SCIM{BearerToken: "token", MaxPageSize: 1000},
	}
	cfg.Log.AppName = "scim-bridge"

	authService, err := auth.NewService(cfg.SCIM)
	require.NoError(t, err)

	return New(cfg, prov, authService)
}

func TestRoutes(t *testing.T) {
	s := newService(t)

	tests := []struct {
		name       string
		target     string
		token      string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{name: "health", target: health.Path, wantStatus: http.StatusOK, wantBody: `"status":"healthy"`},
		{name: "metrics", target: MetricsPath, wantStatus: http.StatusOK, wantBody: "scim_bridge_group_files_modified_total"},
		{name: "users without token", target: scim.Path, wantStatus: http.StatusUnauthorized, wantType: scim.ContentType},
		{name: "users", target: scim.Path, token: "token", wantStatus: http.StatusOK, wantType: scim.ContentType, wantBody: `"totalResults":1`},
		{name: "journal without database", target: "/api/v1/journal", token: "token", wantStatus: http.StatusServiceUnavailable},
		{name: "unknown route", target: "/nope", wantStatus: http.StatusNotFound, wantType: scim.ContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.token != "" {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tt.token)
			}

			resp, err := s.App.Test(req, -1)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, resp.Header.Get(fiber.HeaderContentType))
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.wantBody)
		})
	}
}

func TestGracefulShutdown(t *testing.T) {
	s := newService(t)

	listening := make(chan struct{})
	s.App.Hooks().OnListen(func(fiber.ListenData) error {
		close(listening)
		return nil
	})

	started := make(chan error, 1)

	go func() { started <- s.Start("127.0.0.1:0") }()

	select {
	case <-listening:
	case err := <-started:
		t.Fatalf("server stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	require.True(t, s.Alive())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.WaitShutdown(ctx))
	assert.False(t, s.Alive())

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
