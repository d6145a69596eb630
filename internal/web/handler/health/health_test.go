package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		alive      bool
		ready      map[string]bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthy",
			alive:      true,
			ready:      map[string]bool{"mapping_store": true, "repository": true},
			wantStatus: http.StatusOK,
			wantBody:   statusHealthy,
		},
		{
			name:       "repository missing",
			alive:      true,
			ready:      map[string]bool{"mapping_store": true, "repository": false},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   statusDegraded,
		},
		{
			name:       "shutting down",
			alive:      false,
			ready:      map[string]bool{"mapping_store": true},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   statusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()

			s := &Service{}
			s.Init(app, func() bool { return tt.alive }, func() map[string]bool { return tt.ready })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, Path, nil), -1)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Equal(t, Version, body.Version)
			assert.Equal(t, tt.alive, body.Services["web"])
			assert.False(t, body.Timestamp.IsZero())
		})
	}
}
