package logger_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scim-bridge/scim-bridge/internal/logger"
)

// bridgeLog is the shape etc/main.toml produces for the daemon.
func bridgeLog() logger.Log {
	return logger.Log{
		LogLevel:    "info",
		LogEnv:      "test",
		AppName:     "scim-bridge",
		ServiceName: "scim-bridge",
		Console:     logger.Console{Enabled: true},
	}
}

// capture runs fn with stdout and stderr redirected and returns the decoded JSON lines.
func capture(t *testing.T, fn func()) []map[string]any {
	t.Helper()

	stdout, stderr := os.Stdout, os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout, os.Stderr = w, w

	done := make(chan []byte)

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.Bytes()
	}()

	fn()

	_ = w.Close()
	os.Stdout, os.Stderr = stdout, stderr
	out := <-done

	var lines []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)

		lines = append(lines, m)
	}

	return lines
}

func TestInitRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*logger.Log)
		wantErr error
	}{
		{name: "unknown level", mutate: func(l *logger.Log) { l.LogLevel = "loud" }},
		{name: "no service name", mutate: func(l *logger.Log) { l.ServiceName = "" }, wantErr: logger.ErrServiceNameIsEmpty},
		{name: "no app name", mutate: func(l *logger.Log) { l.AppName = "" }, wantErr: logger.ErrAppNameIsEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bridgeLog()
			tt.mutate(&cfg)

			err := logger.Init(cfg)
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestInitFields(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*logger.Log)
		wantEnv    bool
		wantCaller bool
		wantStack  bool
	}{
		{name: "env and app", wantEnv: true},
		{name: "no env", mutate: func(l *logger.Log) { l.LogEnv = "" }},
		{name: "caller", mutate: func(l *logger.Log) { l.ReportCaller = true }, wantEnv: true, wantCaller: true},
		{name: "trace adds stack without caller", mutate: func(l *logger.Log) { l.LogLevel = "trace" }, wantEnv: true, wantStack: true},
		{
			name:       "trace with caller",
			mutate:     func(l *logger.Log) { l.LogLevel = "trace"; l.ReportCaller = true },
			wantEnv:    true,
			wantCaller: true,
			wantStack:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bridgeLog()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			lines := capture(t, func() {
				require.NoError(t, logger.Init(cfg))
				log.Error().Err(errors.New("push rejected")).Msg("propose failed")
			})

			require.Len(t, lines, 1)

			entry := lines[0]
			assert.Equal(t, "scim-bridge", entry["app"])
			assert.Equal(t, "propose failed", entry["message"])

			env, ok := entry["env"]
			assert.Equal(t, tt.wantEnv, ok)

			if tt.wantEnv {
				assert.Equal(t, "test", env)
			}

			_, ok = entry["caller"]
			assert.Equal(t, tt.wantCaller, ok)

			_, ok = entry[zerolog.ErrorStackFieldName]
			assert.Equal(t, tt.wantStack, ok)
		})
	}
}

func TestInitLevelFilter(t *testing.T) {
	cfg := bridgeLog()
	cfg.LogLevel = "warn"

	lines := capture(t, func() {
		require.NoError(t, logger.Init(cfg))
		log.Info().Msg("hidden")
		log.Warn().Msg("shown")
	})

	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestInitRollingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	cfg := bridgeLog()
	cfg.Console.Enabled = false
	cfg.File = logger.LogFile{
		Enabled:  true,
		Path:     dir,
		ErrorLog: "error.log",
		InfoLog:  "info.log",
		TraceLog: "trace.log",
		WarnLog:  "warn.log",
	}

	require.NoError(t, logger.Init(cfg))

	log.Info().Msg("user created")
	log.Error().Msg("push rejected")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "user created")
	assert.NotContains(t, string(info), "push rejected")

	errLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), "push rejected")
}

func TestInitUnusableLogDirectory(t *testing.T) {
	// a regular file blocks the log directory
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := bridgeLog()
	cfg.Console.Enabled = false
	cfg.File = logger.LogFile{Enabled: true, Path: filepath.Join(blocker, "logs"), InfoLog: "info.log"}

	lines := capture(t, func() {
		require.NoError(t, logger.Init(cfg))
		log.Info().Msg("nowhere to go")
	})

	assert.Empty(t, lines)
	assert.NoDirExists(t, cfg.File.Path)
}

func TestErrorHandler(t *testing.T) {
	require.NoError(t, logger.Init(bridgeLog()))

	assert.Equal(t,
		reflect.ValueOf(logger.ErrorHandler).Pointer(),
		reflect.ValueOf(zerolog.ErrorHandler).Pointer())

	var out bytes.Buffer

	restore := logger.SetErrorOutput(&out)
	defer restore()

	zerolog.ErrorHandler(errors.New("disk full"))
	assert.Equal(t, "logger: dropped log event: disk full\n", out.String())
}
