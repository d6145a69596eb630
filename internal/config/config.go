// Package config handles input from etc/main.toml and the environment.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SCIM_BRIDGE_WEBSERVER_PORT.
	EnvPrefix = "SCIM_BRIDGE"
	// EnvConfigJSON holds a JSON document merged over the whole configuration.
	EnvConfigJSON = "SCIM_BRIDGE_CONFIG_JSON"

	// ProviderGitHub pushes branches and opens pull requests on GitHub.
	ProviderGitHub = "github"
	// ProviderLocal only writes files into the clone directory.
	ProviderLocal = "local"

	redacted = "******"
)

// legacyEnv maps config keys to the environment names used by earlier bridge deployments.
var legacyEnv = map[string][]string{ //nolint:gochecknoglobals
	"scim.bearertoken":     {"SCIM_BEARER_TOKEN"},
	"git.token":            {"GITHUB_TOKEN"},
	"git.repourl":          {"GIT_REPO_URL"},
	"git.clonedir":         {"REPO_CLONE_DIR"},
	"store.mappingfile":    {"USER_MAPPING_FILE"},
	"identity.schemapath":  {"SCHEMA_FILE_PATH"},
	"log.loglevel":         {"LOG_LEVEL"},
	"scim.bearertokenhash": {"SCIM_BEARER_TOKEN_HASH"},
}

// ReadConfig reads main.toml from the directory path, applies environment
// overrides and validates the result. A missing main.toml is not an error:
// defaults and the environment are enough to run the bridge.
func ReadConfig(path string) (Config, error) {
	c, err := read(path)
	if err != nil {
		return c, err
	}

	return c, validate(&c)
}

// ReadLocalConfig reads the configuration like ReadConfig but skips the
// checks that only the daemon needs, such as secrets and the repository url.
// Offline commands working on a checkout use it.
func ReadLocalConfig(path string) (Config, error) {
	c, err := read(path)
	if err != nil {
		return c, err
	}

	c.Log.LogLevel = normalizeLevel(c.Log.LogLevel)

	return c, nil
}

func read(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, errors.Wrap(err, "failed to read main config file")
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	if configJSON := os.Getenv(EnvConfigJSON); configJSON != "" {
		if err := decodeAndMergeConfig(&c, configJSON); err != nil {
			return c, err
		}
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"devmode": false,
		"title":   "scim-bridge",

		"db.gormengine": EngineSQLite,
		"db.name":       "/data/journal.db",
		"db.host":       "",
		"db.port":       0,
		"db.user":       "",
		"db.password":   "",
		"db.extras":     "",

		"log.loglevel":                 "info",
		"log.logenv":                   "",
		"log.appname":                  "scim-bridge",
		"log.servicename":              "scim-bridge",
		"log.enableaccesslogtoconsole": true,
		"log.reportcaller":             false,
		"log.disablehealthlog":         true,
		"log.console.enabled":          true,
		"log.console.useconsolewriter": false,
		"log.file.enabled":             false,
		"log.file.path":                "./log",
		"log.file.access":              "access.log",
		"log.file.error":               "error.log",
		"log.file.info":                "info.log",
		"log.file.trace":               "trace.log",
		"log.file.warn":                "warn.log",

		"webserver.port":           8080,
		"webserver.url":            "http://localhost:8080",
		"webserver.shutdowntime":   5,
		"webserver.disablerecover": false,
		"webserver.bodylimit":      1024 * 1024,
		"webserver.readtimeout":    "30s",
		"webserver.writetimeout":   "120s",

		"scim.bearertoken":     "",
		"scim.bearertokenhash": "",
		"scim.authcachesize":   128,
		"scim.authcachettl":    "5m",
		"scim.maxpagesize":     1000,

		"git.provider":    ProviderGitHub,
		"git.repourl":     "",
		"git.token":       "",
		"git.basebranch":  "main",
		"git.clonedir":    "/data/repo",
		"git.apiurl":      "https://api.github.com",
		"git.authorname":  "SCIM Bridge",
		"git.authoremail": "scim-bridge@example.com",
		"git.labels":      []string{"scim-provisioning", "needs-review"},
		"git.timeout":     "60s",

		"identity.identitiesdir":     "identities",
		"identity.groupsdir":         "identity_groups",
		"identity.schemapath":        "../identities/schema_entraid_human.yaml",
		"identity.version":           "1.0.0",
		"identity.description":       "EntraID user %s provisioned via SCIM",
		"identity.defaultcontact":    "scim-provisioning@example.com",
		"identity.defaulttype":       "internal",
		"identity.skipfiles":         []string{"example.yaml"},
		"identity.proposeseparately": true,

		"store.mappingfile": "/data/user_mapping.json",
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func decodeAndMergeConfig(c *Config, configAsJSON string) error {
	if err := json.Unmarshal([]byte(configAsJSON), c); err != nil {
		return errors.Wrapf(err, "failed to decode %s", EnvConfigJSON)
	}

	return nil
}

// Redacted returns a copy of c with every secret masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Git.Labels = slices.Clone(c.Git.Labels)
	out.Identity.SkipFiles = slices.Clone(c.Identity.SkipFiles)

	for _, secret := range []*string{
		&out.SCIM.BearerToken,
		&out.SCIM.BearerTokenHash,
		&out.Git.Token,
		&out.DB.Password,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}

	return out
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer

	enc := toml.NewEncoder(&buffer)
	enc.SetIndentTables(true)

	if err := enc.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the settings the bridge can not start without and fill
// zero values that have a sane default.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if strings.TrimSpace(c.SCIM.BearerToken) == "" && c.SCIM.BearerTokenHash == "" {
		return errors.Wrap(ErrEmptyBearerToken, invalidErrMessage)
	}

	c.SCIM.BearerToken = strings.TrimSpace(c.SCIM.BearerToken)

	switch c.Git.Provider {
	case ProviderGitHub:
		if strings.TrimSpace(c.Git.Token) == "" {
			return errors.Wrap(ErrEmptyGitToken, invalidErrMessage)
		}

		if !validRepoURL(c.Git.RepoURL) {
			return errors.Wrapf(ErrInvalidRepoURL, "%s: %q", invalidErrMessage, c.Git.RepoURL)
		}
	case ProviderLocal:
	default:
		return errors.Wrapf(ErrUnknownGitProvider, "%s: %q", invalidErrMessage, c.Git.Provider)
	}

	if c.Git.CloneDir == "" {
		return errors.Wrap(ErrEmptyCloneDir, invalidErrMessage)
	}

	if c.Store.MappingFile == "" {
		return errors.Wrap(ErrEmptyMappingFile, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case EngineSQLite, EngineMySQL, EnginePostgres:
	case "":
		c.DB.GormEngine = EngineSQLite
	default:
		return errors.Wrapf(ErrUnsupportedDBEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	c.Log.LogLevel = normalizeLevel(c.Log.LogLevel)

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Git.BaseBranch == "" {
		c.Git.BaseBranch = "main"
	}

	if c.SCIM.MaxPageSize <= 0 {
		c.SCIM.MaxPageSize = 1000
	}

	return nil
}

func validRepoURL(u string) bool {
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "git@") {
		return false
	}

	return strings.Contains(u, "github.com")
}

// normalizeLevel accepts the upper case level names of earlier deployments.
func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))

	switch level {
	case "warning":
		return "warn"
	case "critical":
		return "fatal"
	}

	return level
}
