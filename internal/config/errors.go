package config

import (
	"errors"
)

var (
	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrEmptyBearerToken error if neither scim.bearerToken nor scim.bearerTokenHash is set.
	ErrEmptyBearerToken = errors.New("config scim.bearerToken or scim.bearerTokenHash must be set")

	// ErrUnknownGitProvider error if git.provider is neither github nor local.
	ErrUnknownGitProvider = errors.New("config git.provider must be github or local")

	// ErrEmptyGitToken error if the github provider has no token.
	ErrEmptyGitToken = errors.New("config git.token can not be empty for the github provider")

	// ErrInvalidRepoURL error if git.repoURL is not a GitHub https or ssh url.
	ErrInvalidRepoURL = errors.New("config git.repoURL must be a GitHub https or ssh url")

	// ErrEmptyCloneDir error if git.cloneDir is empty.
	ErrEmptyCloneDir = errors.New("config git.cloneDir can not be empty")

	// ErrEmptyMappingFile error if store.mappingFile is empty.
	ErrEmptyMappingFile = errors.New("config store.mappingFile can not be empty")

	// ErrUnsupportedDBEngine error if db.gormEngine is not supported.
	ErrUnsupportedDBEngine = errors.New("config db.gormEngine must be sqlite, mysql or postgres")
)
