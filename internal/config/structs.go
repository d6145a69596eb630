package config

import (
	"time"

	"github.com/scim-bridge/scim-bridge/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	SCIM      SCIM
	Git       Git
	Identity  Identity
	Store     Store
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // seconds /health reports 503 before the server stops
	URL            string // public base url, used in SCIM resource locations
	BodyLimit      int    // max request body size in bytes
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// SCIM holds the inbound authentication settings.
type SCIM struct {
	// BearerToken is the shared secret sent by the identity provider.
	BearerToken string
	// BearerTokenHash is an argon2id hash of the token, used instead of BearerToken when set.
	BearerTokenHash string
	// AuthCacheSize is the number of verified token digests kept in memory.
	AuthCacheSize int
	// AuthCacheTTL is how long a verified token digest stays valid.
	AuthCacheTTL time.Duration
	// MaxPageSize caps the count parameter of list requests.
	MaxPageSize int
}

// Git holds the version control gateway settings.
type Git struct {
	Provider    string // github or local
	RepoURL     string
	Token       string
	BaseBranch  string
	CloneDir    string
	APIURL      string // GitHub REST API base url
	AuthorName  string
	AuthorEmail string
	Labels      []string
	Timeout     time.Duration // per git command and per API call
}

// Identity holds the document layout of the configuration repository.
type Identity struct {
	IdentitiesDir     string   // identity documents, relative to the repository root
	GroupsDir         string   // group documents, relative to the repository root
	SchemaPath        string   // $schema value of identity documents
	Version           string   // metadata.version of identity documents
	Description       string   // metadata.description format, %s is the user name
	DefaultContact    string   // contact of groups created by the bridge
	DefaultType       string   // type of groups created by the bridge
	SkipFiles         []string // group directory files that are not groups
	ProposeSeparately bool     // open one review for the identity and one for its groups
}

// Store holds the mapping store settings.
type Store struct {
	MappingFile string
}
