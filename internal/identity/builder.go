// Package identity converts provisioning events into canonical identity documents.
package identity

import (
	"fmt"
	"time"

	"github.com/scim-bridge/scim-bridge/internal/sanitize"
)

const (
	// FilePrefix is prepended to the sanitized display name of every identity file.
	FilePrefix = "entraid_human_"
	// FileExt is the identity file extension.
	FileExt = ".yaml"

	// DefaultVersion is the metadata.version written when none is configured.
	DefaultVersion = "1.0.0"
	// DefaultDescription is the metadata.description format; %s is the identity name.
	DefaultDescription = "EntraID user %s provisioned via SCIM"

	dateLayout   = "2006-01-02"
	policySuffix = "-policy"
)

// Config controls the static parts of every identity document.
type Config struct {
	// SchemaPath is written to the $schema key.
	SchemaPath string
	// Version is written to metadata.version.
	Version string
	// DescriptionFormat is a fmt format with a single %s for the identity name.
	DescriptionFormat string
}

// Builder builds identity documents. It is safe for concurrent use.
type Builder struct {
	cfg Config
	now func() time.Time
}

// NewBuilder returns a Builder with defaults applied to empty config values.
func NewBuilder(cfg Config) *Builder {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	if cfg.DescriptionFormat == "" {
		cfg.DescriptionFormat = DefaultDescription
	}

	return &Builder{cfg: cfg, now: time.Now}
}

// WithClock replaces the clock used for metadata.created_date.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Filename returns the identity file name for a display name.
func Filename(displayName string) string {
	return FilePrefix + sanitize.Name(displayName) + FileExt
}

// Build returns the file name and the document for ev. It never fails:
// missing optional fields are replaced by their defaults.
func (b *Builder) Build(ev Event) (string, *Document) {
	var (
		name   = ev.Name()
		email  = ev.PrimaryEmail()
		role   = sanitize.Name(ev.Title)
		team   = sanitize.Name(ev.Department)
		status = StatusActive
	)

	if !ev.Active {
		status = StatusDeactivated
	}

	doc := &Document{
		Schema: b.cfg.SchemaPath,
		Metadata: Metadata{
			Version:               b.cfg.Version,
			CreatedDate:           b.now().UTC().Format(dateLayout),
			Description:           fmt.Sprintf(b.cfg.DescriptionFormat, name),
			SourceObjectID:        ev.ExternalID,
			SourcePrincipalName:   ev.PrincipalName,
			ProvisionedExternally: true,
		},
		Identity: Identity{
			Name:   name,
			Email:  email,
			Role:   role,
			Team:   team,
			Status: status,
		},
		Authentication: Authentication{
			PrincipalIdentifier: email,
			Disabled:            !ev.Active,
		},
		Policies: Policies{
			IdentityPolicies: []string{role + policySuffix},
		},
	}

	return Filename(name), doc
}
