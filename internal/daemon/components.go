package daemon

import (
	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/groups"
	"github.com/scim-bridge/scim-bridge/internal/identity"
	"github.com/scim-bridge/scim-bridge/internal/provision"
)

// IdentityConfig returns the identity document settings of cfg.
func IdentityConfig(cfg *config.Config) identity.Config {
	return identity.Config{
		SchemaPath:        cfg.Identity.SchemaPath,
		Version:           cfg.Identity.Version,
		DescriptionFormat: cfg.Identity.Description,
	}
}

// GroupsConfig returns the group document settings of cfg.
func GroupsConfig(cfg *config.Config) groups.Config {
	return groups.Config{
		Dir:            cfg.Identity.GroupsDir,
		DefaultContact: cfg.Identity.DefaultContact,
		DefaultType:    cfg.Identity.DefaultType,
		SkipFiles:      cfg.Identity.SkipFiles,
	}
}

// ProvisionConfig returns the provisioner settings of cfg.
func ProvisionConfig(cfg *config.Config) provision.Config {
	return provision.Config{
		IdentitiesDir:     cfg.Identity.IdentitiesDir,
		ProposeSeparately: cfg.Identity.ProposeSeparately,
		Groups:            GroupsConfig(cfg),
	}
}
