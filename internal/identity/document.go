package identity

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// StatusActive is the identity status of an enabled principal.
	StatusActive = "active"
	// StatusDeactivated is the identity status of a disabled principal.
	StatusDeactivated = "deactivated"
)

// Document is the identity file committed for one principal.
type Document struct {
	Schema         string         `yaml:"$schema"`
	Metadata       Metadata       `yaml:"metadata"`
	Identity       Identity       `yaml:"identity"`
	Authentication Authentication `yaml:"authentication"`
	Policies       Policies       `yaml:"policies"`
}

// Metadata describes where the document came from.
type Metadata struct {
	Version               string `yaml:"version"`
	CreatedDate           string `yaml:"created_date"`
	Description           string `yaml:"description"`
	SourceObjectID        string `yaml:"source_object_id"`
	SourcePrincipalName   string `yaml:"source_principal_name"`
	ProvisionedExternally bool   `yaml:"provisioned_externally"`
}

// Identity holds the principal attributes.
type Identity struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Role   string `yaml:"role"`
	Team   string `yaml:"team"`
	Status string `yaml:"status"`
}

// Authentication binds the identity to its login principal.
type Authentication struct {
	PrincipalIdentifier string `yaml:"principal_identifier"`
	Disabled            bool   `yaml:"disabled"`
}

// Policies lists the policies attached to the identity.
type Policies struct {
	IdentityPolicies []string `yaml:"identity_policies"`
}

// Marshal renders the document as YAML with two space indentation.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd

	if err := enc.Encode(d); err != nil {
		return nil, errors.Wrap(err, "encode identity document")
	}

	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode identity document")
	}

	return buf.Bytes(), nil
}

// Parse decodes an identity document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decode identity document")
	}

	return &d, nil
}
