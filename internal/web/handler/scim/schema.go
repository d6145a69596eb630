package scim

import "encoding/json"

// SCIM schema URNs and media type.
const (
	SchemaUser         = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaPatchOp      = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	SchemaListResponse = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaError        = "urn:ietf:params:scim:api:messages:2.0:Error"
	// SchemaExtension carries the repository artifacts of a user.
	SchemaExtension = "urn:vault:scim:extension"

	ContentType = "application/scim+json"
)

type (
	// Email is a SCIM multi-valued email attribute.
	Email struct {
		Value   string `json:"value" validate:"required,email"`
		Type    string `json:"type,omitempty"`
		Primary *bool  `json:"primary,omitempty"`
	}

	// GroupRef is a group the user belongs to. Display carries the group name.
	GroupRef struct {
		Value   string `json:"value"`
		Ref     string `json:"$ref,omitempty"`
		Display string `json:"display,omitempty"`
		Type    string `json:"type,omitempty"`
	}

	// Meta is the SCIM resource metadata.
	Meta struct {
		ResourceType string `json:"resourceType"`
		Location     string `json:"location,omitempty"`
	}

	// Extension lists the repository artifacts produced for a user.
	Extension struct {
		YAMLFile   string   `json:"yaml_file,omitempty"`
		PRURL      string   `json:"pr_url,omitempty"`
		YAMLPRURL  string   `json:"yaml_pr_url,omitempty"`
		GroupPRURL string   `json:"group_pr_url,omitempty"`
		GroupFiles []string `json:"group_files,omitempty"`
		Warnings   []string `json:"warnings,omitempty"`
	}

	// User is the SCIM core user resource.
	User struct {
		Schemas     []string   `json:"schemas"`
		ID          string     `json:"id,omitempty"`
		ExternalID  string     `json:"externalId,omitempty"`
		UserName    string     `json:"userName" validate:"required"`
		DisplayName string     `json:"displayName,omitempty"`
		Emails      []Email    `json:"emails,omitempty" validate:"omitempty,dive"`
		Active      *bool      `json:"active,omitempty"`
		Title       string     `json:"title,omitempty"`
		Department  string     `json:"department,omitempty"`
		Groups      []GroupRef `json:"groups,omitempty"`
		Meta        *Meta      `json:"meta,omitempty"`
		Extension   *Extension `json:"urn:vault:scim:extension,omitempty"`
	}

	// Operation is a single PATCH operation.
	Operation struct {
		Op    string          `json:"op" validate:"required,oneof=add remove replace"`
		Path  string          `json:"path,omitempty"`
		Value json.RawMessage `json:"value,omitempty"`
	}

	// PatchOp is the SCIM PATCH request body.
	PatchOp struct {
		Schemas    []string    `json:"schemas"`
		Operations []Operation `json:"Operations" validate:"required,min=1,dive"`
	}

	// ListResponse is a page of users.
	ListResponse struct {
		Schemas      []string `json:"schemas"`
		TotalResults int      `json:"totalResults"`
		StartIndex   int      `json:"startIndex"`
		ItemsPerPage int      `json:"itemsPerPage"`
		Resources    []User   `json:"Resources"`
	}

	// Error is the SCIM error body.
	Error struct {
		Schemas  []string `json:"schemas"`
		Status   string   `json:"status"`
		ScimType string   `json:"scimType,omitempty"`
		Detail   string   `json:"detail,omitempty"`
	}
)
