package identity

import "strings"

// Event is a single provisioning request for one principal.
// Only PrincipalName is required; every other field degrades to a default.
type Event struct {
	// ExternalID is the opaque id assigned by the identity provider. May be empty on create.
	ExternalID string
	// PrincipalName is the stable principal identifier (UPN).
	PrincipalName string
	// DisplayName is the human readable name; falls back to the primary email.
	DisplayName string
	// Emails in provider order; the first entry is the primary email.
	Emails []string
	// Title is the free text job title, used to derive the role.
	Title string
	// Department is the free text department, used to derive the team.
	Department string
	// Active reports whether the principal is enabled.
	Active bool
	// TargetGroupNames is the full set of groups the principal must belong to.
	TargetGroupNames []string
}

// PrimaryEmail returns the first non-blank email or the principal name.
func (e Event) PrimaryEmail() string {
	for _, email := range e.Emails {
		if strings.TrimSpace(email) != "" {
			return email
		}
	}

	return e.PrincipalName
}

// Name returns the display name or, when it is blank, the primary email.
func (e Event) Name() string {
	if strings.TrimSpace(e.DisplayName) != "" {
		return e.DisplayName
	}

	return e.PrimaryEmail()
}

// Key returns the external id, or the principal name for providers that did not send one.
func (e Event) Key() string {
	if e.ExternalID != "" {
		return e.ExternalID
	}

	return e.PrincipalName
}
