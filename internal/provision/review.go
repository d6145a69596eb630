package provision

import (
	"bytes"
	"text/template"

	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/gitops"
	"github.com/scim-bridge/scim-bridge/internal/sanitize"
)

const footer = `
---
*This change was generated by the SCIM Bridge service.*
`

var identityBody = template.Must(template.New("identity").Parse(`## SCIM User Provisioning

**User:** {{ .UserName }}
**Email:** {{ or .Email "N/A" }}
**Role:** {{ .Role }}
**Team:** {{ .Team }}
**Status:** {{ .Status }}
**File:** ` + "`{{ .Path }}`" + `

### Summary
This change adds or updates the identity configuration of {{ .UserName }} as part of SCIM provisioning.
{{- if .GroupFiles }}

### Group files
{{- range .GroupFiles }}
- ` + "`{{ . }}`" + `
{{- end }}
{{- end }}

### Verification Checklist
- [ ] Review user details for accuracy
- [ ] Confirm role and team assignments
- [ ] Verify authentication configuration
- [ ] Check policies are appropriate for the user's role
` + footer)) //nolint:gochecknoglobals

var groupsBody = template.Must(template.New("groups").Parse(`## SCIM Group Membership Update

**User:** {{ .UserName }}
**Modified Groups:** {{ len .GroupFiles }}

### Summary
This change updates the group memberships of {{ .UserName }} as part of SCIM group synchronization.

### Modified Files
{{- range .GroupFiles }}
- ` + "`{{ . }}`" + `
{{- end }}

### Verification Checklist
- [ ] Review group membership changes
- [ ] Confirm the user should have access to these groups
- [ ] Check for any missing or extra group assignments
` + footer)) //nolint:gochecknoglobals

// review holds the values rendered into titles, commit messages and bodies.
type review struct {
	UserName   string
	Email      string
	Role       string
	Team       string
	Status     string
	Path       string
	GroupFiles []string
}

func (r review) identityChange() gitops.Change {
	paths := append([]string{r.Path}, r.GroupFiles...)

	return gitops.Change{
		Slug:    sanitize.Name(r.UserName),
		Title:   "SCIM Provisioning: " + r.UserName,
		Body:    render(identityBody, r),
		Message: "SCIM: Add/update user identity for " + r.UserName,
		Paths:   paths,
	}
}

func (r review) groupsChange() gitops.Change {
	return gitops.Change{
		Slug:    sanitize.Name(r.UserName),
		Kind:    "groups",
		Title:   "SCIM Group Sync: " + r.UserName + " membership changes",
		Body:    render(groupsBody, r),
		Message: "SCIM: Update group memberships for " + r.UserName,
		Paths:   r.GroupFiles,
	}
}

// render executes t. On failure the partial output is kept so the change can
// still be proposed.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer

	if err := t.Execute(&buf, data); err != nil {
		log.Error().Err(err).Str("template", t.Name()).Msg("failed to render review body")
	}

	return buf.String()
}
