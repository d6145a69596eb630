package scim

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/identity"
	"github.com/scim-bridge/scim-bridge/internal/provision"
)

var (
	errInvalidPatchValue = errors.New("invalid patch value")
	errUnsupportedFilter = errors.New("unsupported filter")

	// groups[value eq "Engineering"] or groups[display eq "Engineering"]
	groupFilterPath = regexp.MustCompile(`(?i)^groups\[\s*(?:value|display)\s+eq\s+"([^"]*)"\s*\]$`)
	// userName eq "jane@example.com"
	listFilter = regexp.MustCompile(`(?i)^\s*(\w+)\s+eq\s+"([^"]*)"\s*$`)
)

// eventFromUser maps a SCIM user to a provisioning event. Groups without a
// display name are ignored because group documents are matched by name.
func eventFromUser(u *User) identity.Event {
	ev := identity.Event{
		ExternalID:    strings.TrimSpace(u.ID),
		PrincipalName: strings.TrimSpace(u.UserName),
		DisplayName:   u.DisplayName,
		Title:         u.Title,
		Department:    u.Department,
		Active:        u.Active == nil || *u.Active,
	}

	if ev.ExternalID == "" {
		ev.ExternalID = strings.TrimSpace(u.ExternalID)
	}

	for _, e := range u.Emails {
		ev.Emails = append(ev.Emails, e.Value)
	}

	ev.TargetGroupNames = groupNames(u.Groups)

	return ev
}

func groupNames(refs []GroupRef) []string {
	names := make([]string, 0, len(refs))

	for _, g := range refs {
		if name := strings.TrimSpace(g.Display); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// patchRequest folds PATCH operations into one request. Operations on
// attributes the bridge does not own are ignored.
func patchRequest(ops []Operation) (provision.PatchRequest, error) {
	var req provision.PatchRequest

	for _, op := range ops {
		path := strings.TrimSpace(op.Path)

		switch {
		case strings.EqualFold(path, "groups"):
			if err := patchGroups(&req, op.Op, op.Value); err != nil {
				return req, err
			}
		case groupFilterPath.MatchString(path):
			if op.Op != "remove" {
				return req, fmt.Errorf("%w: %s with path %s", errInvalidPatchValue, op.Op, path)
			}

			name := groupFilterPath.FindStringSubmatch(path)[1]
			req.RemoveGroups = append(req.RemoveGroups, name)
		case strings.EqualFold(path, "active"):
			if err := patchActive(&req, op.Op, op.Value); err != nil {
				return req, err
			}
		case path == "":
			if err := patchAttributes(&req, op.Op, op.Value); err != nil {
				return req, err
			}
		default:
			log.Debug().Str("op", op.Op).Str("path", path).Msg("ignoring patch operation")
		}
	}

	return req, nil
}

func patchGroups(req *provision.PatchRequest, op string, value json.RawMessage) error {
	var refs []GroupRef
	if len(value) > 0 {
		if err := json.Unmarshal(value, &refs); err != nil {
			return fmt.Errorf("%w: groups: %w", errInvalidPatchValue, err)
		}
	}

	names := groupNames(refs)

	switch op {
	case "add":
		req.AddGroups = append(req.AddGroups, names...)
	case "replace":
		req.ReplaceGroups = &names
	case "remove":
		if len(refs) == 0 {
			// remove without value leaves every group
			empty := []string{}
			req.ReplaceGroups = &empty

			return nil
		}

		req.RemoveGroups = append(req.RemoveGroups, names...)
	}

	return nil
}

func patchActive(req *provision.PatchRequest, op string, value json.RawMessage) error {
	if op == "remove" {
		return fmt.Errorf("%w: active can not be removed", errInvalidPatchValue)
	}

	active, err := parseBool(value)
	if err != nil {
		return err
	}

	req.Active = &active

	return nil
}

// patchAttributes handles operations without path, whose value is an attribute object.
func patchAttributes(req *provision.PatchRequest, op string, value json.RawMessage) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(value, &attrs); err != nil {
		return fmt.Errorf("%w: %w", errInvalidPatchValue, err)
	}

	for key, v := range attrs {
		switch strings.ToLower(key) {
		case "active":
			if err := patchActive(req, op, v); err != nil {
				return err
			}
		case "groups":
			if err := patchGroups(req, op, v); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseBool accepts JSON booleans and the "True"/"False" strings some providers send.
func parseBool(value json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(value, &b); err == nil {
		return b, nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return false, fmt.Errorf("%w: active must be a boolean", errInvalidPatchValue)
	}

	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return false, fmt.Errorf("%w: active must be a boolean", errInvalidPatchValue)
	}

	return b, nil
}

// userFromResult renders a provisioning result as a SCIM user.
func userFromResult(res *provision.Result, baseURL string) User {
	active := res.Active

	u := User{
		Schemas:     []string{SchemaUser, SchemaExtension},
		ID:          res.ExternalID,
		UserName:    res.UserName,
		DisplayName: res.DisplayName,
		Active:      &active,
		Meta: &Meta{
			ResourceType: "User",
			Location:     strings.TrimRight(baseURL, "/") + Path + "/" + url.PathEscape(res.ExternalID),
		},
		Extension: &Extension{
			YAMLFile:   res.Path,
			PRURL:      res.ReviewURL,
			GroupPRURL: res.GroupReviewURL,
			GroupFiles: res.GroupFiles,
		},
	}

	if u.UserName == "" {
		u.UserName = res.Email
	}

	if res.Email != "" {
		primary := true
		u.Emails = []Email{{Value: res.Email, Type: "work", Primary: &primary}}
	}

	for _, g := range res.Groups {
		u.Groups = append(u.Groups, GroupRef{Value: g, Display: g, Type: "direct"})
	}

	return u
}

// filterFunc compiles a list filter of the form `attribute eq "value"`.
func filterFunc(filter string) (func(*provision.Result) bool, error) {
	m := listFilter.FindStringSubmatch(filter)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", errUnsupportedFilter, filter)
	}

	want := m[2]

	switch strings.ToLower(m[1]) {
	case "username":
		return func(r *provision.Result) bool { return strings.EqualFold(r.UserName, want) }, nil
	case "id", "externalid":
		return func(r *provision.Result) bool { return r.ExternalID == want }, nil
	case "displayname":
		return func(r *provision.Result) bool { return strings.EqualFold(r.DisplayName, want) }, nil
	}

	return nil, fmt.Errorf("%w: attribute %s", errUnsupportedFilter, m[1])
}
