// Package groups reconciles the externally synchronized membership of group documents.
package groups

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/fsutil"
	"github.com/scim-bridge/scim-bridge/internal/sanitize"
)

const (
	// FilePrefix is prepended to the sanitized group name of every group file.
	FilePrefix = "identity_group_"

	// DefaultDir is the groups directory relative to the repository root.
	DefaultDir = "identity_groups"
	// DefaultContact is the contact of groups created by the reconciler.
	DefaultContact = "scim-provisioning@example.com"
	// DefaultType is the type of groups created by the reconciler.
	DefaultType = "internal"

	filePerm = 0o644
	dirPerm  = 0o755
)

// Config configures a Reconciler.
type Config struct {
	// Dir is the groups directory relative to the repository root.
	Dir string
	// DefaultContact is used for new groups.
	DefaultContact string
	// DefaultType is used for new groups.
	DefaultType string
	// SkipFiles are file names in Dir that are never treated as group documents.
	SkipFiles []string
}

// Reconciler converges group documents to the target membership of one principal.
// It does not lock across files: callers serialize events that may touch the same group.
type Reconciler struct {
	repoDir   string
	cfg       Config
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// New returns a Reconciler for the repository checked out at repoDir.
// A missing groups directory is treated as empty and created on the first new group.
func New(repoDir string, cfg Config) *Reconciler {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}

	if cfg.DefaultContact == "" {
		cfg.DefaultContact = DefaultContact
	}

	if cfg.DefaultType == "" {
		cfg.DefaultType = DefaultType
	}

	return &Reconciler{
		repoDir:   repoDir,
		cfg:       cfg,
		writeFile: fsutil.WriteFileAtomic,
	}
}

// Filename returns the group file name for a group name.
func Filename(groupName string) string {
	return FilePrefix + sanitize.Name(groupName) + ".yaml"
}

// Sync makes displayName a member of exactly the groups in targets and returns
// the sorted repository relative paths of every file it wrote.
// Failures on one group do not stop the others; they are returned joined
// together with the paths that were written before and after them.
func (r *Reconciler) Sync(displayName string, targets []string) ([]string, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, ErrEmptyMember
	}

	docs, err := r.load()
	if err != nil {
		return nil, err
	}

	current := make(map[string]struct{})

	for _, d := range docs {
		if d.group.HasMember(displayName) {
			current[d.group.Name] = struct{}{}
		}
	}

	wanted := make(map[string]struct{}, len(targets))

	var (
		changed = newPathSet()
		errs    []error
	)

	for _, name := range targets {
		if strings.TrimSpace(name) == "" {
			continue
		}

		if _, dup := wanted[name]; dup {
			continue
		}

		wanted[name] = struct{}{}

		if _, ok := current[name]; ok {
			continue
		}

		rel, err := r.join(docs, displayName, name)
		if err != nil {
			errs = append(errs, err)
		}

		changed.add(rel)
	}

	leave := make([]string, 0, len(current))

	for name := range current {
		if _, ok := wanted[name]; !ok {
			leave = append(leave, name)
		}
	}

	slices.Sort(leave)

	for _, name := range leave {
		rel, err := r.leave(docs, displayName, name)
		if err != nil {
			errs = append(errs, err)
		}

		changed.add(rel)
	}

	return changed.sorted(), errors.Join(errs...)
}

// RemoveEverywhere removes displayName from the members list of every group
// document and returns the paths it wrote.
func (r *Reconciler) RemoveEverywhere(displayName string) ([]string, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, ErrEmptyMember
	}

	docs, err := r.load()
	if err != nil {
		return nil, err
	}

	var (
		changed = newPathSet()
		errs    []error
	)

	for _, d := range docs {
		if !d.group.HasMember(displayName) {
			continue
		}

		rel, err := r.update(d, displayName, false)
		if err != nil {
			errs = append(errs, err)
		}

		changed.add(rel)
	}

	return changed.sorted(), errors.Join(errs...)
}

// RemoveFromGroup removes displayName from a single group.
func (r *Reconciler) RemoveFromGroup(displayName, groupName string) ([]string, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, ErrEmptyMember
	}

	docs, err := r.load()
	if err != nil {
		return nil, err
	}

	rel, err := r.leave(docs, displayName, groupName)

	return newPathSet().add(rel).sorted(), err
}

// Memberships returns the sorted names of the groups whose members list contains displayName.
func (r *Reconciler) Memberships(displayName string) ([]string, error) {
	docs, err := r.load()
	if err != nil {
		return nil, err
	}

	var names []string

	for _, d := range docs {
		if d.group.HasMember(displayName) {
			names = append(names, d.group.Name)
		}
	}

	slices.Sort(names)

	return slices.Compact(names), nil
}

// Groups returns every parseable group document, ordered by file name.
func (r *Reconciler) Groups() ([]Group, error) {
	docs, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.group)
	}

	return out, nil
}

func (r *Reconciler) join(docs []*document, displayName, groupName string) (string, error) {
	d, err := lookup(docs, groupName)

	switch {
	case errors.Is(err, ErrGroupNotFound):
		return r.create(displayName, groupName)
	case err != nil:
		return "", err
	}

	return r.update(d, displayName, true)
}

func (r *Reconciler) leave(docs []*document, displayName, groupName string) (string, error) {
	d, err := lookup(docs, groupName)
	if err != nil {
		return "", err
	}

	return r.update(d, displayName, false)
}

// update re-reads the document from disk and adds or removes displayName.
// The file is written only when membership of displayName changes, the path
// is returned only when written.
func (r *Reconciler) update(d *document, displayName string, member bool) (string, error) {
	fresh, err := readDocument(d.path, d.rel)
	if err != nil {
		return "", fmt.Errorf("reload group %q: %w", d.group.Name, err)
	}

	if fresh.group.HasMember(displayName) == member {
		return "", nil
	}

	members := slices.Clone(fresh.group.EntraIDHumanIdentities)
	if member {
		members = append(members, displayName)
	} else {
		members = slices.DeleteFunc(members, func(m string) bool { return m == displayName })
	}

	fresh.setMembers(members)

	data, err := fresh.encode()
	if err != nil {
		return "", fmt.Errorf("encode group %q: %w", d.group.Name, err)
	}

	if err := r.writeFile(fresh.path, data, filePerm); err != nil {
		log.Error().Err(err).Str("group", d.group.Name).Str("path", d.rel).Msg("failed to write group document")
		return "", fmt.Errorf("write group %q: %w", d.group.Name, err)
	}

	log.Debug().Str("group", d.group.Name).Strs("members", fresh.group.EntraIDHumanIdentities).
		Msg("group members updated")

	return d.rel, nil
}

func (r *Reconciler) create(displayName, groupName string) (string, error) {
	filename := Filename(groupName)
	rel := path.Join(filepath.ToSlash(r.cfg.Dir), filename)
	target := filepath.Join(r.dir(), filename)

	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("create group %q at %s: %w", groupName, rel, ErrGroupFileExists)
	}

	if err := os.MkdirAll(r.dir(), dirPerm); err != nil {
		return "", fmt.Errorf("create groups directory: %w", err)
	}

	data, err := encodeYAML(&Group{
		Name:                   groupName,
		Contact:                r.cfg.DefaultContact,
		Type:                   r.cfg.DefaultType,
		HumanIdentities:        []string{},
		ApplicationIdentities:  []string{},
		EntraIDHumanIdentities: []string{displayName},
		SubGroups:              []string{},
		IdentityGroupPolicies:  []string{},
	})
	if err != nil {
		return "", fmt.Errorf("encode group %q: %w", groupName, err)
	}

	if err := r.writeFile(target, data, filePerm); err != nil {
		log.Error().Err(err).Str("group", groupName).Str("path", rel).Msg("failed to write group document")
		return "", fmt.Errorf("write group %q: %w", groupName, err)
	}

	log.Info().Str("group", groupName).Str("path", rel).Msg("group created")

	return rel, nil
}

func (r *Reconciler) dir() string {
	return filepath.Join(r.repoDir, r.cfg.Dir)
}

// load parses every group document in the groups directory. Unreadable or
// malformed documents are logged and left out.
func (r *Reconciler) load() ([]*document, error) {
	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read groups directory: %w", err)
	}

	var docs []*document

	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !isYAML(name) || slices.Contains(r.cfg.SkipFiles, name) {
			continue
		}

		rel := path.Join(filepath.ToSlash(r.cfg.Dir), name)

		d, err := readDocument(filepath.Join(r.dir(), name), rel)
		if err != nil {
			log.Warn().Err(err).Str("path", rel).Msg("skipping group document")
			continue
		}

		docs = append(docs, d)
	}

	return docs, nil
}

func lookup(docs []*document, groupName string) (*document, error) {
	var found *document

	for _, d := range docs {
		if d.group.Name != groupName {
			continue
		}

		if found != nil {
			return nil, fmt.Errorf("%q in %s and %s: %w", groupName, found.rel, d.rel, ErrAmbiguousGroup)
		}

		found = d
	}

	if found == nil {
		return nil, fmt.Errorf("%q: %w", groupName, ErrGroupNotFound)
	}

	return found, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

type pathSet map[string]struct{}

func newPathSet() pathSet {
	return make(pathSet)
}

func (s pathSet) add(p string) pathSet {
	if p != "" {
		s[p] = struct{}{}
	}

	return s
}

func (s pathSet) sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}

	slices.Sort(out)

	return out
}
