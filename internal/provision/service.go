// Package provision applies provisioning events to the configuration repository.
//
// One event at a time: the service refreshes the work directory, writes the
// identity document, reconciles group memberships, proposes the changed
// files through the gateway and finally records the identity in the mapping
// store and the journal.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scim-bridge/scim-bridge/internal/db/controller/journal"
	"github.com/scim-bridge/scim-bridge/internal/db/models"
	"github.com/scim-bridge/scim-bridge/internal/fsutil"
	"github.com/scim-bridge/scim-bridge/internal/gitops"
	"github.com/scim-bridge/scim-bridge/internal/groups"
	"github.com/scim-bridge/scim-bridge/internal/identity"
	"github.com/scim-bridge/scim-bridge/internal/store"
)

// DefaultIdentitiesDir is the identity directory relative to the repository root.
const DefaultIdentitiesDir = "identities"

// mapping store attribute keys
const (
	attrUserName       = "user_name"
	attrEmail          = "email"
	attrTitle          = "title"
	attrDepartment     = "department"
	attrRole           = "role"
	attrTeam           = "team"
	attrActive         = "active"
	attrSourceObjectID = "source_object_id"

	filePerm = 0o644
	dirPerm  = 0o755
)

// Config configures a Service.
type Config struct {
	// IdentitiesDir is relative to the gateway work directory.
	IdentitiesDir string
	// ProposeSeparately opens one review for the identity and another one for its groups.
	ProposeSeparately bool
	// Groups configures the reconciler working on the gateway work directory.
	Groups groups.Config
}

// Service is the provisioner. All methods are safe for concurrent use;
// events are applied one after another.
type Service struct {
	cfg     Config
	gateway gitops.Gateway
	builder *identity.Builder
	groups  *groups.Reconciler
	store   *store.Store
	db      *gorm.DB

	mu sync.Mutex
}

// New creates a Service. db is the journal and may be nil.
func New(cfg Config, gw gitops.Gateway, b *identity.Builder, s *store.Store, db *gorm.DB) *Service {
	if cfg.IdentitiesDir == "" {
		cfg.IdentitiesDir = DefaultIdentitiesDir
	}

	return &Service{
		cfg:     cfg,
		gateway: gw,
		builder: b,
		groups:  groups.New(gw.WorkDir(), cfg.Groups),
		store:   s,
		db:      db,
	}
}

// Result describes the state of one identity after an event.
type Result struct {
	ExternalID  string
	UserName    string
	DisplayName string
	Email       string
	Active      bool
	// Filename is the identity document file name.
	Filename string
	// Path is the identity document path relative to the repository root.
	Path string
	// Groups are the group names the identity belongs to, or is proposed to belong to.
	Groups []string
	// GroupFiles are the group documents changed by the event.
	GroupFiles     []string
	ReviewURL      string
	GroupReviewURL string
}

// PatchRequest is a partial update of a known identity. Zero fields leave the identity untouched.
type PatchRequest struct {
	Active *bool
	// ReplaceGroups sets the full group membership when not nil.
	ReplaceGroups *[]string
	AddGroups     []string
	RemoveGroups  []string
}

func (p PatchRequest) touchesGroups() bool {
	return p.ReplaceGroups != nil || len(p.AddGroups) > 0 || len(p.RemoveGroups) > 0
}

// targetGroups applies the request to the current membership.
func (p PatchRequest) targetGroups(current []string) []string {
	target := current
	if p.ReplaceGroups != nil {
		target = *p.ReplaceGroups
	}

	target = append(slices.Clone(target), p.AddGroups...)

	return slices.DeleteFunc(target, func(g string) bool {
		return slices.Contains(p.RemoveGroups, g)
	})
}

// Create writes the identity document of ev, syncs its groups when ev names
// any and records the identity. An existing identity is overwritten.
func (s *Service) Create(ctx context.Context, ev identity.Event) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.create(ctx, ev)
	s.finish(models.OperationCreate, ev.Key(), ev.Name(), res, err)

	return res, err
}

func (s *Service) create(ctx context.Context, ev identity.Event) (*Result, error) {
	if strings.TrimSpace(ev.PrincipalName) == "" {
		return nil, ErrPrincipalRequired
	}

	if err := s.gateway.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh repository: %w", err)
	}

	targets := nonBlank(ev.TargetGroupNames)

	res, err := s.apply(ctx, ev, targets != nil, func(displayName string) ([]string, error) {
		return s.groups.Sync(displayName, targets)
	})
	if res != nil {
		res.Groups = targets
	}

	return res, err
}

// Patch applies req to the identity recorded for externalID.
func (s *Service) Patch(ctx context.Context, externalID string, req PatchRequest) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.patch(ctx, externalID, req)

	name := ""
	if res != nil {
		name = res.DisplayName
	}

	s.finish(models.OperationPatch, externalID, name, res, err)

	return res, err
}

func (s *Service) patch(ctx context.Context, externalID string, req PatchRequest) (*Result, error) {
	rec, err := s.record(externalID)
	if err != nil {
		return nil, err
	}

	if err = s.gateway.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh repository: %w", err)
	}

	active := recordActive(rec)
	if req.Active != nil {
		active = *req.Active
	}

	ev := eventFromRecord(rec, active)

	current, err := s.groups.Memberships(rec.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to read memberships: %w", err)
	}

	if req.Active == nil || *req.Active == recordActive(rec) {
		// membership only: keep the identity document as it is
		res := s.resultFromRecord(rec, current)
		if !req.touchesGroups() {
			return res, nil
		}

		return s.syncOnly(ctx, rec, res, req.targetGroups(current))
	}

	var syncFn func(string) ([]string, error)

	target := current
	if req.touchesGroups() {
		target = nonBlank(req.targetGroups(current))
		syncFn = func(displayName string) ([]string, error) {
			return s.groups.Sync(displayName, target)
		}
	}

	res, err := s.apply(ctx, ev, syncFn != nil, syncFn)
	if res != nil {
		res.Groups = target
	}

	return res, err
}

// syncOnly reconciles the groups of a recorded identity without touching its document.
func (s *Service) syncOnly(ctx context.Context, rec store.Record, res *Result, target []string) (*Result, error) {
	target = nonBlank(target)
	res.Groups = target

	files, syncErr := s.groups.Sync(rec.DisplayName, target)
	res.GroupFiles = files
	groupFilesModified.Add(float64(len(files)))

	if len(files) == 0 {
		return res, partial(syncErr)
	}

	r := s.review(res)

	url, err := s.propose(ctx, r.groupsChange())
	res.GroupReviewURL = url

	return res, partial(errors.Join(syncErr, err))
}

// Deactivate removes the identity recorded for externalID from every group
// and rewrites its document as deactivated. The record is kept.
func (s *Service) Deactivate(ctx context.Context, externalID string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deactivate(ctx, externalID)

	name := ""
	if res != nil {
		name = res.DisplayName
	}

	s.finish(models.OperationDeactivate, externalID, name, res, err)

	return res, err
}

func (s *Service) deactivate(ctx context.Context, externalID string) (*Result, error) {
	rec, err := s.record(externalID)
	if err != nil {
		return nil, err
	}

	if err = s.gateway.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh repository: %w", err)
	}

	res, err := s.apply(ctx, eventFromRecord(rec, false), true, s.groups.RemoveEverywhere)
	if res != nil {
		res.Groups = nil
	}

	return res, err
}

// apply writes the document of ev, runs syncGroups when withGroups is set,
// proposes the changed files and records the identity.
func (s *Service) apply(
	ctx context.Context,
	ev identity.Event,
	withGroups bool,
	syncGroups func(displayName string) ([]string, error),
) (*Result, error) {
	filename, doc := s.builder.Build(ev)

	rel, err := s.writeIdentity(filename, doc)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ExternalID:  ev.Key(),
		UserName:    ev.PrincipalName,
		DisplayName: ev.Name(),
		Email:       doc.Identity.Email,
		Active:      ev.Active,
		Filename:    filename,
		Path:        rel,
	}

	r := s.review(res)
	r.Role = doc.Identity.Role
	r.Team = doc.Identity.Team

	if s.cfg.ProposeSeparately {
		if res.ReviewURL, err = s.propose(ctx, r.identityChange()); err != nil {
			return nil, err
		}
	}

	var pending error

	if withGroups {
		files, syncErr := syncGroups(res.DisplayName)
		res.GroupFiles = files
		r.GroupFiles = files
		pending = syncErr

		groupFilesModified.Add(float64(len(files)))
	}

	switch {
	case !s.cfg.ProposeSeparately:
		url, err := s.propose(ctx, r.identityChange())
		if err != nil && len(res.GroupFiles) == 0 {
			return nil, err
		}

		res.ReviewURL, res.GroupReviewURL = url, url
		pending = errors.Join(pending, err)
	case len(res.GroupFiles) > 0:
		url, err := s.propose(ctx, r.groupsChange())
		res.GroupReviewURL = url
		pending = errors.Join(pending, err)
	}

	if err = s.store.Put(res.ExternalID, res.DisplayName, filename, attributes(ev, doc)); err != nil {
		return res, errors.Join(ErrPartial, fmt.Errorf("failed to record identity: %w", err), pending)
	}

	return res, partial(pending)
}

// Get returns the recorded identity with its current group memberships.
func (s *Service) Get(externalID string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(externalID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.groups.Memberships(rec.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to read memberships: %w", err)
	}

	return s.resultFromRecord(rec, memberships), nil
}

// List returns a page of recorded identities in store order and the total
// number of identities. start is 1-based.
func (s *Service) List(start, count int) ([]*Result, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.List()
	if err != nil {
		return nil, 0, err
	}

	total := len(records)
	start = max(start, 1)

	if start > total || count <= 0 {
		return []*Result{}, total, nil
	}

	page := records[start-1 : min(start-1+count, total)]

	all, err := s.groups.Groups()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read groups: %w", err)
	}

	out := make([]*Result, 0, len(page))

	for _, rec := range page {
		var memberships []string

		for _, g := range all {
			if g.HasMember(rec.DisplayName) {
				memberships = append(memberships, g.Name)
			}
		}

		slices.Sort(memberships)
		out = append(out, s.resultFromRecord(rec, memberships))
	}

	return out, total, nil
}

// Ready reports whether the collaborators of the service are usable.
func (s *Service) Ready() map[string]bool {
	_, storeErr := os.Stat(s.store.Path())
	_, repoErr := os.Stat(s.gateway.WorkDir())

	ready := map[string]bool{
		"mapping_store": storeErr == nil,
		"repository":    repoErr == nil,
		"journal":       true,
	}

	if s.db != nil {
		sqlDB, err := s.db.DB()
		ready["journal"] = err == nil && sqlDB.Ping() == nil
	}

	return ready
}

// Journal returns the newest journal entries, or the entries of one identity when externalID is set.
func (s *Service) Journal(externalID string, limit int) ([]models.JournalEntry, error) {
	if externalID != "" {
		return journal.ListByExternalID(s.db, externalID, limit)
	}

	return journal.List(s.db, limit)
}

func (s *Service) record(externalID string) (store.Record, error) {
	rec, err := s.store.Get(externalID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return rec, fmt.Errorf("%w: %s", ErrUserNotFound, externalID)
	}

	return rec, err
}

func (s *Service) writeIdentity(filename string, doc *identity.Document) (string, error) {
	data, err := doc.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to render identity document: %w", err)
	}

	rel := path.Join(s.cfg.IdentitiesDir, filename)
	abs := filepath.Join(s.gateway.WorkDir(), filepath.FromSlash(rel))

	if err = os.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return "", fmt.Errorf("failed to create identities directory: %w", err)
	}

	if err = fsutil.WriteFileAtomic(abs, data, filePerm); err != nil {
		return "", fmt.Errorf("failed to write identity document: %w", err)
	}

	log.Debug().Str("file", rel).Msg("identity document written")

	return rel, nil
}

// propose treats a change without differences as proposed.
func (s *Service) propose(ctx context.Context, change gitops.Change) (string, error) {
	url, err := s.gateway.Propose(ctx, change)
	if errors.Is(err, gitops.ErrNoChanges) {
		log.Info().Str("title", change.Title).Msg("files already up to date, nothing proposed")
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to propose %q: %w", change.Title, err)
	}

	return url, nil
}

func (s *Service) review(res *Result) review {
	status := identity.StatusActive
	if !res.Active {
		status = identity.StatusDeactivated
	}

	name := res.UserName
	if name == "" {
		name = res.DisplayName
	}

	return review{
		UserName: name,
		Email:    res.Email,
		Status:   status,
		Path:     res.Path,
	}
}

// finish logs, counts and journals an event.
func (s *Service) finish(op models.Operation, externalID, displayName string, res *Result, err error) {
	outcome := models.OutcomeSuccess

	switch {
	case errors.Is(err, ErrPartial):
		outcome = models.OutcomePartial
	case err != nil:
		outcome = models.OutcomeFailed
	}

	eventsTotal.WithLabelValues(string(op), string(outcome)).Inc()

	entry := &models.JournalEntry{
		Operation:   op,
		Outcome:     outcome,
		ExternalID:  externalID,
		DisplayName: displayName,
	}

	if res != nil {
		entry.Filename = res.Filename
		entry.GroupFiles = res.GroupFiles
		entry.ReviewURL = res.ReviewURL
		entry.GroupReviewURL = res.GroupReviewURL
	}

	logEvent := log.Info()
	if err != nil {
		entry.Error = err.Error()
		logEvent = log.Error().Err(err)
	}

	logEvent.Str("operation", string(op)).Str("outcome", string(outcome)).
		Str("external_id", externalID).Str("name", displayName).
		Strs("group_files", entry.GroupFiles).Str("review_url", entry.ReviewURL).
		Msg("provisioning event")

	if s.db == nil {
		return
	}

	if jerr := journal.Record(s.db, entry); jerr != nil {
		log.Error().Err(jerr).Msg("failed to write journal entry")
	}
}

func partial(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrPartial, err)
}

// nonBlank drops blank names. It returns nil when names is empty.
func nonBlank(names []string) []string {
	var out []string

	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}

	return out
}

func attributes(ev identity.Event, doc *identity.Document) map[string]any {
	attrs := map[string]any{
		attrUserName:   ev.PrincipalName,
		attrEmail:      doc.Identity.Email,
		attrRole:       doc.Identity.Role,
		attrTeam:       doc.Identity.Team,
		attrActive:     ev.Active,
		attrTitle:      ev.Title,
		attrDepartment: ev.Department,
	}

	if ev.ExternalID != "" {
		attrs[attrSourceObjectID] = ev.ExternalID
	}

	return attrs
}

func recordActive(rec store.Record) bool {
	active, ok := rec.Attributes[attrActive].(bool)
	return !ok || active
}

// eventFromRecord rebuilds the event of a recorded identity.
func eventFromRecord(rec store.Record, active bool) identity.Event {
	ev := identity.Event{
		ExternalID:    rec.Attr(attrSourceObjectID),
		PrincipalName: rec.Attr(attrUserName),
		DisplayName:   rec.DisplayName,
		Title:         rec.Attr(attrTitle),
		Department:    rec.Attr(attrDepartment),
		Active:        active,
	}

	if ev.ExternalID == "" {
		ev.ExternalID = rec.ExternalID
	}

	if ev.PrincipalName == "" {
		ev.PrincipalName = rec.DisplayName
	}

	if email := rec.Attr(attrEmail); email != "" {
		ev.Emails = []string{email}
	}

	return ev
}

func (s *Service) resultFromRecord(rec store.Record, memberships []string) *Result {
	return &Result{
		ExternalID:  rec.ExternalID,
		UserName:    rec.Attr(attrUserName),
		DisplayName: rec.DisplayName,
		Email:       rec.Attr(attrEmail),
		Active:      recordActive(rec),
		Filename:    rec.Filename,
		Path:        path.Join(s.cfg.IdentitiesDir, rec.Filename),
		Groups:      memberships,
	}
}
