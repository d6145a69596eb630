// Package gitops turns changed files of the configuration repository into
// reviewable changes.
package gitops

import (
	"context"
	"errors"
	"strings"

	"github.com/scim-bridge/scim-bridge/internal/config"
)

// BranchPrefix starts every branch pushed by the bridge.
const BranchPrefix = "scim-provision"

var (
	// ErrNoChanges is returned by Propose when none of the paths differ from the base branch.
	ErrNoChanges = errors.New("no changes to propose")
	// ErrNoPaths is returned by Propose for a change without paths.
	ErrNoPaths = errors.New("change has no paths")
	// ErrNotRepository is returned when the clone directory holds files but no git repository.
	ErrNotRepository = errors.New("clone directory is not a git repository")
	// ErrUnsupportedRepoURL is returned for repository urls that do not name a GitHub owner and repository.
	ErrUnsupportedRepoURL = errors.New("unsupported repository url")
	// ErrPullRequest is returned when the GitHub API rejects a pull request.
	ErrPullRequest = errors.New("failed to create pull request")
)

// Change is a set of files already written into the work directory that
// should be proposed as one review.
type Change struct {
	// Slug is the sanitized principal name used in the branch name.
	Slug string
	// Kind distinguishes several changes of one principal, e.g. "groups". Optional.
	Kind    string
	Title   string
	Body    string
	Message string
	// Paths are relative to the work directory.
	Paths []string
}

// Branch returns the branch name of the change for a unique suffix.
func (c Change) Branch(suffix string) string {
	parts := []string{BranchPrefix, c.Slug}
	if c.Kind != "" {
		parts = append(parts, c.Kind)
	}

	return strings.Join(append(parts, suffix), "-")
}

// Gateway is the version control collaborator of the provisioner.
type Gateway interface {
	// Refresh brings the work directory to the latest state of the base branch.
	Refresh(ctx context.Context) error
	// Propose publishes the change and returns the review url, empty if the gateway has no reviews.
	Propose(ctx context.Context, change Change) (string, error)
	// WorkDir is the root of the checked out configuration repository.
	WorkDir() string
}

// New creates the gateway of the configured provider.
func New(cfg config.Git) (Gateway, error) {
	switch cfg.Provider {
	case config.ProviderGitHub:
		return NewGitHub(cfg)
	case config.ProviderLocal:
		return NewLocal(cfg.CloneDir), nil
	default:
		return nil, config.ErrUnknownGitProvider
	}
}
