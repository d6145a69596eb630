package gitops

import (
	"context"
	"os"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Local keeps changes in the work directory without any version control.
// It serves dry runs and tests.
type Local struct {
	dir string

	mu        sync.Mutex
	proposals []Change
}

// NewLocal creates a gateway rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Refresh creates the work directory.
func (l *Local) Refresh(_ context.Context) error {
	if err := os.MkdirAll(l.dir, 0o750); err != nil { //nolint:mnd
		return errors.Wrap(err, "failed to create work directory")
	}

	return nil
}

// Propose records the change.
func (l *Local) Propose(_ context.Context, change Change) (string, error) {
	if len(change.Paths) == 0 {
		return "", ErrNoPaths
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	change.Paths = slices.Clone(change.Paths)
	l.proposals = append(l.proposals, change)

	log.Info().Str("title", change.Title).Strs("paths", change.Paths).Msg("change kept in local work directory")

	return "", nil
}

// WorkDir implements Gateway.
func (l *Local) WorkDir() string {
	return l.dir
}

// Proposals returns the recorded changes in order.
func (l *Local) Proposals() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.proposals)
}
