package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// repository runs the git CLI against one directory via "git -C <dir>".
type repository struct {
	dir     string
	timeout time.Duration
	// secrets are masked in error messages, git echoes remote urls on failure.
	secrets []string
}

func (r *repository) run(ctx context.Context, args ...string) (string, error) {
	return r.runIn(ctx, r.dir, args...)
}

// runIn executes git with -C dir. Stderr is part of the returned error.
func (r *repository) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	command := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	command.Env = append(command.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w (stderr: %s)",
			r.mask(strings.Join(args, " ")), err, r.mask(strings.TrimSpace(stderr.String())))
	}

	return stdout.String(), nil
}

func (r *repository) mask(s string) string {
	for _, secret := range r.secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "******")
		}
	}

	return s
}
