package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/scim-bridge/scim-bridge/internal/config"
)

const (
	githubHost        = "github.com"
	githubAPIVersion  = "2022-11-28"
	githubMediaType   = "application/vnd.github+json"
	maxAPIErrorLength = 512
)

// GitHub proposes changes as pull requests: it commits the paths on a fresh
// branch, pushes it and opens a pull request against the base branch.
type GitHub struct {
	cfg    config.Git
	owner  string
	name   string
	remote string

	repo   *repository
	client *http.Client

	// newSuffix makes branch names unique.
	newSuffix func() string
}

// NewGitHub creates a GitHub gateway. The repository is cloned on the first Refresh.
func NewGitHub(cfg config.Git) (*GitHub, error) {
	owner, name, err := ParseRepoURL(cfg.RepoURL)
	if err != nil {
		return nil, err
	}

	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}

	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}

	client := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	client.Timeout = cfg.Timeout

	return &GitHub{
		cfg:    cfg,
		owner:  owner,
		name:   name,
		remote: authURL(cfg.RepoURL, cfg.Token),
		repo:   &repository{dir: cfg.CloneDir, timeout: cfg.Timeout, secrets: []string{cfg.Token}},
		client: client,
		newSuffix: func() string {
			return strings.SplitN(uuid.NewString(), "-", 2)[0]
		},
	}, nil
}

// WorkDir implements Gateway.
func (g *GitHub) WorkDir() string {
	return g.cfg.CloneDir
}

// Refresh clones the repository or resets an existing clone to the remote base branch.
// Untracked leftovers of failed events are removed.
func (g *GitHub) Refresh(ctx context.Context) error {
	dir := g.cfg.CloneDir
	base := g.cfg.BaseBranch

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		if !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to stat clone directory")
		}

		return g.clone(ctx)
	}

	for _, args := range [][]string{
		{"fetch", "origin", base},
		{"checkout", "-f", base},
		{"reset", "--hard", "origin/" + base},
		{"clean", "-fd"},
	} {
		if _, err := g.repo.run(ctx, args...); err != nil {
			return err
		}
	}

	log.Debug().Str("dir", dir).Str("branch", base).Msg("repository refreshed")

	return nil
}

func (g *GitHub) clone(ctx context.Context) error {
	dir := g.cfg.CloneDir

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to read clone directory")
	}

	if len(entries) > 0 {
		return errors.Wrap(ErrNotRepository, dir)
	}

	parent := filepath.Dir(dir)
	if err = os.MkdirAll(parent, 0o750); err != nil { //nolint:mnd
		return errors.Wrap(err, "failed to create clone parent directory")
	}

	if _, err = g.repo.runIn(ctx, parent, "clone", "--branch", g.cfg.BaseBranch, g.remote, dir); err != nil {
		return err
	}

	log.Info().Str("dir", dir).Str("repository", g.owner+"/"+g.name).Msg("repository cloned")

	return nil
}

// Propose commits the change on a new branch, pushes it and opens a pull request.
// The work directory is back on the base branch when Propose returns.
func (g *GitHub) Propose(ctx context.Context, change Change) (string, error) {
	if len(change.Paths) == 0 {
		return "", ErrNoPaths
	}

	status, err := g.repo.run(ctx, append([]string{"status", "--porcelain", "--"}, change.Paths...)...)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(status) == "" {
		return "", ErrNoChanges
	}

	branch := change.Branch(g.newSuffix())

	if _, err = g.repo.run(ctx, "checkout", "-b", branch); err != nil {
		return "", err
	}

	defer func() {
		// a cancelled request context must not leave the clone on the change branch
		if _, cerr := g.repo.run(context.WithoutCancel(ctx), "checkout", "-f", g.cfg.BaseBranch); cerr != nil {
			log.Error().Err(cerr).Str("branch", branch).Msg("failed to return to base branch")
		}
	}()

	for _, args := range [][]string{
		append([]string{"add", "--"}, change.Paths...),
		{
			"-c", "user.name=" + g.cfg.AuthorName,
			"-c", "user.email=" + g.cfg.AuthorEmail,
			"commit", "-m", change.Message,
		},
		{"push", "origin", branch},
	} {
		if _, err = g.repo.run(ctx, args...); err != nil {
			return "", err
		}
	}

	pr, err := g.createPullRequest(ctx, branch, change)
	if err != nil {
		return "", err
	}

	if len(g.cfg.Labels) > 0 {
		if lerr := g.addLabels(ctx, pr.Number, g.cfg.Labels); lerr != nil {
			log.Warn().Err(lerr).Int("pr", pr.Number).Strs("labels", g.cfg.Labels).Msg("could not add labels")
		}
	}

	log.Info().Str("branch", branch).Str("url", pr.HTMLURL).Msg("pull request created")

	return pr.HTMLURL, nil
}

type pullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

func (g *GitHub) createPullRequest(ctx context.Context, branch string, change Change) (*pullRequest, error) {
	payload := map[string]string{
		"title": change.Title,
		"body":  change.Body,
		"head":  branch,
		"base":  g.cfg.BaseBranch,
	}

	var pr pullRequest

	if err := g.post(ctx, fmt.Sprintf("/repos/%s/%s/pulls", g.owner, g.name), payload, http.StatusCreated, &pr); err != nil {
		return nil, errors.Wrap(ErrPullRequest, err.Error())
	}

	return &pr, nil
}

func (g *GitHub) addLabels(ctx context.Context, number int, labels []string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", g.owner, g.name, number)

	return g.post(ctx, path, map[string][]string{"labels": labels}, http.StatusOK, nil)
}

// post sends a JSON request to the GitHub API and decodes the response into out when set.
func (g *GitHub) post(ctx context.Context, path string, payload any, want int, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.cfg.APIURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("Accept", githubMediaType)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxAPIErrorLength))
		return errors.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}

// ParseRepoURL extracts owner and repository name from a GitHub https or ssh url.
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	var path string

	switch {
	case strings.HasPrefix(repoURL, "git@"+githubHost+":"):
		path = strings.TrimPrefix(repoURL, "git@"+githubHost+":")
	case strings.HasPrefix(repoURL, "https://"):
		rest := strings.TrimPrefix(repoURL, "https://")

		host, p, ok := strings.Cut(rest, "/")
		if !ok || host[strings.LastIndex(host, "@")+1:] != githubHost {
			return "", "", errors.Wrap(ErrUnsupportedRepoURL, repoURL)
		}

		path = p
	default:
		return "", "", errors.Wrap(ErrUnsupportedRepoURL, repoURL)
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")

	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.Wrap(ErrUnsupportedRepoURL, repoURL)
	}

	return owner, name, nil
}

// authURL embeds the token into https urls. SSH urls rely on the host keys of the process.
func authURL(repoURL, token string) string {
	if token == "" || !strings.HasPrefix(repoURL, "https://") {
		return repoURL
	}

	return "https://x-access-token:" + token + "@" + strings.TrimPrefix(repoURL, "https://")
}
