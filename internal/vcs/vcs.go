// Package vcs checks out project sources and reports their revision.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"
)

// VCS is a version control client working on one local checkout at a time.
type VCS interface {
	// Name returns the client executable, e.g. "git" or "hg".
	Name() string

	// Sync makes dir a checkout of ref from remote, creating it when
	// needed. ref may be a branch, a tag or a revision. Local changes in
	// tracked files are discarded.
	Sync(ctx context.Context, remote, ref, dir string) error

	// Revision returns a short identifier of the checked out revision in dir.
	Revision(ctx context.Context, dir string) (string, error)
}

// New returns the VCS named kind ("git" or "hg").
func New(kind string) (VCS, error) {
	switch kind {
	case "git":
		return NewGitVCS(), nil
	case "hg", "mercurial":
		return NewHgVCS(), nil
	}
	return nil, fmt.Errorf("unsupported vcs: %q", kind)
}

// tool runs one version control executable.
type tool struct {
	bin string
}

// run executes the tool in dir and returns its standard output. On failure
// the error carries the tool's standard error when there is any.
func (t tool) run(ctx context.Context, dir string, args ...string) (string, error) {
	log.Debugf("%s %s (in %s)", t.bin, strings.Join(args, " "), dir)
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.New(msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// shortRev trims tool output down to a revision id.
func shortRev(out, dir string) (string, error) {
	rev := strings.TrimSpace(out)
	if rev == "" {
		return "", fmt.Errorf("no revision checked out in %s", dir)
	}
	return rev, nil
}

func missing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// -----------------------------------------------------------------------------

type gitVCS struct {
	tool
}

// GitOption configures the git client.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.bin = path
	}
}

// NewGitVCS returns a git client.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{tool{bin: "git"}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Name() string { return "git" }

// Sync fetches only ref, shallowly, and checks it out detached.
func (g *gitVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	if missing(filepath.Join(dir, ".git")) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if _, err := g.run(ctx, dir, "init", "--quiet"); err != nil {
			return fmt.Errorf("init %s: %w", dir, err)
		}
	}
	if _, err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return fmt.Errorf("fetch %s from %s: %w", ref, remote, err)
	}
	if _, err := g.run(ctx, dir, "checkout", "--force", "--detach", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) Revision(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--short=12", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD in %s: %w", dir, err)
	}
	return shortRev(out, dir)
}
