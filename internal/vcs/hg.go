package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type hgVCS struct {
	tool
}

// HgOption configures the mercurial client.
type HgOption func(*hgVCS)

// WithHgPath sets a custom hg executable path.
func WithHgPath(path string) HgOption {
	return func(h *hgVCS) {
		h.bin = path
	}
}

// NewHgVCS returns a mercurial client.
func NewHgVCS(opts ...HgOption) VCS {
	h := &hgVCS{tool{bin: "hg"}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *hgVCS) Name() string { return "hg" }

// Sync clones remote into dir when dir holds no repository yet, otherwise
// pulls from remote. The working copy is then updated to ref.
func (h *hgVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	if missing(filepath.Join(dir, ".hg")) {
		parent := filepath.Dir(dir)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return err
		}
		if _, err := h.run(ctx, parent, "clone", "--noupdate", remote, dir); err != nil {
			return fmt.Errorf("clone %s: %w", remote, err)
		}
	} else if _, err := h.run(ctx, dir, "pull", remote); err != nil {
		return fmt.Errorf("pull %s: %w", remote, err)
	}
	if _, err := h.run(ctx, dir, "update", "--clean", ref); err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	return nil
}

// Revision returns the short changeset id of the working copy parent,
// without the "+" hg appends for uncommitted changes.
func (h *hgVCS) Revision(ctx context.Context, dir string) (string, error) {
	out, err := h.run(ctx, dir, "identify", "--id")
	if err != nil {
		return "", fmt.Errorf("identify %s: %w", dir, err)
	}
	return shortRev(strings.TrimSuffix(strings.TrimSpace(out), "+"), dir)
}
