// Package plan describes the configurations a project builds, grouped by
// toolchain.
package plan

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goplus/sdkbuild/internal/toolchain"
)

// Plan is one buildable configuration: where to generate the native build
// files, how to invoke cmake, and which commands compile the result.
type Plan struct {
	Toolchain     toolchain.ID
	FriendlyName  string     // toolchain name used in artifact names
	BuildDir      string     // relative to the source directory
	GeneratorArgs []string   // extra cmake arguments, in order
	Commands      [][]string // argv of each build command, run in order
}

// Validate checks that the build directory is a relative path that stays
// inside the source tree.
func (p Plan) Validate() error {
	if p.BuildDir == "" {
		return fmt.Errorf("plan for %s: empty build directory", p.Toolchain)
	}
	if filepath.IsAbs(p.BuildDir) {
		return fmt.Errorf("plan for %s: build directory %q must be relative", p.Toolchain, p.BuildDir)
	}
	clean := filepath.Clean(p.BuildDir)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("plan for %s: build directory %q escapes the source tree", p.Toolchain, p.BuildDir)
	}
	return nil
}

func (p Plan) clone() Plan {
	p.GeneratorArgs = slices.Clone(p.GeneratorArgs)
	cmds := make([][]string, len(p.Commands))
	for i, c := range p.Commands {
		cmds[i] = slices.Clone(c)
	}
	p.Commands = cmds
	return p
}

// -----------------------------------------------------------------------------

// Group maps toolchains to their plans. Toolchains are iterated in the
// order they were first added; plans of a toolchain keep their Add order.
type Group struct {
	order []toolchain.ID
	plans map[toolchain.ID][]Plan
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{plans: make(map[toolchain.ID][]Plan)}
}

// Add appends p to the plans of its toolchain.
func (g *Group) Add(p Plan) {
	if _, ok := g.plans[p.Toolchain]; !ok {
		g.order = append(g.order, p.Toolchain)
	}
	g.plans[p.Toolchain] = append(g.plans[p.Toolchain], p.clone())
}

// Toolchains returns the toolchains of the group in insertion order.
func (g *Group) Toolchains() []toolchain.ID {
	return slices.Clone(g.order)
}

// Plans returns a copy of the plans registered for id.
func (g *Group) Plans(id toolchain.ID) []Plan {
	src := g.plans[id]
	out := make([]Plan, len(src))
	for i, p := range src {
		out[i] = p.clone()
	}
	return out
}

// Len returns the total number of plans.
func (g *Group) Len() int {
	n := 0
	for _, ps := range g.plans {
		n += len(ps)
	}
	return n
}

// Validate fails fast on a toolchain missing from reg, on an invalid build
// directory, or on two plans sharing a build directory.
func (g *Group) Validate(reg *toolchain.Registry) error {
	seen := make(map[string]toolchain.ID)
	for _, id := range g.order {
		if err := reg.Validate(id); err != nil {
			return err
		}
		for _, p := range g.plans[id] {
			if err := p.Validate(); err != nil {
				return err
			}
			dir := filepath.Clean(p.BuildDir)
			if prev, ok := seen[dir]; ok {
				return fmt.Errorf("build directory %q used by both %s and %s", p.BuildDir, prev, id)
			}
			seen[dir] = id
		}
	}
	return nil
}

// Select returns a group holding only the toolchains in ids, keeping the
// receiver's order. An empty ids selects everything. Requested toolchains
// the group has no plans for are returned as missing.
func (g *Group) Select(ids ...toolchain.ID) (sel *Group, missing []toolchain.ID) {
	if len(ids) == 0 {
		sel = NewGroup()
		for _, id := range g.order {
			for _, p := range g.plans[id] {
				sel.Add(p)
			}
		}
		return sel, nil
	}
	want := make(map[toolchain.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
		if _, ok := g.plans[id]; !ok {
			missing = append(missing, id)
		}
	}
	sel = NewGroup()
	for _, id := range g.order {
		if !want[id] {
			continue
		}
		for _, p := range g.plans[id] {
			sel.Add(p)
		}
	}
	return sel, missing
}
