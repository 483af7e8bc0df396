// Package build drives the configure, compile and packaging steps of a
// project across its toolchains.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qiniu/x/log"

	"github.com/goplus/sdkbuild/internal/execx"
	"github.com/goplus/sdkbuild/internal/plan"
	"github.com/goplus/sdkbuild/internal/state"
	"github.com/goplus/sdkbuild/internal/toolchain"
)

// Project defines what to build and how to package it.
type Project interface {
	// Name identifies the project in state keys and logs.
	Name() string

	// CreateBuildPlans returns every plan of the project. It is called once
	// per Builder.
	CreateBuildPlans() (*plan.Group, error)

	// GatherArtifacts packages the output of plans, all built with tc.
	// Errors are reported and never stop other toolchains.
	GatherArtifacts(ctx context.Context, tc toolchain.ID, plans []plan.Plan) error
}

// AfterBuilder is implemented by projects that need a step between
// compiling a toolchain and gathering its artifacts, e.g. generating
// documentation.
type AfterBuilder interface {
	OnAfterBuild(ctx context.Context, tc toolchain.ID, plans []plan.Plan) error
}

// Source resolves the revision of a checked out tree.
type Source interface {
	Revision(ctx context.Context, dir string) (string, error)
}

// Configurator runs the configuration tool for one build directory.
type Configurator interface {
	Configure(ctx context.Context, buildDir, sourceDir, generator string, args []string) (int, error)
}

// Runner executes one command in dir and waits for it.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) (int, error)
}

// Options configures a Builder.
type Options struct {
	Project      Project
	Registry     *toolchain.Registry
	Store        *state.Store
	Source       Source
	Configurator Configurator
	Runner       Runner

	SourceDir string // checked out project tree; build dirs live below it
	Branch    string // part of the state key

	Force     bool // build even if the revision was already built
	QuickMode bool // reuse existing build directories
	Strict    bool // abort a plan on its first failing command

	// Toolchains restricts the build to these toolchains; empty means all.
	Toolchains []toolchain.ID
}

// Builder runs the build of one project.
type Builder struct {
	opts  Options
	plans *plan.Group
}

// NewBuilder validates opts and creates the project's build plans.
func NewBuilder(opts Options) (*Builder, error) {
	switch {
	case opts.Project == nil:
		return nil, errors.New("build: no project")
	case opts.Registry == nil:
		return nil, errors.New("build: no toolchain registry")
	case opts.Store == nil:
		return nil, errors.New("build: no state store")
	case opts.Source == nil || opts.Configurator == nil || opts.Runner == nil:
		return nil, errors.New("build: source, configurator and runner are required")
	case opts.SourceDir == "":
		return nil, errors.New("build: no source directory")
	}
	if err := opts.Registry.Validate(opts.Toolchains...); err != nil {
		return nil, err
	}

	all, err := opts.Project.CreateBuildPlans()
	if err != nil {
		return nil, fmt.Errorf("create build plans for %s: %w", opts.Project.Name(), err)
	}
	if err := all.Validate(opts.Registry); err != nil {
		return nil, fmt.Errorf("invalid build plans for %s: %w", opts.Project.Name(), err)
	}
	plans, missing := all.Select(opts.Toolchains...)
	for _, id := range missing {
		log.Warnf("%s has no build plans for toolchain %s", opts.Project.Name(), id)
	}
	if plans.Len() == 0 {
		return nil, fmt.Errorf("build: nothing to build for %s", opts.Project.Name())
	}
	return &Builder{opts: opts, plans: plans}, nil
}

// Plans returns the plans the builder will run.
func (b *Builder) Plans() *plan.Group {
	return b.plans
}

// Run builds every toolchain and records the built revision.
//
// Nothing is built when the current revision was already recorded for this
// project and branch, unless Force is set. Toolchains are processed in plan
// group order, each independently: a failure in one never stops the others.
// The revision is recorded only once every toolchain has been attempted.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	name := b.opts.Project.Name()
	rep := &Report{RunID: uuid.NewString(), Project: name, Branch: b.opts.Branch}
	log.Infof("[%s] builder for %s started", rep.RunID, name)

	rev, err := b.opts.Source.Revision(ctx, b.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve revision of %s: %w", b.opts.SourceDir, err)
	}
	rep.Revision = rev

	st, status, err := b.opts.Store.Load()
	if err != nil {
		return nil, err
	}
	switch status {
	case state.Missing:
		log.Infof("no build state at %s yet, starting fresh", b.opts.Store.Path())
	case state.Malformed:
		log.Warnf("build state at %s was malformed and has been reset", b.opts.Store.Path())
	}

	key := state.Key(name, b.opts.Branch)
	if last, ok := st.Get(key); ok && last == rev && !b.opts.Force {
		log.Infof("skipping build, revision %s of %s already built", rev, name)
		rep.Skipped = true
		return rep, nil
	}

	log.Infof("building %s at revision %s", name, rev)
	for _, tc := range b.plans.Toolchains() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Toolchains = append(rep.Toolchains, b.buildToolchain(ctx, tc))
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if err := b.opts.Store.Record(key, rev); err != nil {
		return rep, fmt.Errorf("record built revision: %w", err)
	}
	rep.Duration = time.Since(start)
	log.Infof("%s total build time: %.2f minutes", name, rep.Duration.Minutes())
	return rep, nil
}

func (b *Builder) buildToolchain(ctx context.Context, tc toolchain.ID) ToolchainReport {
	start := time.Now()
	tr := ToolchainReport{Toolchain: tc}
	plans := b.plans.Plans(tc)
	log.Infof("using toolchain %s", tc)

	generator, err := b.opts.Registry.GeneratorFor(tc)
	if err != nil {
		log.Errorf("%v, skipping ...", err)
		tr.Err = err
		return tr
	}

	var contributed []plan.Plan
	for _, p := range plans {
		pr := b.buildPlan(ctx, tc, generator, p)
		tr.Plans = append(tr.Plans, pr)
		if pr.Contributed {
			contributed = append(contributed, p)
		}
	}
	log.Infof("compilation using %s took %.2f minutes", tc, time.Since(start).Minutes())

	if ab, ok := b.opts.Project.(AfterBuilder); ok {
		if err := ab.OnAfterBuild(ctx, tc, plans); err != nil {
			log.Errorf("post-build step for %s failed: %v", tc, err)
			tr.HookErr = err
		}
	}

	if len(contributed) == 0 {
		log.Warnf("no plan of %s produced output, skipping artifact gathering", tc)
		tr.Duration = time.Since(start)
		return tr
	}
	if err := b.opts.Project.GatherArtifacts(ctx, tc, contributed); err != nil {
		log.Errorf("gathering artifacts for %s failed: %v", tc, err)
		tr.GatherErr = err
	} else {
		tr.Gathered = true
	}
	tr.Duration = time.Since(start)
	return tr
}

func (b *Builder) buildPlan(ctx context.Context, tc toolchain.ID, generator string, p plan.Plan) PlanReport {
	pr := PlanReport{BuildDir: p.BuildDir}
	dir := filepath.Join(b.opts.SourceDir, p.BuildDir)

	if err := setupDir(dir, !b.opts.QuickMode); err != nil {
		log.Errorf("prepare %s: %v, skipping ...", dir, err)
		pr.Err = err
		return pr
	}

	code, err := b.opts.Configurator.Configure(ctx, dir, b.opts.SourceDir, generator, p.GeneratorArgs)
	if err == nil && code != 0 {
		err = fmt.Errorf("configuration exited with code %d", code)
	}
	if err != nil {
		log.Errorf("error configuring %s for %s: %v, skipping ...", p.BuildDir, tc, err)
		pr.Err = err
		return pr
	}
	pr.Configured = true

	for _, argv := range p.Commands {
		cmdline := strings.Join(argv, " ")
		log.Infof("executing build command: %s", cmdline)
		code, err := b.opts.Runner.Run(ctx, dir, argv)
		switch {
		case errors.Is(err, execx.ErrTimeout), ctx.Err() != nil:
			if err == nil {
				err = ctx.Err()
			}
			log.Errorf("%s: %v, abandoning %s", cmdline, err, p.BuildDir)
			pr.FailedCommands++
			pr.Err = err
			return pr
		case err != nil:
			log.Errorf("%s: %v", cmdline, err)
		case code != 0:
			err = fmt.Errorf("%s exited with code %d", cmdline, code)
			log.Errorf("%v", err)
		default:
			continue
		}
		pr.FailedCommands++
		if b.opts.Strict {
			pr.Err = err
			return pr
		}
	}
	pr.Contributed = true
	return pr
}

// setupDir creates dir, removing any previous content first when clean is
// set.
func setupDir(dir string, clean bool) error {
	if clean {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			log.Debugf("cleaning up %s", dir)
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
		}
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Debugf("creating path %s", dir)
	}
	return os.MkdirAll(dir, 0o755)
}
