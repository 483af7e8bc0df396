package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/build"
	"github.com/goplus/sdkbuild/internal/config"
	"github.com/goplus/sdkbuild/internal/execx"
	"github.com/goplus/sdkbuild/internal/prereq"
	"github.com/goplus/sdkbuild/internal/projects"
	"github.com/goplus/sdkbuild/internal/toolchain"
	"github.com/goplus/sdkbuild/internal/vcs"
	"github.com/goplus/sdkbuild/x/cmake"
)

// buildFlags holds the raw command line values of the build command.
// Unset flags fall back to the config file, then to project defaults.
type buildFlags struct {
	url           string
	tempDir       string
	artifactsDir  string
	unarchivedDir string
	depsDir       string
	branch        string
	vcs           string
	timeout       time.Duration
	toolchains    []string
	force         bool
	quick         bool
	strict        bool
	docs          bool
	quiet         bool
}

var buildArgs buildFlags

var buildCmd = &cobra.Command{
	Use:   "build <project>",
	Short: "Build and package a project for every toolchain",
	Long: `Build checks out the project, builds it with every selected toolchain and
packs the output into the artifacts directory.

Known projects: ` + fmt.Sprint(projects.Names()) + `

cegui is only built for toolchains whose dependency bundle exists in the
dependencies directory, as a subdirectory named cegui-dependencies-<X>
where X is mingw, msvc2008, msvc2010, msvc2012 or msvc2013.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildArgs.url, "url", "", "Repository URL (default depends on the project)")
	f.StringVar(&buildArgs.tempDir, "temp-dir", "", "Directory holding the source checkouts")
	f.StringVar(&buildArgs.artifactsDir, "artifacts-dir", "", "Directory receiving the zip archives")
	f.StringVar(&buildArgs.unarchivedDir, "artifacts-unarchived-dir", "", "Staging directory the archives are made from")
	f.StringVar(&buildArgs.depsDir, "dependencies-dir", "", "Directory holding the cegui-dependencies-<X> bundles (default the staging directory)")
	f.StringVar(&buildArgs.branch, "branch", "", "Branch or revision to build")
	f.StringVar(&buildArgs.vcs, "vcs", "", "Version control client: hg or git")
	f.DurationVar(&buildArgs.timeout, "command-timeout", 0, "Abandon a plan whose command runs longer than this (0 disables)")
	f.StringSliceVar(&buildArgs.toolchains, "toolchain", nil, "Toolchain to build with, repeatable (default all)")
	f.BoolVarP(&buildArgs.force, "force-build", "f", false, "Build even if the revision was already built")
	f.BoolVar(&buildArgs.quick, "quick-mode", false, "Reuse the checkout and build directories")
	f.BoolVar(&buildArgs.strict, "strict", false, "Abort a plan on its first failing build command and exit non-zero on failures")
	f.BoolVar(&buildArgs.docs, "docs", false, "Generate the API documentation (cegui only)")
	f.BoolVarP(&buildArgs.quiet, "quiet", "q", false, "Hide the output of cmake and the build drivers")
	f.MarkHidden("quick-mode")
	rootCmd.AddCommand(buildCmd)
}

// buildSettings is the resolved configuration of one build command.
type buildSettings struct {
	url           string
	sourceDir     string
	artifactsDir  string
	unarchivedDir string
	depsDir       string
	branch        string
	vcs           string
	timeout       time.Duration
	strict        bool
}

// resolve merges flags, the config file and the project defaults.
func (f *buildFlags) resolve(c *config.Config, info projects.Info) buildSettings {
	s := buildSettings{
		url:           pick(f.url, c.URLs[info.Name], info.DefaultURL),
		sourceDir:     filepath.Join(pick(f.tempDir, c.TempDir), info.Name),
		artifactsDir:  pick(f.artifactsDir, c.ArtifactsDir),
		unarchivedDir: pick(f.unarchivedDir, c.ArtifactsUnarchivedDir),
		branch:        pick(f.branch, info.DefaultBranch),
		vcs:           pick(f.vcs, c.VCS),
		timeout:       c.CommandTimeout,
		strict:        f.strict || c.Strict,
	}
	s.depsDir = pick(f.depsDir, s.unarchivedDir)
	if f.timeout > 0 {
		s.timeout = f.timeout
	}
	if info.PinBranch && s.vcs == "hg" && s.branch != info.DefaultBranch {
		log.Warnf("overwriting selected branch %q with %q for %s", s.branch, info.DefaultBranch, info.Name)
		s.branch = info.DefaultBranch
	}
	return s
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// selectedToolchains returns the toolchains named by ids, or every
// registered one when ids is empty.
func selectedToolchains(reg *toolchain.Registry, ids []toolchain.ID) ([]toolchain.Toolchain, error) {
	if len(ids) == 0 {
		return reg.Toolchains(), nil
	}
	tcs := make([]toolchain.Toolchain, 0, len(ids))
	for _, id := range ids {
		tc, err := reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		tcs = append(tcs, tc)
	}
	return tcs, nil
}

// requiredTools lists the executables a build needs on PATH.
func requiredTools(vcsName string, tcs []toolchain.Toolchain, docs bool) []string {
	tools := prereq.RequiredTools(vcsName, tcs)
	if docs {
		tools = append(tools, "doxygen")
	}
	return tools
}

func runBuild(cmd *cobra.Command, args []string) error {
	info, err := projects.Lookup(args[0])
	if err != nil {
		return err
	}
	reg := toolchain.Default()
	ids := toolchain.ParseIDs(buildArgs.toolchains)
	tcs, err := selectedToolchains(reg, ids)
	if err != nil {
		return err
	}
	s := buildArgs.resolve(cfg, info)

	source, err := vcs.New(s.vcs)
	if err != nil {
		return err
	}
	if _, err := prereq.NewChecker(requiredTools(source.Name(), tcs, buildArgs.docs)...).Check(); err != nil {
		return err
	}

	log.Infof("building %s: url=%s branch=%s source=%s artifacts=%s", info.Name, s.url, s.branch, s.sourceDir, s.artifactsDir)
	for _, dir := range []string{s.artifactsDir, s.unarchivedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !buildArgs.quick {
		log.Infof("syncing %s repository ...", info.Name)
		if err := source.Sync(ctx, s.url, s.branch, s.sourceDir); err != nil {
			return fmt.Errorf("failed to sync %s: %w", info.Name, err)
		}
	}

	runner := &execx.Runner{Timeout: s.timeout}
	if buildArgs.quiet {
		runner.Stdout, runner.Stderr = io.Discard, io.Discard
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	project, err := projects.New(info.Name, projects.Options{
		SourceDir:       s.sourceDir,
		ArtifactsDir:    s.artifactsDir,
		UnarchivedDir:   s.unarchivedDir,
		Branch:          s.branch,
		DependenciesDir: s.depsDir,
		Registry:        reg,
		Revision: func(ctx context.Context) (string, error) {
			return source.Revision(ctx, s.sourceDir)
		},
		Runner: runner,
		Docs:   buildArgs.docs,
	})
	if err != nil {
		return err
	}

	builder, err := build.NewBuilder(build.Options{
		Project:      project,
		Registry:     reg,
		Store:        store,
		Source:       source,
		Configurator: &cmake.Configurator{Runner: runner},
		Runner:       runner,
		SourceDir:    s.sourceDir,
		Branch:       s.branch,
		Force:        buildArgs.force,
		QuickMode:    buildArgs.quick,
		Strict:       s.strict,
		Toolchains:   ids,
	})
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	rep, err := builder.Run(ctx)
	if rep != nil {
		printReport(cmd.OutOrStdout(), rep)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", info.Name, err)
	}
	if failed := rep.Failed(); s.strict && len(failed) > 0 {
		return fmt.Errorf("%s failed for toolchains %v", info.Name, failed)
	}
	return nil
}
