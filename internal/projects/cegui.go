package projects

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/goplus/sdkbuild/internal/plan"
	"github.com/goplus/sdkbuild/internal/toolchain"
	"github.com/goplus/sdkbuild/x/cmake"
)

// CEGUIName is the project name of the CEGUI library.
const CEGUIName = "cegui"

// Directories of a build tree that make up the SDK.
var sdkDirs = []string{"bin", "lib", "include"}

// CEGUI builds the CEGUI SDK against previously gathered dependencies.
type CEGUI struct {
	opts     Options
	docsDone bool
}

// NewCEGUI returns the cegui project.
func NewCEGUI(opts Options) *CEGUI {
	opts.setDefaults()
	return &CEGUI{opts: opts}
}

func (c *CEGUI) Name() string { return CEGUIName }

// CreateBuildPlans plans every toolchain whose dependency bundle exists in
// DependenciesDir; the others are skipped with a warning.
func (c *CEGUI) CreateBuildPlans() (*plan.Group, error) {
	all, err := matrix(c.opts.Registry, "cegui.sln", func(tc toolchain.Toolchain) []string {
		defs := cmake.Defines{}
		defs.Set("CMAKE_PREFIX_PATH", c.depsDir(tc.FriendlyName))
		for _, key := range []string{
			"CEGUI_SAMPLES_ENABLED",
			"CEGUI_BUILD_LUA_GENERATOR",
			"CEGUI_BUILD_LUA_MODULE",
			"CEGUI_BUILD_PYTHON_MODULES",
			"CEGUI_BUILD_TESTS",
		} {
			defs.Set(key, "FALSE")
		}
		return defs.Args()
	})
	if err != nil {
		return nil, err
	}

	var ids []toolchain.ID
	for _, id := range all.Toolchains() {
		tc, err := c.opts.Registry.Lookup(id)
		if err != nil {
			return nil, err
		}
		dir := c.depsDir(tc.FriendlyName)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			log.Warnf("no dependencies at %s, not building %s for %s", dir, CEGUIName, id)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return plan.NewGroup(), nil
	}
	g, _ := all.Select(ids...)
	return g, nil
}

func (c *CEGUI) depsDir(friendly string) string {
	return filepath.Join(c.opts.DependenciesDir, DependenciesDirName(friendly))
}

// OnAfterBuild generates the API documentation from the first toolchain's
// build tree when Docs is set, stages it as cegui-docs-<branch> and zips it.
func (c *CEGUI) OnAfterBuild(ctx context.Context, tc toolchain.ID, plans []plan.Plan) error {
	if !c.opts.Docs || c.docsDone || len(plans) == 0 {
		return nil
	}
	if c.opts.Runner == nil {
		return errors.New("no runner for doxygen")
	}
	c.docsDone = true

	docDir := filepath.Join(c.opts.SourceDir, plans[0].BuildDir, "doc", "doxygen")
	log.Infof("generating documentation in %s", docDir)
	code, err := c.opts.Runner.Run(ctx, docDir, []string{"doxygen"})
	if err == nil && code != 0 {
		err = fmt.Errorf("doxygen exited with code %d", code)
	}
	if err != nil {
		return err
	}
	dirName := "cegui-docs-" + c.opts.Branch
	if err := copyOutput(filepath.Join(docDir, "html"), filepath.Join(c.opts.UnarchivedDir, dirName)); err != nil {
		return err
	}
	rev, err := c.opts.revision(ctx)
	if err != nil {
		return err
	}
	return pack(&c.opts, dirName, fmt.Sprintf("cegui-docs-%s-%s-%s.zip", c.opts.date(), c.opts.Branch, rev))
}

// GatherArtifacts merges bin, lib and include of every plan into
// cegui-sdk-<toolchain>-<branch> and zips it.
func (c *CEGUI) GatherArtifacts(ctx context.Context, tc toolchain.ID, plans []plan.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	log.Infof("gathering artifacts of %s for %s", CEGUIName, tc)

	rev, err := c.opts.revision(ctx)
	if err != nil {
		return err
	}
	friendly := plans[0].FriendlyName
	dirName := fmt.Sprintf("cegui-sdk-%s-%s", friendly, c.opts.Branch)
	zipName := fmt.Sprintf("cegui-sdk-%s-%s-%s-%s.zip", friendly, c.opts.date(), c.opts.Branch, rev)
	gatherDir := filepath.Join(c.opts.UnarchivedDir, dirName)

	for _, p := range plans {
		buildDir := filepath.Join(c.opts.SourceDir, p.BuildDir)
		include := filepath.Join(buildDir, "include")

		// Public headers live in the source tree, generated ones (config.h,
		// version.h) in the build tree; the SDK ships both side by side.
		for _, src := range []string{
			filepath.Join(c.opts.SourceDir, "cegui", "include"),
			filepath.Join(buildDir, "cegui", "include"),
		} {
			if err := copyOutput(src, include); err != nil {
				return err
			}
		}

		for _, dir := range sdkDirs {
			if err := copyOutput(filepath.Join(buildDir, dir), filepath.Join(gatherDir, dir)); err != nil {
				return err
			}
		}
	}
	if err := pack(&c.opts, dirName, zipName); err != nil {
		return err
	}
	log.Infof("done gathering artifacts of %s for %s", CEGUIName, tc)
	return nil
}
