package projects

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/goplus/sdkbuild/internal/plan"
	"github.com/goplus/sdkbuild/internal/toolchain"
	"github.com/goplus/sdkbuild/x/cmake"
)

// DependenciesName is the project name of the dependency bundle.
const DependenciesName = "cegui-dependencies"

// Optional libraries bundled with the dependencies.
var extraLibs = []string{"CORONA", "DEVIL", "FREEIMAGE", "LUA", "TINYXML", "XERCES"}

// Dependencies builds the third-party libraries CEGUI links against.
type Dependencies struct {
	opts Options
}

// NewDependencies returns the cegui-dependencies project.
func NewDependencies(opts Options) *Dependencies {
	opts.setDefaults()
	return &Dependencies{opts: opts}
}

func (d *Dependencies) Name() string { return DependenciesName }

// CreateBuildPlans builds every bundled library for every toolchain.
func (d *Dependencies) CreateBuildPlans() (*plan.Group, error) {
	defs := cmake.Defines{}
	for _, lib := range extraLibs {
		defs.Set("CEGUI_BUILD_"+lib, "YES")
	}
	return matrix(d.opts.Registry, "CEGUI-DEPS.sln", func(toolchain.Toolchain) []string {
		return defs.Args()
	})
}

// GatherArtifacts merges the dependencies directory of every plan into
// cegui-dependencies-<toolchain> and zips it.
func (d *Dependencies) GatherArtifacts(ctx context.Context, tc toolchain.ID, plans []plan.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	log.Infof("gathering artifacts of %s for %s", DependenciesName, tc)

	rev, err := d.opts.revision(ctx)
	if err != nil {
		return err
	}
	dirName := DependenciesDirName(plans[0].FriendlyName)
	zipName := fmt.Sprintf("%s-%s-%s.zip", dirName, d.opts.date(), rev)
	gatherDir := filepath.Join(d.opts.UnarchivedDir, dirName)
	if err := os.MkdirAll(gatherDir, 0o755); err != nil {
		return err
	}

	for _, p := range plans {
		src := filepath.Join(d.opts.SourceDir, p.BuildDir, "dependencies")
		if err := copyOutput(src, gatherDir); err != nil {
			return err
		}
	}
	if err := pack(&d.opts, dirName, zipName); err != nil {
		return err
	}
	log.Infof("done gathering artifacts of %s for %s", DependenciesName, tc)
	return nil
}
