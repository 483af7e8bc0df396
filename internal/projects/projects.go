// Package projects defines the SDKs sdkbuild knows how to build.
package projects

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/sdkbuild/internal/archive"
	"github.com/goplus/sdkbuild/internal/build"
	"github.com/goplus/sdkbuild/internal/plan"
	"github.com/goplus/sdkbuild/internal/toolchain"
)

// ErrMissingOutput is returned by GatherArtifacts when a build tree lacks a
// directory that has to be packaged. Packaging of that toolchain is
// abandoned; other toolchains are unaffected.
var ErrMissingOutput = errors.New("missing build output")

var (
	configs  = []string{"Debug", "RelWithDebInfo"}
	ideChain = []toolchain.ID{"msvc9", "msvc10", "msvc11", "msvc12"}

	// Debugger databases are large and useless to SDK users.
	excludePatterns = []string{`.*\.ilk`}
)

// Options locates the directories a project reads and writes.
type Options struct {
	SourceDir       string // checked out project tree
	ArtifactsDir    string // receives zip archives
	UnarchivedDir   string // staging area the archives are made from
	Branch          string
	DependenciesDir string // where cegui finds cegui-dependencies-<name>

	Registry *toolchain.Registry // defaults to toolchain.Default()

	// Revision resolves the revision stamped into archive names.
	Revision func(ctx context.Context) (string, error)

	// Now stamps the archive date; defaults to time.Now.
	Now func() time.Time

	// Runner executes helper tools such as doxygen.
	Runner build.Runner

	// Docs generates the API documentation after the first toolchain.
	Docs bool
}

func (o *Options) setDefaults() {
	if o.Registry == nil {
		o.Registry = toolchain.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

func (o *Options) revision(ctx context.Context) (string, error) {
	if o.Revision == nil {
		return "", errors.New("no revision resolver")
	}
	return o.Revision(ctx)
}

func (o *Options) date() string {
	return o.Now().Format("20060102")
}

// Info describes a project for the command line.
type Info struct {
	Name          string
	DefaultURL    string
	DefaultBranch string

	// PinBranch forces DefaultBranch when the tree is checked out with
	// mercurial; the repository has a single line of history.
	PinBranch bool

	create func(Options) build.Project
}

var infos = map[string]Info{
	DependenciesName: {
		Name:          DependenciesName,
		DefaultURL:    "https://bitbucket.org/cegui/cegui-dependencies",
		DefaultBranch: "default",
		PinBranch:     true,
		create:        func(o Options) build.Project { return NewDependencies(o) },
	},
	CEGUIName: {
		Name:          CEGUIName,
		DefaultURL:    "https://bitbucket.org/cegui/cegui",
		DefaultBranch: "v0-8",
		create:        func(o Options) build.Project { return NewCEGUI(o) },
	},
}

// Names returns the known project names, sorted.
func Names() []string {
	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the description of the named project.
func Lookup(name string) (Info, error) {
	info, ok := infos[name]
	if !ok {
		return Info{}, fmt.Errorf("unknown project %q (available: %v)", name, Names())
	}
	return info, nil
}

// New creates the named project.
func New(name string, opts Options) (build.Project, error) {
	info, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.create(opts), nil
}

// DependenciesDirName returns the staging directory name of the
// dependency bundle built with the toolchain called friendly.
func DependenciesDirName(friendly string) string {
	return "cegui-dependencies-" + friendly
}

// -----------------------------------------------------------------------------

// matrix adds one plan per configuration for mingw and one plan per IDE
// toolchain, each IDE plan building every configuration of solution.
// args returns the generator arguments shared by every plan of tc.
func matrix(reg *toolchain.Registry, solution string, args func(tc toolchain.Toolchain) []string) (*plan.Group, error) {
	g := plan.NewGroup()

	mingw, err := reg.Lookup("mingw")
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		g.Add(plan.Plan{
			Toolchain:     mingw.ID,
			FriendlyName:  mingw.FriendlyName,
			BuildDir:      "build-mingw-" + cfg,
			GeneratorArgs: append([]string{"-DCMAKE_BUILD_TYPE=" + cfg}, args(mingw)...),
			Commands:      mingw.Commands(solution),
		})
	}

	for _, id := range ideChain {
		tc, err := reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		g.Add(plan.Plan{
			Toolchain:     tc.ID,
			FriendlyName:  tc.FriendlyName,
			BuildDir:      "build-" + string(tc.ID),
			GeneratorArgs: args(tc),
			Commands:      tc.Commands(solution, configs...),
		})
	}
	return g, nil
}

// pack zips dirName from the staging directory into the artifacts
// directory.
func pack(o *Options, dirName, zipName string) error {
	exclude, err := archive.CompilePatterns(excludePatterns...)
	if err != nil {
		return err
	}
	dest := filepath.Join(o.ArtifactsDir, zipName)
	log.Infof("packing %s into %s", dirName, dest)
	return archive.Zip(o.UnarchivedDir, []string{dirName}, dest, exclude)
}

// copyOutput merges src into dst, failing with ErrMissingOutput when src
// is not a directory.
func copyOutput(src, dst string) error {
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: no %s directory found", ErrMissingOutput, src)
	}
	log.Infof("copying %s to %s", src, dst)
	return archive.CopyTree(src, dst)
}
