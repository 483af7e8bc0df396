// Package toolchain maps toolchain identifiers to the cmake generator and
// native build driver used to compile with them.
package toolchain

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/mod/semver"
)

// ErrUnknownToolchain is returned for identifiers missing from a Registry.
var ErrUnknownToolchain = errors.New("unknown toolchain")

// ID identifies a toolchain, e.g. "mingw" or "msvc12".
type ID string

// Driver is the native build tool invoked after cmake has generated the
// build files.
type Driver int

const (
	// DriverMake runs GNU make on generated makefiles.
	DriverMake Driver = iota
	// DriverMSBuild runs msbuild on a generated solution.
	DriverMSBuild
)

// Binary returns the executable name of the driver.
func (d Driver) Binary() string {
	switch d {
	case DriverMSBuild:
		return "msbuild"
	default:
		return "mingw32-make"
	}
}

func (d Driver) String() string {
	switch d {
	case DriverMSBuild:
		return "msbuild"
	default:
		return "make"
	}
}

// Toolchain describes one compiler/build-driver pairing.
type Toolchain struct {
	ID           ID
	Generator    string // cmake -G value
	FriendlyName string // used in artifact names
	Version      string // IDE version in semver form ("v12"), empty for GNU
	Driver       Driver
}

// Commands returns the build commands needed to compile a generated tree.
// Make builds a single configuration per tree, so configs is ignored there;
// msbuild builds every configuration of solution in turn.
func (t Toolchain) Commands(solution string, configs ...string) [][]string {
	if t.Driver == DriverMake {
		return [][]string{MakeCommand()}
	}
	cmds := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		cmds = append(cmds, MSBuildCommand(solution, cfg))
	}
	return cmds
}

// MSBuildCommand returns "msbuild <solution> /p:Configuration=<configuration>".
func MSBuildCommand(solution, configuration string) []string {
	return []string{DriverMSBuild.Binary(), solution, "/p:Configuration=" + configuration}
}

// MakeCommand returns the GNU make invocation used for MinGW trees.
func MakeCommand() []string {
	return []string{DriverMake.Binary()}
}

// -----------------------------------------------------------------------------

// Registry is a static set of known toolchains.
type Registry struct {
	byID map[ID]Toolchain
}

// NewRegistry returns a Registry holding tcs. Later entries replace earlier
// ones with the same ID.
func NewRegistry(tcs ...Toolchain) *Registry {
	r := &Registry{byID: make(map[ID]Toolchain, len(tcs))}
	for _, tc := range tcs {
		r.byID[tc.ID] = tc
	}
	return r
}

// Default returns the registry of toolchains the SDK is released for.
func Default() *Registry {
	return NewRegistry(
		Toolchain{ID: "mingw", Generator: "MinGW Makefiles", FriendlyName: "mingw", Driver: DriverMake},
		Toolchain{ID: "msvc9", Generator: "Visual Studio 9 2008", FriendlyName: "msvc2008", Version: "v9", Driver: DriverMSBuild},
		Toolchain{ID: "msvc10", Generator: "Visual Studio 10", FriendlyName: "msvc2010", Version: "v10", Driver: DriverMSBuild},
		Toolchain{ID: "msvc11", Generator: "Visual Studio 11", FriendlyName: "msvc2012", Version: "v11", Driver: DriverMSBuild},
		Toolchain{ID: "msvc12", Generator: "Visual Studio 12", FriendlyName: "msvc2013", Version: "v12", Driver: DriverMSBuild},
	)
}

// Lookup returns the toolchain registered under id.
func (r *Registry) Lookup(id ID) (Toolchain, error) {
	tc, ok := r.byID[id]
	if !ok {
		return Toolchain{}, fmt.Errorf("%w: %q", ErrUnknownToolchain, id)
	}
	return tc, nil
}

// GeneratorFor returns the cmake generator name for id.
func (r *Registry) GeneratorFor(id ID) (string, error) {
	tc, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	return tc.Generator, nil
}

// Available returns every registered ID. GNU toolchains come first, IDE
// toolchains follow in ascending version order.
func (r *Registry) Available() []ID {
	tcs := r.sorted()
	ids := make([]ID, len(tcs))
	for i, tc := range tcs {
		ids[i] = tc.ID
	}
	return ids
}

// Toolchains returns the registered toolchains in Available order.
func (r *Registry) Toolchains() []Toolchain {
	return r.sorted()
}

// Validate fails on the first id that is not registered.
func (r *Registry) Validate(ids ...ID) error {
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return fmt.Errorf("%w: %q (available: %v)", ErrUnknownToolchain, id, r.Available())
		}
	}
	return nil
}

func (r *Registry) sorted() []Toolchain {
	tcs := make([]Toolchain, 0, len(r.byID))
	for _, tc := range r.byID {
		tcs = append(tcs, tc)
	}
	sort.Slice(tcs, func(i, j int) bool {
		// semver.Compare orders invalid (empty) versions before valid ones.
		if c := semver.Compare(tcs[i].Version, tcs[j].Version); c != 0 {
			return c < 0
		}
		return tcs[i].ID < tcs[j].ID
	})
	return tcs
}

// ParseIDs converts command line values into IDs.
func ParseIDs(values []string) []ID {
	ids := make([]ID, 0, len(values))
	for _, v := range values {
		ids = append(ids, ID(v))
	}
	return ids
}
