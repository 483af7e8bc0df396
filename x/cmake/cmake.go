// Package cmake wraps the cmake configure step.
package cmake

import (
	"context"
	"os"
	"sort"

	"github.com/goplus/sdkbuild/internal/execx"
)

type defineValue struct {
	value    string
	typeName string
}

// Defines collects -D cache entries. Args renders them in key order.
type Defines map[string]defineValue

// Set adds an untyped -D<key>=<value> definition.
func (d Defines) Set(key, value string) Defines {
	d[key] = defineValue{value: value}
	return d
}

// SetString adds a -D<key>:STRING=<value> definition.
func (d Defines) SetString(key, value string) Defines {
	d[key] = defineValue{value: value, typeName: "STRING"}
	return d
}

// SetBool adds a -D<key>:BOOL=ON/OFF definition.
func (d Defines) SetBool(key string, value bool) Defines {
	v := "OFF"
	if value {
		v = "ON"
	}
	d[key] = defineValue{value: v, typeName: "BOOL"}
	return d
}

// Args renders the definitions as command line arguments.
func (d Defines) Args() []string {
	if len(d) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := d[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

// -----------------------------------------------------------------------------

// CMake drives the configure step of one build tree.
type CMake struct {
	bin       string
	sourceDir string
	buildDir  string
	generator string
	buildType string
	toolchain string
	defines   Defines
}

// New returns a CMake that generates buildDir from sourceDir.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		bin:       "cmake",
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   Defines{},
	}
}

// Binary overrides the cmake executable.
func (c *CMake) Binary(path string) *CMake {
	c.bin = path
	return c
}

// Generator sets the cmake generator (e.g. "MinGW Makefiles").
func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// BuildType sets CMAKE_BUILD_TYPE.
func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) *CMake {
	c.defines.SetString(key, value)
	return c
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) *CMake {
	c.defines.SetBool(key, value)
	return c
}

// Command returns the full configure command line:
//
//	cmake -G <generator> <defines...> <extra...> <sourceDir>
//
// It is meant to run with buildDir as the working directory.
func (c *CMake) Command(extra ...string) []string {
	defs := Defines{}
	for k, v := range c.defines {
		defs[k] = v
	}
	if c.toolchain != "" {
		defs.SetString("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	if c.buildType != "" {
		defs.SetString("CMAKE_BUILD_TYPE", c.buildType)
	}

	argv := []string{c.bin}
	if c.generator != "" {
		argv = append(argv, "-G", c.generator)
	}
	argv = append(argv, defs.Args()...)
	argv = append(argv, extra...)
	return append(argv, c.sourceDir)
}

// Configure creates the build directory and runs the configure command in
// it, returning cmake's exit code.
func (c *CMake) Configure(ctx context.Context, r *execx.Runner, extra ...string) (int, error) {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return -1, err
	}
	return r.Run(ctx, c.buildDir, c.Command(extra...))
}

// -----------------------------------------------------------------------------

// Configurator runs cmake for the orchestrator.
type Configurator struct {
	Runner *execx.Runner
	Binary string // defaults to "cmake"
}

// Configure generates buildDir from sourceDir with generator and args.
func (c *Configurator) Configure(ctx context.Context, buildDir, sourceDir, generator string, args []string) (int, error) {
	cm := New(sourceDir, buildDir).Generator(generator)
	if c.Binary != "" {
		cm.Binary(c.Binary)
	}
	r := c.Runner
	if r == nil {
		r = &execx.Runner{}
	}
	return cm.Configure(ctx, r, args...)
}
