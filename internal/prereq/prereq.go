// Package prereq verifies that the external tools a build needs are on PATH
// before anything is touched.
package prereq

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/goplus/sdkbuild/internal/toolchain"
)

// ErrMissingTool is returned when a required executable cannot be found.
var ErrMissingTool = errors.New("required tool not found on PATH")

// Result is the outcome of looking up one tool.
type Result struct {
	Name  string
	Path  string
	Found bool
}

// Checker looks up a fixed list of executables.
type Checker struct {
	tools    []string
	lookPath func(string) (string, error)
}

// NewChecker returns a Checker for tools. Duplicates are checked once.
func NewChecker(tools ...string) *Checker {
	seen := make(map[string]bool, len(tools))
	c := &Checker{lookPath: exec.LookPath}
	for _, t := range tools {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		c.tools = append(c.tools, t)
	}
	return c
}

// Tools returns the executables the checker looks for.
func (c *Checker) Tools() []string {
	return append([]string(nil), c.tools...)
}

// Check looks up every tool. The error wraps ErrMissingTool and names all
// missing tools at once.
func (c *Checker) Check() ([]Result, error) {
	results := make([]Result, 0, len(c.tools))
	var missing []string
	for _, name := range c.tools {
		path, err := c.lookPath(name)
		r := Result{Name: name, Path: path, Found: err == nil}
		if !r.Found {
			missing = append(missing, name)
		}
		results = append(results, r)
	}
	if len(missing) > 0 {
		return results, fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
	}
	return results, nil
}

// RequiredTools lists what a build needs: cmake, the version control
// client, and the build driver of every toolchain in tcs.
func RequiredTools(vcsName string, tcs []toolchain.Toolchain) []string {
	tools := []string{"cmake", vcsName}
	for _, tc := range tcs {
		tools = append(tools, tc.Driver.Binary())
	}
	return tools
}
