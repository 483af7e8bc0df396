package build

import (
	"time"

	"github.com/goplus/sdkbuild/internal/toolchain"
)

// Report describes one Builder.Run.
type Report struct {
	RunID    string
	Project  string
	Branch   string
	Revision string

	// Skipped is set when the revision had already been built.
	Skipped bool

	Toolchains []ToolchainReport
	Duration   time.Duration
}

// ToolchainReport describes the build of one toolchain.
type ToolchainReport struct {
	Toolchain toolchain.ID
	Plans     []PlanReport

	// Gathered is set when artifact gathering ran and succeeded.
	Gathered  bool
	Err       error // the toolchain could not be built at all
	HookErr   error
	GatherErr error
	Duration  time.Duration
}

// OK reports whether every plan built cleanly and artifacts were gathered.
func (t *ToolchainReport) OK() bool {
	if t.Err != nil || t.HookErr != nil || !t.Gathered {
		return false
	}
	for _, p := range t.Plans {
		if !p.OK() {
			return false
		}
	}
	return true
}

// PlanReport describes the build of one plan.
type PlanReport struct {
	BuildDir string

	// Configured is set when the configuration step succeeded.
	Configured bool

	// FailedCommands counts build commands that did not exit with 0.
	FailedCommands int

	// Contributed is set when the plan's output was handed to gathering.
	Contributed bool

	// Err is the error that stopped the plan, if any.
	Err error
}

// OK reports whether the plan configured and all its commands succeeded.
func (p *PlanReport) OK() bool {
	return p.Configured && p.FailedCommands == 0 && p.Err == nil
}

// Failed returns the toolchains that did not build cleanly.
func (r *Report) Failed() []toolchain.ID {
	var ids []toolchain.ID
	for i := range r.Toolchains {
		if !r.Toolchains[i].OK() {
			ids = append(ids, r.Toolchains[i].Toolchain)
		}
	}
	return ids
}
