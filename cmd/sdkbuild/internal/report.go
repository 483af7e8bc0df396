package internal

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/goplus/sdkbuild/internal/build"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

// printReport writes a per-toolchain summary of rep to w.
func printReport(w io.Writer, rep *build.Report) {
	if rep.Skipped {
		skipColor.Fprintf(w, "%s: revision %s already built, nothing to do\n", rep.Project, rep.Revision)
		return
	}
	fmt.Fprintf(w, "%s %s at %s", rep.Project, rep.Branch, rep.Revision)
	dimColor.Fprintf(w, " (run %s, %.2f minutes)\n", rep.RunID, rep.Duration.Minutes())

	for _, tr := range rep.Toolchains {
		if tr.OK() {
			okColor.Fprintf(w, "  %-8s ok", tr.Toolchain)
		} else {
			failColor.Fprintf(w, "  %-8s FAILED", tr.Toolchain)
		}
		dimColor.Fprintf(w, " (%.2f minutes)\n", tr.Duration.Minutes())

		if tr.Err != nil {
			fmt.Fprintf(w, "    %v\n", tr.Err)
		}
		for _, pr := range tr.Plans {
			switch {
			case pr.Err != nil:
				fmt.Fprintf(w, "    %s: %v\n", pr.BuildDir, pr.Err)
			case pr.FailedCommands > 0:
				fmt.Fprintf(w, "    %s: %d failed command(s)\n", pr.BuildDir, pr.FailedCommands)
			}
		}
		if tr.HookErr != nil {
			fmt.Fprintf(w, "    post-build: %v\n", tr.HookErr)
		}
		if tr.GatherErr != nil {
			fmt.Fprintf(w, "    artifacts: %v\n", tr.GatherErr)
		}
	}
}
