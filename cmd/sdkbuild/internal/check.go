package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/prereq"
	"github.com/goplus/sdkbuild/internal/toolchain"
)

var (
	checkVCS        string
	checkToolchains []string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the required build tools are on PATH",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkVCS, "vcs", "", "Version control client: hg or git (default from config)")
	checkCmd.Flags().StringSliceVar(&checkToolchains, "toolchain", nil, "Toolchain to check, repeatable (default all)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	tcs, err := selectedToolchains(toolchain.Default(), toolchain.ParseIDs(checkToolchains))
	if err != nil {
		return err
	}
	c := prereq.NewChecker(prereq.RequiredTools(pick(checkVCS, cfg.VCS), tcs)...)
	results, err := c.Check()
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Found {
			okColor.Fprintf(out, "  found   ")
			fmt.Fprintln(out, r.Name, r.Path)
		} else {
			failColor.Fprintf(out, "  missing ")
			fmt.Fprintln(out, r.Name)
		}
	}
	return err
}
