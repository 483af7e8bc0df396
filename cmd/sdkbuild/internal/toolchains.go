package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/toolchain"
)

var toolchainsCmd = &cobra.Command{
	Use:   "toolchains",
	Short: "List the supported toolchains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printToolchains(cmd, toolchain.Default())
	},
}

func init() {
	rootCmd.AddCommand(toolchainsCmd)
}

func printToolchains(cmd *cobra.Command, reg *toolchain.Registry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGENERATOR\tDRIVER")
	for _, tc := range reg.Toolchains() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tc.ID, tc.FriendlyName, tc.Generator, tc.Driver)
	}
	return w.Flush()
}
