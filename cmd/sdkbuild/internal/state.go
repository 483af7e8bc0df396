package internal

import (
	"fmt"
	"sort"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/state"
)

var stateReset []string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the last built revision of every project and branch",
	Long: `State prints the build state file. With --reset the given keys are removed,
so the next build of that project and branch runs even without -f.`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func init() {
	stateCmd.Flags().StringSliceVar(&stateReset, "reset", nil, "Remove a key such as lastBuiltRevision-v0-8-cegui, repeatable")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	st, status, err := store.Load()
	if err != nil {
		return err
	}
	if status == state.Malformed {
		log.Warnf("state file %s was malformed and has been reset", store.Path())
	}

	if len(stateReset) > 0 {
		for _, key := range stateReset {
			if _, ok := st.Get(key); !ok {
				return fmt.Errorf("no such key %q in %s", key, store.Path())
			}
			st.Delete(key)
		}
		if err := store.Save(st); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", store.Path())
	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s = %s\n", k, st[k])
	}
	return nil
}
