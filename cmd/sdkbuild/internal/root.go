package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/config"
	"github.com/goplus/sdkbuild/internal/env"
	"github.com/goplus/sdkbuild/internal/state"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sdkbuild",
	Short: "sdkbuild builds and packages SDKs for several toolchains",
	Long: `sdkbuild checks out a project, configures it with cmake for every supported
toolchain, compiles it and packs the output into versioned zip archives.
A revision that was already built is skipped unless forced.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = filepath.Join(cwd, config.DefaultFile)
	}
	if cfg, err = config.Load(path, cwd); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	lvl, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetOutputLevel(lvl)

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	return nil
}

func parseLevel(s string) (int, error) {
	switch s {
	case "debug":
		return log.Ldebug, nil
	case "info":
		return log.Linfo, nil
	case "warn":
		return log.Lwarn, nil
	case "error":
		return log.Lerror, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
}

// openStore returns the state store named by the config, falling back to
// the per-user state file.
func openStore() (*state.Store, error) {
	path := cfg.StateFile
	if path == "" {
		var err error
		if path, err = env.StateFile(); err != nil {
			return nil, fmt.Errorf("failed to locate state file: %w", err)
		}
	}
	return state.NewStore(path), nil
}
