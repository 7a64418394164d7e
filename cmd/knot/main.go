package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"knot-go/internal/app"
	"knot-go/internal/config"
	"knot-go/internal/filter"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err for the user. Filter errors already carry their
// position and are printed as is.
func printError(w io.Writer, err error) {
	var perr *filter.ParseError
	if errors.As(err, &perr) {
		fmt.Fprintln(w, perr.Error())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// resolveConfigPath returns --config when given, else the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults.ConfigPath, nil
}

// newApp reads the config and creates a KnotApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "add", "tag add").
func newApp(cmd *cobra.Command, operation string) (*app.KnotApp, error) {
	return newAppWithOptions(cmd, operation, app.Options{})
}

func newAppWithOptions(cmd *cobra.Command, operation string, opts app.Options) (*app.KnotApp, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config at %s: run 'knot config init'", path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	opts.Verbose = verbose
	opts.Stderr = cmd.ErrOrStderr()
	a, err := app.NewKnotApp(cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// closeApp closes a and reports a close failure unless the command already
// failed.
func closeApp(a *app.KnotApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

var rootCmd = &cobra.Command{
	Use:           "knot",
	Short:         "Personal relationship tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", path)
		fmt.Fprintf(out, "Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", path)
		m := &config.Manager{}
		return m.Write(out, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $KNOT_CONFIG_PATH or ~/.config/knot.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to stderr")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
