// ABOUTME: Root cobra command: global flags, configuration and logging setup shared by every subcommand.
// ABOUTME: Subcommands reach the store and config through the app value built in PersistentPreRunE.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/server"
	"github.com/2389-research/infracache/store"
)

type app struct {
	configPath string
	jsonOutput bool
	cfg        *server.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "infracache",
		Version: version,
		Short:   "Railway infrastructure cache, integrity checks and auto-fix",
		Long: `infracache keeps railway infrastructures (RailJSON) in a SQLite store,
checks their integrity, proposes repairs and resolves route paths.

Run "infracache serve" for the HTTP API or use the offline commands below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetVersionTemplate("infracache {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default: $INFRACACHE_CONFIG or ~/.config/infracache/config.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print machine readable JSON")

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newListCmd(a),
		newErrorsCmd(a),
		newAutofixCmd(a),
		newRoutePathCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	home, err := defaultDataDir()
	if err != nil {
		return err
	}
	path := a.configPath
	if path == "" && os.Getenv("INFRACACHE_CONFIG") == "" {
		path = defaultConfigFile()
	}
	cfg, err := server.LoadConfig(path, home)
	if err != nil {
		return err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (*store.SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.OpenSqlite(a.cfg.Database)
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "infracache %s\n", version)
		},
	}
}
