// ABOUTME: Subcommands of the infracache CLI: serve, import, list, errors, autofix and route-path.
// ABOUTME: Offline commands load the infrastructure from the store into a private cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/2389-research/infracache/autofix"
	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/schema"
	"github.com/2389-research/infracache/server"
	"github.com/2389-research/infracache/store"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			srv, err := server.NewServer(server.ServerConfig{
				Addr:      a.cfg.Bind,
				AuthToken: a.cfg.AuthToken,
				Store:     st,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var name, format, into string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a RailJSON document (JSON or YAML)",
		Long: `Import a RailJSON document into a new infrastructure, or into an existing
one with --into. The format follows the file extension unless --format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromExt(path)
			}
			doc, err := schema.ParseRailJSON(data, format)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := cmd.Context()

			var infra store.Infra
			if into != "" {
				id, err := ulid.Parse(into)
				if err != nil {
					return fmt.Errorf("invalid infra id %q: %w", into, err)
				}
				if infra, err = st.GetInfra(ctx, id); err != nil {
					return err
				}
			} else {
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				if infra, err = st.CreateInfra(ctx, name); err != nil {
					return err
				}
			}

			n, err := st.ImportRailJSON(ctx, infra.ID, doc)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), map[string]any{"infra_id": infra.ID.String(), "objects": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d objects into %s (%s)\n", n, infra.ID, infra.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new infrastructure (default: file name)")
	cmd.Flags().StringVar(&format, "format", "", "Document format: json or yaml")
	cmd.Flags().StringVar(&into, "into", "", "Import into an existing infrastructure id")
	return cmd
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List infrastructures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			infras, err := st.ListInfras(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if infras == nil {
					infras = []store.Infra{}
				}
				return a.printJSON(cmd.OutOrStdout(), infras)
			}
			if len(infras) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no infrastructures")
				return nil
			}
			for _, infra := range infras {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  v%-4d %s\n", infra.ID, infra.Version, infra.Name)
			}
			return nil
		},
	}
}

// loadInfra opens the store and builds a private cache of the infrastructure.
func (a *app) loadInfra(ctx context.Context, rawID string) (*store.SqliteStore, store.Infra, *cache.InfraCache, error) {
	id, err := ulid.Parse(rawID)
	if err != nil {
		return nil, store.Infra{}, nil, fmt.Errorf("invalid infra id %q: %w", rawID, err)
	}
	st, err := a.openStore()
	if err != nil {
		return nil, store.Infra{}, nil, err
	}
	infra, err := st.GetInfra(ctx, id)
	if err != nil {
		_ = st.Close()
		return nil, store.Infra{}, nil, err
	}
	c, err := cache.Load(ctx, st, id)
	if err != nil {
		_ = st.Close()
		return nil, store.Infra{}, nil, err
	}
	return st, infra, c, nil
}

func newErrorsCmd(a *app) *cobra.Command {
	var warnings bool
	cmd := &cobra.Command{
		Use:   "errors <infra-id>",
		Short: "List integrity errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, c, err := a.loadInfra(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			errs := detect.GenerateErrors(c)
			if !warnings {
				errs = detect.Filter(errs, func(e detect.InfraError) bool { return !e.IsWarning })
			}
			if a.jsonOutput {
				if errs == nil {
					errs = []detect.InfraError{}
				}
				return a.printJSON(cmd.OutOrStdout(), errs)
			}
			for _, e := range errs {
				severity := "error"
				if e.IsWarning {
					severity = "warning"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-7s %s\n", severity, e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d found\n", len(errs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&warnings, "warnings", false, "Include warnings")
	return cmd
}

func newAutofixCmd(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "autofix <infra-id>",
		Short: "Compute the operations repairing an infrastructure",
		Long: `Compute the operations repairing an infrastructure. Nothing is written
unless --apply is given, in which case all operations commit in one transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, infra, c, err := a.loadInfra(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ops, err := autofix.NewEngine().Run(c)
			if err != nil {
				return err
			}
			if apply && len(ops) > 0 {
				if _, err := st.ApplyOperations(cmd.Context(), infra.ID, ops); err != nil {
					return fmt.Errorf("apply fixes: %w", err)
				}
			}

			if a.jsonOutput {
				if ops == nil {
					ops = []schema.Operation{}
				}
				return a.printJSON(cmd.OutOrStdout(), schema.OperationList(ops))
			}
			for _, op := range ops {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", op.Kind(), op.Ref())
			}
			switch {
			case len(ops) == 0:
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to fix")
			case apply:
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d operations\n", len(ops))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%d operations (use --apply to commit)\n", len(ops))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Commit the operations to the store")
	return cmd
}

func newRoutePathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route-path <infra-id> <route-id>...",
		Short: "Print the track ranges and switch positions of routes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, c, err := a.loadInfra(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			graph := cache.BuildGraph(c)
			paths := make(map[string]*schema.RoutePath, len(args)-1)
			out := cmd.OutOrStdout()
			for _, id := range args[1:] {
				route, err := c.Route(id)
				if err != nil {
					return err
				}
				path, ok := c.ComputeTrackRangesOnRoute(route, graph)
				paths[id] = path
				if a.jsonOutput {
					continue
				}
				if !ok {
					fmt.Fprintf(out, "%s: cannot compute path\n", id)
					continue
				}
				fmt.Fprintf(out, "%s:\n", id)
				for _, tr := range path.TrackRanges {
					fmt.Fprintf(out, "  %s [%g, %g] %s\n", tr.Track, tr.Begin, tr.End, tr.Direction)
				}
				for _, nd := range path.TrackNodesDirections {
					fmt.Fprintf(out, "  node %s -> %s\n", nd.Node, nd.Group)
				}
			}
			if a.jsonOutput {
				return a.printJSON(out, paths)
			}
			return nil
		},
	}
}
