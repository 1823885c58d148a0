package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/versol-dev/versol"
	"github.com/versol-dev/versol/catalog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "versol",
		Short:         "Version solver over YAML package catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newSolveCmd())
	return cmd
}

type solveOptions struct {
	catalogPath  string
	verbose      bool
	maxDecisions int
}

func newSolveCmd() *cobra.Command {
	var opts solveOptions

	cmd := &cobra.Command{
		Use:   "solve pkg[@constraint]...",
		Short: "Resolve package requirements against a catalog",
		Long: `Solve resolves the given root requirements against a YAML catalog
and prints one "package version" line per selected package.

Each argument is a package name, optionally followed by @ and a
version constraint ("^1.2.0", ">=1.0.0 <2.0.0", ...). A bare package
name means any version.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.catalogPath, "catalog", "c", "universe.yaml",
		"path to the YAML package catalog")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log solver progress to stderr")
	cmd.Flags().IntVar(&opts.maxDecisions, "max-decisions", 0,
		"abort after this many version decisions (0 means unlimited)")
	return cmd
}

func runSolve(cmd *cobra.Command, args []string, opts solveOptions) error {
	cat, err := catalog.LoadFile(opts.catalogPath)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return err
	}

	raw := make(map[string]string, len(args))
	for _, arg := range args {
		pkg, constraint, ok := strings.Cut(arg, "@")
		if !ok {
			constraint = "*"
		}
		if pkg == "" || constraint == "" {
			err := fmt.Errorf("malformed requirement %q", arg)
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			return err
		}
		raw[pkg] = constraint
	}
	reqs, err := catalog.Requirements(raw)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return err
	}

	solveOpts := []versol.Option{
		versol.WithMaxDecisions(opts.maxDecisions),
	}
	if opts.verbose {
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		solveOpts = append(solveOpts, versol.WithLogger(logger))
	}

	sol, err := versol.Solve(cmd.Context(), cat, reqs, solveOpts...)
	if err != nil {
		var f *versol.Failure[string, *semver.Version]
		if errors.As(err, &f) {
			for _, line := range f.Report() {
				fmt.Fprintln(cmd.OutOrStdout(), line.Text)
			}
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return err
	}

	for _, r := range sol {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.Package, r.Version)
	}
	return nil
}
