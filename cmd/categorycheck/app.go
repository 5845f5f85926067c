package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crateops/categorycheck"
	"github.com/crateops/categorycheck/config"
	"github.com/crateops/categorycheck/internal/gitstat"
	"github.com/crateops/categorycheck/manifest"
)

const (
	Version = "0.1.0"
	appName = "categorycheck"
)

// problemsError is the "your metadata is wrong" outcome: a clean,
// scriptable failure distinct from fatal registry protocol errors.
type problemsError struct {
	count int
}

func (e *problemsError) Error() string {
	return fmt.Sprintf("%d problems!", e.count)
}

// rootFlags are shared by the root command and its subcommands.
type rootFlags struct {
	configPath  string
	root        string
	registryURL string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Validate package categories against the crates.io taxonomy",
		Long: `Categorycheck is a pre-publish CI gate for Cargo workspaces.

For every publishable package it resolves each declared category and
subcategory slug against the registry taxonomy and reports the ones the
registry does not know, before publication fails downstream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.root, "root", ".", "Workspace root to scan for manifests")
	cmd.PersistentFlags().StringVar(&flags.registryURL, "registry-url", "", "Registry API base URL (overrides config and environment)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newChangesCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// runCheck is the gate itself: discover packages, validate, map the report
// to the process exit contract.
func runCheck(cmd *cobra.Command, flags *rootFlags) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := newLogger(cmd, flags.logLevel)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.registryURL != "" {
		cfg.RegistryURL = flags.registryURL
	}

	pkgs, err := manifest.Discover(flags.root, cfg.ManifestGlobs)
	if err != nil {
		return err
	}
	kept := pkgs[:0]
	for _, pkg := range pkgs {
		if cfg.Excluded(pkg.Name) {
			logger.Debug("package excluded by config", "package", pkg.Name)
			continue
		}
		kept = append(kept, pkg)
	}

	report, err := categorycheck.Check(cmd.Context(), kept,
		categorycheck.WithRegistryURL(cfg.RegistryURL),
		categorycheck.WithRequestDelay(cfg.RequestDelay),
		categorycheck.WithTimeout(cfg.Timeout),
		categorycheck.WithLogger(logger),
		categorycheck.WithProgress(func(ev categorycheck.Event) {
			switch ev.Kind {
			case categorycheck.EventCheckingPackage:
				fmt.Fprintf(stdout, "checking %s\n", ev.Package)
			case categorycheck.EventProblem:
				fmt.Fprintln(stderr, ev.Problem.String())
			}
		}),
	)
	if err != nil {
		// Registry protocol failure: intentionally noisy, the checker
		// itself cannot be trusted for this run.
		return err
	}

	if !report.OK() {
		return &problemsError{count: len(report.Problems)}
	}
	fmt.Fprintln(stdout, "ok!")
	return nil
}

func newChangesCmd(flags *rootFlags) *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Summarize git changes per package directory",
		Long: `Changes prints a git diff --stat summary for each package directory
in the workspace, against a reference revision. It is a release-engineering
helper and does not touch the registry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := manifest.DiscoverPaths(flags.root, nil)
			if err != nil {
				return err
			}
			dirs := make([]string, 0, len(paths))
			for _, p := range paths {
				dirs = append(dirs, filepath.Dir(p))
			}

			diffs, err := gitstat.Summarize(cmd.Context(), flags.root, rev, dirs)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			for _, d := range diffs {
				if !d.Changed {
					continue
				}
				fmt.Fprintf(stdout, "%s:\n%s\n\n", d.Dir, indent(d.Stat))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "HEAD", "Revision to diff against")
	return cmd
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

// newLogger builds the CLI's slog logger on the command's error stream.
func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}
