// cmd/twig/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"twig/internal/config"
	twigerrors "twig/internal/errors"
	"twig/internal/logging"
	"twig/internal/middleware"
	"twig/internal/repo"
	"twig/internal/worktree"

	"github.com/spf13/cobra"
)

// app carries what every command of one invocation shares.
type app struct {
	verbose bool
	cwd     string
	root    string // "" outside a repository
	cfg     *config.Config
	logger  *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), logger: logging.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "twig",
		Short: "Twig is a local version control system",
		Long: `Twig keeps snapshots of a directory tree as commits, with branches,
a staging area, and three-way merges.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return twigerrors.UnknownCommand(args[0])
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.commitCmd(),
		a.rmCmd(),
		a.logCmd(),
		a.globalLogCmd(),
		a.findCmd(),
		a.statusCmd(),
		a.checkoutCmd(),
		a.branchCmd(),
		a.rmBranchCmd(),
		a.resetCmd(),
		a.mergeCmd(),
		a.diffCmd(),
	)
	return rootCmd
}

// setup locates the repository and builds the logger from its config.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	a.cwd = cwd

	if root, err := worktree.FindRoot(cwd, repo.MarkerDir); err == nil {
		a.root = root
		cfg, err := config.Load(filepath.Join(root, repo.MarkerDir, repo.ConfigFile))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.cfg = cfg
	}

	if a.verbose {
		a.logger, err = logging.NewDevelopment()
	} else {
		a.logger, err = logging.NewLogger(a.cfg.LogLevel)
	}
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}

// run wraps a handler in the middleware chain. The chain is built per call
// because the logger only exists once setup has run.
func (a *app) run(h middleware.RunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return middleware.Chain(h,
			middleware.Logger(a.logger),
			middleware.Recover(a.logger),
			middleware.InvocationID,
		)(cmd, args)
	}
}

// withRepo opens the repository around fn and closes it afterwards.
func (a *app) withRepo(fn func(r *repo.Repository, cmd *cobra.Command, args []string) error) middleware.RunE {
	return func(cmd *cobra.Command, args []string) error {
		if a.root == "" {
			return twigerrors.NotARepository()
		}
		r, err := repo.Open(a.root, a.cfg, a.logger.WithInvocation(cmd.Context()))
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(r, cmd, args)
	}
}

// exactArgs reports a wrong argument count the way every command does.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return twigerrors.InvalidArgumentCount(cmd.Name(), n, n, len(args))
		}
		return nil
	}
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
