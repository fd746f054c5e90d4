// cmd/twig/commands.go
package main

import (
	"fmt"

	twigerrors "twig/internal/errors"
	"twig/internal/index"
	"twig/internal/repo"

	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new repository in the current directory",
		Args:  exactArgs(0),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			r, err := repo.Init(a.cwd, a.logger.WithInvocation(cmd.Context()))
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty twig repository in", a.cwd)
			return nil
		}),
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Stage a file for the next commit",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			p, err := r.Rel(a.cwd, args[0])
			if err != nil {
				return err
			}
			outcome, err := r.Add(p)
			if err != nil {
				return err
			}

			switch outcome {
			case index.AlreadyAdded:
				fmt.Fprintln(cmd.OutOrStdout(), "File is already added.")
			case index.MatchesHead:
				fmt.Fprintf(cmd.OutOrStdout(), "Current version of %s already exists in the HEAD commit.\n", p)
			}
			return nil
		})),
	}
}

func (a *app) commitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <message>",
		Short: "Record the staged changes",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			report, err := r.Commit(args[0])
			if err != nil {
				return err
			}
			printCommitReport(cmd.OutOrStdout(), r.Refs.Current, args[0], report)
			return nil
		})),
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Unstage a file, or stage its removal",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			p, err := r.Rel(a.cwd, args[0])
			if err != nil {
				return err
			}
			return r.Rm(p)
		})),
	}
}

func (a *app) logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the history of the current branch",
		Args:  exactArgs(0),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			commits, err := r.Log()
			if err != nil {
				return err
			}
			printLog(cmd.OutOrStdout(), commits)
			return nil
		})),
	}
}

func (a *app) globalLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "global-log",
		Short: "Show every commit ever made",
		Args:  exactArgs(0),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			commits, err := r.GlobalLog()
			if err != nil {
				return err
			}
			printLog(cmd.OutOrStdout(), commits)
			return nil
		})),
	}
}

func (a *app) findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <message>",
		Short: "Print the ids of commits with the given message",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			hashes, err := r.Find(args[0])
			if err != nil {
				return err
			}
			if len(hashes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Found no commit with that message.")
				return nil
			}
			for _, h := range hashes {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		})),
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show branches, staged files and working tree changes",
		Args:  exactArgs(0),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			status, err := r.Status()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		})),
	}
}

func (a *app) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout [<commit>] -- <path> | checkout <branch>",
		Short: "Restore a file, or switch branches",
		Example: `  twig checkout -- notes.txt
  twig checkout 3f2a9c1b -- notes.txt
  twig checkout topic`,
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			switch {
			case dash == 0 && len(args) == 1:
				p, err := r.Rel(a.cwd, args[0])
				if err != nil {
					return err
				}
				return r.CheckoutFile(p)

			case dash == 1 && len(args) == 2:
				p, err := r.Rel(a.cwd, args[1])
				if err != nil {
					return err
				}
				return r.CheckoutFileAt(args[0], p)

			case dash < 0 && len(args) == 1:
				if err := r.CheckoutBranch(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to branch %s\n", args[0])
				return nil

			default:
				return twigerrors.InvalidArgumentCount(cmd.Name(), 1, 3, len(args))
			}
		})),
	}
}

func (a *app) branchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch <name>",
		Short: "Create a branch at the current commit",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			return r.Branch(args[0])
		})),
	}
}

func (a *app) rmBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm-branch <name>",
		Short: "Delete a branch pointer",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			return r.RemoveBranch(args[0])
		})),
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <commit>",
		Short: "Move the current branch to a commit and check it out",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			hash, err := r.Reset(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked out %s to commit [%s]\n", r.Refs.Current, hash)
			return nil
		})),
	}
}

func (a *app) mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  exactArgs(1),
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			result, err := r.Merge(args[0])
			if err != nil {
				return err
			}
			printMerge(cmd.OutOrStdout(), result)
			return nil
		})),
	}
}

func (a *app) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [paths...]",
		Short: "Show working tree changes against the staged or committed version",
		RunE: a.run(a.withRepo(func(r *repo.Repository, cmd *cobra.Command, args []string) error {
			var paths []string
			if len(args) == 0 {
				status, err := r.Status()
				if err != nil {
					return err
				}
				for _, c := range status.Modified {
					paths = append(paths, c.Path)
				}
			}
			for _, arg := range args {
				p, err := r.Rel(a.cwd, arg)
				if err != nil {
					return err
				}
				paths = append(paths, p)
			}

			for _, p := range paths {
				result, err := r.Diff(p)
				if err != nil {
					return fmt.Errorf("showing diff for %s: %w", p, err)
				}
				if result.Empty() {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "diff --twig a/%s b/%s\n", p, p)
				printColoredDiff(cmd.OutOrStdout(), result.Format())
			}
			return nil
		})),
	}
}
