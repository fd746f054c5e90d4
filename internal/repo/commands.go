// internal/repo/commands.go
package repo

import (
	"strings"

	"twig/internal/diff"
	twigerrors "twig/internal/errors"
	"twig/internal/index"
	"twig/internal/object"
	"twig/internal/refs"
	"twig/internal/worktree"

	"go.uber.org/zap"
)

const diffContext = 3

// Add stages the working copy of p according to the index's add policy.
func (r *Repository) Add(p string) (index.Outcome, error) {
	content, err := r.Tree.Read(p)
	if err != nil {
		return 0, err
	}
	head, err := r.Head()
	if err != nil {
		return 0, err
	}

	current := r.Blobs.Hash(content)
	headDigest := head.Files[p]
	outcome, displaced := r.Index.Reconcile(p, current, headDigest, headDigest != "")

	if outcome == index.Staged {
		if _, err := r.Blobs.Store(content); err != nil {
			return 0, err
		}
	}
	if err := r.release(displaced); err != nil {
		return 0, err
	}
	if err := r.save(); err != nil {
		return 0, err
	}

	r.Logger.Debug("add", zap.String("path", p), zap.Stringer("outcome", outcome))
	return outcome, nil
}

// CommitReport summarizes a new commit.
type CommitReport struct {
	Hash      string
	Additions int
	Removals  int
}

// Commit snapshots HEAD's files overlaid with the staged changes.
func (r *Repository) Commit(message string) (*CommitReport, error) {
	if strings.TrimSpace(message) == "" {
		return nil, twigerrors.EmptyMessage()
	}
	if r.Index.Empty() {
		return nil, twigerrors.NothingToCommit()
	}
	parent, err := r.Head()
	if err != nil {
		return nil, err
	}

	report := &CommitReport{Additions: r.Index.Count(), Removals: len(r.Index.Removed())}
	c := object.NewChild(parent, message, r.Index.Staged(), r.Index.Removed(), r.now())
	if report.Hash, err = r.advance(c); err != nil {
		return nil, err
	}

	r.Logger.Info("committed", zap.String("hash", report.Hash), zap.String("branch", r.Refs.Current))
	return report, nil
}

// Rm unstages p and, when HEAD tracks it, stages its removal and deletes the
// working copy.
func (r *Repository) Rm(p string) error {
	staged, tracked := r.Index.IsStaged(p), r.Index.IsTracked(p)
	if !staged && !tracked {
		return twigerrors.NoReasonToRemove(p)
	}
	head, err := r.Head()
	if err != nil {
		return err
	}

	if staged {
		if err := r.release(r.Index.Unstage(p)); err != nil {
			return err
		}
	}
	if _, inHead := head.Files[p]; inHead {
		r.Index.MarkRemoved(p)
		if err := r.Tree.Remove(p); err != nil {
			return err
		}
	}
	r.Index.Untrack(p)
	return r.save()
}

// Log is the first-parent history of the current branch, newest first.
func (r *Repository) Log() ([]*object.Commit, error) {
	return r.Commits.History(r.Refs.CurrentHead())
}

// GlobalLog is every commit ever made, oldest first.
func (r *Repository) GlobalLog() ([]*object.Commit, error) {
	return r.Commits.All()
}

// Find returns the digests of commits with exactly this message.
func (r *Repository) Find(message string) ([]string, error) {
	return r.Commits.FindByMessage(message)
}

type Status struct {
	Branches  []refs.Entry
	Staged    []string
	Removed   []string
	Modified  []worktree.Change
	Untracked []string
}

func (r *Repository) Status() (*Status, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	modified, err := r.Tree.Modified(head.Files, r.Index.Staged(), r.Index.IsRemoved)
	if err != nil {
		return nil, err
	}
	untracked, err := r.Tree.Untracked(r.isTracked)
	if err != nil {
		return nil, err
	}

	return &Status{
		Branches:  r.Refs.List(),
		Staged:    r.Index.StagedPaths(),
		Removed:   r.Index.Removed(),
		Modified:  modified,
		Untracked: untracked,
	}, nil
}

// CheckoutFile restores p from HEAD. Staging is left alone.
func (r *Repository) CheckoutFile(p string) error {
	return r.CheckoutFileAt(r.Refs.CurrentHead(), p)
}

// CheckoutFileAt restores p from the commit ref resolves to.
func (r *Repository) CheckoutFileAt(ref, p string) error {
	c, err := r.Commits.Get(ref)
	if err != nil {
		return err
	}
	digest, ok := c.Files[p]
	if !ok {
		return twigerrors.FileNotInCommit(p)
	}
	content, err := r.Blobs.Get(digest)
	if err != nil {
		return err
	}
	return r.Tree.Write(p, content)
}

// CheckoutBranch switches to name, rewriting the working tree to its head.
func (r *Repository) CheckoutBranch(name string) error {
	if name == r.Refs.Current {
		return twigerrors.SelfReferenceGuard("checkout", name)
	}
	headHash, err := r.Refs.HeadOf(name)
	if err != nil {
		return err
	}
	target, err := r.Commits.Get(headHash)
	if err != nil {
		return err
	}
	if err := r.guard(target.Files); err != nil {
		return err
	}

	if err := r.Tree.Materialize(target.Files, r.Blobs); err != nil {
		return err
	}
	if _, err := r.Tree.PruneTrackedNotIn(r.Index.Tracked(), target.Files); err != nil {
		return err
	}

	snapshot, ok, err := r.Refs.Switch(name, r.Index.Tracked())
	if err != nil {
		return err
	}
	if !ok {
		snapshot = target.Paths()
	}
	r.Index.ReplaceTracked(snapshot)
	r.Index.Clear()

	r.Logger.Info("switched branch", zap.String("branch", name), zap.String("head", headHash))
	return r.save()
}

// Branch creates name at the current head.
func (r *Repository) Branch(name string) error {
	if err := r.Refs.Create(name, r.Refs.CurrentHead(), r.Index.Tracked()); err != nil {
		return err
	}
	return r.save()
}

func (r *Repository) RemoveBranch(name string) error {
	if err := r.Refs.Remove(name); err != nil {
		return err
	}
	return r.save()
}

// Reset moves the current branch to ref and makes the working tree match it.
func (r *Repository) Reset(ref string) (string, error) {
	target, err := r.Commits.Get(ref)
	if err != nil {
		return "", err
	}
	if err := r.guard(target.Files); err != nil {
		return "", err
	}

	if err := r.moveTo(target); err != nil {
		return "", err
	}
	r.Logger.Info("reset", zap.String("branch", r.Refs.Current), zap.String("head", target.Hash))
	return target.Hash, nil
}

// guard runs the abort-before-mutate checks shared by checkout, reset and
// merge.
func (r *Repository) guard(candidate map[string]string) error {
	if err := r.Tree.GuardUntracked(r.isTracked, candidate); err != nil {
		return err
	}
	return worktree.PendingChangesGuard(r.Index)
}

// moveTo points the current branch at c and makes the working tree and the
// tracked set match it.
func (r *Repository) moveTo(c *object.Commit) error {
	if err := r.Tree.Materialize(c.Files, r.Blobs); err != nil {
		return err
	}
	if _, err := r.Tree.PruneTrackedNotIn(r.Index.Tracked(), c.Files); err != nil {
		return err
	}
	for _, d := range r.Index.Clear() {
		if err := r.release(d); err != nil {
			return err
		}
	}
	r.Refs.SetHead(c.Hash)
	r.Index.ReplaceTracked(c.Paths())
	return r.save()
}

// Diff compares the staged version of p, or HEAD's when nothing is staged,
// with the working copy.
func (r *Repository) Diff(p string) (*diff.Result, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	digest, ok := r.Index.StagedDigest(p)
	if !ok {
		digest = head.Files[p]
	}

	var before, after []byte
	if digest != "" {
		if before, err = r.Blobs.Get(digest); err != nil {
			return nil, err
		}
	}
	if r.Tree.Exists(p) {
		if after, err = r.Tree.Read(p); err != nil {
			return nil, err
		}
	} else if digest == "" {
		return nil, twigerrors.FileNotFound(p)
	}

	return diff.NewEngine(diffContext).Diff(before, after), nil
}
