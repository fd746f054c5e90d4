// internal/repo/merge.go
package repo

import (
	"fmt"

	twigerrors "twig/internal/errors"
	"twig/internal/merge"
	"twig/internal/object"

	"go.uber.org/zap"
)

// Merge merges branch name into the current branch.
func (r *Repository) Merge(name string) (*merge.Result, error) {
	current := r.Refs.Current
	if name == current {
		return nil, twigerrors.SelfReferenceGuard("merge", name)
	}
	theirsHash, err := r.Refs.HeadOf(name)
	if err != nil {
		return nil, err
	}
	ours, err := r.Head()
	if err != nil {
		return nil, err
	}
	theirs, err := r.Commits.Get(theirsHash)
	if err != nil {
		return nil, err
	}

	candidate := make(map[string]string, len(ours.Files)+len(theirs.Files))
	for p, d := range ours.Files {
		candidate[p] = d
	}
	for p, d := range theirs.Files {
		candidate[p] = d
	}
	if err := r.guard(candidate); err != nil {
		return nil, err
	}

	if ours.Hash == theirs.Hash {
		return &merge.Result{Kind: merge.NothingToMerge, Messages: []string{"No changes to merge."}}, nil
	}

	split, err := merge.SplitPoint(r.Commits, ours.Hash, theirs.Hash, merge.Strategy(r.Config.MergeBase))
	if err != nil {
		return nil, err
	}
	log := r.Logger.With(zap.String("branch", current), zap.String("other", name), zap.String("split", split))

	switch split {
	case theirs.Hash:
		return &merge.Result{
			Kind:     merge.AlreadyAncestor,
			Messages: []string{"Given branch is an ancestor of the current branch."},
		}, nil
	case ours.Hash:
		if err := r.moveTo(theirs); err != nil {
			return nil, err
		}
		log.Info("fast-forwarded", zap.String("head", theirs.Hash))
		return &merge.Result{
			Kind:     merge.FastForward,
			Commit:   theirs.Hash,
			Messages: []string{"Current branch fast-forwarded."},
		}, nil
	}

	base := map[string]string{}
	if split != "" {
		c, err := r.Commits.Get(split)
		if err != nil {
			return nil, err
		}
		base = c.Files
	}

	result := &merge.Result{}
	for _, step := range merge.Plan(base, ours.Files, theirs.Files) {
		if err := r.apply(step, result); err != nil {
			return nil, fmt.Errorf("merging %s: %w", step.Path, err)
		}
	}

	if r.Index.Empty() {
		result.Kind = merge.NothingToCommit
		result.Messages = append(result.Messages, "No changes added to the commit.")
		if err := r.save(); err != nil {
			return nil, err
		}
		return result, nil
	}

	c := object.NewChild(ours, merge.Message(name, current), r.Index.Staged(), r.Index.Removed(), r.now())
	c.SecondParent = theirs.Hash
	if result.Commit, err = r.advance(c); err != nil {
		return nil, err
	}
	result.Kind = merge.Merged
	result.Messages = append(result.Messages, fmt.Sprintf("%s merged into %s.", name, current))

	log.Info("merged", zap.String("head", result.Commit), zap.Strings("conflicts", result.Conflicts))
	return result, nil
}

func (r *Repository) apply(step merge.Step, result *merge.Result) error {
	switch step.Action {
	case merge.TakeTheirs:
		content, err := r.Blobs.Get(step.Theirs)
		if err != nil {
			return err
		}
		if err := r.Tree.Write(step.Path, content); err != nil {
			return err
		}
		r.Index.Stage(step.Path, step.Theirs)
		r.Index.ClearRemoved(step.Path)
		r.Index.Track(step.Path)

	case merge.Delete:
		if err := r.Tree.Remove(step.Path); err != nil {
			return err
		}
		r.Index.Unstage(step.Path)
		r.Index.MarkRemoved(step.Path)
		r.Index.Untrack(step.Path)

	case merge.Conflict:
		ours, err := r.side(step.Ours)
		if err != nil {
			return err
		}
		theirs, err := r.side(step.Theirs)
		if err != nil {
			return err
		}
		content := merge.ConflictContent(ours, theirs, step.Ours != "", step.Theirs != "")
		if err := r.Tree.Write(step.Path, content); err != nil {
			return err
		}
		digest, err := r.Blobs.Store(content)
		if err != nil {
			return err
		}
		r.Index.Stage(step.Path, digest)
		r.Index.ClearRemoved(step.Path)
		r.Index.Track(step.Path)

		result.Conflicts = append(result.Conflicts, step.Path)
	}
	return nil
}

func (r *Repository) side(digest string) ([]byte, error) {
	if digest == "" {
		return nil, nil
	}
	return r.Blobs.Get(digest)
}
