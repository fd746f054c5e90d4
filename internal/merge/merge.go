// internal/merge/merge.go
package merge

import (
	"bytes"
	"fmt"
	"sort"
)

// Strategy selects how the merge base is searched.
type Strategy string

const (
	// FirstParent compares the first-parent chains of both heads and picks
	// the first commit of the current chain found in the other.
	FirstParent Strategy = "first-parent"
	// DAG follows both parents and picks the common ancestor nearest to the
	// current head that is not itself an ancestor of another common ancestor.
	DAG Strategy = "dag"
)

const (
	MarkerOurs   = "<<<<<<< HEAD"
	MarkerSep    = "======="
	MarkerTheirs = ">>>>>>>"
)

// Ancestry is the part of the commit store the base search needs.
type Ancestry interface {
	Ancestors(hash string) ([]string, error)
	Reachable(hash string) ([]string, map[string]int, error)
}

// SplitPoint returns the merge base of a and b, or "" when they share no
// history.
func SplitPoint(store Ancestry, a, b string, strategy Strategy) (string, error) {
	switch strategy {
	case FirstParent, "":
		return firstParentSplit(store, a, b)
	case DAG:
		return dagSplit(store, a, b)
	default:
		return "", fmt.Errorf("unknown merge base strategy %q", strategy)
	}
}

func firstParentSplit(store Ancestry, a, b string) (string, error) {
	ours, err := store.Ancestors(a)
	if err != nil {
		return "", err
	}
	theirs, err := store.Ancestors(b)
	if err != nil {
		return "", err
	}

	inTheirs := make(map[string]struct{}, len(theirs))
	for _, h := range theirs {
		inTheirs[h] = struct{}{}
	}
	for _, h := range ours {
		if _, ok := inTheirs[h]; ok {
			return h, nil
		}
	}
	return "", nil
}

func dagSplit(store Ancestry, a, b string) (string, error) {
	ours, dist, err := store.Reachable(a)
	if err != nil {
		return "", err
	}
	_, theirs, err := store.Reachable(b)
	if err != nil {
		return "", err
	}

	var common []string
	for _, h := range ours {
		if _, ok := theirs[h]; ok {
			common = append(common, h)
		}
	}

	// A common ancestor reachable from another one is never the best base.
	dominated := make(map[string]struct{})
	for _, c := range common {
		if _, ok := dominated[c]; ok {
			continue
		}
		above, _, err := store.Reachable(c)
		if err != nil {
			return "", err
		}
		for _, h := range above[1:] {
			dominated[h] = struct{}{}
		}
	}

	var best []string
	for _, c := range common {
		if _, ok := dominated[c]; !ok {
			best = append(best, c)
		}
	}
	if len(best) == 0 {
		return "", nil
	}
	sort.SliceStable(best, func(i, j int) bool {
		if dist[best[i]] != dist[best[j]] {
			return dist[best[i]] < dist[best[j]]
		}
		return best[i] < best[j]
	})
	return best[0], nil
}

// Action is what a three-way merge does with one path.
type Action int

const (
	Keep Action = iota
	TakeTheirs
	Delete
	Conflict
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case TakeTheirs:
		return "take theirs"
	case Delete:
		return "delete"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Decide picks the action for a path given its digest at the split point,
// on the current branch and on the merged branch. "" means absent.
func Decide(ds, dc, dm string) Action {
	if ds == "" {
		// Not in the base: only additions can interact.
		switch {
		case dc == "" && dm != "":
			return TakeTheirs
		case dc != "" && dm != "" && dc != dm:
			return Conflict
		default:
			return Keep
		}
	}

	switch {
	case dm != ds && dm != "" && dc == ds:
		return TakeTheirs
	case dc == ds && dm == "":
		return Delete
	case dc != "" && dm != "" && dc != ds && dm != ds && dc != dm:
		return Conflict
	case dc != ds && dc != "" && dm == "":
		return Conflict
	case dm != ds && dm != "" && dc == "":
		return Conflict
	default:
		return Keep
	}
}

// ConflictContent renders both sides between conflict markers. A side that
// is absent contributes no lines.
func ConflictContent(ours, theirs []byte, oursPresent, theirsPresent bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(MarkerOurs + "\n")
	if oursPresent {
		buf.Write(ours)
		buf.WriteString("\n")
	}
	buf.WriteString(MarkerSep + "\n")
	if theirsPresent {
		buf.Write(theirs)
		buf.WriteString("\n")
	}
	buf.WriteString(MarkerTheirs)
	return buf.Bytes()
}

// Step is the planned action for one path.
type Step struct {
	Path   string
	Action Action
	Ours   string // digest on the current branch, "" if absent
	Theirs string // digest on the merged branch, "" if absent
}

// Plan decides every path in the union of the three file maps. Paths that
// need no action are left out. Steps are sorted by path.
func Plan(split, current, merging map[string]string) []Step {
	seen := make(map[string]struct{})
	var paths []string
	for _, m := range []map[string]string{split, current, merging} {
		for p := range m {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var steps []Step
	for _, p := range paths {
		action := Decide(split[p], current[p], merging[p])
		if action == Keep {
			continue
		}
		steps = append(steps, Step{Path: p, Action: action, Ours: current[p], Theirs: merging[p]})
	}
	return steps
}

// Kind says how a merge was resolved.
type Kind int

const (
	NothingToMerge Kind = iota
	AlreadyAncestor
	FastForward
	Merged
	NothingToCommit
)

func (k Kind) String() string {
	switch k {
	case NothingToMerge:
		return "nothing to merge"
	case AlreadyAncestor:
		return "already ancestor"
	case FastForward:
		return "fast-forward"
	case Merged:
		return "merged"
	case NothingToCommit:
		return "nothing to commit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Result struct {
	Kind      Kind
	Commit    string   // new head for FastForward and Merged
	Conflicts []string // conflicted paths, sorted
	Messages  []string // outcome lines, conflicts excluded
}

// Message returns the merge commit message for merging other into current.
func Message(other, current string) string {
	return fmt.Sprintf("Merging %s with %s", other, current)
}
