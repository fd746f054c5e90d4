// internal/index/index.go
package index

import (
	"errors"
	"fmt"
	"sort"

	"twig/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

const stateKey = "state"

// Outcome reports what Reconcile did with a path.
type Outcome int

const (
	Staged Outcome = iota
	AlreadyAdded
	MatchesHead
)

func (o Outcome) String() string {
	switch o {
	case Staged:
		return "staged"
	case AlreadyAdded:
		return "already added"
	case MatchesHead:
		return "matches HEAD"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// state is the persisted form. Sets are stored as sorted lists.
type state struct {
	Staged  map[string]string `json:"staged,omitempty"`
	Removed []string          `json:"removed,omitempty"`
	Tracked []string          `json:"tracked,omitempty"`
}

// Index holds pending additions, pending removals and the tracked set of the
// current branch.
type Index struct {
	staged  map[string]string
	removed map[string]struct{}
	tracked map[string]struct{}
}

func New() *Index {
	return &Index{
		staged:  make(map[string]string),
		removed: make(map[string]struct{}),
		tracked: make(map[string]struct{}),
	}
}

// Store persists the index under "index:state".
type Store struct {
	store *storage.BadgerStore
}

func NewStore(db *badger.DB) *Store {
	return &Store{store: storage.NewBadgerStore(db, "index")}
}

// Load reads the index. A repository without a saved index has an empty one.
func (s *Store) Load() (*Index, error) {
	var st state
	err := s.store.Get(stateKey, &st)
	if errors.Is(err, storage.ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	idx := New()
	for p, d := range st.Staged {
		idx.staged[p] = d
	}
	for _, p := range st.Removed {
		idx.removed[p] = struct{}{}
	}
	for _, p := range st.Tracked {
		idx.tracked[p] = struct{}{}
	}
	return idx, nil
}

// SaveIn writes idx inside txn. An index with nothing staged, removed or
// tracked deletes its key instead.
func (s *Store) SaveIn(txn *badger.Txn, idx *Index) error {
	if len(idx.staged) == 0 && len(idx.removed) == 0 && len(idx.tracked) == 0 {
		return s.store.DeleteIn(txn, stateKey)
	}
	return s.store.PutIn(txn, stateKey, &state{
		Staged:  idx.staged,
		Removed: sortedKeys(idx.removed),
		Tracked: sortedKeys(idx.tracked),
	})
}

// Stage records digest for path and returns the digest it replaced, if any.
func (idx *Index) Stage(path, digest string) string {
	prev := idx.staged[path]
	idx.staged[path] = digest
	if prev == digest {
		return ""
	}
	return prev
}

// Unstage drops path from staging and returns the digest it held.
func (idx *Index) Unstage(path string) string {
	prev, ok := idx.staged[path]
	if !ok {
		return ""
	}
	delete(idx.staged, path)
	return prev
}

func (idx *Index) IsStaged(path string) bool {
	_, ok := idx.staged[path]
	return ok
}

func (idx *Index) StagedDigest(path string) (string, bool) {
	d, ok := idx.staged[path]
	return d, ok
}

func (idx *Index) Count() int { return len(idx.staged) }

// Staged returns a copy of the staging map.
func (idx *Index) Staged() map[string]string {
	out := make(map[string]string, len(idx.staged))
	for p, d := range idx.staged {
		out[p] = d
	}
	return out
}

// StagedPaths returns staged paths in sorted order.
func (idx *Index) StagedPaths() []string {
	paths := make([]string, 0, len(idx.staged))
	for p := range idx.staged {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// References reports whether any staged path other than except points at
// digest.
func (idx *Index) References(digest, except string) bool {
	for p, d := range idx.staged {
		if p != except && d == digest {
			return true
		}
	}
	return false
}

func (idx *Index) MarkRemoved(path string)  { idx.removed[path] = struct{}{} }
func (idx *Index) ClearRemoved(path string) { delete(idx.removed, path) }

func (idx *Index) IsRemoved(path string) bool {
	_, ok := idx.removed[path]
	return ok
}

func (idx *Index) Removed() []string { return sortedKeys(idx.removed) }

func (idx *Index) Track(path string)   { idx.tracked[path] = struct{}{} }
func (idx *Index) Untrack(path string) { delete(idx.tracked, path) }

func (idx *Index) IsTracked(path string) bool {
	_, ok := idx.tracked[path]
	return ok
}

func (idx *Index) Tracked() []string { return sortedKeys(idx.tracked) }

// ReplaceTracked swaps the whole tracked set, as on a branch switch.
func (idx *Index) ReplaceTracked(paths []string) {
	idx.tracked = make(map[string]struct{}, len(paths))
	for _, p := range paths {
		idx.tracked[p] = struct{}{}
	}
}

// Empty reports whether nothing is staged and nothing is pending removal.
func (idx *Index) Empty() bool {
	return len(idx.staged) == 0 && len(idx.removed) == 0
}

// Clear drops every staged entry and pending removal and returns the staged
// digests so their blobs can be released.
func (idx *Index) Clear() []string {
	var dropped []string
	for _, p := range idx.StagedPaths() {
		dropped = append(dropped, idx.staged[p])
	}
	idx.staged = make(map[string]string)
	idx.removed = make(map[string]struct{})
	return dropped
}

// Reconcile applies the add policy for path with working-copy digest current
// and HEAD digest head ("" when HEAD lacks the path). trackedByHistory tells
// whether HEAD or one of its ancestors ever committed the path. The returned
// digest is a staged blob that is no longer referenced by this path.
func (idx *Index) Reconcile(path, current, head string, trackedByHistory bool) (Outcome, string) {
	if !idx.IsTracked(path) && !idx.IsRemoved(path) {
		idx.Track(path)
		return Staged, idx.Stage(path, current)
	}

	if staged, ok := idx.staged[path]; ok && staged == current {
		return AlreadyAdded, ""
	}

	if trackedByHistory && current == head {
		displaced := idx.Unstage(path)
		idx.ClearRemoved(path)
		idx.Track(path)
		return MatchesHead, displaced
	}

	displaced := idx.Stage(path, current)
	idx.ClearRemoved(path)
	idx.Track(path)
	return Staged, displaced
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
