// internal/refs/refs.go
package refs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	twigerrors "twig/internal/errors"
	"twig/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Marker flags the current branch in listings and is therefore not
	// allowed in branch names.
	Marker        = "*"
	DefaultBranch = "master"

	tableKey = "table"
)

type Branch struct {
	Name string `json:"name"`
	Head string `json:"head"`
	// Tracked is the tracked-path snapshot archived when the branch was last
	// switched away from. Archived is false until that happens.
	Tracked  []string `json:"tracked,omitempty"`
	Archived bool     `json:"archived,omitempty"`
}

// Table is the branch table. Exactly one branch is current.
type Table struct {
	Current  string    `json:"current"`
	Branches []*Branch `json:"branches"` // creation order
}

// Entry is one line of a branch listing.
type Entry struct {
	Name    string
	Head    string
	Current bool
}

// NewTable starts a repository with the default branch at head.
func NewTable(head string) *Table {
	return &Table{
		Current:  DefaultBranch,
		Branches: []*Branch{{Name: DefaultBranch, Head: head}},
	}
}

func (t *Table) find(name string) (*Branch, int) {
	for i, b := range t.Branches {
		if b.Name == name {
			return b, i
		}
	}
	return nil, -1
}

func (t *Table) Has(name string) bool {
	b, _ := t.find(name)
	return b != nil
}

// Create adds a branch at head carrying a copy of tracked as its snapshot.
func (t *Table) Create(name, head string, tracked []string) error {
	if name == "" || strings.Contains(name, Marker) {
		return twigerrors.InvalidBranchName(name, Marker)
	}
	if t.Has(name) {
		return twigerrors.BranchAlreadyExists(name)
	}
	t.Branches = append(t.Branches, &Branch{
		Name:     name,
		Head:     head,
		Tracked:  append([]string(nil), tracked...),
		Archived: true,
	})
	return nil
}

func (t *Table) CurrentBranch() *Branch {
	b, _ := t.find(t.Current)
	return b
}

func (t *Table) CurrentHead() string {
	if b := t.CurrentBranch(); b != nil {
		return b.Head
	}
	return ""
}

func (t *Table) HeadOf(name string) (string, error) {
	b, _ := t.find(name)
	if b == nil {
		return "", twigerrors.UnknownBranch(name)
	}
	return b.Head, nil
}

// SetHead moves the current branch only.
func (t *Table) SetHead(digest string) {
	if b := t.CurrentBranch(); b != nil {
		b.Head = digest
	}
}

// Switch makes name current. The outgoing branch archives tracked; the
// incoming branch's snapshot is returned with ok=false when it has none.
func (t *Table) Switch(name string, tracked []string) ([]string, bool, error) {
	if name == t.Current {
		return nil, false, twigerrors.SelfReferenceGuard("checkout", name)
	}
	target, _ := t.find(name)
	if target == nil {
		return nil, false, twigerrors.UnknownBranch(name)
	}

	if out := t.CurrentBranch(); out != nil {
		out.Tracked = append([]string(nil), tracked...)
		out.Archived = true
	}
	t.Current = name
	return append([]string(nil), target.Tracked...), target.Archived, nil
}

func (t *Table) Remove(name string) error {
	if name == t.Current {
		return twigerrors.SelfReferenceGuard("remove", name)
	}
	_, i := t.find(name)
	if i < 0 {
		return twigerrors.UnknownBranch(name)
	}
	t.Branches = append(t.Branches[:i], t.Branches[i+1:]...)
	return nil
}

// List returns the branches sorted by name.
func (t *Table) List() []Entry {
	entries := make([]Entry, 0, len(t.Branches))
	for _, b := range t.Branches {
		entries = append(entries, Entry{Name: b.Name, Head: b.Head, Current: b.Name == t.Current})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Store persists the table under "refs:table".
type Store struct {
	store *storage.BadgerStore
}

func NewStore(db *badger.DB) *Store {
	return &Store{store: storage.NewBadgerStore(db, "refs")}
}

func (s *Store) Load() (*Table, error) {
	var t Table
	if err := s.store.Get(tableKey, &t); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, twigerrors.NotARepository()
		}
		return nil, fmt.Errorf("loading branch table: %w", err)
	}
	if t.CurrentBranch() == nil {
		return nil, fmt.Errorf("branch table has no current branch %q", t.Current)
	}
	return &t, nil
}

func (s *Store) SaveIn(txn *badger.Txn, t *Table) error {
	return s.store.PutIn(txn, tableKey, t)
}
