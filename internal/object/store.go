// internal/object/store.go
package object

import (
	"errors"
	"fmt"
	"sort"

	twigerrors "twig/internal/errors"
	"twig/internal/safe"
	"twig/internal/storage"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Store persists commits under "commit:<digest>".
type Store struct {
	store        *storage.BadgerStore
	cache        *lru.Cache[string, *Commit]
	hash         safe.Hasher
	minPrefixLen int
	logger       *zap.Logger
}

type Options struct {
	CacheSize       int
	MinPrefixLength int
	Hasher          safe.Hasher
	Logger          *zap.Logger
}

func NewStore(db *badger.DB, opts Options) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.MinPrefixLength <= 0 {
		opts.MinPrefixLength = 6
	}
	if opts.Hasher == nil {
		opts.Hasher = safe.SHA256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[string, *Commit](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Store{
		store:        storage.NewBadgerStore(db, "commit"),
		cache:        cache,
		hash:         opts.Hasher,
		minPrefixLen: opts.MinPrefixLength,
		logger:       opts.Logger,
	}, nil
}

// Put seals c and persists it. Writing a commit that already exists is a
// no-op.
func (s *Store) Put(c *Commit) (string, error) {
	if err := c.Seal(s.hash); err != nil {
		return "", err
	}
	if s.cache.Contains(c.Hash) {
		return c.Hash, nil
	}
	exists, err := s.store.Has(c.Hash)
	if err != nil {
		return "", twigerrors.StorageIOFailure("checking commit", err)
	}
	if !exists {
		if err := s.store.Put(c); err != nil {
			return "", twigerrors.StorageIOFailure("writing commit", err)
		}
		s.logger.Debug("stored commit", zap.String("hash", c.Hash), zap.String("message", c.Message))
	}
	s.cache.Add(c.Hash, c)
	return c.Hash, nil
}

// Get resolves a full digest or a unique prefix of one.
func (s *Store) Get(ref string) (*Commit, error) {
	hash, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.load(hash)
}

// Resolve expands ref to a full digest. Prefixes shorter than the configured
// minimum, unknown prefixes and prefixes matching several commits all fail
// with AmbiguousOrNotFound; the candidates are reported in sorted order.
func (s *Store) Resolve(ref string) (string, error) {
	if len(ref) < s.minPrefixLen || len(ref) > len(s.hash(nil)) {
		return "", twigerrors.AmbiguousOrNotFound(ref, nil)
	}
	if s.cache.Contains(ref) {
		return ref, nil
	}

	matches, err := s.store.Keys(ref)
	if err != nil {
		return "", twigerrors.StorageIOFailure("resolving commit", err)
	}
	if len(matches) != 1 {
		sort.Strings(matches)
		return "", twigerrors.AmbiguousOrNotFound(ref, matches)
	}
	return matches[0], nil
}

func (s *Store) load(hash string) (*Commit, error) {
	if c, ok := s.cache.Get(hash); ok {
		return c, nil
	}
	var c Commit
	if err := s.store.Get(hash, &c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, twigerrors.ObjectNotFound(hash)
		}
		return nil, twigerrors.StorageIOFailure("reading commit", err)
	}
	if c.Files == nil {
		c.Files = map[string]string{}
	}
	s.cache.Add(hash, &c)
	return &c, nil
}

// Ancestors walks the first-parent chain from hash (inclusive) back to the
// root. Second parents are never followed.
func (s *Store) Ancestors(hash string) ([]string, error) {
	var chain []string
	for hash != "" {
		c, err := s.load(hash)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c.Hash)
		hash = c.Parent
	}
	return chain, nil
}

// History is Ancestors with the commits loaded.
func (s *Store) History(hash string) ([]*Commit, error) {
	var commits []*Commit
	for hash != "" {
		c, err := s.load(hash)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
		hash = c.Parent
	}
	return commits, nil
}

// Reachable returns every commit reachable from hash through either parent,
// in breadth-first order, mapped to its distance from hash.
func (s *Store) Reachable(hash string) ([]string, map[string]int, error) {
	dist := map[string]int{hash: 0}
	order := []string{hash}
	for i := 0; i < len(order); i++ {
		c, err := s.load(order[i])
		if err != nil {
			return nil, nil, err
		}
		for _, p := range []string{c.Parent, c.SecondParent} {
			if p == "" {
				continue
			}
			if _, seen := dist[p]; seen {
				continue
			}
			dist[p] = dist[c.Hash] + 1
			order = append(order, p)
		}
	}
	return order, dist, nil
}

// All returns every stored commit, oldest first, ties broken by digest.
func (s *Store) All() ([]*Commit, error) {
	var commits []*Commit
	if err := s.store.List(&commits); err != nil {
		return nil, twigerrors.StorageIOFailure("listing commits", err)
	}
	sort.Slice(commits, func(i, j int) bool {
		if !commits[i].Timestamp.Equal(commits[j].Timestamp) {
			return commits[i].Timestamp.Before(commits[j].Timestamp)
		}
		return commits[i].Hash < commits[j].Hash
	})
	return commits, nil
}

func (s *Store) FindByMessage(message string) ([]string, error) {
	commits, err := s.All()
	if err != nil {
		return nil, err
	}

	var result []string
	for _, c := range commits {
		if c.Message == message {
			result = append(result, c.Hash)
		}
	}
	return result, nil
}
