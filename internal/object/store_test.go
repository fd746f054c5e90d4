package object

import (
	"testing"
	"time"

	twigerrors "twig/internal/errors"
	"twig/internal/safe"
	"twig/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db, Options{CacheSize: 2, MinPrefixLength: 4})
	require.NoError(t, err)
	return s
}

func commitOn(t *testing.T, s *Store, parent *Commit, msg string, staged map[string]string) *Commit {
	c := NewChild(parent, msg, staged, nil, time.Now())
	_, err := s.Put(c)
	require.NoError(t, err)
	return c
}

func TestDigestDeterminism(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 42, time.UTC)
	build := func() *Commit {
		return &Commit{
			Message:   "same",
			Timestamp: at,
			Parent:    "p",
			Files:     map[string]string{"b.txt": "2", "a.txt": "1"},
		}
	}

	first, second := build(), build()
	require.NoError(t, first.Seal(safe.SHA256))
	require.NoError(t, second.Seal(safe.SHA256))
	assert.Equal(t, first.Hash, second.Hash)

	other := build()
	other.Timestamp = at.Add(time.Nanosecond)
	require.NoError(t, other.Seal(safe.SHA256))
	assert.NotEqual(t, first.Hash, other.Hash)

	// Hash itself never feeds into the digest.
	first.Hash = "garbage"
	require.NoError(t, first.Seal(safe.SHA256))
	assert.Equal(t, second.Hash, first.Hash)
}

func TestNewChild(t *testing.T) {
	parent := &Commit{Hash: "p", Files: map[string]string{"keep": "k", "edit": "old", "gone": "g"}}
	c := NewChild(parent, "msg", map[string]string{"edit": "new", "add": "a"}, []string{"gone"}, time.Now())

	assert.Equal(t, "p", c.Parent)
	assert.Equal(t, map[string]string{"keep": "k", "edit": "new", "add": "a"}, c.Files)
	assert.Equal(t, "old", parent.Files["edit"], "parent map must not be mutated")
	assert.Equal(t, []string{"add", "edit", "keep"}, c.Paths())
}

func TestStore(t *testing.T) {
	s := setupStore(t)

	root := NewRoot()
	rootHash, err := s.Put(root)
	require.NoError(t, err)
	assert.Len(t, rootHash, 64)

	t.Run("Put is idempotent", func(t *testing.T) {
		again, err := s.Put(NewRoot())
		require.NoError(t, err)
		assert.Equal(t, rootHash, again)

		all, err := s.All()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Get by full digest and prefix", func(t *testing.T) {
		s.cache.Purge()
		c, err := s.Get(rootHash)
		require.NoError(t, err)
		assert.Equal(t, RootMessage, c.Message)
		assert.True(t, c.Timestamp.Equal(time.Unix(0, 0)))

		c, err = s.Get(rootHash[:8])
		require.NoError(t, err)
		assert.Equal(t, rootHash, c.Hash)
	})

	t.Run("Get rejects short and unknown refs", func(t *testing.T) {
		_, err := s.Get(rootHash[:3])
		assert.ErrorIs(t, err, twigerrors.ErrAmbiguousOrNotFound)

		_, err = s.Get("ffffffffff")
		assert.ErrorIs(t, err, twigerrors.ErrAmbiguousOrNotFound)

		_, err = s.Get(rootHash + "0")
		assert.ErrorIs(t, err, twigerrors.ErrAmbiguousOrNotFound)
	})

	t.Run("FindByMessage", func(t *testing.T) {
		found, err := s.FindByMessage(RootMessage)
		require.NoError(t, err)
		assert.Equal(t, []string{rootHash}, found)

		found, err = s.FindByMessage("nope")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestAncestors(t *testing.T) {
	s := setupStore(t)

	x := NewRoot()
	_, err := s.Put(x)
	require.NoError(t, err)
	y := commitOn(t, s, x, "y", map[string]string{"f": "1"})
	z := commitOn(t, s, y, "z", map[string]string{"f": "2"})
	w := commitOn(t, s, y, "w", map[string]string{"g": "3"})

	chain, err := s.Ancestors(z.Hash)
	require.NoError(t, err)
	assert.Equal(t, []string{z.Hash, y.Hash, x.Hash}, chain)

	merge := NewChild(z, "merge", nil, nil, time.Now())
	merge.SecondParent = w.Hash
	_, err = s.Put(merge)
	require.NoError(t, err)

	t.Run("first parent only", func(t *testing.T) {
		chain, err := s.Ancestors(merge.Hash)
		require.NoError(t, err)
		assert.Equal(t, []string{merge.Hash, z.Hash, y.Hash, x.Hash}, chain)
		assert.NotContains(t, chain, w.Hash)
	})

	t.Run("Reachable follows both parents", func(t *testing.T) {
		order, dist, err := s.Reachable(merge.Hash)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{merge.Hash, z.Hash, w.Hash, y.Hash, x.Hash}, order)
		assert.Equal(t, 1, dist[w.Hash])
		assert.Equal(t, 2, dist[y.Hash])
		assert.Equal(t, 3, dist[x.Hash])
	})

	t.Run("History loads commits", func(t *testing.T) {
		history, err := s.History(z.Hash)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "z", history[0].Message)
		assert.Equal(t, RootMessage, history[2].Message)
	})
}
