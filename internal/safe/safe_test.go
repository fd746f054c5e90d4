package safe

import (
	"testing"

	twigerrors "twig/internal/errors"
	"twig/internal/storage"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSafe(t *testing.T) *Safe {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, Options{Filesystem: memfs.New(), CacheSize: 4})
	require.NoError(t, err)
	return s
}

func TestSafe(t *testing.T) {
	s := setupSafe(t)

	t.Run("Store is idempotent", func(t *testing.T) {
		h1, err := s.Store([]byte("hello"))
		require.NoError(t, err)
		h2, err := s.Store([]byte("hello"))
		require.NoError(t, err)

		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 64)
		assert.Equal(t, SHA256([]byte("hello")), h1)

		keys, err := s.meta.Keys("")
		require.NoError(t, err)
		assert.Equal(t, []string{h1}, keys)
	})

	t.Run("Get round trip bypassing cache", func(t *testing.T) {
		h, err := s.Store([]byte("round trip"))
		require.NoError(t, err)
		s.cache.Purge()

		content, err := s.Get(h)
		require.NoError(t, err)
		assert.Equal(t, []byte("round trip"), content)
	})

	t.Run("empty content", func(t *testing.T) {
		h, err := s.Store(nil)
		require.NoError(t, err)
		content, err := s.Get(h)
		require.NoError(t, err)
		assert.Empty(t, content)
	})

	t.Run("Get missing", func(t *testing.T) {
		_, err := s.Get(SHA256([]byte("never stored")))
		assert.ErrorIs(t, err, twigerrors.ErrObjectNotFound)

		_, err = s.Get("not-hex")
		assert.ErrorIs(t, err, twigerrors.ErrObjectNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		h, err := s.Store([]byte("exists"))
		require.NoError(t, err)
		s.cache.Purge()

		ok, err := s.Exists(h)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists(SHA256([]byte("nope")))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Release removes unpinned blobs only", func(t *testing.T) {
		staged, err := s.Store([]byte("staged only"))
		require.NoError(t, err)
		committed, err := s.Store([]byte("committed"))
		require.NoError(t, err)
		require.NoError(t, s.Pin(committed))

		require.NoError(t, s.Release(staged))
		require.NoError(t, s.Release(committed))

		ok, err := s.Exists(staged)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = s.Get(staged)
		assert.ErrorIs(t, err, twigerrors.ErrObjectNotFound)

		content, err := s.Get(committed)
		require.NoError(t, err)
		assert.Equal(t, []byte("committed"), content)

		// Releasing something unknown is a no-op.
		assert.NoError(t, s.Release(staged))
	})

	t.Run("Pin unknown blob fails", func(t *testing.T) {
		err := s.Pin(SHA256([]byte("ghost")))
		assert.ErrorIs(t, err, twigerrors.ErrObjectNotFound)
	})
}
