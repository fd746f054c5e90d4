// internal/safe/safe.go
package safe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	twigerrors "twig/internal/errors"
	"twig/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Hasher turns bytes into a fixed-length lowercase hex digest.
type Hasher func(content []byte) string

func SHA256(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// ContentMeta stores metadata about stored content
type ContentMeta struct {
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	Pinned    bool      `json:"pinned"` // referenced by at least one commit
	CreatedAt time.Time `json:"created_at"`
}

func (m *ContentMeta) GetID() string { return m.Hash }

// Safe is the content-addressed blob store. Bytes live in files under the
// objects filesystem, fanned out by the first two digest characters;
// metadata lives in badger.
type Safe struct {
	fs     billy.Filesystem
	meta   *storage.BadgerStore
	cache  *lru.Cache[string, []byte]
	hash   Hasher
	logger *zap.Logger
}

// Options configures Safe behavior
type Options struct {
	Filesystem billy.Filesystem // objects directory
	CacheSize  int              // Number of items to cache
	Hasher     Hasher
	Logger     *zap.Logger
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Filesystem == nil {
		return nil, fmt.Errorf("objects filesystem is required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Hasher == nil {
		opts.Hasher = SHA256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Safe{
		fs:     opts.Filesystem,
		meta:   storage.NewBadgerStore(db, "blob"),
		cache:  cache,
		hash:   opts.Hasher,
		logger: opts.Logger,
	}, nil
}

// Hash returns the digest content would be stored under.
func (s *Safe) Hash(content []byte) string {
	return s.hash(content)
}

// Store saves content and returns its hash. Storing bytes that are already
// present is a no-op.
func (s *Safe) Store(content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}

	hash := s.hash(content)

	exists, err := s.Exists(hash)
	if err != nil {
		return "", fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return hash, nil
	}

	contentPath := s.contentPath(hash)
	if err := s.fs.MkdirAll(path.Dir(contentPath), 0755); err != nil {
		return "", twigerrors.StorageIOFailure("creating content directory", err)
	}
	if err := util.WriteFile(s.fs, contentPath, content, 0644); err != nil {
		return "", twigerrors.StorageIOFailure("writing content file", err)
	}

	meta := &ContentMeta{
		Hash:      hash,
		Size:      int64(len(content)),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.meta.Create(meta); err != nil {
		// Cleanup on failure
		s.fs.Remove(contentPath)
		return "", twigerrors.StorageIOFailure("storing metadata", err)
	}

	s.cache.Add(hash, content)
	s.logger.Debug("stored blob", zap.String("hash", hash), zap.Int("size", len(content)))

	return hash, nil
}

// Get retrieves content by hash
func (s *Safe) Get(hash string) ([]byte, error) {
	if !s.isValidHash(hash) {
		return nil, twigerrors.ObjectNotFound(hash)
	}

	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	f, err := s.fs.Open(s.contentPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, twigerrors.ObjectNotFound(hash)
		}
		return nil, twigerrors.StorageIOFailure("opening content", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, twigerrors.StorageIOFailure("reading content", err)
	}

	if s.hash(content) != hash {
		return nil, twigerrors.StorageIOFailure("verifying content", fmt.Errorf("hash mismatch for %s", hash))
	}

	s.cache.Add(hash, content)
	return content, nil
}

// Exists checks if content exists
func (s *Safe) Exists(hash string) (bool, error) {
	if !s.isValidHash(hash) {
		return false, nil
	}
	if s.cache.Contains(hash) {
		return true, nil
	}
	return s.meta.Has(hash)
}

// Pin marks blobs as referenced by a commit. Pinned blobs are permanent.
func (s *Safe) Pin(hashes ...string) error {
	return s.meta.DB().Update(func(txn *badger.Txn) error {
		for _, hash := range hashes {
			meta, err := s.getMetaIn(txn, hash)
			if err != nil {
				return fmt.Errorf("pinning %s: %w", hash, err)
			}
			if meta.Pinned {
				continue
			}
			meta.Pinned = true
			if err := s.meta.PutIn(txn, hash, meta); err != nil {
				return err
			}
		}
		return nil
	})
}

// Release deletes a blob that was only ever staged. Pinned or unknown
// blobs are left alone.
func (s *Safe) Release(hash string) error {
	var meta ContentMeta
	if err := s.meta.Get(hash, &meta); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if meta.Pinned {
		return nil
	}

	if err := s.fs.Remove(s.contentPath(hash)); err != nil && !os.IsNotExist(err) {
		return twigerrors.StorageIOFailure("removing content file", err)
	}
	if err := s.meta.Delete(hash); err != nil {
		return err
	}
	s.cache.Remove(hash)
	s.logger.Debug("released blob", zap.String("hash", hash))
	return nil
}

// Internal helper functions

func (s *Safe) contentPath(hash string) string {
	return path.Join(hash[:2], hash[2:])
}

func (s *Safe) isValidHash(hash string) bool {
	if len(hash) < 3 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func (s *Safe) getMetaIn(txn *badger.Txn, hash string) (*ContentMeta, error) {
	var meta ContentMeta
	if err := s.meta.GetIn(txn, hash, &meta); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, twigerrors.ObjectNotFound(hash)
		}
		return nil, err
	}
	return &meta, nil
}
