// internal/repo/repo.go
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twig/internal/config"
	twigerrors "twig/internal/errors"
	"twig/internal/index"
	"twig/internal/object"
	"twig/internal/refs"
	"twig/internal/safe"
	"twig/internal/storage"
	"twig/internal/worktree"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
)

const (
	MarkerDir  = ".twig"
	ConfigFile = "config.json"
	dbDir      = "db"
	objectsDir = "objects"
)

// Repository is one invocation's view of a repository: the stores, the
// working tree, and the index and branch table loaded once and written back
// together by save.
type Repository struct {
	Root    string
	Config  *config.Config
	DB      *badger.DB
	Blobs   *safe.Safe
	Commits *object.Store
	Tree    *worktree.Tree
	Index   *index.Index
	Refs    *refs.Table
	Logger  *zap.Logger

	indexStore *index.Store
	refStore   *refs.Store
	now        func() time.Time
}

// Options wires a Repository from already opened parts. Init and Open fill
// it from disk; tests use memfs and an in-memory database.
type Options struct {
	Root     string
	Worktree billy.Filesystem
	Objects  billy.Filesystem
	DB       *badger.DB
	Config   *config.Config
	Logger   *zap.Logger
}

func New(opts Options) (*Repository, error) {
	if opts.DB == nil || opts.Worktree == nil || opts.Objects == nil {
		return nil, fmt.Errorf("database, worktree and objects filesystem are required")
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.Config

	blobs, err := safe.New(opts.DB, safe.Options{
		Filesystem: opts.Objects,
		CacheSize:  cfg.CacheSize,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing content safe: %w", err)
	}

	commits, err := object.NewStore(opts.DB, object.Options{
		CacheSize:       cfg.CacheSize,
		MinPrefixLength: cfg.MinPrefixLength,
		Logger:          opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing commit store: %w", err)
	}

	tree, err := worktree.New(opts.Worktree, worktree.Options{
		Ignore: cfg.Ignore,
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing working tree: %w", err)
	}

	return &Repository{
		Root:       opts.Root,
		Config:     cfg,
		DB:         opts.DB,
		Blobs:      blobs,
		Commits:    commits,
		Tree:       tree,
		Logger:     opts.Logger,
		indexStore: index.NewStore(opts.DB),
		refStore:   refs.NewStore(opts.DB),
		now:        time.Now,
	}, nil
}

// Create writes the root commit and the default branch into a fresh
// repository.
func Create(opts Options) (*Repository, error) {
	r, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := r.refStore.Load(); err == nil {
		return nil, twigerrors.AlreadyInitialized(r.Root)
	}

	root := object.NewRoot()
	hash, err := r.Commits.Put(root)
	if err != nil {
		return nil, err
	}
	r.Index = index.New()
	r.Refs = refs.NewTable(hash)
	if err := r.save(); err != nil {
		return nil, err
	}

	r.Logger.Info("initialized repository", zap.String("root", r.Root), zap.String("head", hash))
	return r, nil
}

// Load reads the index and branch table of an existing repository.
func Load(opts Options) (*Repository, error) {
	r, err := New(opts)
	if err != nil {
		return nil, err
	}
	if r.Refs, err = r.refStore.Load(); err != nil {
		return nil, err
	}
	if r.Index, err = r.indexStore.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Init creates a repository rooted at root.
func Init(root string, logger *zap.Logger) (*Repository, error) {
	marker := filepath.Join(root, MarkerDir)
	if _, err := os.Stat(marker); err == nil {
		return nil, twigerrors.AlreadyInitialized(root)
	}
	if err := os.MkdirAll(filepath.Join(marker, objectsDir), 0755); err != nil {
		return nil, twigerrors.StorageIOFailure("creating "+MarkerDir, err)
	}

	cfg := config.Default()
	if err := cfg.Save(filepath.Join(marker, ConfigFile)); err != nil {
		return nil, twigerrors.StorageIOFailure("writing config", err)
	}

	db, err := storage.Open(filepath.Join(marker, dbDir))
	if err != nil {
		return nil, twigerrors.StorageIOFailure("opening database", err)
	}

	r, err := Create(diskOptions(root, db, cfg, logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Open opens the repository rooted at root. The badger directory lock is
// held until Close, so concurrent invocations fail here.
func Open(root string, cfg *config.Config, logger *zap.Logger) (*Repository, error) {
	marker := filepath.Join(root, MarkerDir)
	if info, err := os.Stat(marker); err != nil || !info.IsDir() {
		return nil, twigerrors.NotARepository()
	}
	if cfg == nil {
		var err error
		if cfg, err = config.Load(filepath.Join(marker, ConfigFile)); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	db, err := storage.Open(filepath.Join(marker, dbDir))
	if err != nil {
		return nil, twigerrors.StorageIOFailure("opening database", err)
	}

	r, err := Load(diskOptions(root, db, cfg, logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func diskOptions(root string, db *badger.DB, cfg *config.Config, logger *zap.Logger) Options {
	return Options{
		Root:     root,
		Worktree: osfs.New(root),
		Objects:  osfs.New(filepath.Join(root, MarkerDir, objectsDir)),
		DB:       db,
		Config:   cfg,
		Logger:   logger,
	}
}

// Close releases the database and its directory lock.
func (r *Repository) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Rel turns a path given relative to dir into a slash-separated path
// relative to the repository root.
func (r *Repository) Rel(dir, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	rel, err := filepath.Rel(r.Root, p)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the repository", p)
	}
	return rel, nil
}

// save writes the index and the branch table in one transaction.
func (r *Repository) save() error {
	err := r.DB.Update(func(txn *badger.Txn) error {
		if err := r.indexStore.SaveIn(txn, r.Index); err != nil {
			return err
		}
		return r.refStore.SaveIn(txn, r.Refs)
	})
	if err != nil {
		return twigerrors.StorageIOFailure("saving repository state", err)
	}
	return nil
}

// Head returns the commit the current branch points at.
func (r *Repository) Head() (*object.Commit, error) {
	return r.Commits.Get(r.Refs.CurrentHead())
}

func (r *Repository) isTracked(p string) bool {
	return r.Index.IsTracked(p) || r.Index.IsStaged(p)
}

// release drops a staged blob nothing else in the index refers to.
func (r *Repository) release(digest string) error {
	if digest == "" || r.Index.References(digest, "") {
		return nil
	}
	return r.Blobs.Release(digest)
}

// advance stores c, pins its blobs, moves the current branch to it and
// clears staging.
func (r *Repository) advance(c *object.Commit) (string, error) {
	hash, err := r.Commits.Put(c)
	if err != nil {
		return "", err
	}
	if err := r.Blobs.Pin(c.Blobs()...); err != nil {
		return "", err
	}
	r.Refs.SetHead(hash)
	r.Index.Clear()
	if err := r.save(); err != nil {
		return "", err
	}
	return hash, nil
}
