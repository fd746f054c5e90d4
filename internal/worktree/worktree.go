// internal/worktree/worktree.go
package worktree

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	twigerrors "twig/internal/errors"
	"twig/internal/safe"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
)

// IgnoreFile holds extra gitignore-style patterns at the tree root.
const IgnoreFile = ".twigignore"

// BlobSource supplies file contents by digest.
type BlobSource interface {
	Get(digest string) ([]byte, error)
}

// Pending is anything that can report whether changes await a commit.
type Pending interface {
	Empty() bool
}

// Tree is the working directory of a repository.
type Tree struct {
	fs     billy.Filesystem
	ignore gitignore.Matcher
	hash   safe.Hasher
	logger *zap.Logger
}

type Options struct {
	Ignore []string // gitignore syntax, in addition to IgnoreFile
	Hasher safe.Hasher
	Logger *zap.Logger
}

func New(fs billy.Filesystem, opts Options) (*Tree, error) {
	if opts.Hasher == nil {
		opts.Hasher = safe.SHA256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	t := &Tree{fs: fs, hash: opts.Hasher, logger: opts.Logger}

	lines := append([]string(nil), opts.Ignore...)
	extra, err := t.readIgnoreFile()
	if err != nil {
		return nil, err
	}
	lines = append(lines, extra...)

	patterns := make([]gitignore.Pattern, 0, len(lines))
	for _, line := range lines {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	t.ignore = gitignore.NewMatcher(patterns)
	return t, nil
}

// FindRoot walks up from startDir to the directory holding marker.
func FindRoot(startDir, marker string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", twigerrors.NotARepository()
}

func (t *Tree) readIgnoreFile() ([]string, error) {
	data, err := t.Read(IgnoreFile)
	if errors.Is(err, twigerrors.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Ignored reports whether p matches an ignore pattern.
func (t *Tree) Ignored(p string, isDir bool) bool {
	return t.ignore.Match(strings.Split(p, "/"), isDir)
}

// Hash returns the digest of the working copy of p.
func (t *Tree) Hash(p string) (string, error) {
	content, err := t.Read(p)
	if err != nil {
		return "", err
	}
	return t.hash(content), nil
}

func (t *Tree) Read(p string) ([]byte, error) {
	f, err := t.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, twigerrors.FileNotFound(p)
		}
		return nil, twigerrors.StorageIOFailure("opening "+p, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, twigerrors.StorageIOFailure("reading "+p, err)
	}
	return content, nil
}

func (t *Tree) Write(p string, content []byte) error {
	if dir := path.Dir(p); dir != "." {
		if err := t.fs.MkdirAll(dir, 0755); err != nil {
			return twigerrors.StorageIOFailure("creating "+dir, err)
		}
	}
	if err := util.WriteFile(t.fs, p, content, 0644); err != nil {
		return twigerrors.StorageIOFailure("writing "+p, err)
	}
	return nil
}

// Remove deletes p. A missing file is not an error.
func (t *Tree) Remove(p string) error {
	if err := t.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return twigerrors.StorageIOFailure("removing "+p, err)
	}
	return nil
}

func (t *Tree) Exists(p string) bool {
	info, err := t.fs.Stat(p)
	return err == nil && !info.IsDir()
}

// Files lists every non-ignored regular file, sorted, with slash-separated
// paths relative to the tree root.
func (t *Tree) Files() ([]string, error) {
	var files []string
	err := util.Walk(t.fs, "/", func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if rel == "" {
			return nil
		}
		if t.Ignored(rel, fi.IsDir()) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.Mode().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, twigerrors.StorageIOFailure("walking working tree", err)
	}
	sort.Strings(files)
	return files, nil
}

// Untracked lists working files that isTracked does not claim.
func (t *Tree) Untracked(isTracked func(string) bool) ([]string, error) {
	files, err := t.Files()
	if err != nil {
		return nil, err
	}
	var untracked []string
	for _, f := range files {
		if !isTracked(f) {
			untracked = append(untracked, f)
		}
	}
	return untracked, nil
}

// UntrackedConflicts lists untracked working files that writing candidate
// would overwrite, sorted. Ignored files are not untracked and never block.
func (t *Tree) UntrackedConflicts(isTracked func(string) bool, candidate map[string]string) []string {
	var conflicts []string
	for p := range candidate {
		if isTracked(p) || t.Ignored(p, false) {
			continue
		}
		if t.Exists(p) {
			conflicts = append(conflicts, p)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}

// GuardUntracked fails with WouldOverwriteUntracked before anything is
// written.
func (t *Tree) GuardUntracked(isTracked func(string) bool, candidate map[string]string) error {
	if conflicts := t.UntrackedConflicts(isTracked, candidate); len(conflicts) > 0 {
		return twigerrors.WouldOverwriteUntracked(conflicts)
	}
	return nil
}

func PendingChangesGuard(p Pending) error {
	if !p.Empty() {
		return twigerrors.UncommittedChanges()
	}
	return nil
}

// Materialize writes every file of files with its blob's bytes.
func (t *Tree) Materialize(files map[string]string, blobs BlobSource) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		content, err := blobs.Get(files[p])
		if err != nil {
			return fmt.Errorf("materializing %s: %w", p, err)
		}
		if err := t.Write(p, content); err != nil {
			return err
		}
	}
	t.logger.Debug("materialized files", zap.Int("count", len(paths)))
	return nil
}

// PruneTrackedNotIn deletes tracked working files absent from files and
// returns the deleted paths.
func (t *Tree) PruneTrackedNotIn(tracked []string, files map[string]string) ([]string, error) {
	var pruned []string
	for _, p := range tracked {
		if _, keep := files[p]; keep {
			continue
		}
		if err := t.Remove(p); err != nil {
			return pruned, err
		}
		pruned = append(pruned, p)
	}
	return pruned, nil
}

// Change is a tracked file whose working copy differs from what would be
// committed.
type Change struct {
	Path    string
	Deleted bool
}

// Modified finds changes not staged for commit: files differing from their
// staged version, unstaged files differing from head, and staged or head
// files deleted without being marked removed.
func (t *Tree) Modified(head, staged map[string]string, isRemoved func(string) bool) ([]Change, error) {
	seen := make(map[string]struct{}, len(head)+len(staged))
	var paths []string
	for _, m := range []map[string]string{head, staged} {
		for p := range m {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var changes []Change
	for _, p := range paths {
		if isRemoved(p) {
			continue
		}
		if !t.Exists(p) {
			changes = append(changes, Change{Path: p, Deleted: true})
			continue
		}
		current, err := t.Hash(p)
		if err != nil {
			return nil, err
		}
		want, ok := staged[p]
		if !ok {
			want = head[p]
		}
		if current != want {
			changes = append(changes, Change{Path: p})
		}
	}
	return changes, nil
}
