// internal/object/commit.go
package object

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"twig/internal/safe"
)

const RootMessage = "initial commit"

// Commit is an immutable snapshot. Hash is derived from every other field.
type Commit struct {
	Hash         string            `json:"hash"`
	Message      string            `json:"message"`
	Timestamp    time.Time         `json:"timestamp"`
	Parent       string            `json:"parent,omitempty"`
	SecondParent string            `json:"second_parent,omitempty"`
	Files        map[string]string `json:"files"` // path -> blob digest
}

func (c *Commit) GetID() string { return c.Hash }

// canonical is the hashed form of a commit. encoding/json writes map keys
// in sorted order, so equal commits always serialize to equal bytes.
type canonical struct {
	Message      string            `json:"message"`
	Timestamp    string            `json:"timestamp"`
	Parent       string            `json:"parent"`
	SecondParent string            `json:"second_parent"`
	Files        map[string]string `json:"files"`
}

// Serialize returns the bytes the commit digest is computed from.
func (c *Commit) Serialize() ([]byte, error) {
	files := c.Files
	if files == nil {
		files = map[string]string{}
	}
	data, err := json.Marshal(canonical{
		Message:      c.Message,
		Timestamp:    c.Timestamp.UTC().Format(time.RFC3339Nano),
		Parent:       c.Parent,
		SecondParent: c.SecondParent,
		Files:        files,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing commit: %w", err)
	}
	return data, nil
}

// Seal computes and sets Hash.
func (c *Commit) Seal(hash safe.Hasher) error {
	data, err := c.Serialize()
	if err != nil {
		return err
	}
	c.Hash = hash(data)
	return nil
}

func (c *Commit) IsMerge() bool { return c.SecondParent != "" }

// Paths returns the file map keys in sorted order.
func (c *Commit) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for p := range c.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Blobs returns the distinct blob digests the commit references.
func (c *Commit) Blobs() []string {
	seen := make(map[string]struct{}, len(c.Files))
	var blobs []string
	for _, p := range c.Paths() {
		d := c.Files[p]
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		blobs = append(blobs, d)
	}
	return blobs
}

// NewRoot builds the parentless first commit of every repository.
func NewRoot() *Commit {
	return &Commit{
		Message:   RootMessage,
		Timestamp: time.Unix(0, 0).UTC(),
		Files:     map[string]string{},
	}
}

// NewChild starts from parent's file map, overlays staged and drops removed.
func NewChild(parent *Commit, message string, staged map[string]string, removed []string, at time.Time) *Commit {
	files := make(map[string]string, len(parent.Files)+len(staged))
	for p, d := range parent.Files {
		files[p] = d
	}
	for p, d := range staged {
		files[p] = d
	}
	for _, p := range removed {
		delete(files, p)
	}
	return &Commit{
		Message:   message,
		Timestamp: at.UTC(),
		Parent:    parent.Hash,
		Files:     files,
	}
}
