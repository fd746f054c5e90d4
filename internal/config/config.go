// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// MergeBase strategies accepted in Config.MergeBase.
const (
	MergeBaseFirstParent = "first-parent"
	MergeBaseDAG         = "dag"
)

type Config struct {
	LogLevel        string   `json:"log_level"`         // debug, info, warn, error
	MinPrefixLength int      `json:"min_prefix_length"` // shortest accepted commit id prefix
	CacheSize       int      `json:"cache_size"`        // lru entries for blobs and commits
	MergeBase       string   `json:"merge_base"`        // first-parent, dag
	Ignore          []string `json:"ignore"`            // gitignore syntax
}

func Default() *Config {
	return &Config{
		LogLevel:        "warn",
		MinPrefixLength: 6,
		CacheSize:       256,
		MergeBase:       MergeBaseFirstParent,
		Ignore:          []string{".twig", ".git", ".DS_Store"},
	}
}

// Load reads the JSON config at path. A missing file yields Default();
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.applyEnv()
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.MinPrefixLength < 1 {
		return fmt.Errorf("min_prefix_length must be positive, got %d", c.MinPrefixLength)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	switch c.MergeBase {
	case MergeBaseFirstParent, MergeBaseDAG:
	default:
		return fmt.Errorf("unknown merge_base %q", c.MergeBase)
	}
	return nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("TWIG_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
