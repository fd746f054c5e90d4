package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Setenv("TWIG_LOG_LEVEL", "")
		cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Setenv("TWIG_LOG_LEVEL", "")
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"min_prefix_length": 8, "merge_base": "dag"}`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.MinPrefixLength)
		assert.Equal(t, MergeBaseDAG, cfg.MergeBase)
		assert.Equal(t, 256, cfg.CacheSize)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("env overrides log level", func(t *testing.T) {
		t.Setenv("TWIG_LOG_LEVEL", "debug")
		cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("invalid merge base", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"merge_base": "octopus"}`), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("save round trip", func(t *testing.T) {
		t.Setenv("TWIG_LOG_LEVEL", "")
		path := filepath.Join(t.TempDir(), "config.json")
		cfg := Default()
		cfg.Ignore = append(cfg.Ignore, "*.log")
		require.NoError(t, cfg.Save(path))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})
}
