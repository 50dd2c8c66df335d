package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataassist/internal/derr"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		// Neutralize any ambient credentials so the comparison is stable.
		for _, name := range []string{"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "SMARTSHEET_API_KEY", "DATA_AUTH_TOKEN", "DATA_DB"} {
			t.Setenv(name, "")
		}

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
llm:
  primary:
    model: claude-opus-4
    timeout: 60s
history:
  action_turns: 3
server:
  addr: 127.0.0.1:9999
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "claude-opus-4", cfg.LLM.Primary.Model)
		assert.Equal(t, 60*time.Second, cfg.PrimaryTimeout())
		assert.Equal(t, 3, cfg.History.ActionTurns)
		assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
		// Unset fields keep their defaults.
		assert.Equal(t, 6, cfg.History.RecentTurns)
		assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Secondary.Model)
	})

	t.Run("env overrides win", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "env-primary")
		t.Setenv("GEMINI_API_KEY", "env-secondary")
		t.Setenv("SMARTSHEET_API_KEY", "env-sheet")
		t.Setenv("DATA_AUTH_TOKEN", "env-token")
		t.Setenv("DATA_DB", "/tmp/env.db")

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
llm:
  primary:
    api_key: file-key
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "env-primary", cfg.LLM.Primary.APIKey)
		assert.Equal(t, "env-secondary", cfg.LLM.Secondary.APIKey)
		assert.Equal(t, "env-sheet", cfg.Smartsheet.APIKey)
		assert.Equal(t, "env-token", cfg.Server.AuthToken)
		assert.Equal(t, "/tmp/env.db", cfg.Store.DatabasePath)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "SMARTSHEET_API_KEY", "DATA_AUTH_TOKEN", "DATA_DB"} {
		t.Setenv(name, "")
	}

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	want := DefaultConfig()
	want.LLM.Primary.Model = "claude-opus-4"
	want.Analyzer.UserAddress = "me@example.com"

	require.NoError(t, want.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.Primary.APIKey = "pk"
		cfg.LLM.Secondary.APIKey = "sk"
		return cfg
	}

	t.Run("complete config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing primary key", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.Primary.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, derr.IsConfiguration(err))
	})

	t.Run("missing secondary key", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.Secondary.APIKey = ""
		assert.True(t, derr.IsConfiguration(cfg.Validate()))
	})

	t.Run("bad history windows", func(t *testing.T) {
		cfg := valid()
		cfg.History.ActionTurns = 0
		assert.True(t, derr.IsConfiguration(cfg.Validate()))
	})
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 120*time.Second, cfg.PrimaryTimeout())
	assert.Equal(t, 7*24*time.Hour, cfg.SuggestionTTL())

	cfg.Analyzer.AttentionTTL = "garbage"
	assert.Equal(t, 72*time.Hour, cfg.AttentionTTL())
}
