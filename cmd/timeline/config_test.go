package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twitter "github.com/anatolykoptev/go-timeline"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accounts: "alice:secret"
db: /tmp/from-file.db
page_size: 40
recent_limit: 10
capsolver_api_key: CAP-file
`), 0o600))
	t.Setenv("TIMELINE_DB", "/tmp/from-env.db")
	t.Setenv("TIMELINE_RECENT_LIMIT", "15")
	t.Setenv("TIMELINE_CAPSOLVER_KEY", "CAP-env")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alice:secret", cfg.Accounts)
	assert.Equal(t, "/tmp/from-env.db", cfg.DB, "env overrides file")
	assert.Equal(t, 40, cfg.PageSize)
	assert.Equal(t, 15, cfg.RecentLimit)
	assert.Equal(t, "CAP-env", cfg.CapsolverKey)
	assert.NotEmpty(t, cfg.LogFile)
}

func TestLoadConfig_CapsolverKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capsolver_api_key: CAP-file\n"), 0o600))
	t.Setenv("TIMELINE_CAPSOLVER_KEY", "")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "CAP-file", cfg.CapsolverKey, "empty env does not override")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "timeline.db", filepath.Base(cfg.DB))
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TIMELINE_PROXY=socks5://127.0.0.1:1080\n"), 0o600))
	t.Setenv("TIMELINE_PROXY", "")
	require.NoError(t, os.Unsetenv("TIMELINE_PROXY"))

	cfg, err := loadConfig(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Proxy)
}

func TestApplyEnv_BadInt(t *testing.T) {
	var cfg config
	err := cfg.applyEnv(func(key string) (string, bool) {
		if key == "TIMELINE_PAGE_SIZE" {
			return "lots", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "TIMELINE_PAGE_SIZE")
}

func TestTermRenderer(t *testing.T) {
	var sb strings.Builder
	r := newTermRenderer(&sb)
	now := time.Date(2024, 1, 2, 15, 9, 5, 0, time.UTC)
	r.now = func() time.Time { return now }

	tw := twitter.Tweet{
		ID:        7,
		Body:      "hello\nworld",
		CreatedAt: "Tue Jan 02 15:04:05 +0000 2024",
		User:      twitter.User{Name: "Alice", ScreenName: "alice"},
	}
	r.DataSetChanged([]twitter.Tweet{tw})
	r.ItemInserted(0, []twitter.Tweet{tw})
	r.RefreshDone()

	out := sb.String()
	assert.Contains(t, out, "1 tweets")
	assert.Contains(t, out, "5m   Alice (@alice) · 7")
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "refreshed")
}
