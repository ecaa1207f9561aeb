package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, BackendGitHub, cfg.Store.Backend)
	assert.Equal(t, "https://api.github.com", cfg.Store.GitHub.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Store.GitHub.Timeout)
	assert.Equal(t, "kalendarz", cfg.Calendar.DefaultName)
	assert.Equal(t, "requests.json", cfg.Requests.Path)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "127.0.0.1:9000"
log:
  level: debug
  format: json
store:
  backend: bolt
  bolt:
    path: /var/lib/gitdoc/docs.db
  github:
    timeout: 5s
calendar:
  dir: calendars
  validate: true
requests:
  path: data/requests.json
auth:
  tokens:
    hr-app: s3cret
`), 0o600))

	v := viper.New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, BackendBolt, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/gitdoc/docs.db", cfg.Store.Bolt.Path)
	assert.Equal(t, 5*time.Second, cfg.Store.GitHub.Timeout)
	assert.Equal(t, "calendars", cfg.Calendar.Dir)
	assert.True(t, cfg.Calendar.Validate)
	assert.Equal(t, "data/requests.json", cfg.Requests.Path)
	assert.Equal(t, map[string]string{"hr-app": "s3cret"}, cfg.Auth.Tokens)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestReadFile_Missing(t *testing.T) {
	assert.Error(t, ReadFile(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")))

	// no explicit file and none found is not an error
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	assert.NoError(t, ReadFile(viper.New(), ""))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("REPO_OWNER", "acme")
	t.Setenv("GITDOC_STORE_GITHUB_REPO", "calendar-data")
	t.Setenv("GITDOC_CALENDAR_DIR", "cals")
	t.Setenv("GITDOC_STORE_GITHUB_TIMEOUT", "2s")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ghp_test", cfg.Store.GitHub.Token)
	assert.Equal(t, "acme", cfg.Store.GitHub.Owner)
	assert.Equal(t, "calendar-data", cfg.Store.GitHub.Repo)
	assert.Equal(t, "cals", cfg.Calendar.Dir)
	assert.Equal(t, 2*time.Second, cfg.Store.GitHub.Timeout)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(viper.New())
		require.NoError(t, err)
		cfg.Store.Backend = BackendMemory
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory", mutate: func(*Config) {}},
		{name: "git in memory", mutate: func(c *Config) { c.Store.Backend = BackendGit }},
		{
			name:    "github without token",
			mutate: func(c *Config) {
				c.Store.Backend = BackendGitHub
				c.Store.GitHub.Token = ""
				c.Store.GitHub.Owner = "o"
				c.Store.GitHub.Repo = "r"
			},
			wantErr: "GITHUB_TOKEN not configured",
		},
		{
			name:    "github without repo",
			mutate: func(c *Config) {
				c.Store.Backend = BackendGitHub
				c.Store.GitHub.Token = "t"
				c.Store.GitHub.Owner = ""
				c.Store.GitHub.Repo = ""
			},
			wantErr: "owner and store.github.repo are required",
		},
		{
			name:    "bolt without path",
			mutate:  func(c *Config) { c.Store.Backend = BackendBolt; c.Store.Bolt.Path = "" },
			wantErr: "store.bolt.path is required",
		},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "s3" }, wantErr: `unknown store backend "s3"`},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
