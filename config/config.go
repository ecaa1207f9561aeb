// Package config loads the daemon configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GITDOC"

// Store backends
const (
	BackendGitHub = "github"
	BackendGit    = "git"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

type Config struct {
	Listen string `mapstructure:"listen"`
	// AllowedOrigin is the CORS origin the API answers with
	AllowedOrigin string         `mapstructure:"allowed_origin"`
	Log           LogConfig      `mapstructure:"log"`
	Store         StoreConfig    `mapstructure:"store"`
	Calendar      CalendarConfig `mapstructure:"calendar"`
	Requests      RequestsConfig `mapstructure:"requests"`
	Auth          AuthConfig     `mapstructure:"auth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
	// File enables rotated file output when set
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type StoreConfig struct {
	Backend string       `mapstructure:"backend"`
	GitHub  GitHubConfig `mapstructure:"github"`
	Git     GitConfig    `mapstructure:"git"`
	Bolt    BoltConfig   `mapstructure:"bolt"`
}

type GitHubConfig struct {
	Token     string        `mapstructure:"token"`
	Owner     string        `mapstructure:"owner"`
	Repo      string        `mapstructure:"repo"`
	Branch    string        `mapstructure:"branch"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GitConfig struct {
	// Path of the worktree; empty keeps the repository in memory
	Path        string `mapstructure:"path"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

type BoltConfig struct {
	Path string `mapstructure:"path"`
}

type CalendarConfig struct {
	Dir           string `mapstructure:"dir"`
	DefaultName   string `mapstructure:"default_name"`
	ProductID     string `mapstructure:"prodid"`
	DisplayPrefix string `mapstructure:"display_prefix"`
	Validate      bool   `mapstructure:"validate"`
}

type RequestsConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	// Tokens maps client names to bearer tokens; empty disables auth
	Tokens map[string]string `mapstructure:"tokens"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("allowed_origin", "*")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("store.backend", BackendGitHub)
	v.SetDefault("store.github.token", "")
	v.SetDefault("store.github.owner", "")
	v.SetDefault("store.github.repo", "")
	v.SetDefault("store.github.branch", "")
	v.SetDefault("store.github.base_url", "https://api.github.com")
	v.SetDefault("store.github.user_agent", "libgitdoc")
	v.SetDefault("store.github.timeout", 30*time.Second)
	v.SetDefault("store.git.path", "")
	v.SetDefault("store.git.author_name", "libgitdoc")
	v.SetDefault("store.git.author_email", "libgitdoc@localhost")
	v.SetDefault("store.bolt.path", "gitdoc.db")

	v.SetDefault("calendar.dir", "")
	v.SetDefault("calendar.default_name", "kalendarz")
	v.SetDefault("calendar.prodid", "-//libgitdoc//EN")
	v.SetDefault("calendar.display_prefix", "Calendar")
	v.SetDefault("calendar.validate", false)

	v.SetDefault("requests.path", "requests.json")
}

// bindEnv wires the environment: GITDOC_<KEY> for every key, plus the plain
// names deployments of the contents-API handlers already set.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string][]string{
		"store.github.token":  {"GITDOC_STORE_GITHUB_TOKEN", "GITHUB_TOKEN"},
		"store.github.owner":  {"GITDOC_STORE_GITHUB_OWNER", "GITHUB_OWNER", "REPO_OWNER"},
		"store.github.repo":   {"GITDOC_STORE_GITHUB_REPO", "GITHUB_REPO", "REPO_NAME"},
		"store.github.branch": {"GITDOC_STORE_GITHUB_BRANCH", "GITHUB_BRANCH"},
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// ReadFile reads path into v. With an empty path, gitdoc.yaml is looked up in
// the working directory and $HOME/.config/gitdoc; not finding one is fine.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gitdoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gitdoc")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load applies defaults and environment bindings to v and decodes it.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backend is fully configured.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendGitHub:
		gh := c.Store.GitHub
		if gh.Token == "" {
			errs = append(errs, errors.New("GITHUB_TOKEN not configured"))
		}
		if gh.Owner == "" || gh.Repo == "" {
			errs = append(errs, errors.New("store.github.owner and store.github.repo are required"))
		}
	case BackendBolt:
		if c.Store.Bolt.Path == "" {
			errs = append(errs, errors.New("store.bolt.path is required"))
		}
	case BackendGit, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}
