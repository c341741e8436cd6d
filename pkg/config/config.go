package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "REPO_STATUS"

// Config represents the application configuration
type Config struct {
	Repositories []Repository      `yaml:"repositories"`
	Git          GitConfig         `yaml:"git"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency"`
	Output       OutputConfig      `yaml:"output"`
	Logging      LogConfig         `yaml:"logging"`
}

// Repository is one tracked working copy
type Repository struct {
	Path  string `yaml:"path"`
	Fetch *bool  `yaml:"fetch,omitempty"` // nil means use git.fetch
}

// GitConfig contains settings for invoking Git
type GitConfig struct {
	Binary  string `yaml:"binary"`
	Fetch   bool   `yaml:"fetch"`   // default fetch switch for repositories without their own
	Timeout int    `yaml:"timeout"` // in seconds, 0 disables it
}

// ConcurrencyConfig contains settings for concurrency control
type ConcurrencyConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// OutputConfig contains settings for the report
type OutputConfig struct {
	Format    string `yaml:"format"` // terminal, json or markdown
	DirtyOnly bool   `yaml:"dirty_only"`
	NoColor   bool   `yaml:"no_color"`
}

// LogConfig contains settings for logging
type LogConfig struct {
	LogToFile   bool   `yaml:"log_to_file"`
	LogFilePath string `yaml:"log_file_path"`
	MaxSize     int    `yaml:"max_size"`    // maximum size in megabytes
	MaxBackups  int    `yaml:"max_backups"` // maximum number of old log files to retain
	MaxAge      int    `yaml:"max_age"`     // maximum number of days to retain old log files
	Compress    bool   `yaml:"compress"`    // compress determines if the rotated log files should be compressed
}

// UnmarshalYAML accepts either a bare path or a {path, fetch} mapping
func (r *Repository) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Path = value.Value
		r.Fetch = nil
		return nil
	}

	type plain Repository
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Path) == "" {
		return fmt.Errorf("line %d: repository entry without a path", value.Line)
	}
	*r = Repository(p)
	return nil
}

// FetchEnabled reports whether the repository should be fetched given the default switch
func (r Repository) FetchEnabled(defaultFetch bool) bool {
	if r.Fetch != nil {
		return *r.Fetch
	}
	return defaultFetch
}

// LoadDefault returns a configuration with default values
func LoadDefault() *Config {
	return &Config{
		Git: GitConfig{
			Binary:  "git",
			Fetch:   false,
			Timeout: 0,
		},
		Concurrency: ConcurrencyConfig{
			MaxWorkers: 4,
		},
		Output: OutputConfig{
			Format: "terminal",
		},
		Logging: LogConfig{
			LogToFile:   false,
			LogFilePath: "repo-status.log",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			Compress:    true,
		},
	}
}

// Default returns a configuration with default values
// This is an alias for LoadDefault for backward compatibility
func Default() *Config {
	return LoadDefault()
}

// DefaultPath returns the configuration file used when none is given
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "repo-status", "config.yaml")
	}
	return ".repo-status.yaml"
}

// Load reads configuration from a file and merges it with default values
func Load(configPath string) (*Config, error) {
	// Start with default configuration
	cfg := LoadDefault()

	// Read configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys present in the file replace the defaults, including false and zero values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Repositories are resolved relative to the config file
	baseDir := filepath.Dir(configPath)
	for i := range cfg.Repositories {
		cfg.Repositories[i].Path = ExpandPath(cfg.Repositories[i].Path, baseDir)
	}

	return cfg, nil
}

// LoadOrDefault attempts to load configuration from a file
// If the file doesn't exist or can't be parsed, it returns default configuration
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Only warn when the file exists but is broken
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
			fmt.Fprintf(os.Stderr, "Using default configuration\n")
		}
		cfg = LoadDefault()
	}
	return cfg
}

// envOverrides lists the settings that can be changed through the environment,
// e.g. REPO_STATUS_FETCH=true or REPO_STATUS_REPOSITORIES=~/src/a,~/src/b.
// Only prefixed names are read.
type envOverrides struct {
	Repositories []string `split_words:"true"`
	GitBinary    string   `split_words:"true"`
	Fetch        bool     `split_words:"true"`
	Timeout      int      `split_words:"true"`
	MaxWorkers   int      `split_words:"true"`
	Format       string   `split_words:"true"`
	LogFile      string   `split_words:"true"`
}

// ApplyEnv overrides cfg with the REPO_STATUS_* environment variables that are set
func ApplyEnv(cfg *Config) error {
	env := envOverrides{
		GitBinary:  cfg.Git.Binary,
		Fetch:      cfg.Git.Fetch,
		Timeout:    cfg.Git.Timeout,
		MaxWorkers: cfg.Concurrency.MaxWorkers,
		Format:     cfg.Output.Format,
		LogFile:    cfg.Logging.LogFilePath,
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if len(env.Repositories) > 0 {
		cfg.Repositories = nil
		for _, path := range env.Repositories {
			cfg.Repositories = append(cfg.Repositories, Repository{Path: ExpandPath(strings.TrimSpace(path), "")})
		}
	}
	cfg.Git.Binary = env.GitBinary
	cfg.Git.Fetch = env.Fetch
	cfg.Git.Timeout = env.Timeout
	cfg.Concurrency.MaxWorkers = env.MaxWorkers
	cfg.Output.Format = env.Format
	if env.LogFile != cfg.Logging.LogFilePath {
		cfg.Logging.LogFilePath = env.LogFile
		cfg.Logging.LogToFile = true
	}

	return nil
}

// ExpandPath expands a leading ~ and makes relative paths relative to baseDir
func ExpandPath(path, baseDir string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}
