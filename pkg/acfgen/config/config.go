package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// SteamCMDConfig locates and drives the SteamCMD installation.
type SteamCMDConfig struct {
	// Command is the executable and leading arguments, e.g. "wine steamcmd.exe".
	Command      string   `mapstructure:"command"`
	InstallDir   string   `mapstructure:"install_dir"`
	ReferenceApp string   `mapstructure:"reference_app"`
	CacheDirs    []string `mapstructure:"cache_dirs"`
}

// OutputConfig controls manifest generation.
type OutputConfig struct {
	SteamappsDir string `mapstructure:"steamapps_dir"`
	Platform     string `mapstructure:"platform"`
	Branch       string `mapstructure:"branch"`
	Workers      int    `mapstructure:"workers"`
}

// DiagnosticsConfig controls capture of raw SteamCMD output.
type DiagnosticsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
}

// HistoryConfig controls the generation history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config represents the application configuration.
type Config struct {
	SteamCMD    SteamCMDConfig    `mapstructure:"steamcmd"`
	Output      OutputConfig      `mapstructure:"output"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	History     HistoryConfig     `mapstructure:"history"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/acfgen/config.yaml
//   - $HOME/.config/acfgen/config.yaml
//
// Environment variables are prefixed with ACFGEN_ (e.g., ACFGEN_OUTPUT_PLATFORM).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading path instead of searching
// the default locations when path is not empty. A missing explicit file is
// an error.
func LoadFile(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{
		&cfg.SteamCMD.InstallDir,
		&cfg.Output.SteamappsDir,
		&cfg.Diagnostics.Dir,
		&cfg.History.Path,
		&cfg.Logging.Path,
	} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate reports settings that cannot drive a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SteamCMD.Command) == "" {
		return errors.New("steamcmd.command must not be empty")
	}
	if c.Output.Workers < 1 {
		return fmt.Errorf("output.workers must be at least 1, got %d", c.Output.Workers)
	}
	if c.Output.Platform == "" {
		return errors.New("output.platform must not be empty")
	}
	if _, err := c.Logging.Rotation.Bytes(); err != nil {
		return fmt.Errorf("logging.rotation.max_size: %w", err)
	}
	return nil
}

// Bytes parses MaxSize. Empty yields 0, which selects the writer default.
func (r RotationConfig) Bytes() (int64, error) {
	if strings.TrimSpace(r.MaxSize) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(r.MaxSize)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// LoggingSetup converts the logging section into a logging.Config writing
// to the console at consoleLevel. An empty consoleLevel disables the console.
func (c *Config) LoggingSetup(consoleLevel string) (logging.Config, error) {
	maxSize, err := c.Logging.Rotation.Bytes()
	if err != nil {
		return logging.Config{}, fmt.Errorf("parsing logging.rotation.max_size: %w", err)
	}
	return logging.Config{
		Level: c.Logging.Level,
		Path:  c.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     c.Logging.Rotation.MaxAge,
			MaxBackups: c.Logging.Rotation.MaxBackups,
			Daily:      c.Logging.Rotation.Daily,
		},
		Components:   c.Logging.Components,
		ConsoleLevel: consoleLevel,
	}, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "acfgen"))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "acfgen"))

	v.SetEnvPrefix("ACFGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("steamcmd.command", DefaultCommand)
	v.SetDefault("steamcmd.install_dir", "")
	v.SetDefault("steamcmd.reference_app", DefaultReferenceApp)
	v.SetDefault("steamcmd.cache_dirs", DefaultCacheDirs)

	v.SetDefault("output.steamapps_dir", DefaultSteamappsDir)
	v.SetDefault("output.platform", DefaultPlatform)
	v.SetDefault("output.branch", DefaultBranch)
	v.SetDefault("output.workers", DefaultWorkers)

	v.SetDefault("diagnostics.enabled", false)
	v.SetDefault("diagnostics.dir", DefaultDiagnosticsDir())
	v.SetDefault("diagnostics.compress", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"steamcmd":  "info",
		"generator": "info",
		"history":   "warn",
	})

	return v, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "acfgen"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "acfgen"), nil
}

// ConfigPath returns the path of the YAML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	content := fmt.Sprintf(`# acfgen configuration

steamcmd:
  # SteamCMD command line; may include a wrapper, e.g. "wine steamcmd.exe"
  command: %s
  # SteamCMD installation directory, used as the working directory.
  # Empty means the directory holding the command; required with a wrapper.
  install_dir: ""
  # App updated by the priming pass to let the info cache fill
  reference_app: "%s"
  # Directories under install_dir cleared before each run
  cache_dirs:
    - appcache

output:
  # Steam library steamapps directory receiving appmanifest_<id>.acf files
  steamapps_dir: %s
  # Target platform for depot OS filtering
  platform: %s
  # Branch whose build id and depot manifests are used
  branch: %s
  # Parallel manifest writers
  workers: %d

diagnostics:
  # Save raw SteamCMD output per app for troubleshooting
  enabled: false
  dir: %s
  # Compress captures with xz
  compress: true

history:
  enabled: true
  path: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/acfgen/acfgen.log)
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    steamcmd: info
    generator: info
    history: warn
`, DefaultCommand, DefaultReferenceApp, DefaultSteamappsDir, DefaultPlatform, DefaultBranch,
		DefaultWorkers, DefaultDiagnosticsDir(), DefaultHistoryPath(), DefaultLogMaxSize)

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/acfgen/ for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "acfgen")
}

// StateDir returns $XDG_STATE_HOME/acfgen/ for logs and diagnostics.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "acfgen")
}

// DefaultHistoryPath returns the default history database directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultDiagnosticsDir returns the default directory for raw output captures.
func DefaultDiagnosticsDir() string {
	return filepath.Join(StateDir(), "diagnostics")
}
