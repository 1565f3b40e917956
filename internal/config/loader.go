package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "galley.toml"

	// AppDir is the subdirectory used under the XDG config and data homes.
	AppDir = "galley"
)

// ErrNotFound is returned when no configuration file exists and defaults
// were not requested.
var ErrNotFound = errors.New("no configuration file found")

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load resolves the configuration file and parses it. The explicit path wins
// when given; otherwise the XDG location and then ./galley.toml are tried.
// When nothing exists and createDefault is set, the defaults are written to
// the first writable candidate and returned.
//
// The returned string is the path the configuration came from, empty when
// the defaults could not be persisted.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := LoadFile(explicitPath)
		if err != nil {
			return nil, "", &LoadError{Path: explicitPath, Err: err}
		}
		return cfg, explicitPath, nil
	}

	candidates := searchPaths()
	for _, path := range candidates {
		if !fileExists(path) {
			continue
		}
		cfg, err := LoadFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", fmt.Errorf("%w; searched: %s", ErrNotFound, strings.Join(candidates, ", "))
	}

	cfg := Default()
	for _, path := range candidates {
		if err := Save(cfg, path); err == nil {
			return cfg, path, nil
		}
	}
	return cfg, "", nil
}

// LoadFile reads one TOML file over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses TOML from r over the defaults. Keys that match no setting
// are rejected so typos do not silently fall back to a default.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

const fileHeader = `# Galley configuration
#
# Generated with default values. Edit as needed; unknown keys are rejected.

`

// Save writes a configuration to a TOML file, creating its directory.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(fileHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}
	return nil
}

// searchPaths lists config locations in precedence order.
func searchPaths() []string {
	var paths []string
	if p := xdgConfigPath(); p != "" {
		paths = append(paths, p)
	}
	return append(paths, filepath.Join(".", DefaultConfigFileName))
}

func xdgConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppDir, DefaultConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppDir, DefaultConfigFileName)
}

// dataHome returns $XDG_DATA_HOME/galley, or "" when no home is known.
func dataHome() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, AppDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ConfigPath returns the configuration file path that Load would use.
func ConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	candidates := searchPaths()
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return candidates[0]
}

// EnsureDataDir resolves the database path, placing relative paths under the
// XDG data home, and creates its directory.
func EnsureDataDir(cfg *Config) (string, error) {
	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		if home := dataHome(); home != "" {
			if err := os.MkdirAll(home, 0750); err == nil {
				return filepath.Join(home, dbPath), nil
			}
		}
		return dbPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return "", fmt.Errorf("creating database directory: %w", err)
	}
	return dbPath, nil
}

// EnsureLogDir creates the log directory. An empty log file disables file
// logging and yields "".
func EnsureLogDir(cfg *Config) (string, error) {
	logPath := cfg.Logging.File
	if logPath == "" {
		return "", nil
	}
	if dir := filepath.Dir(logPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("creating log directory: %w", err)
		}
	}
	return logPath, nil
}

// BackupDir returns, and creates, the directory for database backups.
func BackupDir(cfg *Config) (string, error) {
	var dir string
	switch {
	case filepath.IsAbs(cfg.Database.Path):
		dir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	case dataHome() != "":
		dir = filepath.Join(dataHome(), "backups")
	default:
		dir = "backups"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	return dir, nil
}
