package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/homenest/internal/db"
)

const defaultServerURL = "http://localhost:5000"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL      string  `yaml:"server_url,omitempty"`
	IdentityURL    string  `yaml:"identity_url,omitempty"`
	TokenURL       string  `yaml:"token_url,omitempty"`
	IdentityAPIKey string  `yaml:"identity_api_key,omitempty"`
	DBPath         string  `yaml:"db_path,omitempty"`
	RateLimit      float64 `yaml:"rate_limit,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hn", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// settings is the effective configuration after applying, in order of
// precedence, flags, HN_* environment variables, the config file and
// defaults.
type settings struct {
	CLIConfig
	DevMode bool
}

func loadSettings() (settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return settings{}, err
	}
	s := settings{CLIConfig: cfg}

	envOverride(&s.ServerURL, "HN_SERVER_URL")
	envOverride(&s.IdentityURL, "HN_IDENTITY_URL")
	envOverride(&s.TokenURL, "HN_TOKEN_URL")
	envOverride(&s.IdentityAPIKey, "HN_IDENTITY_API_KEY")
	envOverride(&s.DBPath, "HN_DB")
	if v := os.Getenv("HN_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return settings{}, fmt.Errorf("invalid HN_RATE_LIMIT %q: %w", v, err)
		}
		s.RateLimit = rps
	}
	s.DevMode = flagDev || os.Getenv("HN_DEV_MODE") == "true"

	if flagDB != "" {
		s.DBPath = flagDB
	}
	if s.ServerURL == "" {
		s.ServerURL = defaultServerURL
	}
	if s.DBPath == "" {
		s.DBPath, err = db.DefaultPath()
		if err != nil {
			return settings{}, err
		}
	}
	return s, nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
