package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// DefaultPermalinkPrefix is the path prefix of placename permanent links.
const DefaultPermalinkPrefix = "/dico-topo/placenames/"

type Config struct {
	Explorer ExplorerConfig `toml:"explorer"`
	Backend  BackendConfig  `toml:"backend"`
	Web      WebConfig      `toml:"web"`
}

// ExplorerConfig holds the values the host page used to inject into the
// widget. Missing values disable the matching feature.
type ExplorerConfig struct {
	PlacenameEndpoint string `toml:"placename_endpoint"`
	EnableMap         Flag   `toml:"enable_map"`
	EnableCard        Flag   `toml:"enable_card"`
	PermalinkPrefix   string `toml:"permalink_prefix"`
	TrustDescriptions bool   `toml:"trust_descriptions"`
}

type BackendConfig struct {
	SearchEndpoint    string   `toml:"search_endpoint"`
	PageSize          int      `toml:"page_size"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

type WebConfig struct {
	Host       string   `toml:"host"`
	Port       string   `toml:"port"`
	SessionTTL Duration `toml:"session_ttl"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Flag is a boolean-ish feature switch. Anything that is not recognised as
// true leaves the feature disabled.
type Flag bool

func (f Flag) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(f))), nil
}

func (f *Flag) UnmarshalText(text []byte) error {
	*f = Flag(ParseFlag(string(text)))
	return nil
}

// ParseFlag interprets host-provided switch values.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Explorer.PermalinkPrefix == "" {
		c.Explorer.PermalinkPrefix = DefaultPermalinkPrefix
	}
	if c.Backend.PageSize <= 0 {
		c.Backend.PageSize = 200
	}
	if c.Backend.Timeout.Duration == 0 {
		c.Backend.Timeout = Duration{10 * time.Second}
	}
	if c.Web.Host == "" {
		c.Web.Host = "localhost"
	}
	if c.Web.Port == "" {
		c.Web.Port = "8080"
	}
	if c.Web.SessionTTL.Duration == 0 {
		c.Web.SessionTTL = Duration{30 * time.Minute}
	}
}

// LoadConfig reads the TOML file at configPath. A missing file yields the
// defaults, where both the map and the placename card are disabled.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Environment variables overriding the file.
const (
	EnvPlacenameEndpoint = "DICOTOPO_PLACENAME_ENDPOINT"
	EnvEnableMap         = "DICOTOPO_ENABLE_MAP"
	EnvEnableCard        = "DICOTOPO_ENABLE_CARD"
	EnvSearchEndpoint    = "DICOTOPO_SEARCH_ENDPOINT"
	EnvHost              = "DICOTOPO_HOST"
	EnvPort              = "DICOTOPO_PORT"
)

// LoadDotEnv loads variables from a dotenv file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values with the DICOTOPO_* variables
// found through lookup (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPlacenameEndpoint); ok {
		c.Explorer.PlacenameEndpoint = v
	}
	if v, ok := lookup(EnvEnableMap); ok {
		c.Explorer.EnableMap = Flag(ParseFlag(v))
	}
	if v, ok := lookup(EnvEnableCard); ok {
		c.Explorer.EnableCard = Flag(ParseFlag(v))
	}
	if v, ok := lookup(EnvSearchEndpoint); ok {
		c.Backend.SearchEndpoint = v
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Web.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		c.Web.Port = v
	}
}

// Settings returns the explorer settings read once by every new session.
func (c *Config) Settings() explorer.Settings {
	return explorer.Settings{
		PlacenameEndpoint: c.Explorer.PlacenameEndpoint,
		MapEnabled:        bool(c.Explorer.EnableMap),
		CardEnabled:       bool(c.Explorer.EnableCard),
	}
}

// Addr is the listen address of the web server.
func (c *Config) Addr() string {
	return c.Web.Host + ":" + c.Web.Port
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetConfigDir returns the configuration directory for dicotopo
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "dicotopo"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
