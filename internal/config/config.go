// Package config provides configuration management for controlnotes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultListenAddr      = "127.0.0.1:5000"
	DefaultModel           = "gemini-2.5-flash"
	DefaultSpreadsheetPath = "./Spreadsheet/ProjectTeamDescriptions.xlsx"
	DefaultDBPath          = "user_entries.db"
	DefaultDBDriver        = DriverSQLite
	DefaultMaxConns        = 4
	DefaultHistoryLimit    = 20
	DefaultLLMTimeout      = 60 * time.Second
)

// Supported history store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Setting keys. The same names are used in settings files and the environment.
const (
	KeyConfigPath     = "CONTROLNOTES_CONFIG"
	KeySpreadsheet    = "CONTROLNOTES_SPREADSHEET"
	KeyDBDriver       = "CONTROLNOTES_DB_DRIVER"
	KeyDBPath         = "CONTROLNOTES_DB_PATH"
	KeyDBDSN          = "CONTROLNOTES_DB_DSN"
	KeyMaxConns       = "CONTROLNOTES_MAX_CONNS"
	KeyListenAddr     = "CONTROLNOTES_LISTEN_ADDR"
	KeyModel          = "CONTROLNOTES_MODEL"
	KeyLLMTimeout     = "CONTROLNOTES_LLM_TIMEOUT"
	KeyStrictLookup   = "CONTROLNOTES_STRICT_LOOKUP"
	KeyHistoryLimit   = "CONTROLNOTES_HISTORY_LIMIT"
	KeyWatchCatalog   = "CONTROLNOTES_WATCH_CATALOG"
	KeyAllowedOrigins = "CONTROLNOTES_ALLOWED_ORIGINS"
	KeyAPIKey         = "AI_API_KEY"
)

// DotEnvFile is the dotenv file read from the working directory, if present.
const DotEnvFile = ".env"

// Config holds the runtime configuration.
type Config struct {
	SpreadsheetPath string
	DBDriver        string
	DBPath          string
	DBDSN           string
	ListenAddr      string
	Model           string
	APIKey          string
	AllowedOrigins  []string
	LLMTimeout      time.Duration
	MaxConns        int
	HistoryLimit    int
	StrictLookup    bool
	WatchCatalog    bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SpreadsheetPath: DefaultSpreadsheetPath,
		DBDriver:        DefaultDBDriver,
		DBPath:          DefaultDBPath,
		ListenAddr:      DefaultListenAddr,
		Model:           DefaultModel,
		AllowedOrigins:  []string{},
		LLMTimeout:      DefaultLLMTimeout,
		MaxConns:        DefaultMaxConns,
		HistoryLimit:    DefaultHistoryLimit,
		WatchCatalog:    true,
	}
}

// Load builds the configuration from defaults, the settings file at path,
// the .env file and the environment, in increasing order of precedence.
// An empty path falls back to $CONTROLNOTES_CONFIG. A missing or unreadable
// settings file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(KeyConfigPath)
	}
	if path != "" {
		settings, err := readSettings(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Str("path", path).Msg("Settings file not found, using defaults")
		case err != nil:
			log.Warn().Err(err).Str("path", path).Msg("Failed to parse settings file, using defaults")
		default:
			for key, value := range settings {
				cfg.apply(key, value)
			}
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", DotEnvFile).Msg("Failed to read dotenv file")
	}

	for _, key := range envKeys {
		if value, ok := os.LookupEnv(key); ok {
			cfg.apply(key, value)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envKeys = []string{
	KeySpreadsheet, KeyDBDriver, KeyDBPath, KeyDBDSN, KeyMaxConns,
	KeyListenAddr, KeyModel, KeyLLMTimeout, KeyStrictLookup, KeyHistoryLimit,
	KeyWatchCatalog, KeyAllowedOrigins, KeyAPIKey,
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%s must not be empty", KeyDBPath)
		}
	case DriverPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("%s is required for the %s driver", KeyDBDSN, DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported %s %q", KeyDBDriver, c.DBDriver)
	}
	return nil
}

// HasAPIKey reports whether the text-generation credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// apply sets a single key. Values that fail to parse keep the current value.
func (c *Config) apply(key, value string) {
	switch key {
	case KeySpreadsheet:
		c.SpreadsheetPath = value
	case KeyDBDriver:
		c.DBDriver = strings.ToLower(strings.TrimSpace(value))
	case KeyDBPath:
		c.DBPath = value
	case KeyDBDSN:
		c.DBDSN = value
	case KeyListenAddr:
		c.ListenAddr = value
	case KeyModel:
		if value != "" {
			c.Model = value
		}
	case KeyAPIKey:
		c.APIKey = strings.TrimSpace(value)
	case KeyAllowedOrigins:
		c.AllowedOrigins = splitTrim(value)
	case KeyMaxConns:
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			c.MaxConns = n
		}
	case KeyHistoryLimit:
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			c.HistoryLimit = n
		}
	case KeyLLMTimeout:
		if d, ok := parseTimeout(value); ok {
			c.LLMTimeout = d
		}
	case KeyStrictLookup:
		if b, err := strconv.ParseBool(value); err == nil {
			c.StrictLookup = b
		}
	case KeyWatchCatalog:
		if b, err := strconv.ParseBool(value); err == nil {
			c.WatchCatalog = b
		}
	}
}

// parseTimeout accepts a Go duration ("45s") or a whole number of seconds.
func parseTimeout(value string) (time.Duration, bool) {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

// readSettings reads a flat key/value settings file. The format is chosen by
// extension: .yaml/.yml are YAML, everything else is JSON.
func readSettings(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}

	settings := make(map[string]string, len(raw))
	for key, value := range raw {
		settings[key] = stringify(value)
	}
	return settings, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// splitTrim splits a comma-separated list, trimming blanks and dropping empties.
func splitTrim(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
