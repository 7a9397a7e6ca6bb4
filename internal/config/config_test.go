// Package config provides configuration management for controlnotes.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	clearEnv(s.T())
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// clearEnv unsets every recognised key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range append([]string{KeyConfigPath}, envKeys...) {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func (s *ConfigSuite) writeSettings(name, content string) string {
	path := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultSpreadsheetPath, cfg.SpreadsheetPath)
	s.Equal(DriverSQLite, cfg.DBDriver)
	s.Equal(DefaultDBPath, cfg.DBPath)
	s.Equal(DefaultListenAddr, cfg.ListenAddr)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(4, cfg.MaxConns)
	s.Equal(20, cfg.HistoryLimit)
	s.Equal(60*time.Second, cfg.LLMTimeout)
	s.False(cfg.StrictLookup)
	s.True(cfg.WatchCatalog)
	s.False(cfg.HasAPIKey())
	s.NoError(cfg.Validate())
}

// TestLoad_NoSettings tests that an empty path yields defaults.
func (s *ConfigSuite) TestLoad_NoSettings() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(DefaultDBPath, cfg.DBPath)
}

// TestLoad_TableDriven tests configuration loading with various settings files.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name           string
		file           string
		content        string
		expectedModel  string
		expectedLimit  int
		expectedAddr   string
		expectedStrict bool
	}{
		{
			name:          "missing settings file",
			file:          "",
			expectedModel: DefaultModel,
			expectedLimit: DefaultHistoryLimit,
			expectedAddr:  DefaultListenAddr,
		},
		{
			name:          "custom model json",
			file:          "settings.json",
			content:       `{"CONTROLNOTES_MODEL": "gemini-2.5-pro"}`,
			expectedModel: "gemini-2.5-pro",
			expectedLimit: DefaultHistoryLimit,
			expectedAddr:  DefaultListenAddr,
		},
		{
			name:           "numbers and bools json",
			file:           "settings.json",
			content:        `{"CONTROLNOTES_HISTORY_LIMIT": 50, "CONTROLNOTES_STRICT_LOOKUP": true, "CONTROLNOTES_LISTEN_ADDR": ":8080"}`,
			expectedModel:  DefaultModel,
			expectedLimit:  50,
			expectedAddr:   ":8080",
			expectedStrict: true,
		},
		{
			name:           "yaml settings",
			file:           "settings.yaml",
			content:        "CONTROLNOTES_MODEL: flash-lite\nCONTROLNOTES_HISTORY_LIMIT: 5\nCONTROLNOTES_STRICT_LOOKUP: true\n",
			expectedModel:  "flash-lite",
			expectedLimit:  5,
			expectedAddr:   DefaultListenAddr,
			expectedStrict: true,
		},
		{
			name:          "invalid JSON returns defaults",
			file:          "settings.json",
			content:       `{invalid}`,
			expectedModel: DefaultModel,
			expectedLimit: DefaultHistoryLimit,
			expectedAddr:  DefaultListenAddr,
		},
		{
			name:          "invalid number keeps default",
			file:          "settings.json",
			content:       `{"CONTROLNOTES_HISTORY_LIMIT": "many"}`,
			expectedModel: DefaultModel,
			expectedLimit: DefaultHistoryLimit,
			expectedAddr:  DefaultListenAddr,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			path := filepath.Join(s.tempDir, "does-not-exist.json")
			if tt.file != "" {
				path = s.writeSettings(tt.file, tt.content)
			}

			cfg, err := Load(path)
			s.NoError(err)
			s.Require().NotNil(cfg)
			s.Equal(tt.expectedModel, cfg.Model)
			s.Equal(tt.expectedLimit, cfg.HistoryLimit)
			s.Equal(tt.expectedAddr, cfg.ListenAddr)
			s.Equal(tt.expectedStrict, cfg.StrictLookup)
		})
	}
}

// TestLoad_EnvOverridesSettings tests that the environment wins over the file.
func (s *ConfigSuite) TestLoad_EnvOverridesSettings() {
	path := s.writeSettings("settings.json", `{"CONTROLNOTES_MODEL": "from-file", "CONTROLNOTES_DB_PATH": "file.db"}`)
	s.T().Setenv(KeyModel, "from-env")
	s.T().Setenv(KeyAPIKey, "  secret  ")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("from-env", cfg.Model)
	s.Equal("file.db", cfg.DBPath)
	s.Equal("secret", cfg.APIKey)
	s.True(cfg.HasAPIKey())
}

// TestLoad_ConfigPathFromEnv tests the settings path fallback.
func (s *ConfigSuite) TestLoad_ConfigPathFromEnv() {
	path := s.writeSettings("settings.json", `{"CONTROLNOTES_SPREADSHEET": "/data/controls.csv"}`)
	s.T().Setenv(KeyConfigPath, path)

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal("/data/controls.csv", cfg.SpreadsheetPath)
}

// TestLoad_Postgres tests driver validation.
func (s *ConfigSuite) TestLoad_Postgres() {
	s.T().Setenv(KeyDBDriver, "Postgres")

	_, err := Load("")
	s.Error(err, "postgres without a DSN must be rejected")

	s.T().Setenv(KeyDBDSN, "postgres://localhost/controlnotes")
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(DriverPostgres, cfg.DBDriver)
}

// TestLoad_UnknownDriver tests that unsupported drivers fail validation.
func (s *ConfigSuite) TestLoad_UnknownDriver() {
	s.T().Setenv(KeyDBDriver, "oracle")

	cfg, err := Load("")
	s.Error(err)
	s.Nil(cfg)
}

// TestParseTimeout tests the timeout parser.
func TestParseTimeout(t *testing.T) {
	tests := []struct {
		input  string
		want   time.Duration
		wantOK bool
	}{
		{input: "45s", want: 45 * time.Second, wantOK: true},
		{input: "2m", want: 2 * time.Minute, wantOK: true},
		{input: "30", want: 30 * time.Second, wantOK: true},
		{input: "0", wantOK: false},
		{input: "-5s", wantOK: false},
		{input: "soon", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseTimeout(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestSplitTrim tests the splitTrim helper function.
func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single value",
			input:    "http://localhost:3000",
			expected: []string{"http://localhost:3000"},
		},
		{
			name:     "values with spaces",
			input:    " http://a , http://b ",
			expected: []string{"http://a", "http://b"},
		},
		{
			name:     "empty values filtered",
			input:    "http://a,,http://b,,",
			expected: []string{"http://a", "http://b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitTrim(tt.input))
		})
	}
}

// TestStringify tests conversion of decoded settings values.
func TestStringify(t *testing.T) {
	assert.Equal(t, "50", stringify(float64(50)))
	assert.Equal(t, "1.5", stringify(1.5))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, "7", stringify(7))
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "a,b", stringify([]interface{}{"a", "b"}))
}
