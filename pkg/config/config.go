package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessor methods.
//
// Example (~/.pochemuchka/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8099
// storage:
//   backend: sqlite
//   path: data/pochemuchka.db
// models:
//   dialog:
//     provider: openai
//     model: gpt-4o-mini
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - API keys are never read from the YAML file; each model names the
//   environment variable holding its key (api_key_env).

type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Models  ModelsConfig  `yaml:"models"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type StorageConfig struct {
	Backend          *string `yaml:"backend"` // sqlite, redis or memory
	Path             *string `yaml:"path"`
	RedisAddr        *string `yaml:"redis_addr"`
	RedisDB          *int    `yaml:"redis_db"`
	FailureThreshold *int    `yaml:"failure_threshold"`
	CleanupHours     *int    `yaml:"cleanup_hours"`
}

type HistoryConfig struct {
	Limit          *int `yaml:"limit"`
	AnalysisWindow *int `yaml:"analysis_window"`
}

type ModelsConfig struct {
	Analyzer ModelConfig `yaml:"analyzer"`
	Dialog   ModelConfig `yaml:"dialog"`
}

// ModelConfig describes one chat-model slot. Provider selects the client
// implementation; base_url is only meaningful for OpenAI-compatible and
// self-hosted providers.
type ModelConfig struct {
	Provider       *string  `yaml:"provider"`
	BaseURL        *string  `yaml:"base_url"`
	Model          *string  `yaml:"model"`
	APIKeyEnv      *string  `yaml:"api_key_env"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      *int     `yaml:"max_tokens"`
	TimeoutSeconds *int     `yaml:"timeout_seconds"`
}

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8099

	DefaultStorageBackend   = "sqlite"
	DefaultStoragePath      = "data/pochemuchka.db"
	DefaultRedisAddr        = "127.0.0.1:6379"
	DefaultFailureThreshold = 1
	DefaultCleanupHours     = 168

	DefaultHistoryLimit   = 30
	DefaultAnalysisWindow = 5

	DefaultProvider  = "openai"
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultAPIKeyEnv = "OPENROUTER_API_KEY"

	DefaultAnalyzerTemperature = 0.1
	DefaultAnalyzerMaxTokens   = 200
	DefaultDialogTemperature   = 0.3
	DefaultDialogMaxTokens     = 512
	DefaultTimeoutSeconds      = 30
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	if p := strings.TrimSpace(os.Getenv("POCHEMUCHKA_CONFIG")); p != "" {
		return filepath.Dir(p), p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".pochemuchka")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// LoadDotenv loads a .env file from the working directory if one exists.
// Secrets such as API keys live there, matching deployment practice.
func LoadDotenv() {
	_ = godotenv.Load()
}

// EnsureDefaultConfig writes a starter config file if none exists and
// returns its path.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config file %s: %w", configFile, err)
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	content := fmt.Sprintf(`server:
  host: %s
  port: %d
storage:
  backend: %s
  path: %s
models:
  dialog:
    provider: %s
    model: %s
    api_key_env: %s
`, DefaultHost, DefaultPort, DefaultStorageBackend, DefaultStoragePath,
		DefaultProvider, DefaultModel, DefaultAPIKeyEnv)

	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write config file %s: %w", configFile, err)
	}
	return configFile, nil
}

// Load reads the config file. If the file doesn't exist, it returns a
// default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	if err := cfg.validate(configFile); err != nil {
		return nil, "", err
	}

	return cfg, configFile, nil
}

func (c *AppConfig) validate(path string) error {
	if strings.TrimSpace(c.Host()) == "" {
		return fmt.Errorf("invalid server.host (empty) in %s", path)
	}
	if port := c.Port(); port < 1 || port > 65535 {
		return fmt.Errorf("invalid server.port %d in %s", port, path)
	}
	switch c.StorageBackend() {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid storage.backend %q in %s", c.StorageBackend(), path)
	}
	if n := c.HistoryLimit(); n < 1 {
		return fmt.Errorf("invalid history.limit %d in %s", n, path)
	}
	if n := c.AnalysisWindow(); n < 1 {
		return fmt.Errorf("invalid history.analysis_window %d in %s", n, path)
	}
	if n := c.FailureThreshold(); n < 1 {
		return fmt.Errorf("invalid storage.failure_threshold %d in %s", n, path)
	}
	return nil
}

func (c *AppConfig) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	if v := strings.TrimSpace(*c.Server.Host); v != "" {
		return v
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

func (c *AppConfig) StorageBackend() string {
	if c == nil || c.Storage.Backend == nil {
		return DefaultStorageBackend
	}
	return strings.ToLower(strings.TrimSpace(*c.Storage.Backend))
}

func (c *AppConfig) StoragePath() string {
	if c == nil || c.Storage.Path == nil {
		return DefaultStoragePath
	}
	return *c.Storage.Path
}

func (c *AppConfig) RedisAddr() string {
	if c == nil || c.Storage.RedisAddr == nil {
		return DefaultRedisAddr
	}
	return *c.Storage.RedisAddr
}

func (c *AppConfig) RedisDB() int {
	if c == nil || c.Storage.RedisDB == nil {
		return 0
	}
	return *c.Storage.RedisDB
}

func (c *AppConfig) FailureThreshold() int {
	if c == nil || c.Storage.FailureThreshold == nil {
		return DefaultFailureThreshold
	}
	return *c.Storage.FailureThreshold
}

func (c *AppConfig) CleanupHours() int {
	if c == nil || c.Storage.CleanupHours == nil {
		return DefaultCleanupHours
	}
	return *c.Storage.CleanupHours
}

func (c *AppConfig) HistoryLimit() int {
	if c == nil || c.History.Limit == nil {
		return DefaultHistoryLimit
	}
	return *c.History.Limit
}

func (c *AppConfig) AnalysisWindow() int {
	if c == nil || c.History.AnalysisWindow == nil {
		return DefaultAnalysisWindow
	}
	return *c.History.AnalysisWindow
}

// ResolvedModel is a ModelConfig with every default applied and the API key
// read from the environment.
type ResolvedModel struct {
	Provider       string
	BaseURL        string
	Model          string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// AnalyzerModel resolves the auxiliary-model slot.
func (c *AppConfig) AnalyzerModel() ResolvedModel {
	var mc ModelConfig
	if c != nil {
		mc = c.Models.Analyzer
	}
	return resolveModel(mc, DefaultAnalyzerTemperature, DefaultAnalyzerMaxTokens)
}

// DialogModel resolves the dialog-model slot.
func (c *AppConfig) DialogModel() ResolvedModel {
	var mc ModelConfig
	if c != nil {
		mc = c.Models.Dialog
	}
	return resolveModel(mc, DefaultDialogTemperature, DefaultDialogMaxTokens)
}

func resolveModel(mc ModelConfig, defTemp float64, defMaxTokens int) ResolvedModel {
	r := ResolvedModel{
		Provider:       DefaultProvider,
		BaseURL:        DefaultBaseURL,
		Model:          DefaultModel,
		Temperature:    defTemp,
		MaxTokens:      defMaxTokens,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
	if mc.Provider != nil && strings.TrimSpace(*mc.Provider) != "" {
		r.Provider = strings.ToLower(strings.TrimSpace(*mc.Provider))
	}
	if mc.BaseURL != nil {
		r.BaseURL = *mc.BaseURL
	}
	if mc.Model != nil && strings.TrimSpace(*mc.Model) != "" {
		r.Model = strings.TrimSpace(*mc.Model)
	}
	if mc.Temperature != nil {
		r.Temperature = *mc.Temperature
	}
	if mc.MaxTokens != nil && *mc.MaxTokens > 0 {
		r.MaxTokens = *mc.MaxTokens
	}
	if mc.TimeoutSeconds != nil && *mc.TimeoutSeconds > 0 {
		r.TimeoutSeconds = *mc.TimeoutSeconds
	}

	keyEnv := DefaultAPIKeyEnv
	if mc.APIKeyEnv != nil && strings.TrimSpace(*mc.APIKeyEnv) != "" {
		keyEnv = strings.TrimSpace(*mc.APIKeyEnv)
	}
	r.APIKey = os.Getenv(keyEnv)

	return r
}
