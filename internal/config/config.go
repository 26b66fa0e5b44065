package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/kabar/internal/category"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Model   ModelConfig
	Corpus  CorpusConfig
	Retrain RetrainConfig
}

type ServerConfig struct {
	Host string
	Port int
	// APIToken, when set, is required as a bearer token on mutating endpoints.
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

type ModelConfig struct {
	Neighbors   int
	MaxFeatures int
	NGramMax    int
	CacheSize   int
}

type CorpusConfig struct {
	// Categories is a comma-separated list of allowed labels.
	Categories    string
	Seed          bool
	StopwordsFile string
}

type RetrainConfig struct {
	// Interval between background corpus checks; "0" disables the worker.
	Interval string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Model: ModelConfig{
			Neighbors:   5,
			MaxFeatures: 1000,
			NGramMax:    2,
			CacheSize:   1024,
		},
		Corpus: CorpusConfig{
			Categories: strings.Join(category.Defaults, ","),
			Seed:       true,
		},
		Retrain: RetrainConfig{
			Interval: "5m",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.kabar.app) and the API
// token falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/kabar/config.json
// and the API token falls back to $XDG_DATA_HOME/kabar/secrets.json.
//
// Environment variables (KABAR_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get("kabar", "api_token"); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config server.port=%d: must be 1-65535", c.Server.Port)
	}
	if c.Model.Neighbors <= 0 {
		return fmt.Errorf("invalid config model.neighbors=%d: must be positive", c.Model.Neighbors)
	}
	if c.Model.MaxFeatures <= 0 {
		return fmt.Errorf("invalid config model.max_features=%d: must be positive", c.Model.MaxFeatures)
	}
	if c.Model.NGramMax <= 0 || c.Model.NGramMax > 3 {
		return fmt.Errorf("invalid config model.ngram_max=%d: must be 1-3", c.Model.NGramMax)
	}
	if c.Model.CacheSize < 0 {
		return fmt.Errorf("invalid config model.cache_size=%d: must not be negative", c.Model.CacheSize)
	}
	if _, err := c.CategorySet(); err != nil {
		return fmt.Errorf("invalid config corpus.categories: %w", err)
	}
	if _, err := c.RetrainInterval(); err != nil {
		return fmt.Errorf("invalid config retrain.interval: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config log.format=%q: must be text or json", c.Log.Format)
	}
	return nil
}

// CategorySet parses Corpus.Categories.
func (c Config) CategorySet() (category.Set, error) {
	return category.Parse(c.Corpus.Categories)
}

// RetrainInterval parses Retrain.Interval. Zero disables background retraining.
func (c Config) RetrainInterval() (time.Duration, error) {
	if c.Retrain.Interval == "" || c.Retrain.Interval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Retrain.Interval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// keychainReader reads the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
