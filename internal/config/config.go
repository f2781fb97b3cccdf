package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port             string
	DataDir          string
	LogLevel         string
	AllowedOrigin    string
	SessionCacheSize int

	Store    StoreConfig
	Llama    LlamaConfig
	Telegram TelegramConfig
}

type StoreConfig struct {
	Backend       string
	DatabaseURL   string
	MigrationsDir string
}

// LlamaConfig mirrors the llama-cli flags used by the Patient Corner.
type LlamaConfig struct {
	BinPath     string
	ModelPath   string
	MaxTokens   int
	Threads     int
	Batch       int
	NoWarmup    bool
	Temperature float64
	TopP        float64
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Enabled reports whether coordinator notifications can be sent.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"port":      "port",
	"data-dir":  "data_dir",
	"log-level": "log_level",
	"store":     "store.backend",
	"llama-bin": "llama.bin_path",
	"model":     "llama.model_path",
}

// DefaultThreads is half the logical CPUs, never less than one.
func DefaultThreads() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origin", "*")
	v.SetDefault("session_cache_size", 512)

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.migrations_dir", "migrations")

	v.SetDefault("llama.bin_path", filepath.Join("bin", "llama-cli"))
	v.SetDefault("llama.model_path", filepath.Join("model", "Llama-3.2-1B-merged-lora-q4_k.gguf"))
	v.SetDefault("llama.max_tokens", 800)
	v.SetDefault("llama.threads", DefaultThreads())
	v.SetDefault("llama.batch", 1024)
	v.SetDefault("llama.no_warmup", true)
	v.SetDefault("llama.temperature", 0.7)
	v.SetDefault("llama.top_p", 0.9)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetEnvPrefix("MENTALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Plain names kept for existing deployments.
	_ = v.BindEnv("port", "MENTALYTICS_PORT", "PORT")
	_ = v.BindEnv("store.database_url", "MENTALYTICS_STORE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("telegram.token", "MENTALYTICS_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "MENTALYTICS_TELEGRAM_CHAT_ID", "COORDINATOR_CHAT_ID")

	return v
}

// Load resolves defaults, an optional config file, environment variables and
// flags, in increasing order of precedence. An empty file searches for
// mentalytics.{yaml,json,toml} in the working directory and /etc/mentalytics.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mentalytics")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mentalytics")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Port:             v.GetString("port"),
		DataDir:          v.GetString("data_dir"),
		LogLevel:         v.GetString("log_level"),
		AllowedOrigin:    v.GetString("allowed_origin"),
		SessionCacheSize: v.GetInt("session_cache_size"),
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store.backend")),
			DatabaseURL:   v.GetString("store.database_url"),
			MigrationsDir: v.GetString("store.migrations_dir"),
		},
		Llama: LlamaConfig{
			BinPath:     v.GetString("llama.bin_path"),
			ModelPath:   v.GetString("llama.model_path"),
			MaxTokens:   v.GetInt("llama.max_tokens"),
			Threads:     v.GetInt("llama.threads"),
			Batch:       v.GetInt("llama.batch"),
			NoWarmup:    v.GetBool("llama.no_warmup"),
			Temperature: v.GetFloat64("llama.temperature"),
			TopP:        v.GetFloat64("llama.top_p"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("config: session_cache_size must be positive, got %d", c.SessionCacheSize)
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("config: data_dir must not be empty")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("config: store.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Llama.MaxTokens <= 0 || c.Llama.Threads <= 0 || c.Llama.Batch <= 0 {
		return errors.New("config: llama max_tokens, threads and batch must be positive")
	}
	return nil
}
