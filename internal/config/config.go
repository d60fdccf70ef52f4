package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreNone   = "none"
)

// Configuration keys. Each is also read from the environment under its
// upper-case name.
const (
	KeyGoogleAPIKey     = "google_api_key"
	KeyPort             = "port"
	KeyAppName          = "app_name"
	KeyModel            = "model"
	KeyAgentName        = "agent_name"
	KeyInstruction      = "agent_instruction"
	KeyUserID           = "user_id"
	KeySessionStore     = "session_store"
	KeySessionDir       = "session_dir"
	KeySessionCacheSize = "session_cache_size"
	KeySessionTTL       = "session_ttl"
	KeyRunTimeout       = "run_timeout"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
)

// Config holds the application configuration
type Config struct {
	GoogleAPIKey string
	Port         string
	AppName      string
	Model        string
	UserID       string

	// AgentName and Instruction set the assistant persona. Empty values use
	// the agent package defaults.
	AgentName   string
	Instruction string

	SessionStore     string
	SessionDir       string
	SessionCacheSize int
	// SessionTTL evicts in-memory sessions idle for longer. Zero keeps them
	// until the cache is full.
	SessionTTL time.Duration

	// RunTimeout bounds a single run. Zero disables it.
	RunTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8000")
	v.SetDefault(KeyAppName, "agent-go-ag-ui")
	v.SetDefault(KeyModel, "gemini-2.5-flash")
	v.SetDefault(KeyUserID, "demo_user")
	v.SetDefault(KeySessionStore, StoreMemory)
	v.SetDefault(KeySessionDir, "./sessions")
	v.SetDefault(KeySessionCacheSize, 1024)
	v.SetDefault(KeySessionTTL, time.Duration(0))
	v.SetDefault(KeyRunTimeout, 60*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GoogleAPIKey:     v.GetString(KeyGoogleAPIKey),
		Port:             v.GetString(KeyPort),
		AppName:          v.GetString(KeyAppName),
		Model:            v.GetString(KeyModel),
		UserID:           v.GetString(KeyUserID),
		AgentName:        v.GetString(KeyAgentName),
		Instruction:      v.GetString(KeyInstruction),
		SessionStore:     strings.ToLower(v.GetString(KeySessionStore)),
		SessionDir:       v.GetString(KeySessionDir),
		SessionCacheSize: v.GetInt(KeySessionCacheSize),
		SessionTTL:       v.GetDuration(KeySessionTTL),
		RunTimeout:       v.GetDuration(KeyRunTimeout),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return errors.New("GOOGLE_API_KEY environment variable is required")
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	switch c.SessionStore {
	case StoreMemory:
		if c.SessionCacheSize <= 0 {
			return fmt.Errorf("session cache size must be positive, got %d", c.SessionCacheSize)
		}
	case StoreFile:
		if c.SessionDir == "" {
			return errors.New("session dir is required for the file store")
		}
	case StoreNone:
	default:
		return fmt.Errorf("unknown session store %q (want %s, %s or %s)", c.SessionStore, StoreMemory, StoreFile, StoreNone)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session ttl must not be negative, got %s", c.SessionTTL)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative, got %s", c.RunTimeout)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
