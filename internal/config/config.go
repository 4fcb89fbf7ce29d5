package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix is the environment variable prefix, e.g. GEMSHUB_GEMDB_BASE_URL
const envPrefix = "GEMSHUB"

// Config holds application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	GemDB  GemDBConfig  `mapstructure:"gemdb" yaml:"gemdb"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Auth   AuthConfig   `mapstructure:"auth" yaml:"auth"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Site   SiteConfig   `mapstructure:"site" yaml:"site"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// GemDBConfig configures the upstream gem database API
type GemDBConfig struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"` // raw key or "app:key,app2:key2"
	AppName  string        `mapstructure:"app_name" yaml:"app_name"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryMax int           `mapstructure:"retry_max" yaml:"retry_max"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Limit    int           `mapstructure:"limit" yaml:"limit"`
}

type CacheConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"` // memory or redis
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

type StoreConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	InvoiceDir string `mapstructure:"invoice_dir" yaml:"invoice_dir"` // uploads are archived here when set
}

// AuthConfig configures Google sign-in. Auth is disabled without a client ID.
type AuthConfig struct {
	GoogleClientID     string        `mapstructure:"google_client_id" yaml:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret" yaml:"google_client_secret"`
	RedirectURL        string        `mapstructure:"redirect_url" yaml:"redirect_url"`
	SessionSecret      string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionTTL         time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	CookieName         string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	SecureCookies      bool          `mapstructure:"secure_cookies" yaml:"secure_cookies"`
}

// Enabled reports whether Google sign-in is configured
func (a AuthConfig) Enabled() bool {
	return a.GoogleClientID != ""
}

type LLMConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Project  string `mapstructure:"project" yaml:"project"`
	Location string `mapstructure:"location" yaml:"location"`
	Model    string `mapstructure:"model" yaml:"model"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type SiteConfig struct {
	Name           string `mapstructure:"name" yaml:"name"`
	GemTypesFile   string `mapstructure:"gem_types_file" yaml:"gem_types_file"`
	StoreSearchURL string `mapstructure:"store_search_url" yaml:"store_search_url"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		GemDB: GemDBConfig{
			BaseURL:  "https://api.preciousstone.info",
			AppName:  "gems_hub",
			Timeout:  10 * time.Second,
			RetryMax: 2,
			CacheTTL: 10 * time.Minute,
			Limit:    1000,
		},
		Cache: CacheConfig{
			Driver:    "memory",
			RedisAddr: "localhost:6379",
		},
		Store: StoreConfig{
			Path: "gems_portfolio.db",
		},
		Auth: AuthConfig{
			SessionTTL: 7 * 24 * time.Hour,
			CookieName: "gemshub_session",
		},
		LLM: LLMConfig{
			Location: "us-central1",
			Model:    "gemini-1.5-flash",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Site: SiteConfig{
			Name:           "Gems Hub",
			StoreSearchURL: "https://www.gemrockauctions.com/search?query=",
		},
	}
}

// newViper returns a viper instance that knows every key, so environment
// variables override values even when no config file sets them
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	defaults := map[string]interface{}{
		"server.addr":               d.Server.Addr,
		"server.read_timeout":       d.Server.ReadTimeout,
		"server.write_timeout":      d.Server.WriteTimeout,
		"server.shutdown_timeout":   d.Server.ShutdownTimeout,
		"server.max_upload_bytes":   d.Server.MaxUploadBytes,
		"gemdb.base_url":            d.GemDB.BaseURL,
		"gemdb.api_key":             d.GemDB.APIKey,
		"gemdb.app_name":            d.GemDB.AppName,
		"gemdb.timeout":             d.GemDB.Timeout,
		"gemdb.retry_max":           d.GemDB.RetryMax,
		"gemdb.cache_ttl":           d.GemDB.CacheTTL,
		"gemdb.limit":               d.GemDB.Limit,
		"cache.driver":              d.Cache.Driver,
		"cache.redis_addr":          d.Cache.RedisAddr,
		"cache.redis_password":      d.Cache.RedisPassword,
		"cache.redis_db":            d.Cache.RedisDB,
		"store.path":                d.Store.Path,
		"store.invoice_dir":         d.Store.InvoiceDir,
		"auth.google_client_id":     d.Auth.GoogleClientID,
		"auth.google_client_secret": d.Auth.GoogleClientSecret,
		"auth.redirect_url":         d.Auth.RedirectURL,
		"auth.session_secret":       d.Auth.SessionSecret,
		"auth.session_ttl":          d.Auth.SessionTTL,
		"auth.cookie_name":          d.Auth.CookieName,
		"auth.secure_cookies":       d.Auth.SecureCookies,
		"llm.enabled":               d.LLM.Enabled,
		"llm.project":               d.LLM.Project,
		"llm.location":              d.LLM.Location,
		"llm.model":                 d.LLM.Model,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
		"site.name":                 d.Site.Name,
		"site.gem_types_file":       d.Site.GemTypesFile,
		"site.store_search_url":     d.Site.StoreSearchURL,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	return v
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/GemsHub/config.yaml
// On Unix: ~/.config/GemsHub/config.yaml
func GetConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "GemsHub", "config.yaml"), nil
}

// Load loads configuration from the default config path, if present,
// and the environment
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. An empty path reads
// the environment only.
func LoadFrom(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GemDB.BaseURL == "" {
		return fmt.Errorf("gemdb.base_url is required")
	}
	u, err := url.Parse(c.GemDB.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("gemdb.base_url must be an http(s) URL: %q", c.GemDB.BaseURL)
	}

	if c.GemDB.Timeout <= 0 {
		return fmt.Errorf("gemdb.timeout must be positive")
	}
	if c.GemDB.RetryMax < 0 {
		return fmt.Errorf("gemdb.retry_max must not be negative")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}

	if c.Auth.Enabled() {
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("auth.session_secret is required when Google sign-in is enabled")
		}
		if c.Auth.RedirectURL == "" {
			return fmt.Errorf("auth.redirect_url is required when Google sign-in is enabled")
		}
	}

	if c.LLM.Enabled && c.LLM.Project == "" {
		return fmt.Errorf("llm.project is required when the narrative is enabled")
	}

	return nil
}

// ResolveAPIKey picks the key for this application out of the configured
// value. "app:key,app2:key2" yields the entry for AppName, else the first
// mapped key; anything else is used as is.
func (g GemDBConfig) ResolveAPIKey() string {
	raw := strings.TrimSpace(g.APIKey)
	if raw == "" || !strings.Contains(raw, ":") {
		return raw
	}

	var first string
	for _, part := range strings.Split(raw, ",") {
		app, key, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		app, key = strings.TrimSpace(app), strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if app == g.AppName {
			return key
		}
		if first == "" {
			first = key
		}
	}

	if first != "" {
		return first
	}
	return raw
}
