package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Serp       SerpConfig       `yaml:"serp" mapstructure:"serp"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Rank       RankConfig       `yaml:"rank" mapstructure:"rank"`
	GeoGrid    GeoGridConfig    `yaml:"geogrid" mapstructure:"geogrid"`
	Chains     ChainsConfig     `yaml:"chains" mapstructure:"chains"`
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// LLMConfig selects the generative provider order.
type LLMConfig struct {
	Primary     string  `yaml:"primary" mapstructure:"primary"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings. AnswerModel is used for the
// answer-engine fallback query.
type OpenAIConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	AnswerModel string `yaml:"answer_model" mapstructure:"answer_model"`
}

// GoogleConfig holds Google Maps Platform settings (Places and Geocoding).
type GoogleConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	PlacesBaseURL  string `yaml:"places_base_url" mapstructure:"places_base_url"`
	GeocodeBaseURL string `yaml:"geocode_base_url" mapstructure:"geocode_base_url"`
}

// SerpConfig holds SerpAPI settings.
type SerpConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (last-resort page fetch).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures homepage retrieval.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyKB   int    `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	ChromePath  string `yaml:"chrome_path" mapstructure:"chrome_path"`
}

// RankConfig configures the multi-query rank tracker.
type RankConfig struct {
	DelayMs    int     `yaml:"delay_ms" mapstructure:"delay_ms"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// GeoGridConfig configures the geo-visibility sampler.
type GeoGridConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Size        int     `yaml:"size" mapstructure:"size"`
	RadiusMiles float64 `yaml:"radius_miles" mapstructure:"radius_miles"`
	DelayMs     int     `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// ChainsConfig points at an optional YAML file overriding provider order.
type ChainsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// CRMConfig configures lead dispatch on audit completion.
type CRMConfig struct {
	TimeoutSecs int              `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WebhookURL  string           `yaml:"webhook_url" mapstructure:"webhook_url"`
	Notion      NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce  SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// NotionConfig holds Notion API credentials and the leads database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	DashboardSecret string   `yaml:"dashboard_secret" mapstructure:"dashboard_secret"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RetryConfig configures backoff for source calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SNAPSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setDefaults registers every key so env-only values reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "snapshot.db")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("llm.primary", "anthropic")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.answer_model", "gpt-4o")
	v.SetDefault("google.key", "")
	v.SetDefault("google.places_base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.geocode_base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("serp.key", "")
	v.SetDefault("serp.base_url", "https://serpapi.com")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; SnapshotBot/1.0)")
	v.SetDefault("fetch.max_body_kb", 512)
	v.SetDefault("fetch.headless", true)
	v.SetDefault("fetch.chrome_path", "")
	v.SetDefault("rank.delay_ms", 1500)
	v.SetDefault("rank.rate_per_sec", 1.0)
	v.SetDefault("geogrid.enabled", true)
	v.SetDefault("geogrid.size", 5)
	v.SetDefault("geogrid.radius_miles", 3.0)
	v.SetDefault("geogrid.delay_ms", 1000)
	v.SetDefault("chains.file", "")
	v.SetDefault("crm.timeout_secs", 15)
	v.SetDefault("crm.webhook_url", "")
	v.SetDefault("crm.notion.token", "")
	v.SetDefault("crm.notion.lead_db", "")
	v.SetDefault("crm.salesforce.client_id", "")
	v.SetDefault("crm.salesforce.username", "")
	v.SetDefault("crm.salesforce.key_path", "")
	v.SetDefault("crm.salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dashboard_secret", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 400)
	v.SetDefault("retry.max_backoff_ms", 8000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.cooldown_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks values that would otherwise fail deep inside a run.
// mode is "serve", "audit" or "store"; serve additionally checks the port.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "store":
	case "serve", "audit":
		switch c.LLM.Primary {
		case "anthropic", "openai":
		default:
			errs = append(errs, "llm.primary must be anthropic or openai")
		}
		if c.GeoGrid.Size != 5 && c.GeoGrid.Size != 7 {
			errs = append(errs, "geogrid.size must be 5 or 7")
		}
		if c.GeoGrid.RadiusMiles <= 0 {
			errs = append(errs, "geogrid.radius_miles must be > 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
