package config

import (
	_ "embed"
	"fmt"
	"time"

	"portfoliotracker/internal/ai"
	"portfoliotracker/internal/auth"
	"portfoliotracker/internal/db"
	"portfoliotracker/internal/valuation"
	"portfoliotracker/scrape"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configByte []byte

//go:embed assets.yaml
var assetsByte []byte

type Config struct {
	Log string `yaml:"log" env:"LOG_LEVEL"`
	App struct {
		Port         int    `yaml:"port" env:"PORT"`
		AllowOrigins string `yaml:"allow-origins" env:"ALLOW_ORIGINS"`
		SecretKey    string `yaml:"secret-key" env:"SECRET_KEY"`
	} `yaml:"app" envPrefix:"APP_"`

	Supabase struct {
		URL       string `yaml:"url" env:"URL"`
		AnonKey   string `yaml:"anon-key" env:"ANON_KEY"`
		JwtSecret string `yaml:"jwt-secret" env:"JWT_SECRET"`
	} `yaml:"supabase" envPrefix:"SUPABASE_"`

	Db struct {
		Driver   string `yaml:"driver" env:"DRIVER"`
		User     string `yaml:"user" env:"USER"`
		Password string `yaml:"pwd" env:"PASSWORD"`
		IP       string `yaml:"ip" env:"HOST"`
		Port     string `yaml:"port" env:"PORT"`
		Scheme   string `yaml:"scheme" env:"NAME"`
		SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	} `yaml:"db" envPrefix:"DB_"`

	Redis struct {
		Password string `yaml:"pwd" env:"PASSWORD"`
		IP       string `yaml:"ip" env:"HOST"`
		Port     string `yaml:"port" env:"PORT"`
		DB       int    `yaml:"db" env:"DB"`
	} `yaml:"redis" envPrefix:"REDIS_"`

	AI struct {
		OpenAIKey    string   `yaml:"openai-key" env:"OPENAI_API_KEY"`
		OpenAIModels []string `yaml:"openai-models" env:"OPENAI_MODELS"`
		GeminiKey    string   `yaml:"gemini-key" env:"GEMINI_API_KEY"`
		GeminiModel  string   `yaml:"gemini-model" env:"GEMINI_MODEL"`
	} `yaml:"ai"`

	Kraken struct {
		BaseURL   string `yaml:"base-url" env:"BASE_URL"`
		UserAgent string `yaml:"user-agent"`
	} `yaml:"kraken" envPrefix:"KRAKEN_"`

	Alpaca struct {
		APIKey    string `yaml:"api-key" env:"API_KEY"`
		APISecret string `yaml:"api-secret" env:"API_SECRET"`
	} `yaml:"alpaca" envPrefix:"ALPACA_"`

	Yahoo struct {
		BaseURL   string `yaml:"base-url"`
		RssURL    string `yaml:"rss-url"`
		UserAgent string `yaml:"user-agent"`
	} `yaml:"yahoo"`

	Pricing struct {
		FlatCloseCheck  bool          `yaml:"flat-close-check" env:"FLAT_CLOSE_CHECK"`
		HistoryCacheTTL time.Duration `yaml:"history-cache-ttl" env:"HISTORY_CACHE_TTL"`
	} `yaml:"pricing" envPrefix:"PRICING_"`
}

// NewConfig loads the embedded defaults, then applies environment overrides.
func NewConfig() (*Config, error) {

	var conf Config

	err := yaml.Unmarshal(configByte, &conf)
	if err != nil {
		return nil, err
	}

	err = env.Parse(&conf)
	if err != nil {
		return nil, fmt.Errorf("env override failed. %w", err)
	}

	return &conf, nil
}

func (c Config) LogLevel() (zerolog.Level, error) {

	level, err := zerolog.ParseLevel(c.Log)
	if err != nil {
		return zerolog.InfoLevel, err
	}

	return level, nil
}

func (c Config) DbConfig() *db.DbConfig {
	return db.NewDbConfig(c.Db.Driver, c.Db.User, c.Db.Password, c.Db.IP, c.Db.Port, c.Db.Scheme, c.Db.SSLMode)
}

func (c Config) RedisConfig() *db.RedisConfig {
	return db.NewRedisConfig(c.Redis.Password, c.Redis.IP, c.Redis.Port, c.Redis.DB)
}

func (c Config) KrakenConfig() *scrape.KrakenConfig {
	return &scrape.KrakenConfig{
		BaseURL:   c.Kraken.BaseURL,
		UserAgent: c.Kraken.UserAgent,
	}
}

func (c Config) YahooConfig() *scrape.YahooConfig {
	return &scrape.YahooConfig{
		BaseURL:        c.Yahoo.BaseURL,
		UserAgent:      c.Yahoo.UserAgent,
		FlatCloseCheck: c.Pricing.FlatCloseCheck,
	}
}

// AlpacaOpts works without keys; crypto bars are public.
func (c Config) AlpacaOpts() marketdata.ClientOpts {
	return marketdata.ClientOpts{
		APIKey:    c.Alpaca.APIKey,
		APISecret: c.Alpaca.APISecret,
	}
}

func (c Config) NewsFeedURL() string {
	return c.Yahoo.RssURL
}

func (c Config) HistoryCacheTTL() time.Duration {
	return c.Pricing.HistoryCacheTTL
}

func (c Config) AIConfig() *ai.Config {
	return &ai.Config{
		OpenAIKey:    c.AI.OpenAIKey,
		OpenAIModels: c.AI.OpenAIModels,
		GeminiKey:    c.AI.GeminiKey,
		GeminiModel:  c.AI.GeminiModel,
	}
}

func (c Config) AuthConfig() *auth.Config {
	return &auth.Config{
		URL:       c.Supabase.URL,
		AnonKey:   c.Supabase.AnonKey,
		JwtSecret: c.Supabase.JwtSecret,
	}
}

func (c Config) AssetTable() (*valuation.Table, error) {
	return valuation.ParseTable(assetsByte)
}
