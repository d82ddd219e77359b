package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Session   SessionConfig   `json:"session"`
	Services  ServicesConfig  `json:"services"`
	Providers ProvidersConfig `json:"providers"`
	Intent    IntentConfig    `json:"intent"`
	Channels  ChannelsConfig  `json:"channels"`
	LogLevel  string          `json:"log_level" env:"SHOPCHAT_LOG_LEVEL"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"SHOPCHAT_GATEWAY_HOST"`
	Port int    `json:"port" env:"SHOPCHAT_GATEWAY_PORT"`
}

type SessionConfig struct {
	TTLSeconds    int         `json:"ttl_seconds" env:"SHOPCHAT_SESSION_TTL_SECONDS"`
	SweepSchedule string      `json:"sweep_schedule" env:"SHOPCHAT_SESSION_SWEEP_SCHEDULE"`
	Redis         RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"SHOPCHAT_SESSION_REDIS_ADDR"`
	Password string `json:"password" env:"SHOPCHAT_SESSION_REDIS_PASSWORD"`
	DB       int    `json:"db" env:"SHOPCHAT_SESSION_REDIS_DB"`
}

type ServicesConfig struct {
	OrdersURL      string `json:"orders_url" env:"SHOPCHAT_SERVICES_ORDERS_URL"`
	ProductsURL    string `json:"products_url" env:"SHOPCHAT_SERVICES_PRODUCTS_URL"`
	AnalyticsURL   string `json:"analytics_url" env:"SHOPCHAT_SERVICES_ANALYTICS_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"SHOPCHAT_SERVICES_TIMEOUT_SECONDS"`
}

type ProvidersConfig struct {
	Perplexity PerplexityConfig `json:"perplexity"`
}

type PerplexityConfig struct {
	APIKey         string `json:"api_key" env:"SHOPCHAT_PROVIDERS_PERPLEXITY_API_KEY"`
	APIBase        string `json:"api_base" env:"SHOPCHAT_PROVIDERS_PERPLEXITY_API_BASE"`
	Model          string `json:"model" env:"SHOPCHAT_PROVIDERS_PERPLEXITY_MODEL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"SHOPCHAT_PROVIDERS_PERPLEXITY_TIMEOUT_SECONDS"`
}

type IntentConfig struct {
	Threshold float64 `json:"threshold" env:"SHOPCHAT_INTENT_THRESHOLD"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string   `json:"token" env:"SHOPCHAT_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"SHOPCHAT_CHANNELS_DISCORD_ALLOW_FROM"`
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Session: SessionConfig{
			TTLSeconds:    1800,
			SweepSchedule: "*/5 * * * *",
		},
		Services: ServicesConfig{
			OrdersURL:      "http://order-service:8080",
			ProductsURL:    "http://product-service:8080",
			AnalyticsURL:   "http://order-service:8080",
			TimeoutSeconds: 5,
		},
		Providers: ProvidersConfig{
			Perplexity: PerplexityConfig{
				APIBase:        "https://api.perplexity.ai",
				Model:          "sonar-small",
				TimeoutSeconds: 10,
			},
		},
		Intent: IntentConfig{
			Threshold: 0.5,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				AllowFrom: []string{},
			},
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the JSON config at path and applies SHOPCHAT_* env
// overrides. A missing file is not an error: defaults plus env apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
