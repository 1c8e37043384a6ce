package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config contains all runtime settings for the advisor service.
type Config struct {
	Port            string
	DatabaseURL     string
	ShutdownTimeout time.Duration

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAIMaxTokens   int
	OpenAITemperature float32
	OpenAITimeout     time.Duration

	HistoryWindow int

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel  string
	LogPretty bool

	MetricsNamespace   string
	CORSAllowedOrigins []string
}

// Load reads .env (if any) and the environment, applying defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("OPENAI_MAX_TOKENS", 500)
	v.SetDefault("OPENAI_TEMPERATURE", 0.7)
	v.SetDefault("OPENAI_TIMEOUT", "30s")
	v.SetDefault("HISTORY_WINDOW", 6)
	v.SetDefault("TOKEN_TTL", "0s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("METRICS_NAMESPACE", "campusai")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := Config{
		Port:               strings.TrimSpace(v.GetString("PORT")),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
		OpenAIAPIKey:       strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:        strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		OpenAIBaseURL:      strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
		OpenAIMaxTokens:    v.GetInt("OPENAI_MAX_TOKENS"),
		OpenAITemperature:  float32(v.GetFloat64("OPENAI_TEMPERATURE")),
		OpenAITimeout:      v.GetDuration("OPENAI_TIMEOUT"),
		HistoryWindow:      v.GetInt("HISTORY_WINDOW"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		LogLevel:           strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogPretty:          v.GetBool("LOG_PRETTY"),
		MetricsNamespace:   strings.TrimSpace(v.GetString("METRICS_NAMESPACE")),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if cfg.OpenAIMaxTokens <= 0 {
		return Config{}, fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be within [0, 2]")
	}
	if cfg.OpenAITimeout <= 0 {
		return Config{}, fmt.Errorf("OPENAI_TIMEOUT must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.TokenTTL < 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be >= 0")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
