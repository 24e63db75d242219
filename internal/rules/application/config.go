package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines monitor configuration.
type Config struct {
	Interval   string `yaml:"interval"`
	Workers    int    `yaml:"workers"`
	SeedRules  bool   `yaml:"seed_rules"`
	WebhookURL string `yaml:"webhook_url"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		Interval:   os.Getenv("MONITOR_INTERVAL"),
		Workers:    getenvIntDefault("MONITOR_WORKERS", 0),
		SeedRules:  getenvBoolDefault("MONITOR_SEED_RULES", false),
		WebhookURL: os.Getenv("ALARM_WEBHOOK_URL"),
	}

	if path := os.Getenv("MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("ALARM_WEBHOOK_URL")
	}
	return cfg, nil
}

// EvaluationInterval parses the configured interval. An unset or
// unparsable value falls back to the default.
func (c Config) EvaluationInterval() time.Duration {
	parsed, err := time.ParseDuration(c.Interval)
	if err != nil || parsed <= 0 {
		return DefaultEvaluationInterval
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
