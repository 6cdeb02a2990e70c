package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = "8080"
	defaultDatabaseURL  = "user=postgres password=password dbname=wuxia2kindle host=localhost port=5432 sslmode=disable"
	defaultTickInterval = 6 * time.Hour
	defaultSink         = "discord"
)

// Config holds the full runtime configuration. Values come from an
// optional YAML file, with environment variables taking precedence.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	// RawTickInterval is a Go duration string such as "6h" or "30m".
	RawTickInterval string `yaml:"tick_interval"`
	Sink            string `yaml:"sink"`

	TickInterval time.Duration `yaml:"-"`

	Discord DiscordConfig `yaml:"discord"`
	SMTP    SMTPConfig    `yaml:"smtp"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Load reads the YAML file at path if it exists, applies environment
// overrides, then fills in defaults. A missing file is not an error so
// a purely env-driven deployment needs no config file at all.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			log.Printf("INFO (Config): No config file at %s, using environment and defaults", path)
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if cfg.RawTickInterval != "" {
		d, err := time.ParseDuration(cfg.RawTickInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid tick_interval %q: %w", cfg.RawTickInterval, err)
		}
		cfg.TickInterval = d
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_CONNECTION_STRING"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("WARNING: Invalid TICK_INTERVAL %q, ignoring: %v", v, err)
		} else {
			c.TickInterval = d
		}
	}
	if v := os.Getenv("EXPORT_SINK"); v != "" {
		c.Sink = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Discord.WebhookURL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err != nil {
			log.Printf("WARNING: Invalid SMTP_PORT %q, ignoring", v)
		} else {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv("SMTP_TO"); v != "" {
		c.SMTP.To = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = defaultDatabaseURL
		log.Println("WARNING: No database URL configured, using default local connection string.")
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.Sink == "" {
		c.Sink = defaultSink
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

func (c *Config) validate() error {
	switch c.Sink {
	case "discord":
		if c.Discord.WebhookURL == "" {
			log.Println("WARNING: DISCORD_WEBHOOK_URL not set. Export delivery will fail at runtime.")
		}
	case "email":
		if c.SMTP.Host == "" || c.SMTP.From == "" || c.SMTP.To == "" {
			log.Println("WARNING: SMTP settings incomplete. Export delivery will fail at runtime.")
		}
	default:
		return fmt.Errorf("unknown sink %q, want discord or email", c.Sink)
	}
	return nil
}
