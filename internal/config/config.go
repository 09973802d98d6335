package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	AI       AIConfig       `yaml:"ai"`
	Chat     ChatConfig     `yaml:"chat"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	Mode         string        `yaml:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres or sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Channel   string        `yaml:"channel"`
	TTL       time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

type ChatConfig struct {
	MaxMessageLength int           `yaml:"max_message_length"`
	HistoryLimit     int           `yaml:"history_limit"`
	ReplyTimeout     time.Duration `yaml:"reply_timeout"`
	StreamBuffer     int           `yaml:"stream_buffer"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "support_agent",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Redis: RedisConfig{
			KeyPrefix: "support-agent:",
			Channel:   "support-agent:events",
			TTL:       24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "support-escalations",
		},
		AI: AIConfig{
			BaseURL:     "http://127.0.0.1:8000",
			Timeout:     10 * time.Second,
			Temperature: 0.3,
			MaxTokens:   400,
		},
		Chat: ChatConfig{
			MaxMessageLength: 1000,
			HistoryLimit:     20,
			ReplyTimeout:     8 * time.Second,
			StreamBuffer:     64,
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when absent), .env, and
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	_ = godotenv.Load(".env")
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "APP_ENV")
	setString(&c.Server.Host, "APP_HOST")
	setString(&c.Server.Port, "APP_PORT", "HTTP_PORT")
	setString(&c.Server.Mode, "GIN_MODE")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_DATABASE", "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setInt(&c.Database.MaxConns, "DB_MAX_CONNS")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")

	setString(&c.AI.BaseURL, "AI_BASE_URL")
	setDuration(&c.AI.Timeout, "AI_TIMEOUT")
	setDuration(&c.Chat.ReplyTimeout, "CHAT_REPLY_TIMEOUT")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setDuration(&c.Auth.TokenTTL, "JWT_TTL")

	if v := os.Getenv("MAIL_ENABLED"); v != "" {
		c.Mail.Enabled, _ = strconv.ParseBool(v)
	}
	setString(&c.Mail.Host, "SMTP_HOST")
	setInt(&c.Mail.Port, "SMTP_PORT")
	setString(&c.Mail.Username, "SMTP_USERNAME")
	setString(&c.Mail.Password, "SMTP_PASSWORD")
	setString(&c.Mail.From, "MAIL_FROM")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
			errs = append(errs, errors.New("database: host and name (or dsn) are required"))
		}
	case "sqlite":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database: sqlite requires dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unsupported driver %q", c.Database.Driver))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server: port is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth: JWT_SECRET is required"))
	}
	if c.Env == "production" && c.Database.Driver == "postgres" && c.Database.DSN == "" && c.Database.Password == "" {
		errs = append(errs, errors.New("database: in production DB_PASSWORD is required"))
	}
	if c.Chat.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("chat: max_message_length must be positive"))
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		errs = append(errs, errors.New("mail: host and from are required when enabled"))
	}
	return errors.Join(errs...)
}

// DatabaseURL is the connection string used by gorm and by migrations.
func (c *Config) DatabaseURL() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	pass := url.QueryEscape(c.Database.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User, pass, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// setString assigns the first non-empty variable among keys.
func setString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
