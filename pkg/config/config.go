package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinPollInterval is the floor enforced on the alert poll interval.
const MinPollInterval = 15 * time.Second

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Briefing BriefingConfig `mapstructure:"briefing"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Triggers TriggersConfig `mapstructure:"triggers"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Push     PushConfig     `mapstructure:"push"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CORSConfig struct {
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BriefingConfig controls snapshot aggregation and caching
type BriefingConfig struct {
	OwnerID      string        `mapstructure:"owner_id"` // session cache key used by the daily triggers
	NewsTopics   []string      `mapstructure:"news_topics"`
	TaskLimit    int           `mapstructure:"task_limit"`
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

// AlertsConfig controls the proactive alert scheduler
type AlertsConfig struct {
	PollIntervalSeconds int           `mapstructure:"poll_interval_seconds"`
	HomeAddress         string        `mapstructure:"home_address"`
	WorkAddress         string        `mapstructure:"work_address"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
}

// PollInterval returns the configured interval with the floor applied.
func (a AlertsConfig) PollInterval() time.Duration {
	d := time.Duration(a.PollIntervalSeconds) * time.Second
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// TriggersConfig holds the two daily HH:MM trigger times
type TriggersConfig struct {
	MorningTime string `mapstructure:"morning_time"`
	EveningTime string `mapstructure:"evening_time"`
	Timezone    string `mapstructure:"timezone"`
}

type IMAPAccount struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`
}

// SourcesConfig configures the data-source adapters
type SourcesConfig struct {
	IMAPAccounts []IMAPAccount `mapstructure:"imap_accounts"`
	WeatherLat   float64       `mapstructure:"weather_lat"`
	WeatherLng   float64       `mapstructure:"weather_lng"`
	WeatherURL   string        `mapstructure:"weather_url"`
	NewsURL      string        `mapstructure:"news_url"`
	MapsAPIKey   string        `mapstructure:"maps_api_key"`
	MapsURL      string        `mapstructure:"maps_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type DigestConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
}

// Enabled reports whether out-of-band push is configured
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.timeout", 5*time.Second)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("briefing.owner_id", "default")
	v.SetDefault("briefing.news_topics", []string{"technology", "business"})
	v.SetDefault("briefing.task_limit", 50)
	v.SetDefault("briefing.dashboard_ttl", 5*time.Minute)
	v.SetDefault("alerts.poll_interval_seconds", 60)
	v.SetDefault("alerts.heartbeat_interval", 30*time.Second)
	v.SetDefault("triggers.morning_time", "07:00")
	v.SetDefault("triggers.evening_time", "18:00")
	v.SetDefault("triggers.timezone", "Local")
	v.SetDefault("sources.weather_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("sources.news_url", "https://news.google.com/rss/search")
	v.SetDefault("sources.maps_url", "https://maps.googleapis.com/maps/api/distancematrix/json")
	v.SetDefault("sources.http_timeout", 10*time.Second)
	v.SetDefault("digest.smtp_port", 587)
	v.SetDefault("push.subscriber", "mailto:admin@example.com")
}

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// If CONFIG_FILE environment variable is set, use it
	if envConfigFile := os.Getenv("CONFIG_FILE"); envConfigFile != "" {
		configPath = envConfigFile
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		ext := filepath.Ext(file)
		name := strings.TrimSuffix(file, ext)

		v.AddConfigPath(dir)
		v.SetConfigName(name)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("pkg", "config"))
		v.SetConfigName("config")
	}

	// A missing config file is fine when no explicit path was given; defaults and env apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	applyEnvOverrides(v)

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

var envVars = map[string]string{
	"database.enabled":              "DB_ENABLED",
	"database.host":                 "DB_HOST",
	"database.port":                 "DB_PORT",
	"database.user":                 "DB_USER",
	"database.password":             "DB_PASSWORD",
	"database.name":                 "DB_NAME",
	"database.sslmode":              "DB_SSLMODE",
	"server.port":                   "SERVER_PORT",
	"server.mode":                   "SERVER_MODE",
	"server.timeout":                "SERVER_TIMEOUT",
	"redis.enabled":                 "REDIS_ENABLED",
	"redis.host":                    "REDIS_HOST",
	"redis.port":                    "REDIS_PORT",
	"redis.password":                "REDIS_PASSWORD",
	"redis.db":                      "REDIS_DB",
	"logging.level":                 "LOG_LEVEL",
	"briefing.owner_id":             "BRIEFING_OWNER_ID",
	"briefing.news_topics":          "NEWS_TOPICS",
	"alerts.poll_interval_seconds":  "POLL_INTERVAL_SECONDS",
	"alerts.home_address":           "HOME_ADDRESS",
	"alerts.work_address":           "WORK_ADDRESS",
	"triggers.morning_time":         "MORNING_TIME",
	"triggers.evening_time":         "EVENING_TIME",
	"triggers.timezone":             "TRIGGER_TIMEZONE",
	"sources.weather_lat":           "WEATHER_LAT",
	"sources.weather_lng":           "WEATHER_LNG",
	"sources.maps_api_key":          "MAPS_API_KEY",
	"digest.smtp_host":              "SMTP_HOST",
	"digest.smtp_port":              "SMTP_PORT",
	"digest.username":               "SMTP_USER",
	"digest.password":               "SMTP_PASSWORD",
	"digest.from":                   "DIGEST_FROM",
	"digest.to":                     "DIGEST_TO",
	"push.vapid_public_key":         "VAPID_PUBLIC_KEY",
	"push.vapid_private_key":        "VAPID_PRIVATE_KEY",
	"push.subscriber":               "VAPID_SUBSCRIBER",
}

func applyEnvOverrides(v *viper.Viper) {
	for configKey, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		switch envVar {
		case "DB_PORT", "REDIS_PORT", "REDIS_DB", "SERVER_PORT", "SMTP_PORT", "POLL_INTERVAL_SECONDS":
			if intVal, err := strconv.Atoi(value); err == nil {
				v.Set(configKey, intVal)
			}
		case "WEATHER_LAT", "WEATHER_LNG":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				v.Set(configKey, f)
			}
		case "SERVER_TIMEOUT":
			if d, err := time.ParseDuration(value); err == nil {
				v.Set(configKey, d)
			}
		case "DB_ENABLED", "REDIS_ENABLED":
			if value == "true" || value == "1" {
				v.Set(configKey, true)
			} else if value == "false" || value == "0" {
				v.Set(configKey, false)
			}
		case "NEWS_TOPICS":
			v.Set(configKey, strings.Split(value, ","))
		default:
			v.Set(configKey, value)
		}
	}
}
