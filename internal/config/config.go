package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Backend     BackendConfig
	Realtime    RealtimeConfig
	Geolocation GeolocationConfig
	Upload      UploadConfig
	Drafts      DraftConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

// BackendConfig points at the remote donation backend. BaseURL already
// includes the API prefix, e.g. https://host:8443/api.
type BackendConfig struct {
	BaseURL      string
	AuthURL      string
	ImageBaseURL string
	Timeout      time.Duration
	ReadRetries  int
}

type RealtimeConfig struct {
	Transport      string // stomp, mqtt or none
	URL            string
	ReconnectDelay time.Duration
	MQTTClientID   string
	MQTTUsername   string
	MQTTPassword   string
	TopicPrefix    string
}

type GeolocationConfig struct {
	AcquireTimeout    time.Duration
	ReverseGeocodeURL string
	UserAgent         string
	Language          string
}

type UploadConfig struct {
	MaxImageBytes int64
}

// DraftConfig bounds how long an abandoned update draft stays open.
type DraftConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 30)
	v.SetDefault("BACKEND_READ_RETRIES", 2)

	v.SetDefault("REALTIME_TRANSPORT", "stomp")
	v.SetDefault("REALTIME_RECONNECT_DELAY_MS", 5000)
	v.SetDefault("REALTIME_TOPIC_PREFIX", "/topic")
	v.SetDefault("MQTT_CLIENT_ID", "donation-console")

	v.SetDefault("GEO_ACQUIRE_TIMEOUT_SECONDS", 15)
	v.SetDefault("GEO_REVERSE_URL", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("GEO_USER_AGENT", "donation-console")
	v.SetDefault("GEO_LANGUAGE", "es")

	v.SetDefault("UPLOAD_MAX_IMAGE_BYTES", 5<<20)
	v.SetDefault("DRAFT_TTL_MINUTES", 30)

	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)

	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	v.SetDefault("CORS_MAX_AGE", int((12 * time.Hour).Seconds()))
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
			AuthURL:      strings.TrimRight(v.GetString("BACKEND_AUTH_URL"), "/"),
			ImageBaseURL: strings.TrimRight(v.GetString("BACKEND_IMAGE_BASE_URL"), "/"),
			Timeout:      time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
			ReadRetries:  v.GetInt("BACKEND_READ_RETRIES"),
		},
		Realtime: RealtimeConfig{
			Transport:      strings.ToLower(v.GetString("REALTIME_TRANSPORT")),
			URL:            v.GetString("REALTIME_URL"),
			ReconnectDelay: time.Duration(v.GetInt("REALTIME_RECONNECT_DELAY_MS")) * time.Millisecond,
			MQTTClientID:   v.GetString("MQTT_CLIENT_ID"),
			MQTTUsername:   v.GetString("MQTT_USERNAME"),
			MQTTPassword:   v.GetString("MQTT_PASSWORD"),
			TopicPrefix:    strings.TrimRight(v.GetString("REALTIME_TOPIC_PREFIX"), "/"),
		},
		Geolocation: GeolocationConfig{
			AcquireTimeout:    time.Duration(v.GetInt("GEO_ACQUIRE_TIMEOUT_SECONDS")) * time.Second,
			ReverseGeocodeURL: v.GetString("GEO_REVERSE_URL"),
			UserAgent:         v.GetString("GEO_USER_AGENT"),
			Language:          v.GetString("GEO_LANGUAGE"),
		},
		Upload: UploadConfig{
			MaxImageBytes: v.GetInt64("UPLOAD_MAX_IMAGE_BYTES"),
		},
		Drafts: DraftConfig{
			TTL: time.Duration(v.GetInt("DRAFT_TTL_MINUTES")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   v.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   v.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   v.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}

	if config.Backend.AuthURL == "" {
		config.Backend.AuthURL = deriveAuthURL(config.Backend.BaseURL)
	}

	return config, config.Validate()
}

// Validate checks the values the console cannot start without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	switch c.Realtime.Transport {
	case "none":
	case "stomp", "mqtt":
		if c.Realtime.URL == "" {
			return fmt.Errorf("REALTIME_URL is required for transport %q", c.Realtime.Transport)
		}
	default:
		return fmt.Errorf("unknown REALTIME_TRANSPORT %q", c.Realtime.Transport)
	}
	if c.Realtime.ReconnectDelay <= 0 {
		return errors.New("REALTIME_RECONNECT_DELAY_MS must be positive")
	}
	if c.Drafts.TTL <= 0 {
		return errors.New("DRAFT_TTL_MINUTES must be positive")
	}
	if c.Geolocation.AcquireTimeout <= 0 {
		return errors.New("GEO_ACQUIRE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// deriveAuthURL maps https://host/api to https://host/auth, the login
// endpoint living beside the API prefix.
func deriveAuthURL(base string) string {
	if strings.HasSuffix(base, "/api") {
		return strings.TrimSuffix(base, "/api") + "/auth"
	}
	return base + "/auth"
}
