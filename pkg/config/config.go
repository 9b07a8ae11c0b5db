// Package config loads the immutable process configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dasmlab/parley/pkg/translate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Configuration keys. Each maps to the upper-cased environment variable.
const (
	KeyEnvFile             = "env_file"
	KeyHost                = "host"
	KeyPort                = "port"
	KeyReload              = "reload"
	KeyCORSOrigins         = "cors_origins"
	KeyTranslationProvider = "translation_provider"
	KeyHFToken             = "hf_token"
	KeyHFBaseURL           = "hf_base_url"
	KeyGoogleAPIKey        = "google_api_key"
	KeyGoogleEndpoint      = "google_translate_endpoint"
	KeyLogLevel            = "log_level"
	KeyLogFormat           = "log_format"
	KeyProviderTimeout     = "provider_timeout"
	KeyShutdownTimeout     = "shutdown_timeout"
	KeyGRPCHealthPort      = "grpc_health_port"
)

// Config is built once at startup and never modified afterwards.
type Config struct {
	Host   string
	Port   int
	Reload bool

	CORSOrigins []string

	DefaultProvider translate.ProviderKind
	HFToken         string
	HFBaseURL       string
	GoogleAPIKey    string
	GoogleEndpoint  string
	ProviderTimeout time.Duration

	LogLevel  logrus.Level
	LogFormat string

	ShutdownTimeout time.Duration
	GRPCHealthPort  int

	// EnvFile is the .env file that was read, empty if none.
	EnvFile string
}

// Error reports an invalid configuration value.
type Error struct {
	Key   string
	Value string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", strings.ToUpper(e.Key), e.Value, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewViper returns a viper instance with defaults set and environment
// lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyEnvFile, ".env")
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, "8000")
	v.SetDefault(KeyReload, "true")
	v.SetDefault(KeyCORSOrigins, "http://localhost:5173")
	v.SetDefault(KeyTranslationProvider, string(translate.ProviderHuggingFace))
	v.SetDefault(KeyHFBaseURL, translate.DefaultHuggingFaceURL)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyProviderTimeout, translate.DefaultProviderTimeout.String())
	v.SetDefault(KeyShutdownTimeout, "30s")
	v.SetDefault(KeyGRPCHealthPort, "0")
	v.AutomaticEnv()
	return v
}

// Load reads the optional .env file named by env_file and builds a Config.
// Environment variables take precedence over the file, which does not
// override variables that are already set.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if envFile := v.GetString(KeyEnvFile); envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, &Error{Key: KeyEnvFile, Value: envFile, Err: err}
			}
		} else {
			cfg.EnvFile = envFile
		}
	}

	cfg.Host = v.GetString(KeyHost)
	cfg.Reload = strings.EqualFold(strings.TrimSpace(v.GetString(KeyReload)), "true")
	cfg.HFToken = v.GetString(KeyHFToken)
	cfg.HFBaseURL = v.GetString(KeyHFBaseURL)
	cfg.GoogleAPIKey = v.GetString(KeyGoogleAPIKey)
	cfg.GoogleEndpoint = v.GetString(KeyGoogleEndpoint)
	cfg.CORSOrigins = splitList(v.GetString(KeyCORSOrigins))

	var err error
	if cfg.Port, err = parsePort(v, KeyPort); err != nil {
		return nil, err
	}
	if cfg.GRPCHealthPort, err = parsePort(v, KeyGRPCHealthPort); err != nil {
		return nil, err
	}

	provider := v.GetString(KeyTranslationProvider)
	if cfg.DefaultProvider, err = translate.ParseProviderKind(provider); err != nil {
		return nil, &Error{Key: KeyTranslationProvider, Value: provider, Err: err}
	}

	level := v.GetString(KeyLogLevel)
	if cfg.LogLevel, err = logrus.ParseLevel(level); err != nil {
		return nil, &Error{Key: KeyLogLevel, Value: level, Err: err}
	}

	cfg.LogFormat = strings.ToLower(v.GetString(KeyLogFormat))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &Error{Key: KeyLogFormat, Value: cfg.LogFormat, Err: errors.New("must be text or json")}
	}

	if cfg.ProviderTimeout, err = parsePositiveDuration(v, KeyProviderTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parsePositiveDuration(v, KeyShutdownTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ProviderConfig returns the provider factory configuration.
func (c *Config) ProviderConfig(logger *logrus.Logger) translate.Config {
	return translate.Config{
		HFToken:        c.HFToken,
		HFBaseURL:      c.HFBaseURL,
		GoogleAPIKey:   c.GoogleAPIKey,
		GoogleEndpoint: c.GoogleEndpoint,
		Timeout:        c.ProviderTimeout,
		Logger:         logger,
	}
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	logger.SetLevel(c.LogLevel)
	return logger
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePort(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &Error{Key: key, Value: raw, Err: err}
	}
	if port < 0 || port > 65535 {
		return 0, &Error{Key: key, Value: raw, Err: errors.New("out of range")}
	}
	return port, nil
}

func parsePositiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &Error{Key: key, Value: raw, Err: err}
	}
	if d <= 0 {
		return 0, &Error{Key: key, Value: raw, Err: errors.New("must be positive")}
	}
	return d, nil
}
