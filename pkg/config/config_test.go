package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dasmlab/parley/pkg/translate"
	"github.com/sirupsen/logrus"
)

var allKeys = []string{
	KeyEnvFile, KeyHost, KeyPort, KeyReload, KeyCORSOrigins,
	KeyTranslationProvider, KeyHFToken, KeyHFBaseURL, KeyGoogleAPIKey,
	KeyGoogleEndpoint, KeyLogLevel, KeyLogFormat, KeyProviderTimeout,
	KeyShutdownTimeout, KeyGRPCHealthPort,
}

// isolateEnv clears every configuration variable and points env_file at
// a path that does not exist.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(strings.ToUpper(key), "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("expected 0.0.0.0:8000, got %s", cfg.Addr())
	}
	if cfg.DefaultProvider != translate.ProviderHuggingFace {
		t.Errorf("expected huggingface default, got %q", cfg.DefaultProvider)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if !cfg.Reload {
		t.Error("expected reload to default to true")
	}
	if cfg.HFBaseURL != translate.DefaultHuggingFaceURL {
		t.Errorf("unexpected HF base URL: %q", cfg.HFBaseURL)
	}
	if cfg.HFToken != "" || cfg.GoogleAPIKey != "" {
		t.Error("credentials must default to empty")
	}
	if cfg.ProviderTimeout != 30*time.Second || cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts: %v / %v", cfg.ProviderTimeout, cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != logrus.InfoLevel || cfg.LogFormat != "text" {
		t.Errorf("unexpected logging config: %v / %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.GRPCHealthPort != 0 {
		t.Errorf("expected gRPC health disabled, got %d", cfg.GRPCHealthPort)
	}
	if cfg.EnvFile != "" {
		t.Errorf("expected no env file to be read, got %q", cfg.EnvFile)
	}
}

func TestLoad_Environment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("RELOAD", "false")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,,")
	t.Setenv("TRANSLATION_PROVIDER", "Google")
	t.Setenv("GOOGLE_API_KEY", "key-123")
	t.Setenv("HF_TOKEN", "hf_abc")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("GRPC_HEALTH_PORT", "9090")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Reload {
		t.Error("expected reload false")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.DefaultProvider != translate.ProviderGoogle {
		t.Errorf("expected google, got %q", cfg.DefaultProvider)
	}
	if cfg.LogLevel != logrus.DebugLevel || cfg.LogFormat != "json" {
		t.Errorf("unexpected logging config: %v / %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.GRPCHealthPort != 9090 {
		t.Errorf("expected 9090, got %d", cfg.GRPCHealthPort)
	}

	pc := cfg.ProviderConfig(nil)
	if pc.GoogleAPIKey != "key-123" || pc.HFToken != "hf_abc" || pc.Timeout != 5*time.Second {
		t.Errorf("unexpected provider config: %+v", pc)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "TRANSLATION_PROVIDER=google\nGOOGLE_API_KEY=from-file\nPORT=8100\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// The process environment wins over the file.
	t.Setenv("PORT", "8200")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EnvFile != path {
		t.Errorf("expected env file %q to be recorded, got %q", path, cfg.EnvFile)
	}
	if cfg.DefaultProvider != translate.ProviderGoogle || cfg.GoogleAPIKey != "from-file" {
		t.Errorf("expected values from file, got provider=%q key=%q", cfg.DefaultProvider, cfg.GoogleAPIKey)
	}
	if cfg.Port != 8200 {
		t.Errorf("expected environment to win, got port %d", cfg.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"TRANSLATION_PROVIDER", "libretranslate"},
		{"PORT", "http"},
		{"PORT", "70000"},
		{"LOG_LEVEL", "loud"},
		{"LOG_FORMAT", "xml"},
		{"PROVIDER_TIMEOUT", "soon"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"GRPC_HEALTH_PORT", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load(NewViper())
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *config.Error, got %v", err)
			}
			if strings.ToUpper(cfgErr.Key) != tt.env {
				t.Errorf("expected key %s, got %s", tt.env, cfgErr.Key)
			}
			if !strings.Contains(err.Error(), tt.env) {
				t.Errorf("expected message to name %s, got %q", tt.env, err.Error())
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	text := (&Config{LogLevel: logrus.WarnLevel, LogFormat: "text"}).NewLogger()
	if text.GetLevel() != logrus.WarnLevel {
		t.Errorf("expected warn level, got %v", text.GetLevel())
	}
	if _, ok := text.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("expected text formatter, got %T", text.Formatter)
	}

	json := (&Config{LogLevel: logrus.InfoLevel, LogFormat: "json"}).NewLogger()
	if _, ok := json.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", json.Formatter)
	}
}
