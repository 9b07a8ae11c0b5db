package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ProviderKind identifies a translation provider. The zero value means
// "not specified" and resolves to the process-wide default.
type ProviderKind string

const (
	// ProviderHuggingFace uses the hosted inference API (NLLB + OPUS models).
	ProviderHuggingFace ProviderKind = "huggingface"
	// ProviderGoogle uses the Google Cloud Translation v2 API.
	ProviderGoogle ProviderKind = "google"
)

// ProviderKinds lists every provider variant.
var ProviderKinds = []ProviderKind{ProviderHuggingFace, ProviderGoogle}

func (k ProviderKind) String() string {
	return string(k)
}

// ParseProviderKind parses a string into a ProviderKind.
// Returns an error if the string is not a known provider.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "huggingface":
		return ProviderHuggingFace, nil
	case "google":
		return ProviderGoogle, nil
	default:
		return "", &ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q (supported: huggingface, google)", s),
		}
	}
}

// Config holds configuration for creating provider instances.
type Config struct {
	// HFToken is the optional bearer token for the inference API.
	HFToken string
	// HFBaseURL is the base URL models are addressed under.
	// Defaults to DefaultHuggingFaceURL if not specified.
	HFBaseURL string
	// GoogleAPIKey is required for any Google operation.
	GoogleAPIKey string
	// GoogleEndpoint overrides the Cloud Translation endpoint.
	GoogleEndpoint string
	// Timeout bounds every outbound provider call.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewProvider creates the provider of the given kind.
func NewProvider(kind ProviderKind, cfg Config) (Provider, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"provider": kind,
		"timeout":  cfg.Timeout.String(),
	}).Info("Creating translation provider")

	switch kind {
	case ProviderHuggingFace:
		return NewHuggingFaceClient(HuggingFaceConfig{
			BaseURL: cfg.HFBaseURL,
			Token:   cfg.HFToken,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		}), nil
	case ProviderGoogle:
		client, err := NewGoogleClient(GoogleConfig{
			APIKey:   cfg.GoogleAPIKey,
			Endpoint: cfg.GoogleEndpoint,
			Timeout:  cfg.Timeout,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"provider": kind,
		}).Error("Unknown translation provider")
		return nil, fmt.Errorf("unknown translation provider: %s", kind)
	}
}

// NewProviders creates one instance of every provider kind. Providers
// created before a failure are closed.
func NewProviders(cfg Config) ([]Provider, error) {
	providers := make([]Provider, 0, len(ProviderKinds))
	for _, kind := range ProviderKinds {
		p, err := NewProvider(kind, cfg)
		if err != nil {
			for _, created := range providers {
				_ = created.Close()
			}
			return nil, fmt.Errorf("create %s provider: %w", kind, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
