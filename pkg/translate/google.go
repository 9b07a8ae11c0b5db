package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"
)

// GoogleAPIKeySetting names the credential the Google provider requires.
const GoogleAPIKeySetting = "GOOGLE_API_KEY"

// googleTextFormat keeps the API from treating input as HTML.
const googleTextFormat = "text"

// GoogleConfig holds configuration for the Cloud Translation client.
type GoogleConfig struct {
	APIKey string
	// Endpoint overrides the default Cloud Translation endpoint.
	Endpoint string
	Timeout  time.Duration
	Logger   *logrus.Logger
}

// GoogleClient implements Provider using the Cloud Translation v2 REST API,
// authenticated with an API key. Detect and translate are sent as POST
// requests with a JSON body.
type GoogleClient struct {
	service *translatev2.Service // nil when no API key is configured
	timeout time.Duration
	logger  *logrus.Logger
	metrics *MetricsCollector
}

// NewGoogleClient creates a new Cloud Translation client. Without an API
// key the client is still returned, and every operation fails with a
// *ConfigurationError.
func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	c := &GoogleClient{
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		metrics: NewMetricsCollector(ProviderGoogle),
	}

	if cfg.APIKey == "" {
		cfg.Logger.Warn("GOOGLE_API_KEY not configured, Google provider requests will fail")
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := translatev2.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create cloud translation client: %w", err)
	}
	c.service = service
	return c, nil
}

// Kind implements Provider.
func (c *GoogleClient) Kind() ProviderKind {
	return ProviderGoogle
}

func (c *GoogleClient) checkConfigured() error {
	if c.service == nil {
		return &ConfigurationError{Setting: GoogleAPIKeySetting}
	}
	return nil
}

// Detect returns the first detection for text.
func (c *GoogleClient) Detect(ctx context.Context, text string) (string, error) {
	if err := c.checkConfigured(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := c.service.Detections.Detect(&translatev2.DetectLanguageRequest{
		Q: []string{text},
	}).Context(ctx).Do()
	c.metrics.RecordDetection(time.Since(startTime), err == nil)
	if err != nil {
		c.logger.WithError(err).Error("Cloud Translation detect request failed")
		return "", c.wrapError(err)
	}

	if len(resp.Detections) == 0 || len(resp.Detections[0]) == 0 || resp.Detections[0][0] == nil {
		return "", &ProviderHTTPError{Provider: ProviderGoogle, Message: "no detection returned"}
	}

	detection := resp.Detections[0][0]
	c.logger.WithFields(logrus.Fields{
		"detected_language": detection.Language,
		"confidence":        detection.Confidence,
	}).Debug("Detected language")
	return detection.Language, nil
}

// Translate translates text into target. Language codes are passed through
// unchanged; an empty source is left out of the request so the API detects it.
func (c *GoogleClient) Translate(ctx context.Context, text, target, source string) (string, error) {
	if err := c.checkConfigured(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := c.service.Translations.Translate(&translatev2.TranslateTextRequest{
		Q:      []string{text},
		Target: target,
		Source: source,
		Format: googleTextFormat,
	}).Context(ctx).Do()
	duration := time.Since(startTime)
	if err == nil && (len(resp.Translations) == 0 || resp.Translations[0] == nil) {
		err = errors.New("no translation returned")
	}

	var translated string
	if err == nil {
		translated = resp.Translations[0].TranslatedText
	}
	c.metrics.RecordTranslation(duration, err == nil, len(text), len(translated))

	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"source_lang": source,
			"target_lang": target,
		}).Error("Cloud Translation request failed")
		return "", c.wrapError(err)
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": source,
		"target_lang": target,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")
	return translated, nil
}

// CheckHealth uses the languages endpoint as a health check.
func (c *GoogleClient) CheckHealth(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.service.Languages.List().Target("en").Context(ctx).Do(); err != nil {
		return c.wrapError(err)
	}
	return nil
}

// Close is a no-op: the generated service holds no resources beyond its
// HTTP client.
func (c *GoogleClient) Close() error {
	return nil
}

// wrapError converts API errors into *ProviderHTTPError, keeping the HTTP
// status when the API answered.
func (c *GoogleClient) wrapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ProviderHTTPError{
			Provider:   ProviderGoogle,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return &ProviderHTTPError{Provider: ProviderGoogle, Cause: err}
}
