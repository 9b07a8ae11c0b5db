package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHuggingFaceURL is the base URL models are addressed under.
	DefaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models"
	// DefaultProviderTimeout is the default timeout for outbound provider calls.
	DefaultProviderTimeout = 30 * time.Second

	// PrimaryTranslationModel is the multilingual model tried first.
	PrimaryTranslationModel = "facebook/nllb-200-distilled-600M"
	// DetectionModel is the language classification model.
	DetectionModel = "papluca/xlm-roberta-base-language-detection"

	maxErrorBodyBytes = 4 << 10
)

// HuggingFaceConfig holds configuration for the inference API client.
type HuggingFaceConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *logrus.Logger
	// HTTPClient overrides the pooled client built from Timeout.
	HTTPClient *http.Client
}

// HuggingFaceClient implements Provider using the Hugging Face inference API.
// Translation goes through NLLB-200 first and falls back to a bilingual
// OPUS model selected by language pair.
type HuggingFaceClient struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *MetricsCollector
}

// NewHuggingFaceClient creates a new inference API client.
func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newPooledHTTPClient(cfg.Timeout)
	}

	if cfg.Token != "" {
		cfg.Logger.Info("Using Hugging Face with authentication token")
	} else {
		cfg.Logger.Warn("Using Hugging Face without token (rate limited, for testing only)")
	}

	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		metrics:    NewMetricsCollector(ProviderHuggingFace),
	}
}

// newPooledHTTPClient builds the client shared by every request of a provider.
func newPooledHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 20
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Kind implements Provider.
func (c *HuggingFaceClient) Kind() ProviderKind {
	return ProviderHuggingFace
}

// inferenceRequest represents an inference API request.
type inferenceRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters *translateParameters `json:"parameters,omitempty"`
}

type translateParameters struct {
	SrcLang string `json:"src_lang"`
	TgtLang string `json:"tgt_lang"`
}

// translationOutput is one element of a translation response.
type translationOutput struct {
	TranslationText string `json:"translation_text"`
}

// classification is one ranked label of a classification response.
type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// inferenceErrorBody is the error payload the inference API returns.
type inferenceErrorBody struct {
	Error string `json:"error"`
}

// Detect classifies the language of text. It never fails: any error is
// logged and DefaultDetectedLanguage is returned instead, which means
// non-English input may be treated as English while the classifier is down.
func (c *HuggingFaceClient) Detect(ctx context.Context, text string) (string, error) {
	startTime := time.Now()
	lang, err := c.detect(ctx, text)
	c.metrics.RecordDetection(time.Since(startTime), err == nil)

	if err != nil {
		c.metrics.RecordDetectionDefault()
		c.logger.WithError(&DetectionError{Provider: ProviderHuggingFace, Cause: err}).WithFields(logrus.Fields{
			"model":    DetectionModel,
			"fallback": DefaultDetectedLanguage,
		}).Warn("Language detection failed, using default language")
		return DefaultDetectedLanguage, nil
	}
	return lang, nil
}

func (c *HuggingFaceClient) detect(ctx context.Context, text string) (string, error) {
	raw, err := c.infer(ctx, DetectionModel, inferenceRequest{Inputs: text})
	if err != nil {
		return "", err
	}

	predictions, err := parseClassification(raw)
	if err != nil {
		return "", err
	}

	best := topLabel(predictions)
	if best == "" {
		return "", errors.New("classifier returned no labels")
	}

	c.logger.WithFields(logrus.Fields{
		"detected_language": best,
		"text_length":       len(text),
	}).Debug("Detected language")
	return best, nil
}

// parseClassification accepts both the flat ([{label,score}]) and the
// nested ([[{label,score}]]) response shapes.
func parseClassification(raw []byte) ([]classification, error) {
	var flat []classification
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]classification
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("decode classification response: %w", err)
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}

// topLabel returns the label with the highest score; ties keep the
// provider's ranking.
func topLabel(predictions []classification) string {
	best := -1
	for i, p := range predictions {
		if p.Label == "" {
			continue
		}
		if best < 0 || p.Score > predictions[best].Score {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return predictions[best].Label
}

// Translate translates text with NLLB-200, falling back to the bilingual
// OPUS model of the (source, target) pair when the primary call fails.
func (c *HuggingFaceClient) Translate(ctx context.Context, text, target, source string) (string, error) {
	if source == "" {
		source = DefaultSourceLanguage
	}
	srcCode := ToExtendedCode(source)
	tgtCode := ToExtendedCode(target)
	fallbackModel := FallbackModelFor(source, target)

	c.logger.WithFields(logrus.Fields{
		"source_lang":    source,
		"target_lang":    target,
		"src_code":       srcCode,
		"tgt_code":       tgtCode,
		"fallback_model": fallbackModel,
		"text_length":    len(text),
	}).Debug("Translating text with Hugging Face")

	attempts := []attempt{
		{
			model: PrimaryTranslationModel,
			run: func(ctx context.Context) (string, error) {
				return c.translateWith(ctx, PrimaryTranslationModel, inferenceRequest{
					Inputs:     text,
					Parameters: &translateParameters{SrcLang: srcCode, TgtLang: tgtCode},
				})
			},
		},
		{
			// The bilingual model encodes the pair, so no codes are sent.
			model: fallbackModel,
			run: func(ctx context.Context) (string, error) {
				return c.translateWith(ctx, fallbackModel, inferenceRequest{Inputs: text})
			},
		},
	}

	startTime := time.Now()
	translated, err := runAttempts(ctx, ProviderHuggingFace, attempts, c.metrics, c.logger)
	duration := time.Since(startTime)
	c.metrics.RecordTranslation(duration, err == nil, len(text), len(translated))
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": source,
		"target_lang": target,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")
	return translated, nil
}

func (c *HuggingFaceClient) translateWith(ctx context.Context, model string, payload inferenceRequest) (string, error) {
	raw, err := c.infer(ctx, model, payload)
	if err != nil {
		return "", err
	}

	var outputs []translationOutput
	if err := json.Unmarshal(raw, &outputs); err != nil {
		var single translationOutput
		if errSingle := json.Unmarshal(raw, &single); errSingle != nil {
			return "", fmt.Errorf("decode translation response: %w", err)
		}
		outputs = []translationOutput{single}
	}
	if len(outputs) == 0 {
		return "", errors.New("no translation returned")
	}
	// A 200 answer can still carry {"error": ...} instead of an output.
	if outputs[0].TranslationText == "" {
		return "", fmt.Errorf("no translation returned: %s", errorMessage(raw))
	}
	return outputs[0].TranslationText, nil
}

// infer posts payload to the model endpoint and returns the raw response body.
func (c *HuggingFaceClient) infer(ctx context.Context, model string, payload inferenceRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model": model,
		}).Debug("Inference request failed")
		return nil, &ProviderHTTPError{Provider: ProviderHuggingFace, Cause: err}
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"model":       model,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Inference request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &ProviderHTTPError{
			Provider:   ProviderHuggingFace,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// errorMessage extracts the "error" field of an inference error body,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var parsed inferenceErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(body))
}

// CheckHealth verifies that the inference API is reachable.
// Any answer below 500 counts as healthy: the base URL itself is not a model.
func (c *HuggingFaceClient) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+DetectionModel, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderHTTPError{Provider: ProviderHuggingFace, Message: "health check failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &ProviderHTTPError{Provider: ProviderHuggingFace, StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// Close releases idle pooled connections.
func (c *HuggingFaceClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
