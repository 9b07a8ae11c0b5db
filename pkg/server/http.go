package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dasmlab/parley/pkg/translate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Dispatcher is the routing core the HTTP layer delegates to.
type Dispatcher interface {
	Default() translate.ProviderKind
	Detect(ctx context.Context, kind translate.ProviderKind, text string) (string, error)
	Translate(ctx context.Context, kind translate.ProviderKind, text, target, source string) (string, error)
}

// DetectRequest is the body of POST /detect.
type DetectRequest struct {
	Text     string  `json:"text"`
	Provider *string `json:"provider,omitempty"`
}

// DetectResponse is the body returned by POST /detect.
type DetectResponse struct {
	DetectedLanguage string `json:"detected_language"`
	Text             string `json:"text"`
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text     string  `json:"text"`
	Target   string  `json:"target"`
	Source   *string `json:"source,omitempty"`
	Provider *string `json:"provider,omitempty"`
}

// TranslateResponse is the body returned by POST /translate.
// SourceLanguage is null when no source was given and detection failed.
type TranslateResponse struct {
	TranslatedText string  `json:"translated_text"`
	OriginalText   string  `json:"original_text"`
	SourceLanguage *string `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	Provider       string  `json:"provider"`
}

// HealthResponse is the body returned by GET /.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// LanguagesResponse is the body returned by GET /languages.
type LanguagesResponse struct {
	Languages []translate.Language `json:"languages"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. "0.0.0.0:8000".
	Addr string
	// CORSOrigins is the allow-list of browser origins; "*" allows any.
	CORSOrigins []string
}

// HTTPServer provides the REST API for detection and translation.
type HTTPServer struct {
	dispatcher Dispatcher
	logger     *logrus.Logger
	opts       Options
	handler    http.Handler
	server     *http.Server
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(dispatcher Dispatcher, logger *logrus.Logger, opts Options) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}

	s := &HTTPServer{
		dispatcher: dispatcher,
		logger:     logger,
		opts:       opts,
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /detect", s.handleDetect)
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("GET /languages", s.handleLanguages)

	// Liveness check
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = corsMiddleware(s.opts.CORSOrigins, h)
	h = instrumentMiddleware(s.logger, h)
	h = requestIDMiddleware(h)
	h = recoverMiddleware(s.logger, h)
	return h
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start serves HTTP until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"addr":         s.opts.Addr,
		"cors_origins": s.opts.CORSOrigins,
	}).Info("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleRoot reports that the API is up and which provider is the default.
func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	provider := s.dispatcher.Default().String()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Provider: provider,
		Message:  fmt.Sprintf("Translation API is running with %s provider", provider),
	})
}

// handleHealthz provides a liveness check endpoint.
func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleLanguages returns the fixed list of supported languages.
func (s *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{Languages: translate.SupportedLanguages()})
}

// handleDetect detects the language of the request text.
func (s *HTTPServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeValidationError(w, r, err)
		return
	}
	if err := validateText(req.Text); err != nil {
		s.writeValidationError(w, r, err)
		return
	}
	kind, err := parseProvider(req.Provider)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	lang, err := s.dispatcher.Detect(r.Context(), kind, req.Text)
	if err != nil {
		requestLogger(s.logger, r).WithError(err).Error("Language detection failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Detail: fmt.Sprintf("Language detection failed: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, DetectResponse{DetectedLanguage: lang, Text: req.Text})
}

// handleTranslate translates the request text, detecting the source
// language first when it is not given.
func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeValidationError(w, r, err)
		return
	}
	if err := validateText(req.Text); err != nil {
		s.writeValidationError(w, r, err)
		return
	}
	if req.Target == "" {
		s.writeValidationError(w, r, &translate.ValidationError{Field: "target", Message: "field required"})
		return
	}
	kind, err := parseProvider(req.Provider)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	log := requestLogger(s.logger, r)

	var sourceLang *string
	source := ""
	if req.Source != nil && *req.Source != "" {
		source = *req.Source
		sourceLang = &source
	} else {
		// Detection failure must not abort the translation.
		detected, err := s.dispatcher.Detect(r.Context(), kind, req.Text)
		if err != nil {
			log.WithError(err).Warn("Source language detection failed, translating without source")
		} else {
			source = detected
			sourceLang = &source
		}
	}

	translated, err := s.dispatcher.Translate(r.Context(), kind, req.Text, req.Target, source)
	if err != nil {
		log.WithError(err).Error("Translation failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Detail: fmt.Sprintf("Translation failed: %v", err),
		})
		return
	}

	provider := kind
	if provider == "" {
		provider = s.dispatcher.Default()
	}

	writeJSON(w, http.StatusOK, TranslateResponse{
		TranslatedText: translated,
		OriginalText:   req.Text,
		SourceLanguage: sourceLang,
		TargetLanguage: req.Target,
		Provider:       provider.String(),
	})
}

func (s *HTTPServer) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestLogger(s.logger, r).WithError(err).Debug("Rejected invalid request")
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &translate.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func validateText(text string) error {
	if utf8.RuneCountInString(text) < 1 {
		return &translate.ValidationError{Field: "text", Message: "should have at least 1 character"}
	}
	return nil
}

// parseProvider returns the empty kind when no provider was requested.
func parseProvider(p *string) (translate.ProviderKind, error) {
	if p == nil {
		return "", nil
	}
	return translate.ParseProviderKind(*p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
