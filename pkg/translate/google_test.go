package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// fakeCloudTranslation serves the three v2 endpoints the client uses.
// Detect and translate must arrive as POST requests carrying a JSON body.
type fakeCloudTranslation struct {
	mu       sync.Mutex
	keys     []string
	methods  []string
	queries  []url.Values
	bodies   []map[string]any
	status   int
	errorMsg string
}

func (f *fakeCloudTranslation) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	var body map[string]any
	if len(raw) > 0 {
		var envelope struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
			body = envelope.Data
		} else {
			_ = json.Unmarshal(raw, &body)
		}
	}

	f.mu.Lock()
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	f.methods = append(f.methods, r.Method)
	f.queries = append(f.queries, r.URL.Query())
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	writeError := func(status int, msg string) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": status, "message": msg},
		})
	}

	if f.status != 0 {
		writeError(f.status, f.errorMsg)
		return
	}

	isTranslate := strings.HasSuffix(r.URL.Path, "/v2")
	isDetect := strings.HasSuffix(r.URL.Path, "/v2/detect")
	if (isTranslate || isDetect) && (r.Method != http.MethodPost || body == nil) {
		writeError(http.StatusBadRequest, "Required Text")
		return
	}

	switch {
	case isDetect:
		w.Write([]byte(`{"data":{"detections":[[{"language":"fr","confidence":0.98,"isReliable":true}]]}}`))
	case strings.HasSuffix(r.URL.Path, "/v2/languages"):
		w.Write([]byte(`{"data":{"languages":[{"language":"en","name":"English"},{"language":"fr","name":"French"}]}}`))
	case isTranslate:
		w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hola mundo","detectedSourceLanguage":"en"}]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCloudTranslation) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return nil
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeCloudTranslation) lastRequest() (method string, query url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.methods) == 0 {
		return "", nil
	}
	return f.methods[len(f.methods)-1], f.queries[len(f.queries)-1]
}

// firstString returns the first element of a JSON array field.
func firstString(body map[string]any, field string) string {
	values, _ := body[field].([]any)
	if len(values) == 0 {
		return ""
	}
	s, _ := values[0].(string)
	return s
}

func newTestGoogle(t *testing.T, fake *fakeCloudTranslation) *GoogleClient {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c, err := NewGoogleClient(GoogleConfig{
		APIKey:   "test-key",
		Endpoint: server.URL + "/",
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewGoogleClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGoogleClient_WithoutAPIKey(t *testing.T) {
	c, err := NewGoogleClient(GoogleConfig{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("client without key must still be created, got: %v", err)
	}
	if c.Kind() != ProviderGoogle {
		t.Errorf("expected %q, got %q", ProviderGoogle, c.Kind())
	}

	ctx := context.Background()
	checks := map[string]error{}
	_, checks["detect"] = c.Detect(ctx, "Hello")
	_, checks["translate"] = c.Translate(ctx, "Hello", "es", "")
	checks["health"] = c.CheckHealth(ctx)

	for op, err := range checks {
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected *ConfigurationError, got %v", op, err)
			continue
		}
		if cfgErr.Setting != GoogleAPIKeySetting {
			t.Errorf("%s: expected setting %q, got %q", op, GoogleAPIKeySetting, cfgErr.Setting)
		}
		if err.Error() != "GOOGLE_API_KEY not configured" {
			t.Errorf("%s: unexpected message %q", op, err.Error())
		}
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close on unconfigured client: %v", err)
	}
}

func TestGoogleClient_Detect(t *testing.T) {
	fake := &fakeCloudTranslation{}
	c := newTestGoogle(t, fake)

	got, err := c.Detect(context.Background(), "Bonjour le monde")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fr" {
		t.Errorf("expected 'fr', got %q", got)
	}
	if fake.keys[0] != "test-key" {
		t.Errorf("expected API key to be sent, got %q", fake.keys[0])
	}

	method, query := fake.lastRequest()
	if method != http.MethodPost {
		t.Errorf("expected POST, got %s", method)
	}
	if query.Has("q") {
		t.Errorf("text must not be sent in the URL, got query %v", query)
	}
	if q := firstString(fake.lastBody(), "q"); q != "Bonjour le monde" {
		t.Errorf("expected text in request body, got %q", q)
	}
}

func TestGoogleClient_Translate(t *testing.T) {
	fake := &fakeCloudTranslation{}
	c := newTestGoogle(t, fake)

	got, err := c.Translate(context.Background(), "Hello world", "es", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hola mundo" {
		t.Errorf("expected 'Hola mundo', got %q", got)
	}

	method, query := fake.lastRequest()
	if method != http.MethodPost {
		t.Errorf("expected POST, got %s", method)
	}
	for _, param := range []string{"q", "target", "source", "format"} {
		if query.Has(param) {
			t.Errorf("%s must be sent in the body, got query %v", param, query)
		}
	}

	body := fake.lastBody()
	if q := firstString(body, "q"); q != "Hello world" {
		t.Errorf("expected text in request body, got %q", q)
	}
	if body["target"] != "es" {
		t.Errorf("expected target 'es', got %v", body["target"])
	}
	if body["source"] != "en" {
		t.Errorf("expected source 'en', got %v", body["source"])
	}
	if body["format"] != "text" {
		t.Errorf("expected format 'text', got %v", body["format"])
	}
}

func TestGoogleClient_Translate_OmitsEmptySource(t *testing.T) {
	fake := &fakeCloudTranslation{}
	c := newTestGoogle(t, fake)

	if _, err := c.Translate(context.Background(), "Hello world", "es", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := fake.lastBody()
	if body == nil {
		t.Fatal("expected a JSON request body")
	}
	if src, ok := body["source"]; ok {
		t.Errorf("expected no source in request, got %v", src)
	}
	if body["target"] != "es" {
		t.Errorf("expected target 'es', got %v", body["target"])
	}
}

func TestGoogleClient_Translate_PassesCodesThrough(t *testing.T) {
	fake := &fakeCloudTranslation{}
	c := newTestGoogle(t, fake)

	if _, err := c.Translate(context.Background(), "Shalom", "iw", "tl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := fake.lastBody()
	if body["target"] != "iw" || body["source"] != "tl" {
		t.Errorf("expected codes to reach the API unchanged, got target=%v source=%v", body["target"], body["source"])
	}
}

func TestGoogleClient_Translate_UnknownTargetFromAPI(t *testing.T) {
	fake := &fakeCloudTranslation{status: http.StatusBadRequest, errorMsg: "Invalid Value"}
	c := newTestGoogle(t, fake)

	_, err := c.Translate(context.Background(), "Hello", "xx", "")
	var httpErr *ProviderHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *ProviderHTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", httpErr.StatusCode)
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		t.Errorf("provider rejection must not surface as *ValidationError, got %v", err)
	}
	if len(fake.keys) != 1 {
		t.Errorf("expected the target to reach the API, got %d calls", len(fake.keys))
	}
}

func TestGoogleClient_APIError(t *testing.T) {
	fake := &fakeCloudTranslation{status: http.StatusForbidden, errorMsg: "API key not valid"}
	c := newTestGoogle(t, fake)

	_, err := c.Translate(context.Background(), "Hello", "es", "en")
	var httpErr *ProviderHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *ProviderHTTPError, got %v", err)
	}
	if httpErr.Provider != ProviderGoogle {
		t.Errorf("expected provider google, got %q", httpErr.Provider)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("expected API message in error, got %q", err.Error())
	}

	if _, err := c.Detect(context.Background(), "Hello"); !errors.As(err, &httpErr) {
		t.Errorf("expected detect error to be *ProviderHTTPError, got %v", err)
	}
}

func TestGoogleClient_CheckHealth(t *testing.T) {
	c := newTestGoogle(t, &fakeCloudTranslation{})
	if err := c.CheckHealth(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	failing := newTestGoogle(t, &fakeCloudTranslation{status: http.StatusInternalServerError, errorMsg: "backend error"})
	if err := failing.CheckHealth(context.Background()); err == nil {
		t.Error("expected error from failing API")
	}
}
