package translate

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationError reports a required setting missing for the selected provider.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not configured", e.Setting)
}

// ProviderHTTPError reports a non-2xx response (or a failed round trip) from a provider.
type ProviderHTTPError struct {
	Provider   ProviderKind
	StatusCode int // 0 when the request never got a response
	Message    string
	Cause      error
}

func (e *ProviderHTTPError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s request failed", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ProviderHTTPError) Unwrap() error {
	return e.Cause
}

// AttemptError records the failure of a single model attempt.
type AttemptError struct {
	Model string
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// TranslationProviderError is returned once every translation attempt,
// fallback included, has failed. Cause is the last attempt's error.
type TranslationProviderError struct {
	Provider ProviderKind
	Attempts []*AttemptError
	Cause    error
}

func (e *TranslationProviderError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: no translation attempt succeeded", e.Provider)
	}
	return fmt.Sprintf("%s: all %d translation attempts failed, last error: %v", e.Provider, len(e.Attempts), e.Cause)
}

func (e *TranslationProviderError) Unwrap() error {
	return e.Cause
}

// DetectionError wraps a failed classification call. The inference adapter
// never returns it; it is logged and replaced by the default language.
type DetectionError struct {
	Provider ProviderKind
	Cause    error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s language detection failed: %v", e.Provider, e.Cause)
}

func (e *DetectionError) Unwrap() error {
	return e.Cause
}
