package translate

import (
	"context"
)

// Provider defines the capability every translation backend exposes.
type Provider interface {
	// Kind identifies the provider variant.
	Kind() ProviderKind

	// Detect returns the language code of text (e.g. "en", "fr").
	Detect(ctx context.Context, text string) (string, error)

	// Translate translates text into target. An empty source means the
	// source language is unknown and the provider picks its own default.
	Translate(ctx context.Context, text, target, source string) (string, error)

	// CheckHealth verifies that the backend is configured and reachable.
	CheckHealth(ctx context.Context) error

	// Close releases resources held by the provider.
	Close() error
}
