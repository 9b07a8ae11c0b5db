package service

import (
	"context"
	"fmt"

	"github.com/dasmlab/parley/pkg/translate"
	"github.com/sirupsen/logrus"
)

// Dispatcher routes detection and translation calls to a provider.
// The explicit provider of a call wins; otherwise the process-wide default
// fixed at construction is used. Provider errors are returned unchanged.
type Dispatcher struct {
	providers   map[translate.ProviderKind]translate.Provider
	defaultKind translate.ProviderKind
	logger      *logrus.Logger
}

// NewDispatcher creates a Dispatcher over the given providers.
func NewDispatcher(defaultKind translate.ProviderKind, logger *logrus.Logger, providers ...translate.Provider) (*Dispatcher, error) {
	if logger == nil {
		logger = logrus.New()
	}

	byKind := make(map[translate.ProviderKind]translate.Provider, len(providers))
	for _, p := range providers {
		if _, dup := byKind[p.Kind()]; dup {
			return nil, fmt.Errorf("provider %s registered twice", p.Kind())
		}
		byKind[p.Kind()] = p
	}

	if _, ok := byKind[defaultKind]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultKind)
	}

	logger.WithFields(logrus.Fields{
		"default_provider": defaultKind,
		"providers":        len(byKind),
	}).Info("Dispatcher ready")

	return &Dispatcher{
		providers:   byKind,
		defaultKind: defaultKind,
		logger:      logger,
	}, nil
}

// Default returns the process-wide default provider kind.
func (d *Dispatcher) Default() translate.ProviderKind {
	return d.defaultKind
}

// Resolve returns the provider for kind, or the default when kind is empty.
func (d *Dispatcher) Resolve(kind translate.ProviderKind) (translate.ProviderKind, translate.Provider, error) {
	if kind == "" {
		kind = d.defaultKind
	}
	p, ok := d.providers[kind]
	if !ok {
		return "", nil, &translate.ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("provider %q is not available", kind),
		}
	}
	return kind, p, nil
}

// Detect detects the language of text with the resolved provider.
func (d *Dispatcher) Detect(ctx context.Context, kind translate.ProviderKind, text string) (string, error) {
	resolved, p, err := d.Resolve(kind)
	if err != nil {
		return "", err
	}

	d.logger.WithFields(logrus.Fields{
		"provider":    resolved,
		"text_length": len(text),
	}).Debug("Dispatching detect")

	return p.Detect(ctx, text)
}

// Translate translates text with the resolved provider.
func (d *Dispatcher) Translate(ctx context.Context, kind translate.ProviderKind, text, target, source string) (string, error) {
	resolved, p, err := d.Resolve(kind)
	if err != nil {
		return "", err
	}

	d.logger.WithFields(logrus.Fields{
		"provider":    resolved,
		"source_lang": source,
		"target_lang": target,
		"text_length": len(text),
	}).Debug("Dispatching translate")

	return p.Translate(ctx, text, target, source)
}

// CheckHealth runs the health check of every provider. A nil value means healthy.
func (d *Dispatcher) CheckHealth(ctx context.Context) map[translate.ProviderKind]error {
	results := make(map[translate.ProviderKind]error, len(d.providers))
	for kind, p := range d.providers {
		err := p.CheckHealth(ctx)
		if err != nil {
			d.logger.WithError(err).WithField("provider", kind).Warn("Provider health check failed")
		}
		results[kind] = err
	}
	return results
}

// Close closes every provider and returns the first error.
func (d *Dispatcher) Close() error {
	var first error
	for kind, p := range d.providers {
		if err := p.Close(); err != nil {
			d.logger.WithError(err).WithField("provider", kind).Warn("Failed to close provider")
			if first == nil {
				first = err
			}
		}
	}
	return first
}
