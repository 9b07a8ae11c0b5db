package translate

import (
	"context"

	"github.com/sirupsen/logrus"
)

// attempt is one translation strategy: a model and how to call it.
type attempt struct {
	model string
	run   func(ctx context.Context) (string, error)
}

// runAttempts evaluates attempts in order and returns the first success.
// When all of them fail the result is a *TranslationProviderError whose
// cause is the last attempt's error; earlier errors are only logged.
func runAttempts(ctx context.Context, provider ProviderKind, attempts []attempt, metrics *MetricsCollector, logger *logrus.Logger) (string, error) {
	failures := make([]*AttemptError, 0, len(attempts))

	for i, a := range attempts {
		if err := ctx.Err(); err != nil {
			failures = append(failures, &AttemptError{Model: a.model, Err: err})
			break
		}

		text, err := a.run(ctx)
		if err == nil {
			metrics.RecordModelAttempt(a.model, true)
			if i > 0 {
				logger.WithFields(logrus.Fields{
					"provider": provider,
					"model":    a.model,
					"attempt":  i + 1,
				}).Info("Translation succeeded with fallback model")
			}
			return text, nil
		}

		metrics.RecordModelAttempt(a.model, false)
		failures = append(failures, &AttemptError{Model: a.model, Err: err})

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"provider": provider,
			"model":    a.model,
			"attempt":  i + 1,
		})
		if i < len(attempts)-1 {
			entry.Warn("Translation model failed, trying next model")
		} else {
			entry.Error("Last translation model failed")
		}
	}

	var cause error
	if len(failures) > 0 {
		cause = failures[len(failures)-1]
	}
	return "", &TranslationProviderError{
		Provider: provider,
		Attempts: failures,
		Cause:    cause,
	}
}
