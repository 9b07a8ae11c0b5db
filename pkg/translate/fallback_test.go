package translate

import (
	"context"
	"errors"
	"testing"
)

func staticAttempt(model, text string, err error, calls *[]string) attempt {
	return attempt{
		model: model,
		run: func(ctx context.Context) (string, error) {
			*calls = append(*calls, model)
			return text, err
		},
	}
}

func TestRunAttempts_FirstSucceeds(t *testing.T) {
	var calls []string
	metrics := NewMetricsCollector("test")

	got, err := runAttempts(context.Background(), "test", []attempt{
		staticAttempt("primary", "ok", nil, &calls),
		staticAttempt("fallback", "unused", nil, &calls),
	}, metrics, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected 'ok', got %q", got)
	}
	if len(calls) != 1 {
		t.Errorf("fallback must not run after a success, calls: %v", calls)
	}
}

func TestRunAttempts_FallsBack(t *testing.T) {
	var calls []string
	metrics := NewMetricsCollector("test")

	got, err := runAttempts(context.Background(), "test", []attempt{
		staticAttempt("primary", "", errors.New("boom"), &calls),
		staticAttempt("fallback", "recovered", nil, &calls),
	}, metrics, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("expected 'recovered', got %q", got)
	}
	if len(calls) != 2 || calls[0] != "primary" || calls[1] != "fallback" {
		t.Errorf("unexpected call order: %v", calls)
	}
}

func TestRunAttempts_AllFail(t *testing.T) {
	var calls []string
	metrics := NewMetricsCollector("test")
	primaryErr := errors.New("primary down")
	fallbackErr := errors.New("fallback down")

	_, err := runAttempts(context.Background(), "test", []attempt{
		staticAttempt("primary", "", primaryErr, &calls),
		staticAttempt("fallback", "", fallbackErr, &calls),
	}, metrics, quietLogger())

	var tpErr *TranslationProviderError
	if !errors.As(err, &tpErr) {
		t.Fatalf("expected *TranslationProviderError, got %v", err)
	}
	if len(tpErr.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(tpErr.Attempts))
	}
	if tpErr.Attempts[0].Model != "primary" || !errors.Is(tpErr.Attempts[0], primaryErr) {
		t.Errorf("first attempt not recorded: %+v", tpErr.Attempts[0])
	}
	if !errors.Is(err, fallbackErr) {
		t.Errorf("expected the last error as cause, got %v", err)
	}
	if errors.Is(err, primaryErr) {
		t.Errorf("the primary error must not be the cause")
	}
	want := "test: all 2 translation attempts failed, last error: model fallback: fallback down"
	if err.Error() != want {
		t.Errorf("unexpected message:\n got: %s\nwant: %s", err.Error(), want)
	}
}

func TestRunAttempts_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string

	_, err := runAttempts(ctx, "test", []attempt{
		{
			model: "primary",
			run: func(ctx context.Context) (string, error) {
				calls = append(calls, "primary")
				cancel()
				return "", ctx.Err()
			},
		},
		staticAttempt("fallback", "unused", nil, &calls),
	}, NewMetricsCollector("test"), quietLogger())

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("fallback must not run once the context is canceled, calls: %v", calls)
	}
}
