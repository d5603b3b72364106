package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mookka/searchservice/internal/domain"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithBackoffStopsOnSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 2 {
			return fmt.Errorf("tmdb: %w", domain.ErrUpstreamServer)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, domain.ErrRateLimited)
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if err.Error() != "attempt 3: provider rate limited" {
		t.Fatalf("expected last error, got %q", err.Error())
	}
}

func TestRetryWithBackoffPermanentErrors(t *testing.T) {
	for _, permanent := range []error{
		domain.ErrNotFound,
		domain.ErrUnauthorized,
		domain.ErrMalformedResponse,
		errors.New("decode: invalid character"),
	} {
		calls := 0
		_ = RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			calls++
			return fmt.Errorf("rawg: %w", permanent)
		})
		if calls != 1 {
			t.Fatalf("%v: expected 1 call, got %d", permanent, calls)
		}
	}
}

func TestRetryWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}
	calls := 0
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExponentialBlockDuration(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 2 * time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
		{6, 15 * time.Minute},
		{10, 15 * time.Minute},
	}
	for _, tt := range tests {
		if got := exponentialBlockDuration(tt.failures); got != tt.want {
			t.Errorf("exponentialBlockDuration(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestCircuitBreakerBlocksAndRecovers(t *testing.T) {
	svc := NewService([]Provider{&fakeProvider{name: "tmdb"}}, time.Second)
	base := time.Now()
	failure := fmt.Errorf("tmdb: %w", domain.ErrUpstreamServer)

	for i := 0; i < providerFailureThreshold-1; i++ {
		svc.recordProviderResult("tmdb", "dune", failure, 10*time.Millisecond, base)
	}
	if blocked, _, _ := svc.isProviderBlocked("tmdb", base); blocked {
		t.Fatal("provider blocked before threshold")
	}

	svc.recordProviderResult("tmdb", "dune", failure, 10*time.Millisecond, base)
	blocked, until, lastErr := svc.isProviderBlocked("tmdb", base)
	if !blocked {
		t.Fatal("expected provider to be blocked at threshold")
	}
	if until.Sub(base) != providerBlockBase {
		t.Fatalf("expected %v block, got %v", providerBlockBase, until.Sub(base))
	}
	if lastErr == "" {
		t.Fatal("expected last error to be reported")
	}

	after := until.Add(time.Second)
	if blocked, _, _ := svc.isProviderBlocked("tmdb", after); blocked {
		t.Fatal("provider should be unblocked once the window passes")
	}
	svc.recordProviderResult("tmdb", "dune", failure, 10*time.Millisecond, after)
	_, until, _ = svc.isProviderBlocked("tmdb", after)
	if until.Sub(after) != 4*time.Minute {
		t.Fatalf("expected doubled block, got %v", until.Sub(after))
	}

	svc.recordProviderResult("tmdb", "dune", fmt.Errorf("movie 1: %w", domain.ErrNotFound), 0, after)
	if blocked, _, _ := svc.isProviderBlocked("tmdb", after); blocked {
		t.Fatal("not-found answer should reset the breaker")
	}
}

func TestProviderDiagnosticsAndReset(t *testing.T) {
	svc := NewService([]Provider{
		&fakeProvider{name: "rawg", types: []domain.MediaType{domain.MediaTypeGame}},
	}, time.Second)
	now := time.Now()
	for i := 0; i < providerFailureThreshold; i++ {
		svc.recordProviderResult("rawg", "zelda", errors.New("request timeout"), time.Second, now)
	}

	diagnostics := svc.ProviderDiagnostics()
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostics row, got %d", len(diagnostics))
	}
	row := diagnostics[0]
	if row.ConsecutiveFailures != providerFailureThreshold || row.BlockedUntil == nil {
		t.Fatalf("unexpected diagnostics: %+v", row)
	}
	if row.TimeoutCount != int64(providerFailureThreshold) || row.LastQuery != "zelda" {
		t.Fatalf("unexpected counters: %+v", row)
	}

	if err := svc.ResetProviderHealth("RAWG"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if blocked, _, _ := svc.isProviderBlocked("rawg", now); blocked {
		t.Fatal("expected provider to be unblocked after reset")
	}
	if err := svc.ResetProviderHealth("missing"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}
