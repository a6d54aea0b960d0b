package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrier(&Config{
		MaxRetries:    maxRetries,
		BackoffFactor: 1.0,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		Jitter:        0,
	})
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	counter := 0
	err := fastRetrier(3).Do(context.Background(), func() error {
		counter++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	counter := 0
	err := fastRetrier(3).Do(context.Background(), func() error {
		counter++
		if counter < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 3 {
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	wantErr := errors.New("persistent error")
	counter := 0
	err := fastRetrier(2).Do(context.Background(), func() error {
		counter++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if counter != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", counter)
	}
}

func TestRetry_DoIf_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("validation failure")
	counter := 0
	err := fastRetrier(5).DoIf(context.Background(), func() error {
		counter++
		return fatal
	}, func(err error) bool {
		return !errors.Is(err, fatal)
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected %v, got %v", fatal, err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastRetrier(5).Do(ctx, func() error {
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
