package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	cb := NewBreaker[int]("test-open", BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  4,
		FailureRatio: 0.5,
	})

	boom := errors.New("boom")
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, boom })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !IsRejected(err) {
		t.Errorf("expected rejection while open, got %v", err)
	}
	if got := Outcome(err); got != "rejected" {
		t.Errorf("Outcome = %q, want rejected", got)
	}
}

func TestBreakerStaysClosedBelowMinimum(t *testing.T) {
	cb := NewBreaker[int]("test-closed", DefaultBreakerConfig())

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, errors.New("fail") })
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestBreakerIgnoresAbandonedCalls(t *testing.T) {
	cb := NewBreaker[int]("test-abandoned", BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  4,
		FailureRatio: 0.5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (int, error) {
			return 0, Abandoned(ctx, fmt.Errorf("fetching: %w", ctx.Err()))
		})
		if !errors.Is(err, ErrAbandoned) {
			t.Fatalf("err = %v, want ErrAbandoned", err)
		}
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if c := cb.Counts(); c.TotalFailures != 0 {
		t.Errorf("failures = %d, want 0", c.TotalFailures)
	}
}

func TestAbandoned(t *testing.T) {
	boom := errors.New("boom")
	done, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Abandoned(context.Background(), boom); err != boom {
		t.Errorf("live context: err = %v, want unchanged", err)
	}
	if err := Abandoned(done, nil); err != nil {
		t.Errorf("nil error: got %v", err)
	}
	err := Abandoned(done, boom)
	if !errors.Is(err, ErrAbandoned) || !errors.Is(err, boom) {
		t.Errorf("done context: err = %v, want both ErrAbandoned and boom", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{errors.New("x"), "error"},
		{gobreaker.ErrOpenState, "rejected"},
		{gobreaker.ErrTooManyRequests, "rejected"},
		{fmt.Errorf("%w: x", ErrAbandoned), "abandoned"},
	}
	for _, tc := range tests {
		if got := Outcome(tc.err); got != tc.want {
			t.Errorf("Outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
