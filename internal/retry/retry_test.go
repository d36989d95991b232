package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTimer satisfies backoff.Timer. It records every requested delay and
// fires immediately so tests never sleep.
type fakeTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.ch <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func Test_Policy_SucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()
	timer := newFakeTimer()
	p := WritePolicy()
	p.Timer = timer

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 attempts, got %d", calls)
	}

	// Backoff sequence before attempts 2 and 3 must be 2s then 4s.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(timer.delays) != len(want) {
		t.Fatalf("want %d delays, got %d: %v", len(want), len(timer.delays), timer.delays)
	}
	for i, d := range want {
		if timer.delays[i] != d {
			t.Errorf("delay[%d]: want %v, got %v", i, d, timer.delays[i])
		}
	}
}

func Test_Policy_ExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()
	timer := newFakeTimer()
	p := WritePolicy()
	p.Timer = timer

	calls := 0
	lastErr := errors.New("still broken")
	err := p.Do(context.Background(), func() error {
		calls++
		return lastErr
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("want last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 attempts, got %d", calls)
	}
}

func Test_Policy_NotifyReceivesEachFailure(t *testing.T) {
	t.Parallel()
	timer := newFakeTimer()
	p := WritePolicy()
	p.Timer = timer

	var notified []time.Duration
	p.Notify = func(_ error, next time.Duration) {
		notified = append(notified, next)
	}

	_ = p.Do(context.Background(), func() error { return errors.New("x") })

	if len(notified) != 2 {
		t.Fatalf("want 2 notifications, got %d", len(notified))
	}
	if notified[0] != 2*time.Second || notified[1] != 4*time.Second {
		t.Errorf("want [2s 4s], got %v", notified)
	}
}

func Test_Policy_DelayCappedAtMax(t *testing.T) {
	t.Parallel()
	timer := newFakeTimer()
	p := &Policy{MaxAttempts: 7, Initial: 2 * time.Second, Max: 20 * time.Second, Timer: timer}

	_ = p.Do(context.Background(), func() error { return errors.New("x") })

	// 2, 4, 8, 16, then capped at 20.
	want := []time.Duration{2, 4, 8, 16, 20, 20}
	for i, w := range want {
		if timer.delays[i] != w*time.Second {
			t.Errorf("delay[%d]: want %vs, got %v", i, w, timer.delays[i])
		}
	}
}

func Test_Policy_ContextCancelAbortsWait(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	p := WritePolicy()

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("want error after cancellation")
	}
	if calls != 1 {
		t.Errorf("want 1 attempt before cancellation stuck, got %d", calls)
	}
}
