// Package retry provides the bounded retry-with-backoff policy applied to
// vector store write operations. The policy is a standalone, independently
// testable unit built on [github.com/cenkalti/backoff/v4] rather than inline
// sleep loops.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded exponential backoff: up to MaxAttempts total
// attempts, with the delay before attempt n (n >= 2) doubling from Initial
// and capped at Max.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Initial is the delay before the second attempt.
	Initial time.Duration

	// Max caps the delay between any two attempts.
	Max time.Duration

	// Notify, when non-nil, is invoked after each failed attempt with the
	// error and the delay before the next attempt.
	Notify func(err error, next time.Duration)

	// Timer overrides the wall-clock timer between attempts. Tests inject a
	// fake so backoff sequences can be asserted without sleeping. Nil means
	// real time.
	Timer backoff.Timer
}

// WritePolicy returns the policy used for embedding-store writes:
// 3 attempts with delays of 2s then 4s, capped at 20s.
func WritePolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		Initial:     2 * time.Second,
		Max:         20 * time.Second,
	}
}

// Do runs op under the policy, returning nil on the first success or the
// last attempt's error once the policy is exhausted. Context cancellation
// aborts the wait between attempts and returns the context error.
func (p *Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.Multiplier = 2
	eb.MaxInterval = p.Max
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, next time.Duration) {
		if p.Notify != nil {
			p.Notify(err, next)
		}
	}

	return backoff.RetryNotifyWithTimer(op, b, notify, p.Timer)
}
