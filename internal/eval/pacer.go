package eval

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound work between test cases. The runner calls Wait once
// after every completed case that is followed by another one.
type Pacer interface {
	Wait(ctx context.Context) error
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return nil }

// intervalPacer holds the next case back for a full interval after the previous
// case finished.
type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer returns a pacer that waits interval between the end of one
// test case and the start of the next. A non-positive interval disables pacing.
func NewIntervalPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return noPacer{}
	}
	return &intervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	// Tokens refill while a case runs. Dropping the burst to zero and back
	// empties the bucket, so the next token is a whole interval away from now.
	now := time.Now()
	p.limiter.SetBurstAt(now, 0)
	p.limiter.SetBurstAt(now, 1)

	return p.limiter.Wait(ctx)
}
