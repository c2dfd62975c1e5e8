// Package admission bounds in-flight upstream requests and spaces them out.
package admission

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/time/rate"
)

// Config holds admission gate configuration.
type Config struct {
	// MaxInFlight caps concurrent fetches. Callers block until a slot frees.
	MaxInFlight int
	// RPS optionally caps the request rate across the whole run; <= 0 means
	// no cap.
	RPS   float64
	Burst int
}

const defaultMaxInFlight = 10

// Gate is the single shared concurrency limiter for a crawl run. A slot is
// held across a request's entire retry loop, not per attempt.
type Gate struct {
	slots   chan struct{}
	limiter *rate.Limiter
}

// New creates a Gate.
func New(cfg Config) *Gate {
	size := cfg.MaxInFlight
	if size <= 0 {
		size = defaultMaxInFlight
	}
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Gate{
		slots:   make(chan struct{}, size),
		limiter: rate.NewLimiter(r, burst),
	}
}

// Size reports the configured slot count.
func (g *Gate) Size() int {
	return cap(g.slots)
}

// Acquire blocks until an in-flight slot is free or the context finishes.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("admission wait: %w", ctx.Err())
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	<-g.slots
}

// Wait applies the optional run-wide request-rate cap.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate wait: %w", err)
	}
	return nil
}

// Pause sleeps for delay unless the context finishes first.
func (g *Gate) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Jitter draws a uniform duration from [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	bound := big.NewInt(int64(max - min))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return min + (max-min)/2
	}
	return min + time.Duration(n.Int64())
}
