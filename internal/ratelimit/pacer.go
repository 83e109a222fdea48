package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer держит темп запросов к провайдеру (queries per second),
// один на процесс, общий для всех клиентов.
type Pacer struct {
	limiter *rate.Limiter
}

type PacerConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NewPacer returns nil when pacing is disabled; a nil *Pacer never blocks.
func NewPacer(cfg PacerConfig) *Pacer {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
