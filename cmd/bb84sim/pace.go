package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// A pacer spaces out photons for a human watching them go by. The simulation
// core knows nothing about time; only the command line does.
type pacer struct {
	lim *rate.Limiter
}

func newPacer(interval time.Duration) *pacer {
	if interval <= 0 {
		return &pacer{}
	}
	return &pacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// wait blocks until the next photon may be sent or ctx is done.
func (p *pacer) wait(ctx context.Context) error {
	if p.lim == nil {
		return ctx.Err()
	}
	return p.lim.Wait(ctx)
}
