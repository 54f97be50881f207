package platform

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sampler polls the idle provider in the background and publishes the
// latest sample so the scheduling loop never blocks on a subprocess or
// syscall. A failed sample reads as zero idle, which only ever delays
// an idle reset, never forces one.
type Sampler struct {
	provider IdleProvider
	interval time.Duration
	logger   zerolog.Logger

	latestNanos atomic.Int64
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewSampler creates a sampler polling provider every interval.
func NewSampler(provider IdleProvider, interval time.Duration, logger zerolog.Logger) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{
		provider: provider,
		interval: interval,
		logger:   logger.With().Str("component", "idle").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Latest returns the most recent idle sample. Zero until the first
// poll completes.
func (sampler *Sampler) Latest() time.Duration {
	return time.Duration(sampler.latestNanos.Load())
}

// Start launches the polling goroutine.
func (sampler *Sampler) Start() {
	go sampler.run()
}

// Stop halts polling and waits for the goroutine to exit.
func (sampler *Sampler) Stop() {
	select {
	case <-sampler.stopCh:
	default:
		close(sampler.stopCh)
	}
	<-sampler.doneCh
}

func (sampler *Sampler) run() {
	defer close(sampler.doneCh)

	if !sampler.poll() {
		return
	}
	ticker := time.NewTicker(sampler.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sampler.stopCh:
			return
		case <-ticker.C:
			if !sampler.poll() {
				return
			}
		}
	}
}

// poll takes one sample. It returns false when the platform cannot
// report idle time at all, in which case polling stops for good.
func (sampler *Sampler) poll() bool {
	idle, err := sampler.provider.IdleDuration()
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			sampler.logger.Warn().Msg("idle detection unavailable, idle resets disabled")
			sampler.latestNanos.Store(0)
			return false
		}
		sampler.logger.Debug().Err(err).Msg("idle sample failed")
		sampler.latestNanos.Store(0)
		return true
	}
	sampler.latestNanos.Store(int64(idle))
	return true
}
