package repulsion

import (
	"context"
	"time"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// Frames yields rendering opportunities. A simulation computes one iteration
// per frame and suspends in Wait between iterations.
type Frames interface {
	// Wait blocks until the next frame or until ctx is done, in which case
	// it returns ctx.Err().
	Wait(ctx context.Context) error
}

// TickerFrames delivers frames at a fixed interval.
type TickerFrames struct {
	interval time.Duration
}

// NewTickerFrames returns frames at the given rate. Non-positive rates use
// DefaultFPS.
func NewTickerFrames(fps int) *TickerFrames {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerFrames{interval: time.Second / time.Duration(fps)}
}

// Interval returns the time between frames.
func (f *TickerFrames) Interval() time.Duration { return f.interval }

// Wait implements Frames.
func (f *TickerFrames) Wait(ctx context.Context) error {
	t := time.NewTimer(f.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ImmediateFrames yields a frame on every call until ctx is done.
// Useful for tests and headless runs.
type ImmediateFrames struct{}

// Wait implements Frames.
func (ImmediateFrames) Wait(ctx context.Context) error {
	return ctx.Err()
}
