package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingTiming is returned when no timeline can be derived for the horizon.
	ErrMissingTiming = errors.New("missing timing information")
	// ErrSlotMismatch is returned when the timeline and the parameters disagree
	// on the slot length.
	ErrSlotMismatch = errors.New("slot duration mismatch")
)

// Timing anchors the horizon in absolute time. Either Timestamps covers every
// slot, or Start and SlotDuration are used to synthesise one per slot.
type Timing struct {
	Timestamps   []time.Time
	Start        time.Time
	SlotDuration time.Duration
}

// Step returns the slot length carried by the timeline: SlotDuration when set,
// otherwise the spacing of the first two timestamps. Zero means unknown.
func (t Timing) Step() time.Duration {
	if t.SlotDuration > 0 {
		return t.SlotDuration
	}
	if len(t.Timestamps) >= 2 {
		return t.Timestamps[1].Sub(t.Timestamps[0])
	}
	return 0
}

// SlotTimes returns one start timestamp per slot for a horizon of n slots.
func (t Timing) SlotTimes(n int) ([]time.Time, error) {
	if len(t.Timestamps) >= n && n > 0 {
		out := make([]time.Time, n)
		copy(out, t.Timestamps[:n])
		return out, nil
	}
	if t.Start.IsZero() || t.SlotDuration <= 0 {
		if len(t.Timestamps) > 0 {
			return nil, fmt.Errorf("%w: %d timestamps for %d slots", ErrMissingTiming, len(t.Timestamps), n)
		}
		return nil, ErrMissingTiming
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t.Start.Add(time.Duration(i) * t.SlotDuration)
	}
	return out, nil
}

// Config is a fully resolved snapshot of one optimisation run.
type Config struct {
	Series TimeSeries
	Params StaticParameters
	Timing Timing
}

// Validate checks the series, the static parameters and that the timeline
// uses the parameters' slot length.
func (c Config) Validate() error {
	if err := c.Series.Validate(); err != nil {
		return err
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	slot := c.Params.Normalize().SlotDuration
	if c.Timing.SlotDuration > 0 && c.Timing.SlotDuration != slot {
		return fmt.Errorf("%w: timeline uses %v, parameters %v", ErrSlotMismatch, c.Timing.SlotDuration, slot)
	}
	for i := 1; i < len(c.Timing.Timestamps); i++ {
		if step := c.Timing.Timestamps[i].Sub(c.Timing.Timestamps[i-1]); step != slot {
			return fmt.Errorf("%w: timestamps %d and %d are %v apart, parameters use %v", ErrSlotMismatch, i-1, i, step, slot)
		}
	}
	return nil
}
