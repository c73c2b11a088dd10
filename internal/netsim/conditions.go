// Package netsim implements the network simulator: a testing-only
// collaborator that applies degraded-network conditions (packet loss,
// jitter, latency, bandwidth caps, duplication, reordering, full
// disconnects) to a source's element subgraph.
package netsim

import "time"

// Conditions is one point-in-time set of degraded-network parameters.
type Conditions struct {
	PacketLossPercent     float64
	LatencyMS             float64
	BandwidthKbps         float64 // 0 = unlimited
	ConnectionDropped     bool
	JitterMS              float64
	DuplicateProbability  float64
	AllowReordering       bool
	MinDelayMS            float64
	MaxDelayMS            float64
	DelayProbabilityPct   float64
}

// Perfect is the no-degradation baseline.
func Perfect() Conditions { return Conditions{} }

// BandwidthBudgetBytes returns the byte budget implied by BandwidthKbps
// held for 1 second (bytes = kbps*1000/8). A zero BandwidthKbps means
// unlimited, reported as a zero budget (callers must special-case
// "unlimited" rather than multiply by zero).
func (c Conditions) BandwidthBudgetBytes() (budget int64, unlimited bool) {
	if c.BandwidthKbps <= 0 {
		return 0, true
	}
	return int64(c.BandwidthKbps * 1000 / 8), false
}

// lerp linearly interpolates numeric fields between two Conditions at
// fraction t in [0,1]. Boolean fields have no meaningful midpoint, so they
// snap to b at t >= 1 (the keyframe boundary) instead of interpolating.
func lerp(a, b Conditions, t float64) Conditions {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	out := Conditions{
		PacketLossPercent:    lerpFloat(a.PacketLossPercent, b.PacketLossPercent, t),
		LatencyMS:            lerpFloat(a.LatencyMS, b.LatencyMS, t),
		BandwidthKbps:        lerpFloat(a.BandwidthKbps, b.BandwidthKbps, t),
		JitterMS:             lerpFloat(a.JitterMS, b.JitterMS, t),
		DuplicateProbability: lerpFloat(a.DuplicateProbability, b.DuplicateProbability, t),
		MinDelayMS:           lerpFloat(a.MinDelayMS, b.MinDelayMS, t),
		MaxDelayMS:           lerpFloat(a.MaxDelayMS, b.MaxDelayMS, t),
		DelayProbabilityPct:  lerpFloat(a.DelayProbabilityPct, b.DelayProbabilityPct, t),
	}
	if t >= 1 {
		out.ConnectionDropped = b.ConnectionDropped
		out.AllowReordering = b.AllowReordering
	} else {
		out.ConnectionDropped = a.ConnectionDropped
		out.AllowReordering = a.AllowReordering
	}
	return out
}

func lerpFloat(a, b, t float64) float64 { return a + (b-a)*t }

// keyframe is one point in a scenario timeline.
type keyframe struct {
	At         time.Duration
	Conditions Conditions
}
