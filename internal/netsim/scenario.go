package netsim

import (
	"sort"
	"time"
)

// Scenario is a timeline of (at, conditions) keyframes. A player walking
// the timeline linearly interpolates numeric fields between events.
type Scenario struct {
	keyframes []keyframe
}

// NewScenario builds a Scenario from (at, conditions) pairs, sorting them
// by at ascending so Tick can binary-search-free scan linearly.
func NewScenario(points ...struct {
	At         time.Duration
	Conditions Conditions
}) *Scenario {
	kfs := make([]keyframe, 0, len(points))
	for _, p := range points {
		kfs = append(kfs, keyframe{At: p.At, Conditions: p.Conditions})
	}
	sort.Slice(kfs, func(i, j int) bool { return kfs[i].At < kfs[j].At })
	return &Scenario{keyframes: kfs}
}

// ScenarioPlayer walks a Scenario against elapsed time.
type ScenarioPlayer struct {
	scenario *Scenario
	start    time.Time
}

// NewPlayer creates a player starting at "now".
func NewPlayer(scenario *Scenario, now time.Time) *ScenarioPlayer {
	return &ScenarioPlayer{scenario: scenario, start: now}
}

// Tick returns the interpolated conditions for elapsed wall-clock time
// "now": between two (at, conditions) keyframes, every numeric field is
// linearly interpolated and boolean fields snap at the keyframe boundary.
func (p *ScenarioPlayer) Tick(now time.Time) Conditions {
	elapsed := now.Sub(p.start)
	kfs := p.scenario.keyframes

	if len(kfs) == 0 {
		return Perfect()
	}
	if elapsed <= kfs[0].At {
		return kfs[0].Conditions
	}
	if elapsed >= kfs[len(kfs)-1].At {
		return kfs[len(kfs)-1].Conditions
	}

	for i := 1; i < len(kfs); i++ {
		if elapsed <= kfs[i].At {
			prev := kfs[i-1]
			next := kfs[i]
			span := next.At - prev.At
			if span <= 0 {
				return next.Conditions
			}
			t := float64(elapsed-prev.At) / float64(span)
			return lerp(prev.Conditions, next.Conditions, t)
		}
	}
	return kfs[len(kfs)-1].Conditions
}
