// Package poller is the adaptive poller (C5): a single cooperative task
// that scans every live instance at a variable interval, backing off
// multiplicatively on idleness and snapping back on activity.
//
// Grounded verbatim on the SmartPoller type in
// commander-core/src/change_detector/mod.rs and the two-phase locking
// sequence in commander-runtime/src/poller.rs::poll_all.
package poller

import (
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// SmartPoller tracks the current scrape interval for the whole system,
// adapting it based on the significance of the most recent change.
type SmartPoller struct {
	base           time.Duration
	max            time.Duration
	current        time.Duration
	idleCount      uint32
	idleThreshold  uint32
}

// Default returns a SmartPoller with the spec defaults: base 500ms, max
// 5s, idle threshold 3.
func Default() *SmartPoller {
	return New(500*time.Millisecond, 5*time.Second)
}

// New constructs a SmartPoller with the given base and max interval. The
// idle grace count is fixed at 3, matching the original implementation.
func New(base, max time.Duration) *SmartPoller {
	return &SmartPoller{base: base, max: max, current: base, idleThreshold: 3}
}

// Interval returns the current scrape interval.
func (p *SmartPoller) Interval() time.Duration {
	return p.current
}

// NextInterval advances the poller's state machine given the significance
// of the latest change and returns the (possibly unchanged) new interval.
//
//   - Ignore: bump the idle count; once it exceeds the idle threshold,
//     double the interval (capped at max). The first idleThreshold
//     Ignores after a reset or activity spike stay at the current
//     interval — back-off only kicks in from the (idleThreshold+1)th
//     consecutive Ignore.
//   - Low: reset idle count; grow by +base (capped at max).
//   - Medium: reset idle count; snap to 2*base.
//   - High or Critical: reset idle count; snap to base.
func (p *SmartPoller) NextInterval(change model.ChangeEvent) time.Duration {
	switch change.Significance {
	case model.SignificanceIgnore:
		p.idleCount++
		if p.idleCount > p.idleThreshold {
			p.current = minDuration(p.current*2, p.max)
		}
	case model.SignificanceLow:
		p.idleCount = 0
		p.current = minDuration(p.current+p.base, p.max)
	case model.SignificanceMedium:
		p.idleCount = 0
		p.current = p.base * 2
	case model.SignificanceHigh, model.SignificanceCritical:
		p.idleCount = 0
		p.current = p.base
	}
	return p.current
}

// Reset returns the poller to its base interval and clears the idle count.
// Called after user interaction.
func (p *SmartPoller) Reset() {
	p.current = p.base
	p.idleCount = 0
}

// IsIdle exposes the backed-off state to the front-end: true once the idle
// count has exceeded the grace threshold.
func (p *SmartPoller) IsIdle() bool {
	return p.idleCount > p.idleThreshold
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
