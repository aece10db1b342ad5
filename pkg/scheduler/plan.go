package scheduler

import (
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/attackpath"
	"github.com/sudorandom/attack-map/pkg/geo"
)

// Projector maps event coordinates onto the render surface.
type Projector interface {
	Project(c *attack.Coords) (geo.Point, bool)
}

// Entry is one event of a batch with its projected geometry and timing.
type Entry struct {
	Event    attack.Event
	Origin   geo.Point
	Target   geo.Point
	Path     attackpath.Descriptor
	Delay    time.Duration
	Duration time.Duration
}

// SkipStats counts the events a batch left out and why.
type SkipStats struct {
	Filtered      int
	Unprojectable int
	Capped        int
}

// Reasons returns the counts keyed by a short reason label.
func (s SkipStats) Reasons() map[string]int {
	return map[string]int{
		"filter":     s.Filtered,
		"projection": s.Unprojectable,
		"cap":        s.Capped,
	}
}

// Batch is the ordered, capped set of entries for one animation pass.
type Batch struct {
	Mode    Mode
	Timing  Timing
	Entries []Entry
	Skipped SkipStats
}

// Len returns the number of entries.
func (b Batch) Len() int { return len(b.Entries) }

// ReplayAfter is the wait before a sequential batch replays. It is zero
// when the batch does not replay.
func (b Batch) ReplayAfter(l Limits) time.Duration {
	if b.Mode != ModeSequential || len(b.Entries) == 0 {
		return 0
	}
	return b.Timing.ReplayAfter(len(b.Entries), l.ReplayBuffer)
}

// PlanBatch filters events by type, drops those with an endpoint the
// projector rejects, caps the rest for the mode and assigns each entry its
// delay. Relative input order is preserved. Events beyond the cap are
// dropped, not queued.
func PlanBatch(events []attack.Event, cfg PlaybackConfig, proj Projector, limits Limits) Batch {
	cfg = cfg.normalized()
	limits = limits.withDefaults()
	timing := TimingFor(cfg.SpeedLevel)
	limit := limits.Cap(cfg.Mode)

	b := Batch{Mode: cfg.Mode, Timing: timing}
	for _, ev := range events {
		if !ev.Matches(cfg.AttackTypeFilter) {
			b.Skipped.Filtered++
			continue
		}
		origin, ok := proj.Project(ev.OriginCoords)
		if !ok {
			b.Skipped.Unprojectable++
			continue
		}
		target, ok := proj.Project(ev.TargetCoords)
		if !ok {
			b.Skipped.Unprojectable++
			continue
		}
		if len(b.Entries) >= limit {
			b.Skipped.Capped++
			continue
		}
		b.Entries = append(b.Entries, Entry{
			Event:    ev,
			Origin:   origin,
			Target:   target,
			Path:     attackpath.Build(origin, target),
			Delay:    timing.Delay(cfg.Mode, len(b.Entries)),
			Duration: timing.Lifetime(),
		})
	}
	return b
}
