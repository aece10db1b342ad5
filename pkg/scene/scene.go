// Package scene keeps the retained set of drawable elements built from
// scheduler instructions. Renderers read interpolated snapshots from it
// once per frame.
package scene

import (
	"sort"
	"sync"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/attackpath"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

// Item is one retained element and its current transition.
type Item struct {
	ID    uint64
	Kind  scheduler.Kind
	Phase scheduler.Phase
	Event attack.Event
	Path  attackpath.Descriptor
	Point geo.Point

	from     scheduler.Style
	to       scheduler.Style
	start    time.Time
	duration time.Duration
}

// StyleAt interpolates the item's style at t.
func (it *Item) StyleAt(t time.Time) scheduler.Style {
	if it.duration <= 0 || !t.After(it.start) {
		if it.duration <= 0 {
			return it.to
		}
		return it.from
	}
	p := float64(t.Sub(it.start)) / float64(it.duration)
	if p >= 1 {
		return it.to
	}
	e := easeCubicInOut(p)
	return scheduler.Style{
		Opacity: it.from.Opacity + (it.to.Opacity-it.from.Opacity)*e,
		Radius:  it.from.Radius + (it.to.Radius-it.from.Radius)*e,
	}
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Drawable is a snapshot of an item at one instant.
type Drawable struct {
	ID    uint64
	Kind  scheduler.Kind
	Phase scheduler.Phase
	Event attack.Event
	Path  attackpath.Descriptor
	Point geo.Point
	Style scheduler.Style
}

// Visible reports whether the drawable has any opacity.
func (d Drawable) Visible() bool { return d.Style.Opacity > 0 }

// Scene implements scheduler.Sink.
type Scene struct {
	mu    sync.RWMutex
	items map[uint64]*Item
	gen   uint64
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{items: make(map[uint64]*Item)}
}

// Apply records one instruction.
func (s *Scene) Apply(in scheduler.Instruction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	switch in.Op {
	case scheduler.OpDraw:
		it := &Item{ID: in.ID, Kind: in.Kind, Phase: in.Phase, from: in.Style, to: in.Style, start: in.At}
		if in.Event != nil {
			it.Event = *in.Event
		}
		if in.Path != nil {
			it.Path = *in.Path
		}
		if in.Point != nil {
			it.Point = *in.Point
		}
		s.items[in.ID] = it
	case scheduler.OpTransition:
		it, ok := s.items[in.ID]
		if !ok {
			return
		}
		it.from = it.StyleAt(in.At)
		it.to = in.Style
		it.start = in.At
		it.duration = in.Duration
		it.Phase = in.Phase
	case scheduler.OpRemove:
		delete(s.items, in.ID)
	}
}

// Len returns the number of retained items.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Generation increases on every applied instruction.
func (s *Scene) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns every item interpolated at t, ordered by id so paths
// drawn earlier stay underneath.
func (s *Scene) Snapshot(t time.Time) []Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Drawable, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, Drawable{
			ID:    it.ID,
			Kind:  it.Kind,
			Phase: it.Phase,
			Event: it.Event,
			Path:  it.Path,
			Point: it.Point,
			Style: it.StyleAt(t),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops every item.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
	s.gen++
}
