package scene

import (
	"math"
	"testing"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestApplyLifecycle(t *testing.T) {
	s := New()
	ev := attack.Event{ID: "a", Type: attack.DDoS}
	pt := geo.Point{X: 10, Y: 20}
	s.Apply(scheduler.Instruction{Op: scheduler.OpDraw, ID: 1, Kind: scheduler.KindTarget, Style: scheduler.Style{Radius: 4}, At: t0, Event: &ev, Point: &pt})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d", s.Len())
	}
	s.Apply(scheduler.Instruction{Op: scheduler.OpTransition, ID: 1, Phase: scheduler.PhaseFadingIn, Style: scheduler.Style{Opacity: 0.9, Radius: 6}, At: t0, Duration: 300 * time.Millisecond})

	tests := []struct {
		at      time.Duration
		opacity float64
		radius  float64
	}{
		{0, 0, 4},
		{150 * time.Millisecond, 0.45, 5},
		{300 * time.Millisecond, 0.9, 6},
		{time.Second, 0.9, 6},
	}
	for _, tt := range tests {
		got := s.Snapshot(t0.Add(tt.at))
		if len(got) != 1 {
			t.Fatalf("Snapshot returned %d items", len(got))
		}
		if math.Abs(got[0].Style.Opacity-tt.opacity) > 1e-9 || math.Abs(got[0].Style.Radius-tt.radius) > 1e-9 {
			t.Errorf("at %v: style = %+v, want opacity %f radius %f", tt.at, got[0].Style, tt.opacity, tt.radius)
		}
		if got[0].Point != pt || got[0].Event.ID != "a" {
			t.Errorf("geometry or event lost: %+v", got[0])
		}
	}

	s.Apply(scheduler.Instruction{Op: scheduler.OpRemove, ID: 1})
	if s.Len() != 0 {
		t.Errorf("Len() after remove = %d", s.Len())
	}
}

func TestTransitionStartsFromCurrentStyle(t *testing.T) {
	s := New()
	s.Apply(scheduler.Instruction{Op: scheduler.OpDraw, ID: 7, Kind: scheduler.KindPath, At: t0})
	s.Apply(scheduler.Instruction{Op: scheduler.OpTransition, ID: 7, Style: scheduler.Style{Opacity: 1}, At: t0, Duration: time.Second})
	// Interrupt halfway: the new transition starts at the midpoint value.
	mid := t0.Add(500 * time.Millisecond)
	s.Apply(scheduler.Instruction{Op: scheduler.OpTransition, ID: 7, Style: scheduler.Style{Opacity: 0}, At: mid, Duration: time.Second})
	got := s.Snapshot(mid)[0].Style.Opacity
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("opacity at interruption = %f, want 0.5", got)
	}
}

func TestUnknownTransitionIgnored(t *testing.T) {
	s := New()
	s.Apply(scheduler.Instruction{Op: scheduler.OpTransition, ID: 99, Style: scheduler.Style{Opacity: 1}})
	s.Apply(scheduler.Instruction{Op: scheduler.OpRemove, ID: 99})
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
	if s.Generation() != 2 {
		t.Errorf("Generation() = %d", s.Generation())
	}
}

func TestSnapshotOrder(t *testing.T) {
	s := New()
	for _, id := range []uint64{5, 2, 9, 1} {
		s.Apply(scheduler.Instruction{Op: scheduler.OpDraw, ID: id, At: t0})
	}
	got := s.Snapshot(t0)
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Fatalf("snapshot not ordered by id: %v", got)
		}
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d", s.Len())
	}
}

func TestSchedulerDrivesScene(t *testing.T) {
	clock := scheduler.NewMockClock(t0)
	s := New()
	sch := scheduler.New(scheduler.Options{Clock: clock, Sink: s})
	proj := geo.NewProjector(geo.KindMercator, 960, 500, 0)
	events := []attack.Event{{
		ID:           "e1",
		Type:         attack.Malware,
		OriginCoords: &attack.Coords{Lon: -95.7, Lat: 37.1},
		TargetCoords: &attack.Coords{Lon: 104.2, Lat: 35.9},
	}}
	cfg := scheduler.DefaultPlaybackConfig()
	cfg.Mode = scheduler.ModeSimultaneous
	cfg.SpeedLevel = 10
	if err := sch.Start(events, cfg, proj); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("scene holds %d items after start, want 3", s.Len())
	}
	for _, d := range s.Snapshot(t0) {
		if d.Visible() {
			t.Errorf("%s visible before its fade-in", d.Kind)
		}
	}
	sch.Advance(clock.Advance(5 * time.Second))
	if s.Len() != 0 {
		t.Errorf("scene holds %d items after every element retired", s.Len())
	}
}

func TestThemePalette(t *testing.T) {
	dark := Theme{}
	light := dark.Toggle()
	if !light.Light || light.Name() != "light" || dark.Name() != "dark" {
		t.Fatalf("toggle/name broken: %+v", light)
	}
	if light.Palette().Land == dark.Palette().Land {
		t.Error("themes should differ in land colour")
	}
	if light.Palette().Land.R != 0xFF || light.Palette().Border.R != 0 {
		t.Errorf("light palette should be white land with black borders")
	}
}
