package scheduler

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testCoords = []attack.Coords{
	{Lon: -95.7129, Lat: 37.0902},
	{Lon: 104.1954, Lat: 35.8617},
	{Lon: 105.3188, Lat: 61.5240},
	{Lon: 10.4515, Lat: 51.1657},
	{Lon: 78.9629, Lat: 20.5937},
	{Lon: -51.9253, Lat: -14.2350},
}

// makeEvents builds n valid events cycling through every attack type.
func makeEvents(n int) []attack.Event {
	events := make([]attack.Event, 0, n)
	for i := 0; i < n; i++ {
		o := testCoords[i%len(testCoords)]
		d := testCoords[(i+1)%len(testCoords)]
		events = append(events, attack.Event{
			ID:           fmt.Sprintf("ev-%03d", i),
			Type:         attack.Types[i%len(attack.Types)],
			OriginCoords: &o,
			TargetCoords: &d,
			Datetime:     epoch.Add(time.Duration(i) * time.Minute).Format(attack.TimeLayout),
			Protocol:     attack.TCP,
			DestPort:     443,
		})
	}
	return events
}

func nanEvent(id string) attack.Event {
	return attack.Event{
		ID:           id,
		Type:         attack.DDoS,
		OriginCoords: &attack.Coords{Lon: math.NaN(), Lat: math.NaN()},
		TargetCoords: &attack.Coords{Lon: 0, Lat: 0},
	}
}

func newTestProjector() *geo.Projector {
	return geo.NewProjector(geo.KindMercator, 960, 500, 0)
}

// recorder is a Sink that keeps every instruction it receives.
type recorder struct {
	mu  sync.Mutex
	ins []Instruction
}

func (r *recorder) Apply(in Instruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ins = append(r.ins, in)
}

func (r *recorder) all() []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Instruction(nil), r.ins...)
}

func (r *recorder) count(op Op) int {
	n := 0
	for _, in := range r.all() {
		if in.Op == op {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ins = nil
}

func newTestScheduler(limits Limits) (*Scheduler, *MockClock, *recorder) {
	clock := NewMockClock(epoch)
	rec := &recorder{}
	s := New(Options{Clock: clock, Sink: rec, Limits: limits})
	return s, clock, rec
}
