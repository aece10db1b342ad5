package scheduler

import (
	"fmt"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/attackpath"
	"github.com/sudorandom/attack-map/pkg/geo"
)

// Op is a render instruction type.
type Op int

const (
	// OpDraw adds an element at Style.
	OpDraw Op = iota
	// OpTransition animates an element to Style over Duration from At.
	OpTransition
	// OpRemove retires an element. It is emitted once per element.
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpDraw:
		return "draw"
	case OpTransition:
		return "transition"
	case OpRemove:
		return "remove"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// MarshalText encodes the op by name.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Instruction tells a renderer what to do with one element.
type Instruction struct {
	Op       Op                     `json:"op"`
	ID       uint64                 `json:"id"`
	Kind     Kind                   `json:"kind"`
	Phase    Phase                  `json:"phase"`
	Style    Style                  `json:"style"`
	At       time.Time              `json:"at"`
	Duration time.Duration          `json:"duration"`
	Event    *attack.Event          `json:"event,omitempty"`
	Path     *attackpath.Descriptor `json:"path,omitempty"`
	Point    *geo.Point             `json:"point,omitempty"`
}

// Sink consumes render instructions. Apply is called with the scheduler
// lock held and must not call back into the scheduler.
type Sink interface {
	Apply(Instruction)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Instruction)

// Apply calls f(in).
func (f SinkFunc) Apply(in Instruction) { f(in) }

// MultiSink fans instructions out to several sinks in order.
type MultiSink []Sink

// Apply forwards in to every sink.
func (m MultiSink) Apply(in Instruction) {
	for _, s := range m {
		if s != nil {
			s.Apply(in)
		}
	}
}

type discardSink struct{}

func (discardSink) Apply(Instruction) {}
