package scheduler

import (
	"fmt"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/attackpath"
	"github.com/sudorandom/attack-map/pkg/geo"
)

// Kind is the visual primitive an element draws.
type Kind int

const (
	KindPath Kind = iota
	KindOrigin
	KindTarget
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindOrigin:
		return "origin"
	case KindTarget:
		return "target"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Phase is a step in an element's lifecycle.
type Phase int

const (
	PhaseScheduled Phase = iota
	PhaseFadingIn
	PhaseHolding
	PhaseFadingOut
	PhaseRetired
)

func (p Phase) String() string {
	switch p {
	case PhaseScheduled:
		return "scheduled"
	case PhaseFadingIn:
		return "fading-in"
	case PhaseHolding:
		return "holding"
	case PhaseFadingOut:
		return "fading-out"
	case PhaseRetired:
		return "retired"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Style is the animated state of an element.
type Style struct {
	Opacity float64 `json:"opacity"`
	Radius  float64 `json:"radius,omitempty"`
}

// Steady-state styles used when playback is paused.
var (
	SteadyPath   = Style{Opacity: 0.9}
	SteadyOrigin = Style{Opacity: 0.85, Radius: 3}
	SteadyTarget = Style{Opacity: 0.9, Radius: 4}
)

// keyframes is the full lifecycle of one element relative to its batch.
type keyframes struct {
	start   time.Duration
	initial Style
	peak    Style
	final   Style
	steady  Style
	fadeIn  time.Duration
	hold    time.Duration
	fadeOut time.Duration
}

func pathKeyframes(t Timing, delay time.Duration) keyframes {
	return keyframes{
		start:   delay,
		initial: Style{Opacity: 0},
		peak:    SteadyPath,
		final:   Style{Opacity: 0},
		steady:  SteadyPath,
		fadeIn:  t.PathFadeIn,
		hold:    t.PathHold,
		fadeOut: t.PathFadeOut,
	}
}

func originKeyframes(t Timing, delay time.Duration) keyframes {
	return keyframes{
		start:   delay,
		initial: Style{Opacity: 0, Radius: 3},
		peak:    SteadyOrigin,
		final:   Style{Opacity: 0, Radius: 3},
		steady:  SteadyOrigin,
		fadeIn:  t.OriginFadeIn,
		fadeOut: t.OriginFadeOut,
	}
}

func targetKeyframes(t Timing, delay time.Duration) keyframes {
	return keyframes{
		start:   delay + t.TargetOffset,
		initial: Style{Opacity: 0, Radius: 4},
		peak:    Style{Opacity: 0.9, Radius: 6},
		final:   Style{Opacity: 0, Radius: 4},
		steady:  SteadyTarget,
		fadeIn:  t.TargetPulse,
		fadeOut: t.TargetFadeOut,
	}
}

// Element is one live visual primitive: an attack path or an endpoint
// marker.
type Element struct {
	ID    uint64
	Kind  Kind
	Phase Phase
	Style Style
	Event attack.Event
	Path  attackpath.Descriptor
	Point geo.Point
	Token uint64

	frames keyframes
	timer  *timer
}

// phaseDuration is how long the element stays in p before moving on.
func (e *Element) phaseDuration(p Phase) time.Duration {
	switch p {
	case PhaseFadingIn:
		return e.frames.fadeIn
	case PhaseHolding:
		return e.frames.hold
	case PhaseFadingOut:
		return e.frames.fadeOut
	}
	return 0
}

// phaseTarget is the style the element animates towards during p.
func (e *Element) phaseTarget(p Phase) Style {
	switch p {
	case PhaseFadingIn, PhaseHolding:
		return e.frames.peak
	case PhaseFadingOut, PhaseRetired:
		return e.frames.final
	}
	return e.frames.initial
}
