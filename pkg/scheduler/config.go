package scheduler

import (
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// Mode selects how a batch is staggered.
type Mode string

const (
	// ModeSimultaneous starts every element of a small batch at once.
	ModeSimultaneous Mode = "simultaneous"
	// ModeSequential staggers a larger batch by index and replays it.
	ModeSequential Mode = "sequential"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeSequential {
		return ModeSimultaneous
	}
	return ModeSequential
}

const (
	MinSpeedLevel = 1
	MaxSpeedLevel = 10
)

// PlaybackConfig holds the user-controlled animation settings. Any change
// to it restarts the scheduler.
type PlaybackConfig struct {
	Paused           bool   `yaml:"paused" json:"paused"`
	Mode             Mode   `yaml:"mode" json:"mode" validate:"oneof=simultaneous sequential"`
	SpeedLevel       int    `yaml:"speed_level" json:"speedLevel" validate:"min=1,max=10"`
	AttackTypeFilter string `yaml:"attack_type_filter" json:"attackTypeFilter"`
}

// DefaultPlaybackConfig is sequential playback at medium speed with no filter.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		Mode:             ModeSequential,
		SpeedLevel:       5,
		AttackTypeFilter: attack.FilterAll,
	}
}

// normalized fills in zero values and clamps the speed level.
func (c PlaybackConfig) normalized() PlaybackConfig {
	if c.Mode != ModeSequential {
		c.Mode = ModeSimultaneous
	}
	if c.AttackTypeFilter == "" {
		c.AttackTypeFilter = attack.FilterAll
	}
	c.SpeedLevel = clampSpeed(c.SpeedLevel)
	return c
}

func clampSpeed(level int) int {
	return max(MinSpeedLevel, min(MaxSpeedLevel, level))
}

// BaseDuration is 11 - speedLevel: 1 at the fastest speed, 10 at the slowest.
// Levels outside 1..10 are clamped.
func BaseDuration(speedLevel int) int {
	return 11 - clampSpeed(speedLevel)
}

// Limits bounds how much work a single run may put on screen.
type Limits struct {
	// SimultaneousBatch caps a batch in simultaneous mode.
	SimultaneousBatch int `yaml:"simultaneous_batch" validate:"min=1"`
	// SequentialBatch caps a batch in sequential mode.
	SequentialBatch int `yaml:"sequential_batch" validate:"min=1"`
	// MaxActiveElements caps live elements across overlapping batches.
	// Drawing past it evicts the oldest live element.
	MaxActiveElements int `yaml:"max_active_elements" validate:"min=3"`
	// ReplayBuffer is added to the stagger span before a sequential replay.
	ReplayBuffer time.Duration `yaml:"replay_buffer" validate:"min=0"`
}

// DefaultLimits returns the stock batch caps.
func DefaultLimits() Limits {
	return Limits{
		SimultaneousBatch: 10,
		SequentialBatch:   50,
		MaxActiveElements: 300,
		ReplayBuffer:      time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.SimultaneousBatch <= 0 {
		l.SimultaneousBatch = d.SimultaneousBatch
	}
	if l.SequentialBatch <= 0 {
		l.SequentialBatch = d.SequentialBatch
	}
	if l.MaxActiveElements <= 0 {
		l.MaxActiveElements = d.MaxActiveElements
	}
	if l.ReplayBuffer < 0 {
		l.ReplayBuffer = 0
	}
	return l
}

// Cap returns the batch size limit for mode.
func (l Limits) Cap(mode Mode) int {
	if mode == ModeSequential {
		return l.SequentialBatch
	}
	return l.SimultaneousBatch
}

// Timing is the keyframe schedule derived from one speed level.
type Timing struct {
	Base int

	Stagger       time.Duration
	PathFadeIn    time.Duration
	PathHold      time.Duration
	PathFadeOut   time.Duration
	OriginFadeIn  time.Duration
	OriginFadeOut time.Duration
	TargetOffset  time.Duration
	TargetPulse   time.Duration
	TargetFadeOut time.Duration
}

// TimingFor returns the schedule for speedLevel.
func TimingFor(speedLevel int) Timing {
	b := BaseDuration(speedLevel)
	unit := time.Duration(b) * time.Millisecond
	return Timing{
		Base:          b,
		Stagger:       200 * unit,
		PathFadeIn:    500 * unit,
		PathHold:      500 * unit,
		PathFadeOut:   500 * unit,
		OriginFadeIn:  300 * time.Millisecond,
		OriginFadeOut: 500 * unit,
		TargetOffset:  300 * unit,
		TargetPulse:   300 * time.Millisecond,
		TargetFadeOut: 500 * time.Millisecond,
	}
}

// Delay is the start offset of the entry at index i.
func (t Timing) Delay(mode Mode, i int) time.Duration {
	if mode != ModeSequential {
		return 0
	}
	return time.Duration(i) * t.Stagger
}

// Lifetime is how long an entry stays on screen after its delay.
func (t Timing) Lifetime() time.Duration {
	path := t.PathFadeIn + t.PathHold + t.PathFadeOut
	origin := t.OriginFadeIn + t.OriginFadeOut
	target := t.TargetOffset + t.TargetPulse + t.TargetFadeOut
	return max(path, origin, target)
}

// ReplayAfter is the wait before a sequential batch of n entries replays.
func (t Timing) ReplayAfter(n int, buffer time.Duration) time.Duration {
	return time.Duration(n)*t.Stagger + buffer
}
