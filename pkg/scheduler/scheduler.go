// Package scheduler plans animation batches of attack events and drives
// each visual element through its fade-in, hold and fade-out lifecycle.
//
// The scheduler is single-threaded in spirit: all state changes happen
// under one lock, either from Start or from callbacks fired by Advance.
// Renderers call Advance once per frame; headless hosts use Run.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/metrics"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("scheduler closed")

// Options configures a Scheduler.
type Options struct {
	Clock   Clock
	Sink    Sink
	Limits  Limits
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// Scheduler owns the timers and live elements of the current run.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	sink    Sink
	limits  Limits
	logger  *zap.Logger
	metrics *metrics.Registry

	token   uint64
	running bool
	closed  bool
	nextID  uint64
	seq     uint64
	timers  timerHeap
	live    map[uint64]*Element
	order   []*Element

	events []attack.Event
	cfg    PlaybackConfig
	proj   Projector
	last   Batch
}

// New creates an idle scheduler.
func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		clock:   opts.Clock,
		sink:    opts.Sink,
		limits:  opts.Limits.withDefaults(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		live:    make(map[uint64]*Element),
	}
}

// Start cancels the current run, removes every live element and plans a
// new batch from events. Callbacks armed by earlier runs never fire.
func (s *Scheduler) Start(events []attack.Event, cfg PlaybackConfig, proj Projector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cancelLocked()

	s.events = events
	s.cfg = cfg.normalized()
	s.proj = proj
	s.running = true
	s.token++

	now := s.clock.Now()
	b := s.launchLocked(now)
	if after := b.ReplayAfter(s.limits); after > 0 && !s.cfg.Paused {
		s.armReplayLocked(now.Add(after))
	}
	s.reportLocked()
	return nil
}

// Advance fires every callback due at or before now and returns how many
// fired. Callbacks armed while advancing fire in the same call when due.
func (s *Scheduler) Advance(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := 0
	for {
		t := s.timers.popDue(now)
		if t == nil {
			break
		}
		if t.token != s.token {
			continue
		}
		t.fire(t.due)
		fired++
	}
	if fired > 0 {
		s.reportLocked()
	}
	return fired
}

// Tick advances to the clock's current time.
func (s *Scheduler) Tick() int {
	return s.Advance(s.clock.Now())
}

// Run ticks every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Close cancels the current run and removes its elements. Start fails
// afterwards. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.cancelLocked()
	s.closed = true
	s.token++
	s.reportLocked()
	return nil
}

// Active returns the number of live elements.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Pending returns the number of armed callbacks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers.Len()
}

// NextDue returns when the earliest armed callback is due.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers.Len() == 0 {
		return time.Time{}, false
	}
	return s.timers[0].due, true
}

// Elements returns a snapshot of the live elements ordered by id.
func (s *Scheduler) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Element, 0, len(s.live))
	for _, e := range s.live {
		c := *e
		c.timer = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LastBatch returns the most recently planned batch.
func (s *Scheduler) LastBatch() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Config returns the playback configuration of the current run.
func (s *Scheduler) Config() PlaybackConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Scheduler) cancelLocked() {
	if s.running {
		s.metrics.RecordCancel()
	}
	s.running = false
	old := s.order
	s.order = nil
	now := s.clock.Now()
	for _, e := range old {
		s.removeLocked(e, now)
	}
	clear(s.timers)
	s.timers = s.timers[:0]
	clear(s.live)
}

// launchLocked plans a batch from the stored input and draws it.
func (s *Scheduler) launchLocked(now time.Time) Batch {
	b := PlanBatch(s.events, s.cfg, s.proj, s.limits)
	s.last = b
	s.metrics.RecordBatch(string(b.Mode), b.Len(), b.Skipped.Reasons())
	if b.Skipped.Unprojectable > 0 {
		s.logger.Debug("skipped events without a projectable endpoint", zap.Int("count", b.Skipped.Unprojectable))
	}
	s.logger.Debug("batch planned",
		zap.String("mode", string(b.Mode)),
		zap.Int("entries", b.Len()),
		zap.Int("filtered", b.Skipped.Filtered),
		zap.Int("capped", b.Skipped.Capped),
		zap.Bool("paused", s.cfg.Paused),
	)

	for _, en := range b.Entries {
		path := &Element{Kind: KindPath, Event: en.Event, Path: en.Path, frames: pathKeyframes(b.Timing, en.Delay)}
		origin := &Element{Kind: KindOrigin, Event: en.Event, Point: en.Origin, frames: originKeyframes(b.Timing, en.Delay)}
		target := &Element{Kind: KindTarget, Event: en.Event, Point: en.Target, frames: targetKeyframes(b.Timing, en.Delay)}
		for _, e := range []*Element{path, origin, target} {
			if s.cfg.Paused {
				s.drawLocked(e, PhaseHolding, e.frames.steady, now)
				continue
			}
			s.drawLocked(e, PhaseScheduled, e.frames.initial, now)
			s.armLocked(e, now.Add(e.frames.start))
		}
	}
	return b
}

func (s *Scheduler) armReplayLocked(due time.Time) {
	s.pushLocked(&timer{due: due, fire: s.replayLocked})
}

// replayLocked appends a fresh batch under the current run and re-arms.
func (s *Scheduler) replayLocked(due time.Time) {
	s.metrics.RecordReplay()
	b := s.launchLocked(due)
	if after := b.ReplayAfter(s.limits); after > 0 {
		s.armReplayLocked(due.Add(after))
	}
}

func (s *Scheduler) pushLocked(t *timer) {
	s.seq++
	t.seq = s.seq
	t.token = s.token
	s.timers.schedule(t)
}

func (s *Scheduler) armLocked(e *Element, due time.Time) {
	t := &timer{due: due, fire: func(at time.Time) { s.stepLocked(e, at) }}
	e.timer = t
	s.pushLocked(t)
}

func (s *Scheduler) drawLocked(e *Element, phase Phase, style Style, now time.Time) {
	if len(s.live) >= s.limits.MaxActiveElements {
		s.evictOldestLocked(now)
	}
	s.nextID++
	e.ID = s.nextID
	e.Token = s.token
	e.Phase = phase
	e.Style = style

	s.live[e.ID] = e
	s.order = append(s.order, e)

	in := Instruction{Op: OpDraw, ID: e.ID, Kind: e.Kind, Phase: phase, Style: style, At: now}
	ev := e.Event
	in.Event = &ev
	if e.Kind == KindPath {
		p := e.Path
		in.Path = &p
	} else {
		pt := e.Point
		in.Point = &pt
	}
	s.sink.Apply(in)
	s.metrics.RecordDraw(e.Kind.String())
}

// stepLocked moves e into its next phase at time at. Phases with zero
// length are passed through in the same step.
func (s *Scheduler) stepLocked(e *Element, at time.Time) {
	e.timer = nil
	if e.Phase == PhaseRetired {
		return
	}
	for {
		next := e.Phase + 1
		if next == PhaseRetired {
			s.removeLocked(e, at)
			s.metrics.RecordRetire(e.Kind.String())
			return
		}
		e.Phase = next
		d := e.phaseDuration(next)
		if d <= 0 {
			continue
		}
		style := e.phaseTarget(next)
		if style != e.Style {
			e.Style = style
			s.sink.Apply(Instruction{Op: OpTransition, ID: e.ID, Kind: e.Kind, Phase: next, Style: style, At: at, Duration: d})
		}
		s.armLocked(e, at.Add(d))
		return
	}
}

// removeLocked retires e. Removing a retired element does nothing.
func (s *Scheduler) removeLocked(e *Element, at time.Time) {
	if e.Phase == PhaseRetired {
		return
	}
	s.timers.cancel(e.timer)
	e.timer = nil
	e.Phase = PhaseRetired
	delete(s.live, e.ID)
	s.sink.Apply(Instruction{Op: OpRemove, ID: e.ID, Kind: e.Kind, Phase: PhaseRetired, Style: e.frames.final, At: at})
	s.compactLocked()
}

func (s *Scheduler) evictOldestLocked(at time.Time) {
	for _, e := range s.order {
		if e.Phase != PhaseRetired {
			s.removeLocked(e, at)
			s.metrics.RecordEviction()
			return
		}
	}
}

// compactLocked drops retired elements from the head of the draw order.
func (s *Scheduler) compactLocked() {
	i := 0
	for i < len(s.order) && s.order[i].Phase == PhaseRetired {
		s.order[i] = nil
		i++
	}
	if i > 0 {
		s.order = s.order[i:]
	}
	if len(s.order) > 4*s.limits.MaxActiveElements {
		kept := s.order[:0]
		for _, e := range s.order {
			if e.Phase != PhaseRetired {
				kept = append(kept, e)
			}
		}
		s.order = kept
	}
}

func (s *Scheduler) reportLocked() {
	s.metrics.SetSchedulerState(len(s.live), s.timers.Len())
}
