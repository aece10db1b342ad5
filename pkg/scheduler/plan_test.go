package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/attack-map/pkg/attack"
)

func TestBaseDuration(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{1, 10},
		{5, 6},
		{10, 1},
		{0, 10},
		{42, 1},
	}
	for _, tt := range tests {
		if got := BaseDuration(tt.level); got != tt.want {
			t.Errorf("BaseDuration(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestTimingFor(t *testing.T) {
	tm := TimingFor(5)
	assert.Equal(t, 6, tm.Base)
	assert.Equal(t, 1200*time.Millisecond, tm.Stagger)
	assert.Equal(t, 3*time.Second, tm.PathFadeIn)
	assert.Equal(t, 3*time.Second, tm.PathHold)
	assert.Equal(t, 3*time.Second, tm.PathFadeOut)
	assert.Equal(t, 300*time.Millisecond, tm.OriginFadeIn)
	assert.Equal(t, 3*time.Second, tm.OriginFadeOut)
	assert.Equal(t, 1800*time.Millisecond, tm.TargetOffset)
	assert.Equal(t, 300*time.Millisecond, tm.TargetPulse)
	assert.Equal(t, 500*time.Millisecond, tm.TargetFadeOut)
	assert.Equal(t, 9*time.Second, tm.Lifetime())
	assert.Equal(t, 3*1200*time.Millisecond+time.Second, tm.ReplayAfter(3, time.Second))
}

func TestPlanBatchSequentialDelays(t *testing.T) {
	cfg := PlaybackConfig{Mode: ModeSequential, SpeedLevel: 5, AttackTypeFilter: attack.FilterAll}
	b := PlanBatch(makeEvents(3), cfg, newTestProjector(), DefaultLimits())

	require.Equal(t, 3, b.Len())
	want := []time.Duration{0, 1200 * time.Millisecond, 2400 * time.Millisecond}
	for i, en := range b.Entries {
		assert.Equal(t, want[i], en.Delay, "delay of entry %d", i)
		assert.Equal(t, 9*time.Second, en.Duration)
		assert.False(t, en.Path.Degenerate())
	}
	assert.Equal(t, 3*1200*time.Millisecond+time.Second, b.ReplayAfter(DefaultLimits()))
}

func TestPlanBatchSimultaneousCap(t *testing.T) {
	cfg := PlaybackConfig{Mode: ModeSimultaneous, SpeedLevel: 5}
	b := PlanBatch(makeEvents(60), cfg, newTestProjector(), DefaultLimits())

	require.Equal(t, 10, b.Len())
	assert.Equal(t, 50, b.Skipped.Capped)
	for i, en := range b.Entries {
		assert.Zero(t, en.Delay)
		assert.Equal(t, makeEvents(60)[i].ID, en.Event.ID, "cap keeps the first events")
	}
	assert.Zero(t, b.ReplayAfter(DefaultLimits()), "simultaneous batches never replay")
}

func TestPlanBatchSequentialCap(t *testing.T) {
	cfg := PlaybackConfig{Mode: ModeSequential, SpeedLevel: 10}
	b := PlanBatch(makeEvents(60), cfg, newTestProjector(), DefaultLimits())
	assert.Equal(t, 50, b.Len())
	assert.Equal(t, 10, b.Skipped.Capped)
	assert.Equal(t, 49*200*time.Millisecond, b.Entries[49].Delay)
}

func TestPlanBatchCustomLimits(t *testing.T) {
	limits := Limits{SimultaneousBatch: 3, SequentialBatch: 4}
	b := PlanBatch(makeEvents(20), PlaybackConfig{Mode: ModeSimultaneous, SpeedLevel: 5}, newTestProjector(), limits)
	assert.Equal(t, 3, b.Len())
	b = PlanBatch(makeEvents(20), PlaybackConfig{Mode: ModeSequential, SpeedLevel: 5}, newTestProjector(), limits)
	assert.Equal(t, 4, b.Len())
}

func TestPlanBatchFilterPreservesOrder(t *testing.T) {
	events := makeEvents(40)
	cfg := PlaybackConfig{Mode: ModeSequential, SpeedLevel: 5, AttackTypeFilter: string(attack.DDoS)}
	b := PlanBatch(events, cfg, newTestProjector(), DefaultLimits())

	var want []string
	for _, ev := range events {
		if ev.Type == attack.DDoS {
			want = append(want, ev.ID)
		}
	}
	var got []string
	for _, en := range b.Entries {
		assert.Equal(t, attack.DDoS, en.Event.Type)
		got = append(got, en.Event.ID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, len(events)-len(want), b.Skipped.Filtered)
}

func TestPlanBatchSkipsUnprojectable(t *testing.T) {
	valid := makeEvents(2)
	events := []attack.Event{valid[0], nanEvent("nan"), {ID: "nil", Type: attack.DDoS}, valid[1]}
	cfg := PlaybackConfig{Mode: ModeSequential, SpeedLevel: 5}

	var b Batch
	require.NotPanics(t, func() {
		b = PlanBatch(events, cfg, newTestProjector(), DefaultLimits())
	})
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "ev-000", b.Entries[0].Event.ID)
	assert.Equal(t, "ev-001", b.Entries[1].Event.ID)
	assert.Equal(t, 2, b.Skipped.Unprojectable)
	assert.Equal(t, 1200*time.Millisecond, b.Entries[1].Delay, "skipped events do not take a delay slot")
}

func TestPlanBatchEmpty(t *testing.T) {
	b := PlanBatch(nil, DefaultPlaybackConfig(), newTestProjector(), DefaultLimits())
	assert.Zero(t, b.Len())
	assert.Zero(t, b.ReplayAfter(DefaultLimits()))
}
