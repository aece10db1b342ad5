package mapview

import (
	"sync"
	"time"

	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

const (
	// ToastTTL is how long a toast stays on screen.
	ToastTTL = 4 * time.Second
	// toastLimit caps the stack of visible toasts.
	toastLimit = 3
	toastFade  = 300 * time.Millisecond
)

type toast struct {
	n  dashboard.Notification
	at time.Time
}

// Toasts is a dashboard.Notifier that remembers when each notification
// arrived so the viewer can fade it out.
type Toasts struct {
	mu    sync.Mutex
	clock scheduler.Clock
	items []toast
}

// NewToasts returns an empty toast stack.
func NewToasts(clock scheduler.Clock) *Toasts {
	if clock == nil {
		clock = scheduler.RealClock{}
	}
	return &Toasts{clock: clock}
}

// Notify pushes n, dropping the oldest toast past the limit.
func (t *Toasts) Notify(n dashboard.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, toast{n: n, at: t.clock.Now()})
	if len(t.items) > toastLimit {
		t.items = t.items[len(t.items)-toastLimit:]
	}
}

// VisibleToast is a toast with its current opacity.
type VisibleToast struct {
	dashboard.Notification
	Alpha float64
}

// Active expires old toasts and returns the rest, newest first.
func (t *Toasts) Active(now time.Time) []VisibleToast {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	for _, it := range t.items {
		if now.Sub(it.at) < ToastTTL {
			kept = append(kept, it)
		}
	}
	t.items = kept

	out := make([]VisibleToast, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		left := ToastTTL - now.Sub(kept[i].at)
		alpha := 1.0
		if left < toastFade {
			alpha = float64(left) / float64(toastFade)
		}
		out = append(out, VisibleToast{Notification: kept[i].n, Alpha: alpha})
	}
	return out
}
