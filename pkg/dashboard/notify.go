package dashboard

import (
	"fmt"
	"sync"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

// Notification is a short user-facing message raised by a control change
// or a failure.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Notifier receives notifications. Notify must not call back into the
// dashboard.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Notifiers fans a notification out in order.
type Notifiers []Notifier

// Notify forwards n to every notifier.
func (ns Notifiers) Notify(n Notification) {
	for _, x := range ns {
		if x != nil {
			x.Notify(n)
		}
	}
}

// Inbox keeps the most recent notifications for renderers that draw
// toasts themselves.
type Inbox struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewInbox keeps at most limit notifications.
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 1
	}
	return &Inbox{limit: limit}
}

// Notify appends n, dropping the oldest entry when full.
func (b *Inbox) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if len(b.items) > b.limit {
		b.items = b.items[len(b.items)-b.limit:]
	}
}

// Items returns a copy of the retained notifications, oldest first.
func (b *Inbox) Items() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notification(nil), b.items...)
}

// Latest returns the newest notification.
func (b *Inbox) Latest() (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return Notification{}, false
	}
	return b.items[len(b.items)-1], true
}

func pauseNotification(paused bool) Notification {
	if paused {
		return Notification{Title: "Animation paused", Description: "Attack animations have been paused"}
	}
	return Notification{Title: "Animation resumed", Description: "Attack animations are now playing"}
}

func themeNotification(light bool) Notification {
	if light {
		return Notification{Title: "Map theme changed", Description: "Using enhanced contrast theme"}
	}
	return Notification{Title: "Map theme changed", Description: "Using standard theme"}
}

func modeNotification(mode scheduler.Mode) Notification {
	if mode == scheduler.ModeSimultaneous {
		return Notification{Title: "Animation mode changed", Description: "Showing all attacks simultaneously"}
	}
	return Notification{Title: "Animation mode changed", Description: "Showing attacks sequentially"}
}

func filterNotification(filter string) Notification {
	if filter == attack.FilterAll {
		return Notification{Title: "Attack filter applied", Description: "Showing all attack types"}
	}
	return Notification{Title: "Attack filter applied", Description: fmt.Sprintf("Filtering to show only %s attacks", filter)}
}

func speedNotification(level int) Notification {
	return Notification{Title: "Animation speed changed", Description: fmt.Sprintf("Attack animation speed set to %d/10", level)}
}

func selectNotification(name string) Notification {
	return Notification{Title: "Selected " + name, Description: "Showing data for " + name}
}

// dateLayout matches a US locale short date.
const dateLayout = "1/2/2006"

func dataLoadedNotification(n int, start, end string) Notification {
	return Notification{
		Title:       "Extended data loaded",
		Description: fmt.Sprintf("Using enhanced dataset with %d entries from %s to %s", n, start, end),
	}
}

var (
	dataErrorNotification = Notification{
		Title:       "Error loading data",
		Description: "Failed to load attack data. Please try again.",
		Destructive: true,
	}
	baseMapErrorNotification = Notification{
		Title:       "Error",
		Description: "Failed to load map data. Please refresh the page.",
		Destructive: true,
	}
)
