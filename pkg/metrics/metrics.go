package metrics

import "strconv"

// All recorders are safe to call on a nil *Registry.

// RecordBatch records a planned batch and the events it left out.
func (r *Registry) RecordBatch(mode string, size int, skipped map[string]int) {
	if r == nil {
		return
	}
	r.BatchesPlanned.WithLabelValues(mode).Inc()
	r.BatchSize.WithLabelValues(mode).Observe(float64(size))
	for reason, n := range skipped {
		if n > 0 {
			r.EventsSkipped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// RecordDraw records a newly drawn element.
func (r *Registry) RecordDraw(kind string) {
	if r == nil {
		return
	}
	r.ElementsDrawn.WithLabelValues(kind).Inc()
}

// RecordRetire records an element that completed its fade-out.
func (r *Registry) RecordRetire(kind string) {
	if r == nil {
		return
	}
	r.ElementsRetired.WithLabelValues(kind).Inc()
}

// RecordEviction records an element removed by the active element ceiling.
func (r *Registry) RecordEviction() {
	if r == nil {
		return
	}
	r.ElementsEvicted.Inc()
}

// RecordReplay records a sequential replay.
func (r *Registry) RecordReplay() {
	if r == nil {
		return
	}
	r.Replays.Inc()
}

// RecordCancel records a cancelled run.
func (r *Registry) RecordCancel() {
	if r == nil {
		return
	}
	r.RunsCancelled.Inc()
}

// SetSchedulerState updates the live element and pending callback gauges.
func (r *Registry) SetSchedulerState(active, pending int) {
	if r == nil {
		return
	}
	r.ActiveElements.Set(float64(active))
	r.PendingCallbacks.Set(float64(pending))
}

// SetStreamClients sets the connected client gauge.
func (r *Registry) SetStreamClients(n int) {
	if r == nil {
		return
	}
	r.StreamClients.Set(float64(n))
}

// RecordStreamMessage records a broadcast message.
func (r *Registry) RecordStreamMessage() {
	if r == nil {
		return
	}
	r.StreamMessagesTotal.Inc()
}

// RecordStreamDrop records a client dropped for being too slow.
func (r *Registry) RecordStreamDrop() {
	if r == nil {
		return
	}
	r.StreamDropsTotal.Inc()
}

// RecordNotification records a user-visible notification.
func (r *Registry) RecordNotification(destructive bool) {
	if r == nil {
		return
	}
	r.NotificationsTotal.WithLabelValues(strconv.FormatBool(destructive)).Inc()
}

// RecordBaseMapLoad records a base map load attempt.
func (r *Registry) RecordBaseMapLoad(ok bool) {
	if r == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	r.BaseMapLoads.WithLabelValues(status).Inc()
}
