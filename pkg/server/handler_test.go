package server

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/attack-map/pkg/analytics"
	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/config"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/metrics"
	"github.com/sudorandom/attack-map/pkg/mockdata"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	dash   *dashboard.Dashboard
	clock  *scheduler.MockClock
	inbox  *dashboard.Inbox
	srv    *httptest.Server
	events []attack.Event
}

func newFixture(t *testing.T, load bool) *fixture {
	t.Helper()
	reg := metrics.NewRegistry()
	inbox := dashboard.NewInbox(16)
	clock := scheduler.NewMockClock(epoch)
	d := dashboard.New(dashboard.Options{
		Config:   config.Default(),
		Clock:    clock,
		Notifier: inbox,
		Metrics:  reg,
	})
	t.Cleanup(func() { _ = d.Close() })
	events := mockdata.Generate(40, mockdata.DefaultStart, epoch, rand.New(rand.NewSource(3)))
	if load {
		d.SetEvents(events)
	}
	h := NewHandler(Options{Dashboard: d, Inbox: inbox, Metrics: reg.Handler()})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &fixture{dash: d, clock: clock, inbox: inbox, srv: srv, events: events}
}

func (f *fixture) do(t *testing.T, method, path string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (f *fixture) state(t *testing.T, method, path string) stateResponse {
	t.Helper()
	code, body := f.do(t, method, path)
	require.Equal(t, http.StatusOK, code, string(body))
	var s stateResponse
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.do(t, "GET", "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestStateBeforeLoad(t *testing.T) {
	f := newFixture(t, false)
	s := f.state(t, "GET", "/api/v1/state")
	assert.Equal(t, "Loading attack data...", s.Message)
	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, "Zoom: 100%", s.Zoom)
	assert.Zero(t, s.Active)
}

func TestControls(t *testing.T) {
	f := newFixture(t, true)

	s := f.state(t, "GET", "/api/v1/state")
	assert.Equal(t, 120, s.Active)
	assert.Equal(t, scheduler.ModeSequential, s.Playback.Mode)

	s = f.state(t, "POST", "/api/v1/pause")
	assert.True(t, s.Playback.Paused)
	assert.Zero(t, s.Pending, "paused playback arms nothing")

	s = f.state(t, "POST", "/api/v1/mode")
	assert.Equal(t, scheduler.ModeSimultaneous, s.Playback.Mode)
	assert.Equal(t, 30, s.Active)

	s = f.state(t, "PUT", "/api/v1/speed/9")
	assert.Equal(t, 9, s.Playback.SpeedLevel)

	s = f.state(t, "PUT", "/api/v1/filter/DDoS")
	assert.Equal(t, "DDoS", s.Playback.AttackTypeFilter)

	s = f.state(t, "POST", "/api/v1/theme")
	assert.Equal(t, "light", s.Theme)

	s = f.state(t, "PUT", "/api/v1/selection/Japan")
	assert.Equal(t, "Japan", s.Selected)
	s = f.state(t, "DELETE", "/api/v1/selection")
	assert.Empty(t, s.Selected)

	f.dash.Viewport().ZoomAt(2, 0, 0)
	s = f.state(t, "POST", "/api/v1/viewport/reset")
	assert.True(t, s.Reset, "reset animates back to identity")
	assert.NotEqual(t, "Zoom: 100%", s.Zoom)
	f.clock.Advance(750 * time.Millisecond)
	f.dash.Tick()
	s = f.state(t, "GET", "/api/v1/state")
	assert.False(t, s.Reset)
	assert.Equal(t, "Zoom: 100%", s.Zoom)

	n, ok := f.inbox.Latest()
	require.True(t, ok)
	assert.Equal(t, "Selected Japan", n.Title)
}

func TestControlRejections(t *testing.T) {
	f := newFixture(t, true)
	before := len(f.inbox.Items())

	code, body := f.do(t, "PUT", "/api/v1/speed/11")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "SpeedLevel")

	code, _ = f.do(t, "PUT", "/api/v1/filter/Spam")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, "PUT", "/api/v1/speed/fast")
	assert.Equal(t, http.StatusNotFound, code, "non-numeric levels do not match the route")

	assert.Len(t, f.inbox.Items(), before, "rejected changes raise no notification")
	assert.Equal(t, 5, f.dash.Playback().SpeedLevel)
}

func TestEvents(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.do(t, "GET", "/api/v1/events?limit=5&sort=time&dir=asc")
	require.Equal(t, http.StatusOK, code)
	var rows []attack.Event
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 5)
	want := analytics.SortTable(f.events, analytics.SortState{Field: analytics.SortTime, Direction: analytics.Asc})
	for i := range rows {
		assert.Equal(t, want[i].ID, rows[i].ID)
	}

	code, body = f.do(t, "GET", "/api/v1/events?type=Malware&limit=1000")
	require.Equal(t, http.StatusOK, code)
	rows = nil
	require.NoError(t, json.Unmarshal(body, &rows))
	for _, ev := range rows {
		assert.Equal(t, attack.Malware, ev.Type)
	}

	for _, q := range []string{"limit=0", "limit=x", "sort=color", "dir=up", "type=Spam"} {
		code, _ := f.do(t, "GET", "/api/v1/events?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.do(t, "GET", "/api/v1/stats/hour")
	require.Equal(t, http.StatusOK, code)
	var buckets []analytics.Bucket
	require.NoError(t, json.Unmarshal(body, &buckets))
	assert.Len(t, buckets, 24)
	assert.Equal(t, len(f.events), analytics.Total(buckets))

	code, _ = f.do(t, "GET", "/api/v1/stats/weather")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCountry(t *testing.T) {
	f := newFixture(t, true)
	name := f.events[0].TargetCountry

	code, body := f.do(t, "GET", "/api/v1/countries/"+name)
	require.Equal(t, http.StatusOK, code)
	var d analytics.CountryDetail
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, name, d.Name)
	assert.GreaterOrEqual(t, d.Incoming, 1)
	assert.Equal(t, analytics.DetailFor(f.events, name).Total, d.Total)

	code, body = f.do(t, "GET", "/api/v1/countries/Atlantis")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(body), "No attacks recorded for this country")
}

func TestNotificationsAndMetrics(t *testing.T) {
	f := newFixture(t, true)
	f.dash.TogglePause()

	code, body := f.do(t, "GET", "/api/v1/notifications")
	require.Equal(t, http.StatusOK, code)
	var items []dashboard.Notification
	require.NoError(t, json.Unmarshal(body, &items))
	require.NotEmpty(t, items)
	assert.Equal(t, "Animation paused", items[len(items)-1].Title)

	code, body = f.do(t, "GET", "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(string(body), "attackmap_"), "expected registry metrics")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, false)
	code, _ := f.do(t, "OPTIONS", "/api/v1/state")
	assert.Equal(t, http.StatusNoContent, code)
}
