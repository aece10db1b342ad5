package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/attack-map/pkg/attack"
)

func ev(id string, typ attack.Type, from, to string, proto attack.Protocol, port int, ts string) attack.Event {
	return attack.Event{
		ID:            id,
		Type:          typ,
		OriginCountry: from,
		TargetCountry: to,
		Protocol:      proto,
		DestPort:      port,
		Datetime:      ts,
		Host:          "host-" + id,
		SourceIP:      "10.0.0." + id,
	}
}

func fixture() []attack.Event {
	return []attack.Event{
		ev("1", attack.DDoS, "China", "United States", attack.TCP, 443, "2024-01-15T03:10:00.000+00:00"),
		ev("2", attack.Phishing, "Russia", "Germany", attack.SMTP, 25, "2024-02-01T03:45:00.000+00:00"),
		ev("3", attack.DDoS, "United States", "China", attack.UDP, 53, "2024-02-02T23:00:00.000+00:00"),
		ev("4", attack.Malware, "Germany", "United States", attack.TCP, 443, "not a date"),
		ev("5", attack.DDoS, "Brazil", "United States", attack.HTTP, 80, "2024-01-15T12:00:00.000+00:00"),
	}
}

func TestByMonth(t *testing.T) {
	assert.Equal(t, []Bucket{{"Jan", 2}, {"Feb", 2}}, ByMonth(fixture()))
}

func TestByCountry(t *testing.T) {
	got := ByCountry(fixture())
	require.NotEmpty(t, got)
	assert.Equal(t, Bucket{"United States", 3}, got[0])
	assert.Equal(t, 5, Total(got))
}

func TestByHour(t *testing.T) {
	got := ByHour(fixture())
	require.Len(t, got, 24)
	assert.Equal(t, Bucket{"00:00", 0}, got[0])
	assert.Equal(t, Bucket{"03:00", 2}, got[3])
	assert.Equal(t, Bucket{"12:00", 1}, got[12])
	assert.Equal(t, Bucket{"23:00", 1}, got[23])
}

func TestByProtocolAndType(t *testing.T) {
	assert.Equal(t, []Bucket{{"TCP", 2}, {"SMTP", 1}, {"UDP", 1}, {"HTTP", 1}}, ByProtocol(fixture()))
	assert.Equal(t, []Bucket{{"DDoS", 3}, {"Phishing", 1}, {"Malware", 1}}, ByType(fixture()))
}

func TestTopN(t *testing.T) {
	var events []attack.Event
	for i := 0; i < 30; i++ {
		e := ev("x", attack.DDoS, "A", "B", attack.TCP, 1000+i, "")
		e.Host = strings.Repeat("h", i%12+1)
		events = append(events, e)
	}
	assert.Len(t, ByHost(events), 10)
	assert.Len(t, ByPort(events), 10)
	assert.Equal(t, Bucket{"443", 2}, ByPort(fixture())[0])
	assert.Len(t, BySource(fixture()), 5)
}

func TestByYearMonth(t *testing.T) {
	assert.Equal(t, []Bucket{{"2024-01", 2}, {"2024-02", 2}}, ByYearMonth(fixture()))
}

func TestTimeSeries(t *testing.T) {
	start := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 2, 23, 59, 59, 0, time.UTC)
	got := TimeSeries(fixture(), start, end)
	require.Len(t, got, 20)
	assert.Equal(t, start, got[0].Date)
	assert.Equal(t, 0, got[0].Value)
	assert.Equal(t, 2, got[1].Value, "two events on Jan 15")
	assert.Equal(t, 1, got[18].Value)
	assert.Equal(t, 1, got[19].Value)

	assert.Nil(t, TimeSeries(fixture(), end, start))
}

func TestFilterByDate(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := FilterByDate(fixture(), start, end)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func ids(events []attack.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestSortTable(t *testing.T) {
	tests := []struct {
		name string
		s    SortState
		want []string
	}{
		{"default newest first", SortState{}, []string{"3", "2", "5", "1", "4"}},
		{"time ascending", SortState{SortTime, Asc}, []string{"1", "5", "2", "3", "4"}},
		{"type ascending", SortState{SortType, Asc}, []string{"1", "3", "5", "4", "2"}},
		{"target descending", SortState{SortTarget, Desc}, []string{"1", "4", "5", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(SortTable(fixture(), tt.s)))
		})
	}
}

func TestSortStateClick(t *testing.T) {
	s := DefaultSort
	s = s.Click(SortTime)
	assert.Equal(t, SortState{SortTime, Asc}, s)
	s = s.Click(SortTime)
	assert.Equal(t, SortState{SortTime, Desc}, s)
	s = s.Click(SortOrigin)
	assert.Equal(t, SortState{SortOrigin, Desc}, s)
}

func TestDetailFor(t *testing.T) {
	d := DetailFor(fixture(), "United States")
	assert.Equal(t, 3, d.Incoming)
	assert.Equal(t, 1, d.Outgoing)
	assert.Equal(t, 4, d.Total)
	assert.Equal(t, []Bucket{{"DDoS", 3}, {"Malware", 1}}, d.Types)
	assert.Equal(t, Bucket{"443", 2}, d.TopPorts[0])
	assert.False(t, d.Empty())

	assert.True(t, DetailFor(fixture(), "").Empty())
	assert.True(t, DetailFor(fixture(), "Atlantis").Empty())
}

func TestRenderTable(t *testing.T) {
	now := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	out := RenderTable(fixture(), DefaultSort, 3, now)
	assert.Contains(t, out, "Latest Attacks")
	assert.Contains(t, out, "(5 total)")
	assert.Contains(t, out, "Time ↓")
	assert.Contains(t, out, "1 hour ago")
	assert.NotContains(t, out, attack.InvalidDate, "rows beyond the limit are hidden")

	full := RenderTable(fixture(), DefaultSort, 0, now)
	assert.Contains(t, full, attack.InvalidDate)

	assert.Contains(t, RenderTable(nil, DefaultSort, 0, now), "No attacks to display")
}

func TestRenderCountry(t *testing.T) {
	assert.Contains(t, RenderCountry(CountryDetail{}), "Select a country")
	out := RenderCountry(DetailFor(fixture(), "United States"))
	assert.Contains(t, out, "United States")
	assert.Contains(t, out, "Port 443: 2")
	assert.Contains(t, out, "DDoS: 3")
}

func TestRenderBars(t *testing.T) {
	out := RenderBars("By Type", ByType(fixture()), 10)
	assert.Contains(t, out, "By Type")
	assert.Contains(t, out, strings.Repeat("█", 10)+" 3")
	assert.Contains(t, RenderBars("Empty", nil, 10), "No data")
}
