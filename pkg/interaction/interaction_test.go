package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

func sampleEvent() attack.Event {
	return attack.Event{
		ID:            "a1",
		Type:          attack.DDoS,
		OriginCountry: "China",
		TargetCountry: "United States",
		Protocol:      attack.HTTPS,
		DestPort:      443,
		Datetime:      "2024-03-01T14:05:09.000+00:00",
	}
}

func TestMarkerContent(t *testing.T) {
	c := MarkerContent(sampleEvent())
	assert.Equal(t, ContentAttack, c.Kind)
	assert.Equal(t, "DDoS Attack", c.Title)
	assert.Equal(t, []string{
		"From: China",
		"To: United States",
		"Protocol: HTTPS",
		"Port: 443",
		"Time: 14:05:09",
	}, c.Lines)
}

func TestMarkerContentInvalidDate(t *testing.T) {
	ev := sampleEvent()
	ev.Datetime = "yesterday-ish"
	c := MarkerContent(ev)
	assert.Equal(t, "Time: "+attack.InvalidDate, c.Lines[4])
}

func TestTooltipLastWriterWins(t *testing.T) {
	tt := NewTooltip()
	l1 := NewLayer(tt, nil)
	l2 := NewLayer(tt, nil)

	l1.HoverMarker(sampleEvent(), 100, 50)
	l2.HoverCountry("France", 10, 20)

	st := tt.State()
	require.True(t, st.Visible)
	assert.Equal(t, "France", st.Content.Title)
	assert.Equal(t, 20.0, st.X)
	assert.Equal(t, 30.0, st.Y)

	tt.Move(5, 6)
	st = tt.State()
	assert.Equal(t, 5.0, st.X)
	assert.Equal(t, "France", st.Content.Title)

	l1.Leave()
	assert.False(t, tt.State().Visible)
	assert.Equal(t, "", l1.HoveredCountry())
}

func TestClickNotifiesCallback(t *testing.T) {
	var selected []string
	l := NewLayer(nil, func(name string) { selected = append(selected, name) })

	assert.Equal(t, "Japan", l.Click("Japan"))
	assert.Equal(t, "", l.Click(""))
	assert.Equal(t, []string{"Japan"}, selected)

	// A nil callback is fine.
	assert.Equal(t, "Peru", NewLayer(nil, nil).Click("Peru"))
}

type fakeInverter struct{}

func (fakeInverter) Invert(pt geo.Point) (attack.Coords, bool) {
	return attack.Coords{Lon: pt.X, Lat: pt.Y}, true
}

type fakeCountries map[string][4]float64

func (f fakeCountries) CountryAt(c attack.Coords) (*geo.Country, bool) {
	for name, b := range f {
		if c.Lon >= b[0] && c.Lon <= b[2] && c.Lat >= b[1] && c.Lat <= b[3] {
			return &geo.Country{Name: name}, true
		}
	}
	return nil, false
}

func TestPointerDispatch(t *testing.T) {
	var selected string
	l := NewLayer(nil, func(name string) { selected = name })
	l.SetGeometry(fakeInverter{}, fakeCountries{"Squareland": {0, 0, 100, 100}})

	elements := []scheduler.Element{
		{ID: 1, Kind: scheduler.KindPath, Phase: scheduler.PhaseHolding, Event: sampleEvent()},
		{ID: 3, Kind: scheduler.KindTarget, Phase: scheduler.PhaseFadingIn, Point: geo.Point{X: 50, Y: 50}, Event: sampleEvent()},
		{ID: 4, Kind: scheduler.KindTarget, Phase: scheduler.PhaseScheduled, Point: geo.Point{X: 20, Y: 20}, Event: sampleEvent()},
	}

	c := l.Pointer(elements, geo.Point{X: 52, Y: 51}, 300, 200)
	assert.Equal(t, ContentAttack, c.Kind, "marker wins over the country beneath")

	c = l.Pointer(elements, geo.Point{X: 20, Y: 20}, 300, 200)
	assert.Equal(t, ContentCountry, c.Kind, "invisible scheduled markers are not hoverable")
	assert.Equal(t, "Squareland", l.HoveredCountry())

	c = l.Pointer(elements, geo.Point{X: 500, Y: 500}, 300, 200)
	assert.Equal(t, ContentNone, c.Kind)
	assert.False(t, l.Tooltip().State().Visible)

	assert.Equal(t, "Squareland", l.ClickAt(geo.Point{X: 1, Y: 1}))
	assert.Equal(t, "Squareland", selected)
	assert.Equal(t, "", l.ClickAt(geo.Point{X: 500, Y: 1}))
}

func TestCountryUnderWithoutGeometry(t *testing.T) {
	l := NewLayer(nil, nil)
	_, ok := l.CountryUnder(geo.Point{X: 1, Y: 1})
	assert.False(t, ok)
}

func TestContentString(t *testing.T) {
	assert.Equal(t, "", Content{}.String())
	assert.Equal(t, "Peru", Content{Title: "Peru"}.String())
	assert.Equal(t, "A\nb\nc", Content{Title: "A", Lines: []string{"b", "c"}}.String())
}
