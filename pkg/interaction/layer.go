package interaction

import (
	"fmt"
	"math"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

// TooltipOffset is added to the pointer position when placing the tooltip.
const TooltipOffset = 10

// TimeLayout is the clock format used for attack times in tooltips.
const TimeLayout = "15:04:05"

// MarkerHitRadius is the pointer distance, in map pixels, that counts as
// hovering a target marker.
const MarkerHitRadius = 8

// Inverter maps a render-surface point back to coordinates.
type Inverter interface {
	Invert(pt geo.Point) (attack.Coords, bool)
}

// CountryLocator finds the country containing a coordinate.
type CountryLocator interface {
	CountryAt(c attack.Coords) (*geo.Country, bool)
}

// Layer handles hover and click on countries and attack markers. It
// never touches animation state.
type Layer struct {
	tooltip         *Tooltip
	onCountrySelect func(name string)

	inverter  Inverter
	countries CountryLocator
	hovered   string
}

// NewLayer builds a layer writing to tooltip. onCountrySelect may be nil.
func NewLayer(tooltip *Tooltip, onCountrySelect func(name string)) *Layer {
	if tooltip == nil {
		tooltip = NewTooltip()
	}
	return &Layer{tooltip: tooltip, onCountrySelect: onCountrySelect}
}

// SetGeometry supplies the projection inverse and country shapes used by
// Pointer. Either may be nil while the base map is loading.
func (l *Layer) SetGeometry(inv Inverter, countries CountryLocator) {
	l.inverter = inv
	l.countries = countries
}

// Tooltip returns the shared tooltip handle.
func (l *Layer) Tooltip() *Tooltip { return l.tooltip }

// HoveredCountry returns the country under the pointer, if any.
func (l *Layer) HoveredCountry() string { return l.hovered }

// MarkerContent formats the tooltip for an attack marker. A malformed
// timestamp shows attack.InvalidDate.
func MarkerContent(ev attack.Event) Content {
	return Content{
		Kind:  ContentAttack,
		Title: fmt.Sprintf("%s Attack", ev.Type),
		Lines: []string{
			"From: " + ev.OriginCountry,
			"To: " + ev.TargetCountry,
			"Protocol: " + string(ev.Protocol),
			fmt.Sprintf("Port: %d", ev.DestPort),
			"Time: " + ev.FormatTime(TimeLayout),
		},
	}
}

// HoverMarker shows the tooltip for an attack marker at screen position
// (x, y).
func (l *Layer) HoverMarker(ev attack.Event, x, y float64) Content {
	c := MarkerContent(ev)
	l.tooltip.Show(c, x+TooltipOffset, y+TooltipOffset)
	return c
}

// HoverCountry shows the country name at screen position (x, y).
func (l *Layer) HoverCountry(name string, x, y float64) Content {
	l.hovered = name
	c := Content{Kind: ContentCountry, Title: name}
	l.tooltip.Show(c, x+TooltipOffset, y+TooltipOffset)
	return c
}

// Leave hides the tooltip and clears the hovered country.
func (l *Layer) Leave() {
	l.hovered = ""
	l.tooltip.Hide()
}

// Click reports a country selection to the callback and returns the name.
// Clicking outside any country returns "".
func (l *Layer) Click(name string) string {
	if name != "" && l.onCountrySelect != nil {
		l.onCountrySelect(name)
	}
	return name
}

// CountryUnder returns the country at map point pt.
func (l *Layer) CountryUnder(pt geo.Point) (string, bool) {
	if l.inverter == nil || l.countries == nil {
		return "", false
	}
	c, ok := l.inverter.Invert(pt)
	if !ok {
		return "", false
	}
	country, ok := l.countries.CountryAt(c)
	if !ok || country.Name == "" {
		return "", false
	}
	return country.Name, true
}

// FindMarker returns the visible target marker nearest to pt within
// MarkerHitRadius. Later elements win ties since they are drawn on top.
func FindMarker(elements []scheduler.Element, pt geo.Point) (scheduler.Element, bool) {
	var best scheduler.Element
	bestDist := math.Inf(1)
	found := false
	for _, e := range elements {
		if e.Kind != scheduler.KindTarget || e.Phase == scheduler.PhaseRetired || e.Phase == scheduler.PhaseScheduled {
			continue
		}
		d := math.Hypot(e.Point.X-pt.X, e.Point.Y-pt.Y)
		if d <= MarkerHitRadius && d <= bestDist {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}

// Pointer dispatches a pointer position: a marker under it wins over the
// country beneath, and empty space hides the tooltip. mapPt is in map
// space, (sx, sy) in screen space.
func (l *Layer) Pointer(elements []scheduler.Element, mapPt geo.Point, sx, sy float64) Content {
	if e, ok := FindMarker(elements, mapPt); ok {
		return l.HoverMarker(e.Event, sx, sy)
	}
	if name, ok := l.CountryUnder(mapPt); ok {
		return l.HoverCountry(name, sx, sy)
	}
	l.Leave()
	return Content{}
}

// ClickAt selects the country under map point pt.
func (l *Layer) ClickAt(pt geo.Point) string {
	name, _ := l.CountryUnder(pt)
	return l.Click(name)
}
