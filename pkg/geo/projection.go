// Package geo maps geographic coordinates onto the render surface and
// loads the base map geometry used for the country layer.
package geo

import (
	"math"
	"sync"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// Point is a position on the render surface, in pixels.
type Point struct {
	X, Y float64
}

// Projection is a fitted map projection for one viewport size.
type Projection interface {
	Forward(lon, lat float64) (x, y float64, ok bool)
	Inverse(x, y float64) (lon, lat float64, ok bool)
}

// Kind selects the projection family.
type Kind string

const (
	KindMercator  Kind = "mercator"
	KindMollweide Kind = "mollweide"
)

// MaxMercatorLat is the latitude at which Mercator is cut off.
const MaxMercatorLat = 85.05112878

// Mercator is a spherical Mercator centred on (0°, 30°N).
type Mercator struct {
	scale      float64
	tx, ty     float64
	centerMerc float64
}

// NewMercator fits a Mercator projection to a width x height viewport.
func NewMercator(width, height int) *Mercator {
	return &Mercator{
		scale:      float64(width) / 6.5,
		tx:         float64(width) / 2,
		ty:         float64(height) / 2,
		centerMerc: mercY(30 * math.Pi / 180),
	}
}

func mercY(phi float64) float64 {
	return math.Log(math.Tan(math.Pi/4 + phi/2))
}

func (m *Mercator) Forward(lon, lat float64) (float64, float64, bool) {
	if !inDomain(lon, lat) || math.Abs(lat) > MaxMercatorLat {
		return 0, 0, false
	}
	lambda, phi := lon*math.Pi/180, lat*math.Pi/180
	x := m.tx + m.scale*lambda
	y := m.ty - m.scale*(mercY(phi)-m.centerMerc)
	return x, y, true
}

func (m *Mercator) Inverse(x, y float64) (float64, float64, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	lambda := (x - m.tx) / m.scale
	phi := 2*math.Atan(math.Exp(m.centerMerc-(y-m.ty)/m.scale)) - math.Pi/2
	lon, lat := lambda*180/math.Pi, phi*180/math.Pi
	if !inDomain(lon, lat) || math.Abs(lat) > MaxMercatorLat {
		return 0, 0, false
	}
	return lon, lat, true
}

// Mollweide is the equal-area projection used by the full-screen view.
type Mollweide struct {
	width, height int
	scale         float64
}

// NewMollweide builds a Mollweide projection. A zero scale picks one that
// fits the viewport width.
func NewMollweide(width, height int, scale float64) *Mollweide {
	if scale <= 0 {
		scale = float64(width) / 6.4
	}
	return &Mollweide{width: width, height: height, scale: scale}
}

func (g *Mollweide) Forward(lon, lat float64) (float64, float64, bool) {
	if !inDomain(lon, lat) {
		return 0, 0, false
	}
	if lat > 89.5 {
		lat = 89.5
	}
	if lat < -89.5 {
		lat = -89.5
	}

	latRad, lngRad := lat*math.Pi/180, lon*math.Pi/180
	theta := latRad
	for i := 0; i < 10; i++ {
		denom := 2 + 2*math.Cos(2*theta)
		if math.Abs(denom) < 1e-9 {
			break
		}
		delta := (2*theta + math.Sin(2*theta) - math.Pi*math.Sin(latRad)) / denom
		theta -= delta
		if math.Abs(delta) < 1e-7 {
			break
		}
	}
	r := g.scale
	x := (float64(g.width) / 2) + r*(2*math.Sqrt(2)/math.Pi)*lngRad*math.Cos(theta)
	y := (float64(g.height) / 2) - r*math.Sqrt(2)*math.Sin(theta)
	return x, y, true
}

func (g *Mollweide) Inverse(x, y float64) (float64, float64, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	r := g.scale
	s := ((float64(g.height) / 2) - y) / (r * math.Sqrt(2))
	if s < -1 || s > 1 {
		return 0, 0, false
	}
	theta := math.Asin(s)
	cos := math.Cos(theta)
	if cos < 1e-12 {
		return 0, 0, false
	}
	lngRad := (x - float64(g.width)/2) * math.Pi / (2 * math.Sqrt(2) * r * cos)
	latRad := math.Asin((2*theta + math.Sin(2*theta)) / math.Pi)
	lon, lat := lngRad*180/math.Pi, latRad*180/math.Pi
	if !inDomain(lon, lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

func inDomain(lon, lat float64) bool {
	return attack.Coords{Lon: lon, Lat: lat}.Valid()
}

// Projector projects event coordinates for the current viewport. It is
// re-fitted whenever the viewport size changes.
type Projector struct {
	mu     sync.RWMutex
	kind   Kind
	scale  float64
	width  int
	height int
	proj   Projection
}

// NewProjector fits a projection of the given kind. scale is only used by
// Mollweide; pass 0 to derive it from the width.
func NewProjector(kind Kind, width, height int, scale float64) *Projector {
	p := &Projector{kind: kind, scale: scale}
	p.Resize(width, height)
	return p
}

// Resize re-fits the projection to a new viewport.
func (p *Projector) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width, p.height = width, height
	switch p.kind {
	case KindMollweide:
		p.proj = NewMollweide(width, height, p.scale)
	default:
		p.proj = NewMercator(width, height)
	}
}

// Size returns the fitted viewport size.
func (p *Projector) Size() (int, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.width, p.height
}

// Project maps c to the render surface. ok is false for nil input and for
// coordinates outside the projection's domain; callers skip such elements.
func (p *Projector) Project(c *attack.Coords) (Point, bool) {
	if c == nil {
		return Point{}, false
	}
	p.mu.RLock()
	proj := p.proj
	p.mu.RUnlock()
	x, y, ok := proj.Forward(c.Lon, c.Lat)
	if !ok {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

// Invert maps a render-surface point back to coordinates.
func (p *Projector) Invert(pt Point) (attack.Coords, bool) {
	p.mu.RLock()
	proj := p.proj
	p.mu.RUnlock()
	lon, lat, ok := proj.Inverse(pt.X, pt.Y)
	if !ok {
		return attack.Coords{}, false
	}
	return attack.Coords{Lon: lon, Lat: lat}, true
}
