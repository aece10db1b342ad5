// Package attackpath turns a pair of projected endpoints into the curved
// trace drawn for one attack.
package attackpath

import (
	"fmt"
	"math"

	"github.com/sudorandom/attack-map/pkg/geo"
)

// Curvature multiplies the chord length to give the arc radius. Larger
// values give flatter arcs.
const Curvature = 1.5

// Descriptor is a single circular arc from Start to End. It carries enough
// for any backend to draw the curve: SVG path data, sampled polylines or
// native arc primitives.
type Descriptor struct {
	Start     geo.Point
	End       geo.Point
	Radius    float64
	LargeArc  int
	SweepFlag int
}

// Build computes the arc between two projected points. Equal points give a
// zero-radius descriptor.
func Build(origin, target geo.Point) Descriptor {
	dx := target.X - origin.X
	dy := target.Y - origin.Y
	return Descriptor{
		Start:     origin,
		End:       target,
		Radius:    math.Hypot(dx, dy) * Curvature,
		LargeArc:  0,
		SweepFlag: 1,
	}
}

// Degenerate reports whether the arc has zero length.
func (d Descriptor) Degenerate() bool {
	return d.Radius == 0 || (d.Start.X == d.End.X && d.Start.Y == d.End.Y)
}

// Center returns the centre of the circle the arc lies on along with the
// start angle and the signed sweep in radians.
func (d Descriptor) Center() (c geo.Point, start, sweep float64) {
	if d.Degenerate() {
		return d.Start, 0, 0
	}
	// Endpoint to centre conversion with no axis rotation and rx == ry.
	x1p := (d.Start.X - d.End.X) / 2
	y1p := (d.Start.Y - d.End.Y) / 2
	sq := x1p*x1p + y1p*y1p
	r := d.Radius
	if r*r < sq {
		r = math.Sqrt(sq)
	}
	k := math.Sqrt(math.Max(0, (r*r-sq)/sq))
	if d.LargeArc == d.SweepFlag {
		k = -k
	}
	c = geo.Point{
		X: k*y1p + (d.Start.X+d.End.X)/2,
		Y: -k*x1p + (d.Start.Y+d.End.Y)/2,
	}

	a1 := math.Atan2(d.Start.Y-c.Y, d.Start.X-c.X)
	a2 := math.Atan2(d.End.Y-c.Y, d.End.X-c.X)
	sweep = a2 - a1
	if d.SweepFlag == 1 {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	}
	return c, a1, sweep
}

// PointAt returns the point at fraction t (0..1) along the arc.
func (d Descriptor) PointAt(t float64) geo.Point {
	if d.Degenerate() {
		return d.Start
	}
	switch {
	case t <= 0:
		return d.Start
	case t >= 1:
		return d.End
	}
	c, a1, sweep := d.Center()
	r := math.Hypot(d.Start.X-c.X, d.Start.Y-c.Y)
	a := a1 + sweep*t
	return geo.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
}

// Sample returns n+1 points along the arc, start and end included. A
// degenerate arc yields the single start point.
func (d Descriptor) Sample(n int) []geo.Point {
	if d.Degenerate() {
		return []geo.Point{d.Start}
	}
	if n < 1 {
		n = 1
	}
	pts := make([]geo.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, d.PointAt(float64(i)/float64(n)))
	}
	return pts
}

// Length is the arc length in pixels.
func (d Descriptor) Length() float64 {
	if d.Degenerate() {
		return 0
	}
	c, _, sweep := d.Center()
	return math.Hypot(d.Start.X-c.X, d.Start.Y-c.Y) * math.Abs(sweep)
}

// SVG renders the arc as SVG path data.
func (d Descriptor) SVG() string {
	return fmt.Sprintf("M%g,%gA%g,%g 0 %d,%d %g,%g",
		d.Start.X, d.Start.Y, d.Radius, d.Radius, d.LargeArc, d.SweepFlag, d.End.X, d.End.Y)
}
