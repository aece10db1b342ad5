package mapview

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
)

// raster projects base-map shapes onto a CPU image.
type raster struct {
	img  *image.RGBA
	proj *geo.Projector
	w, h int
}

func newRaster(proj *geo.Projector) *raster {
	w, h := proj.Size()
	return &raster{img: image.NewRGBA(image.Rect(0, 0, w, h)), proj: proj, w: w, h: h}
}

// project clamps latitude into the projection's domain so polar rings
// still rasterise.
func (r *raster) project(p []float64) (float64, float64, bool) {
	if len(p) < 2 {
		return 0, 0, false
	}
	c := attack.Coords{Lon: p[0], Lat: math.Max(-geo.MaxMercatorLat, math.Min(geo.MaxMercatorLat, p[1]))}
	pt, ok := r.proj.Project(&c)
	return pt.X, pt.Y, ok
}

// RenderBackground rasterises every country onto an opaque image the size
// of the projection surface.
func RenderBackground(bm *geo.BaseMap, proj *geo.Projector, bg, land, border color.RGBA) *image.RGBA {
	r := newRaster(proj)
	draw.Draw(r.img, r.img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	if bm == nil {
		return r.img
	}
	for i := range bm.Countries {
		r.country(&bm.Countries[i], land, border)
	}
	return r.img
}

// RenderCountry rasterises one country onto a transparent image, used as
// the hover and selection overlay.
func RenderCountry(c *geo.Country, proj *geo.Projector, fill, border color.RGBA) *image.RGBA {
	r := newRaster(proj)
	if c != nil {
		r.country(c, fill, border)
	}
	return r.img
}

func (r *raster) country(c *geo.Country, fill, border color.RGBA) {
	for _, poly := range c.Polygons {
		r.fillPolygon(poly, fill)
		for _, ring := range poly {
			r.drawRing(ring, border)
		}
	}
}

type fpoint struct{ x, y float64 }

// fillPolygon is an even-odd scanline fill, so holes stay empty.
func (r *raster) fillPolygon(rings geo.Polygon, c color.RGBA) {
	if len(rings) == 0 {
		return
	}
	projected := make([][]fpoint, 0, len(rings))
	minY, maxY := float64(r.h), 0.0
	for _, ring := range rings {
		pr := make([]fpoint, 0, len(ring))
		for _, p := range ring {
			x, y, ok := r.project(p)
			if !ok {
				continue
			}
			pr = append(pr, fpoint{x, y})
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
		projected = append(projected, pr)
	}
	var nodes []int
	for y := max(0, int(minY)); y <= min(r.h-1, int(maxY)); y++ {
		nodes = nodes[:0]
		fy := float64(y) + 0.5
		for _, ring := range projected {
			for i := range ring {
				j := (i + 1) % len(ring)
				a, b := ring[i], ring[j]
				if (a.y < fy && b.y >= fy) || (b.y < fy && a.y >= fy) {
					nodes = append(nodes, int(math.Round(a.x+(fy-a.y)/(b.y-a.y)*(b.x-a.x))))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i+1 < len(nodes); i += 2 {
			xs, xe := max(0, nodes[i]), min(r.w, nodes[i+1])
			for x := xs; x < xe; x++ {
				r.set(x, y, c)
			}
		}
	}
}

func (r *raster) drawRing(ring [][]float64, c color.RGBA) {
	for i := 0; i+1 < len(ring); i++ {
		x1, y1, ok1 := r.project(ring[i])
		x2, y2, ok2 := r.project(ring[i+1])
		if !ok1 || !ok2 {
			continue
		}
		// Skip segments that wrap around the antimeridian.
		if math.Abs(x2-x1) > float64(r.w)/2 {
			continue
		}
		r.line(int(x1), int(y1), int(x2), int(y2), c)
	}
}

// line is Bresenham's algorithm.
func (r *raster) line(x1, y1, x2, y2 int, c color.RGBA) {
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *raster) set(x, y int, c color.RGBA) {
	if x < 0 || x >= r.w || y < 0 || y >= r.h {
		return
	}
	off := y*r.img.Stride + x*4
	r.img.Pix[off], r.img.Pix[off+1], r.img.Pix[off+2], r.img.Pix[off+3] = c.R, c.G, c.B, c.A
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// markerPixels builds a premultiplied white disc with a soft edge, to be
// tinted with a colour scale.
func markerPixels(size int) []byte {
	pixels := make([]byte, size*size*4)
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			a := math.Max(0, math.Min(1, center-d))
			v := uint8(a * 255)
			off := (y*size + x) * 4
			pixels[off], pixels[off+1], pixels[off+2], pixels[off+3] = v, v, v, v
		}
	}
	return pixels
}
