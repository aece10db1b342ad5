package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/utils"
)

// ErrBaseMapUnavailable is returned when the country geometry cannot be
// fetched or decoded. The map stays in its placeholder state.
var ErrBaseMapUnavailable = errors.New("base map geometry unavailable")

// Polygon is a list of rings in GeoJSON order: outer ring first, holes after.
// Each position is [lon, lat].
type Polygon [][][]float64

// Country is one named shape of the base map.
type Country struct {
	Name     string
	Polygons []Polygon

	minLon, minLat, maxLon, maxLat float64
}

// BaseMap is the country layer drawn beneath the attack traces.
type BaseMap struct {
	Countries []Country
}

var nameKeys = []string{"name", "NAME", "ADMIN", "admin", "name_long", "NAME_LONG"}

// ParseBaseMap decodes a GeoJSON feature collection of country shapes.
func ParseBaseMap(data []byte) (*BaseMap, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseMapUnavailable, err)
	}
	bm := &BaseMap{}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		c := Country{Name: featureName(f)}
		switch {
		case f.Geometry.IsPolygon():
			c.Polygons = append(c.Polygons, Polygon(f.Geometry.Polygon))
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				c.Polygons = append(c.Polygons, Polygon(poly))
			}
		default:
			continue
		}
		c.computeBounds()
		bm.Countries = append(bm.Countries, c)
	}
	if len(bm.Countries) == 0 {
		return nil, fmt.Errorf("%w: no polygon features", ErrBaseMapUnavailable)
	}
	return bm, nil
}

func featureName(f *geojson.Feature) string {
	for _, k := range nameKeys {
		if v, ok := f.Properties[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// LoadBaseMap reads a base map from a local file.
func LoadBaseMap(path string) (*BaseMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseMapUnavailable, err)
	}
	return ParseBaseMap(data)
}

// BaseMapAsset is the cache key of the downloaded base map.
const BaseMapAsset utils.AssetName = "basemap"

// FetchBaseMap reads the base map at url through cache. Failures are not
// retried.
func FetchBaseMap(ctx context.Context, cache *utils.Cache, url string) (*BaseMap, error) {
	r, err := cache.Open(ctx, utils.Asset{Name: BaseMapAsset, URL: url})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseMapUnavailable, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseMapUnavailable, err)
	}
	return ParseBaseMap(data)
}

func (c *Country) computeBounds() {
	first := true
	for _, poly := range c.Polygons {
		for _, ring := range poly {
			for _, p := range ring {
				if len(p) < 2 {
					continue
				}
				if first {
					c.minLon, c.maxLon, c.minLat, c.maxLat = p[0], p[0], p[1], p[1]
					first = false
					continue
				}
				c.minLon = min(c.minLon, p[0])
				c.maxLon = max(c.maxLon, p[0])
				c.minLat = min(c.minLat, p[1])
				c.maxLat = max(c.maxLat, p[1])
			}
		}
	}
}

// Contains reports whether the coordinate falls inside the country.
func (c *Country) Contains(pt attack.Coords) bool {
	if pt.Lon < c.minLon || pt.Lon > c.maxLon || pt.Lat < c.minLat || pt.Lat > c.maxLat {
		return false
	}
	for _, poly := range c.Polygons {
		inside := false
		for _, ring := range poly {
			if ringContains(ring, pt.Lon, pt.Lat) {
				inside = !inside
			}
		}
		if inside {
			return true
		}
	}
	return false
}

func ringContains(ring [][]float64, x, y float64) bool {
	in := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			continue
		}
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}

// Country returns the country named name, or nil.
func (b *BaseMap) Country(name string) *Country {
	if b == nil || name == "" {
		return nil
	}
	for i := range b.Countries {
		if b.Countries[i].Name == name {
			return &b.Countries[i]
		}
	}
	return nil
}

// CountryAt returns the country containing pt, if any.
func (b *BaseMap) CountryAt(pt attack.Coords) (*Country, bool) {
	if b == nil || !pt.Valid() {
		return nil, false
	}
	for i := range b.Countries {
		if b.Countries[i].Contains(pt) {
			return &b.Countries[i], true
		}
	}
	return nil, false
}
