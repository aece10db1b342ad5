package geo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/utils"
)

func TestMollweideProject(t *testing.T) {
	g := NewMollweide(1920, 1080, 380.0)

	tests := []struct {
		lat, lng     float64
		wantX, wantY float64
	}{
		{0, 0, 960, 540},
		{90, 0, 960, 3.14},      // Near North Pole
		{-90, 0, 960, 1076.86},  // Near South Pole
		{0, 180, 2034.72, 540},  // Far East
		{0, -180, -114.72, 540}, // Far West
	}

	for _, tt := range tests {
		x, y, ok := g.Forward(tt.lng, tt.lat)
		if !ok {
			t.Errorf("Forward(%f, %f) not ok", tt.lng, tt.lat)
			continue
		}
		if math.Abs(x-tt.wantX) > 1.0 || math.Abs(y-tt.wantY) > 1.0 {
			t.Errorf("Forward(%f, %f) = (%f, %f); want (%f, %f)", tt.lng, tt.lat, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestMercatorCenter(t *testing.T) {
	m := NewMercator(800, 500)
	x, y, ok := m.Forward(0, 30)
	if !ok || math.Abs(x-400) > 1e-9 || math.Abs(y-250) > 1e-9 {
		t.Errorf("Forward(0, 30) = (%f, %f, %v); want viewport centre", x, y, ok)
	}
	if _, _, ok := m.Forward(0, 89); ok {
		t.Error("latitude beyond the Mercator cut-off should be outside the domain")
	}
}

func TestProjectInvalid(t *testing.T) {
	for _, kind := range []Kind{KindMercator, KindMollweide} {
		p := NewProjector(kind, 800, 500, 0)
		if _, ok := p.Project(nil); ok {
			t.Errorf("%s: Project(nil) should not be ok", kind)
		}
		if _, ok := p.Project(&attack.Coords{Lon: math.NaN(), Lat: math.NaN()}); ok {
			t.Errorf("%s: Project(NaN, NaN) should not be ok", kind)
		}
		if _, ok := p.Project(&attack.Coords{Lon: 200, Lat: 0}); ok {
			t.Errorf("%s: Project(200, 0) should not be ok", kind)
		}
	}
}

func TestProjectRoundTrip(t *testing.T) {
	coords := []attack.Coords{
		{Lon: -95.7129, Lat: 37.0902},
		{Lon: 104.1954, Lat: 35.8617},
		{Lon: 133.7751, Lat: -25.2744},
		{Lon: -51.9253, Lat: -14.2350},
		{Lon: 0, Lat: 0},
		{Lon: 179, Lat: 60},
	}
	for _, kind := range []Kind{KindMercator, KindMollweide} {
		p := NewProjector(kind, 1920, 1080, 0)
		for _, c := range coords {
			c := c
			pt, ok := p.Project(&c)
			if !ok {
				t.Errorf("%s: Project(%v) not ok", kind, c)
				continue
			}
			back, ok := p.Invert(pt)
			if !ok {
				t.Errorf("%s: Invert(%v) not ok", kind, pt)
				continue
			}
			if math.Abs(back.Lon-c.Lon) > 1e-6 || math.Abs(back.Lat-c.Lat) > 1e-6 {
				t.Errorf("%s: round trip %v -> %v", kind, c, back)
			}
		}
	}
}

func TestProjectorResize(t *testing.T) {
	p := NewProjector(KindMercator, 800, 500, 0)
	c := &attack.Coords{Lon: 0, Lat: 30}
	before, _ := p.Project(c)
	p.Resize(1600, 1000)
	after, _ := p.Project(c)
	if after.X != before.X*2 || after.Y != before.Y*2 {
		t.Errorf("centre should follow the viewport: before %v after %v", before, after)
	}
	if w, h := p.Size(); w != 1600 || h != 1000 {
		t.Errorf("Size() = %d x %d", w, h)
	}
}

const testMap = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]],[[4,4],[6,4],[6,6],[4,6],[4,4]]]}},
    {"type": "Feature", "properties": {"ADMIN": "Islands"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[20,20],[22,20],[22,22],[20,22],[20,20]]],[[[30,30],[32,30],[32,32],[30,32],[30,30]]]]}},
    {"type": "Feature", "properties": {"name": "Point"},
     "geometry": {"type": "Point", "coordinates": [50, 50]}}
  ]
}`

func TestParseBaseMap(t *testing.T) {
	bm, err := ParseBaseMap([]byte(testMap))
	if err != nil {
		t.Fatalf("ParseBaseMap: %v", err)
	}
	if len(bm.Countries) != 2 {
		t.Fatalf("expected 2 polygon countries, got %d", len(bm.Countries))
	}

	tests := []struct {
		at   attack.Coords
		want string
	}{
		{attack.Coords{Lon: 1, Lat: 1}, "Squareland"},
		{attack.Coords{Lon: 5, Lat: 5}, ""}, // hole
		{attack.Coords{Lon: 21, Lat: 21}, "Islands"},
		{attack.Coords{Lon: 31, Lat: 31}, "Islands"},
		{attack.Coords{Lon: 50, Lat: 50}, ""},
	}
	for _, tt := range tests {
		c, ok := bm.CountryAt(tt.at)
		got := ""
		if ok {
			got = c.Name
		}
		if got != tt.want {
			t.Errorf("CountryAt(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestBaseMapCountry(t *testing.T) {
	bm, err := ParseBaseMap([]byte(testMap))
	if err != nil {
		t.Fatalf("ParseBaseMap: %v", err)
	}
	if c := bm.Country("Islands"); c == nil || len(c.Polygons) != 2 {
		t.Errorf("Country(Islands) = %+v", c)
	}
	if c := bm.Country("Atlantis"); c != nil {
		t.Errorf("Country(Atlantis) = %+v, want nil", c)
	}
	var nilMap *BaseMap
	if c := nilMap.Country("Islands"); c != nil {
		t.Error("nil base map returned a country")
	}
}

func TestParseBaseMapErrors(t *testing.T) {
	if _, err := ParseBaseMap([]byte("not json")); !errors.Is(err, ErrBaseMapUnavailable) {
		t.Errorf("expected ErrBaseMapUnavailable, got %v", err)
	}
	empty := `{"type":"FeatureCollection","features":[]}`
	if _, err := ParseBaseMap([]byte(empty)); !errors.Is(err, ErrBaseMapUnavailable) {
		t.Errorf("expected ErrBaseMapUnavailable for empty map, got %v", err)
	}
	if _, err := LoadBaseMap("/nonexistent/map.geojson"); !errors.Is(err, ErrBaseMapUnavailable) {
		t.Errorf("expected ErrBaseMapUnavailable for missing file, got %v", err)
	}
}

func TestFetchBaseMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/countries.geojson" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(testMap))
	}))
	defer srv.Close()

	cache := utils.NewCache(t.TempDir(), nil)
	bm, err := FetchBaseMap(context.Background(), cache, srv.URL+"/countries.geojson")
	if err != nil {
		t.Fatalf("FetchBaseMap: %v", err)
	}
	if len(bm.Countries) != 2 {
		t.Errorf("expected 2 countries, got %d", len(bm.Countries))
	}
	cached := cache.Path(utils.Asset{Name: BaseMapAsset, URL: srv.URL + "/countries.geojson"})
	if _, err := os.Stat(cached); err != nil {
		t.Errorf("expected the base map cached at %s: %v", cached, err)
	}

	if _, err := FetchBaseMap(context.Background(), cache, srv.URL+"/gone.geojson"); !errors.Is(err, ErrBaseMapUnavailable) {
		t.Errorf("expected ErrBaseMapUnavailable for a missing map, got %v", err)
	}
}
