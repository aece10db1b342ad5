// Package mapview renders the attack map in a desktop window with ebiten.
package mapview

import (
	"bytes"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/config"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

const (
	zoomStep     = 1.25
	panStep      = 40.0
	dragSlop     = 3
	markerSize   = 64
	pathSamples  = 48
	pathWidth    = 2.0
	dashOn       = 4.0
	dashOff      = 2.0
	captureLabel = "map"
)

// Options configures a Game.
type Options struct {
	Dashboard *dashboard.Dashboard
	Toasts    *Toasts
	Clock     scheduler.Clock
	Logger    *zap.Logger
	Capture   config.CaptureConfig
}

type backgroundKey struct {
	bm    *geo.BaseMap
	w, h  int
	light bool
}

type overlayKey struct {
	bg       backgroundKey
	name     string
	selected bool
}

// Game implements ebiten.Game on top of a dashboard.
type Game struct {
	dash   *dashboard.Dashboard
	toasts *Toasts
	clock  scheduler.Clock
	logger *zap.Logger

	fontSource *text.GoTextFaceSource
	monoSource *text.GoTextFaceSource
	marker     *ebiten.Image

	bgImage *ebiten.Image
	bgKey   backgroundKey
	overlay map[overlayKey]*ebiten.Image
	panels  panelData

	pressed     bool
	dragging    bool
	pressX      int
	pressY      int
	lastX       int
	lastY       int
	hoverX      int
	hoverY      int
	hoverInside bool

	capture     config.CaptureConfig
	lastCapture time.Time
}

// New builds a game. Fonts and the marker texture are created eagerly.
func New(opts Options) *Game {
	if opts.Clock == nil {
		opts.Clock = scheduler.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Toasts == nil {
		opts.Toasts = NewToasts(opts.Clock)
	}
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))

	marker := ebiten.NewImage(markerSize, markerSize)
	marker.WritePixels(markerPixels(markerSize))

	return &Game{
		dash:       opts.Dashboard,
		toasts:     opts.Toasts,
		clock:      opts.Clock,
		logger:     opts.Logger,
		fontSource: s,
		monoSource: m,
		marker:     marker,
		overlay:    make(map[overlayKey]*ebiten.Image),
		hoverX:     -1,
		hoverY:     -1,
		capture:    opts.Capture,
	}
}

// Update handles input and advances the animation clock.
func (g *Game) Update() error {
	if quit := g.handleKeys(); quit {
		return ebiten.Termination
	}
	g.handleMouse()
	g.dash.Tick()
	return nil
}

func (g *Game) handleKeys() bool {
	justPressed := func(keys ...ebiten.Key) bool {
		for _, k := range keys {
			if inpututil.IsKeyJustPressed(k) {
				return true
			}
		}
		return false
	}
	switch {
	case justPressed(ebiten.KeyEscape, ebiten.KeyQ):
		return true
	case justPressed(ebiten.KeySpace, ebiten.KeyP):
		g.dash.TogglePause()
	case justPressed(ebiten.KeyM):
		g.dash.ToggleMode()
	case justPressed(ebiten.KeyT):
		g.dash.ToggleTheme()
	case justPressed(ebiten.KeyF):
		if err := g.dash.CycleFilter(); err != nil {
			g.logger.Debug("filter change rejected", zap.Error(err))
		}
	case justPressed(ebiten.KeyBracketRight):
		g.stepSpeed(1)
	case justPressed(ebiten.KeyBracketLeft):
		g.stepSpeed(-1)
	case justPressed(ebiten.KeyEqual, ebiten.KeyNumpadAdd):
		g.zoomCentre(zoomStep)
	case justPressed(ebiten.KeyMinus, ebiten.KeyNumpadSubtract):
		g.zoomCentre(1 / zoomStep)
	case justPressed(ebiten.KeyR, ebiten.KeyDigit0):
		g.dash.ResetViewport()
	case justPressed(ebiten.KeyArrowLeft):
		g.dash.Viewport().Pan(panStep, 0)
	case justPressed(ebiten.KeyArrowRight):
		g.dash.Viewport().Pan(-panStep, 0)
	case justPressed(ebiten.KeyArrowUp):
		g.dash.Viewport().Pan(0, panStep)
	case justPressed(ebiten.KeyArrowDown):
		g.dash.Viewport().Pan(0, -panStep)
	}
	return false
}

func (g *Game) stepSpeed(delta int) {
	if err := g.dash.StepSpeed(delta); err != nil {
		g.logger.Debug("speed change rejected", zap.Error(err))
	}
}

func (g *Game) zoomCentre(factor float64) {
	w, h := g.dash.Size()
	g.dash.Viewport().ZoomAt(factor, float64(w)/2, float64(h)/2)
}

func (g *Game) handleMouse() {
	x, y := ebiten.CursorPosition()
	w, h := g.dash.Size()
	inside := x >= 0 && y >= 0 && x < w && y < h

	if _, wy := ebiten.Wheel(); wy != 0 && inside {
		g.dash.Viewport().ZoomAt(math.Pow(zoomStep, wy), float64(x), float64(y))
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && inside {
		g.pressed, g.dragging = true, false
		g.pressX, g.pressY = x, y
		g.lastX, g.lastY = x, y
	}
	if g.pressed && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !g.dragging && (abs(x-g.pressX) > dragSlop || abs(y-g.pressY) > dragSlop) {
			g.dragging = true
		}
		if g.dragging {
			g.dash.Viewport().Pan(float64(x-g.lastX), float64(y-g.lastY))
		}
		g.lastX, g.lastY = x, y
	}
	if g.pressed && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		if !g.dragging {
			g.click(x, y, w)
		}
		g.pressed, g.dragging = false, false
	}

	switch {
	case !inside:
		if g.hoverInside {
			g.dash.Leave()
		}
		g.hoverInside = false
	case x != g.hoverX || y != g.hoverY || g.dash.Scheduler().Active() > 0:
		g.dash.Pointer(float64(x), float64(y))
		g.hoverInside = true
	}
	g.hoverX, g.hoverY = x, y
}

func (g *Game) click(x, y, width int) {
	if resetButtonRect(width).Contains(imagePoint(x, y)) {
		g.dash.ResetViewport()
		return
	}
	if name := g.dash.ClickAt(float64(x), float64(y)); name != "" {
		g.logger.Debug("country selected", zap.String("country", name))
	}
}

// Draw renders the map, the animated attacks and the overlays.
func (g *Game) Draw(screen *ebiten.Image) {
	now := g.clock.Now()
	pal := g.dash.Theme().Palette()
	screen.Fill(pal.Background)

	t := g.dash.Viewport().Advance(now)
	var geoM ebiten.GeoM
	geoM.Scale(t.K, t.K)
	geoM.Translate(t.X, t.Y)

	if bg := g.background(); bg != nil {
		op := &ebiten.DrawImageOptions{GeoM: geoM}
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(bg, op)
		g.drawOverlay(screen, geoM, g.dash.SelectedCountry(), true)
		if hovered := g.dash.HoveredCountry(); hovered != g.dash.SelectedCountry() {
			g.drawOverlay(screen, geoM, hovered, false)
		}
	}

	g.drawAttacks(screen, now, t.K, geoM)
	g.drawPanels(screen, now, pal)
	g.maybeCapture(screen, now)
}

// background rebuilds the land image when the base map, size or theme
// changed.
func (g *Game) background() *ebiten.Image {
	bm, err := g.dash.BaseMap()
	if err != nil || bm == nil {
		return nil
	}
	w, h := g.dash.Size()
	theme := g.dash.Theme()
	key := backgroundKey{bm: bm, w: w, h: h, light: theme.Light}
	if g.bgImage != nil && key == g.bgKey {
		return g.bgImage
	}
	pal := theme.Palette()
	start := time.Now()
	img := RenderBackground(bm, g.dash.Projector(), pal.Background, pal.Land, pal.Border)
	if g.bgImage != nil {
		g.bgImage.Deallocate()
	}
	g.bgImage = ebiten.NewImageFromImage(img)
	g.bgKey = key
	for k, o := range g.overlay {
		o.Deallocate()
		delete(g.overlay, k)
	}
	g.logger.Debug("background rendered",
		zap.Int("countries", len(bm.Countries)),
		zap.String("theme", theme.Name()),
		zap.Duration("took", time.Since(start)))
	return g.bgImage
}

func (g *Game) drawOverlay(screen *ebiten.Image, geoM ebiten.GeoM, name string, selected bool) {
	if name == "" {
		return
	}
	key := overlayKey{bg: g.bgKey, name: name, selected: selected}
	img, ok := g.overlay[key]
	if !ok {
		country := g.bgKey.bm.Country(name)
		if country == nil {
			return
		}
		pal := g.dash.Theme().Palette()
		fill := pal.Hover
		if selected {
			fill = pal.Selected
		}
		img = ebiten.NewImageFromImage(RenderCountry(country, g.dash.Projector(), fill, pal.Border))
		g.overlay[key] = img
	}
	op := &ebiten.DrawImageOptions{GeoM: geoM}
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

func (g *Game) drawAttacks(screen *ebiten.Image, now time.Time, k float64, geoM ebiten.GeoM) {
	op := &ebiten.DrawImageOptions{}
	half := float64(markerSize) / 2
	for _, d := range g.dash.Scene().Snapshot(now) {
		if !d.Visible() {
			continue
		}
		c := attack.Color(d.Event.Type)
		switch d.Kind {
		case scheduler.KindPath:
			drawDashed(screen, d.Path.Sample(pathSamples), geoM, float32(pathWidth*k), withAlpha(c, d.Style.Opacity))
		case scheduler.KindOrigin, scheduler.KindTarget:
			if d.Style.Radius <= 0 {
				continue
			}
			x, y := geoM.Apply(d.Point.X, d.Point.Y)
			scale := d.Style.Radius * k / half
			op.GeoM.Reset()
			op.GeoM.Translate(-half, -half)
			op.GeoM.Scale(scale, scale)
			op.GeoM.Translate(x, y)
			op.ColorScale.Reset()
			a := float32(d.Style.Opacity)
			op.ColorScale.Scale(float32(c.R)/255*a, float32(c.G)/255*a, float32(c.B)/255*a, a)
			screen.DrawImage(g.marker, op)
		}
	}
}

// drawDashed strokes a polyline with a 4-on 2-off dash pattern measured in
// screen pixels.
func drawDashed(screen *ebiten.Image, pts []geo.Point, geoM ebiten.GeoM, width float32, clr color.RGBA) {
	if len(pts) < 2 || clr.A == 0 {
		return
	}
	on, pos := true, 0.0
	px, py := geoM.Apply(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		x, y := geoM.Apply(p.X, p.Y)
		seg := math.Hypot(x-px, y-py)
		done := 0.0
		for done < seg {
			limit := dashOn
			if !on {
				limit = dashOff
			}
			step := math.Min(limit-pos, seg-done)
			if on {
				t0, t1 := done/seg, (done+step)/seg
				vector.StrokeLine(screen,
					float32(px+(x-px)*t0), float32(py+(y-py)*t0),
					float32(px+(x-px)*t1), float32(py+(y-py)*t1),
					width, clr, true)
			}
			done += step
			pos += step
			if pos >= limit {
				on, pos = !on, 0
			}
		}
		px, py = x, y
	}
}

// withAlpha scales c to opacity a as a premultiplied colour.
func withAlpha(c color.RGBA, a float64) color.RGBA {
	a = math.Max(0, math.Min(1, a))
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}

// Layout sizes the projection surface to the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.dash.Resize(outsideWidth, outsideHeight)
	return g.dash.Size()
}

var _ ebiten.Game = (*Game)(nil)
