// Package termview draws the attack map into a terminal with tcell.
package termview

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scene"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

// A terminal cell stands for CellW x CellH map pixels, which keeps the
// map's aspect ratio on typical 1:2 character cells.
const (
	CellW = 4
	CellH = 8

	statusRows = 2
	frameRate  = 30
	zoomStep   = 1.25
	panStep    = 4 * CellW
)

// View renders one dashboard onto a tcell screen.
type View struct {
	screen tcell.Screen
	dash   *dashboard.Dashboard
	inbox  *dashboard.Inbox
	clock  scheduler.Clock
	logger *zap.Logger

	cols, rows int

	land    [][]string
	landKey landKey
}

type landKey struct {
	cols, rows int
	bm         *geo.BaseMap
}

// New binds a screen to a dashboard. inbox may be nil.
func New(screen tcell.Screen, dash *dashboard.Dashboard, inbox *dashboard.Inbox, clock scheduler.Clock, logger *zap.Logger) *View {
	if clock == nil {
		clock = scheduler.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &View{screen: screen, dash: dash, inbox: inbox, clock: clock, logger: logger.Named("termview")}
	v.resize()
	return v
}

func (v *View) resize() {
	v.cols, v.rows = v.screen.Size()
	mapRows := max(1, v.rows-statusRows)
	v.dash.Resize(max(1, v.cols)*CellW, mapRows*CellH)
}

// Run polls events and redraws until quit is requested or done closes.
func (v *View) Run(done <-chan struct{}) {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok || !v.HandleEvent(ev) {
				return
			}
		case <-ticker.C:
			v.dash.Tick()
			v.Draw()
		}
	}
}

// HandleEvent applies one input event and reports whether to keep going.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventMouse:
		x, y := ev.Position()
		v.handleMouse(x, y, ev.Buttons())
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	}
	return true
}

func (v *View) handleMouse(x, y int, buttons tcell.ButtonMask) {
	if y >= v.rows-statusRows {
		v.dash.Leave()
		return
	}
	sx, sy := float64(x*CellW+CellW/2), float64(y*CellH+CellH/2)
	v.dash.Pointer(sx, sy)
	if buttons&tcell.Button1 != 0 {
		v.dash.ClickAt(sx, sy)
	}
	switch {
	case buttons&tcell.WheelUp != 0:
		v.dash.Viewport().ZoomAt(zoomStep, sx, sy)
	case buttons&tcell.WheelDown != 0:
		v.dash.Viewport().ZoomAt(1/zoomStep, sx, sy)
	}
}

func (v *View) handleKey(k tcell.Key, r rune) bool {
	vp := v.dash.Viewport()
	w, h := v.dash.Size()
	cx, cy := float64(w)/2, float64(h)/2
	switch k {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		vp.Pan(panStep, 0)
	case tcell.KeyRight:
		vp.Pan(-panStep, 0)
	case tcell.KeyUp:
		vp.Pan(0, panStep)
	case tcell.KeyDown:
		vp.Pan(0, -panStep)
	case tcell.KeyRune:
		switch r {
		case 'q':
			return false
		case ' ', 'p':
			v.dash.TogglePause()
		case 'm':
			v.dash.ToggleMode()
		case 't':
			v.dash.ToggleTheme()
		case 'f':
			if err := v.dash.CycleFilter(); err != nil {
				v.logger.Debug("filter change rejected", zap.Error(err))
			}
		case ']':
			v.stepSpeed(1)
		case '[':
			v.stepSpeed(-1)
		case '+', '=':
			vp.ZoomAt(zoomStep, cx, cy)
		case '-':
			vp.ZoomAt(1/zoomStep, cx, cy)
		case 'r', '0':
			v.dash.ResetViewport()
		}
	}
	return true
}

func (v *View) stepSpeed(delta int) {
	if err := v.dash.StepSpeed(delta); err != nil {
		v.logger.Debug("speed change rejected", zap.Error(err))
	}
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func blend(fg, bg color.RGBA, a float64) color.RGBA {
	a = math.Max(0, math.Min(1, a))
	mix := func(f, b uint8) uint8 { return uint8(math.Round(float64(b) + (float64(f)-float64(b))*a)) }
	return color.RGBA{mix(fg.R, bg.R), mix(fg.G, bg.G), mix(fg.B, bg.B), 255}
}

// Draw renders one frame at the clock's current time.
func (v *View) Draw() {
	now := v.clock.Now()
	pal := v.dash.Theme().Palette()
	base := tcell.StyleDefault.Background(rgb(pal.Background)).Foreground(rgb(pal.Text))
	v.screen.SetStyle(base)
	v.screen.Clear()

	t := v.dash.Viewport().Transform()
	mapRows := v.rows - statusRows

	v.drawLand(pal, base, mapRows)

	toCell := func(p geo.Point) (int, int, bool) {
		sx, sy := t.Apply(p.X, p.Y)
		x, y := int(math.Floor(sx/CellW)), int(math.Floor(sy/CellH))
		return x, y, x >= 0 && x < v.cols && y >= 0 && y < mapRows
	}

	for _, d := range v.dash.Scene().Snapshot(now) {
		if !d.Visible() {
			continue
		}
		fg := blend(attack.Color(d.Event.Type), pal.Background, d.Style.Opacity)
		st := base.Foreground(rgb(fg))
		switch d.Kind {
		case scheduler.KindPath:
			n := max(2, int(d.Path.Length()*t.K/CellW))
			for _, p := range d.Path.Sample(n) {
				if x, y, ok := toCell(p); ok {
					v.screen.SetContent(x, y, '·', nil, st)
				}
			}
		case scheduler.KindOrigin:
			if x, y, ok := toCell(d.Point); ok {
				v.screen.SetContent(x, y, 'o', nil, st)
			}
		case scheduler.KindTarget:
			r := 'x'
			if d.Style.Radius > 4.5 {
				r = 'X'
			}
			if x, y, ok := toCell(d.Point); ok {
				v.screen.SetContent(x, y, r, nil, st.Bold(true))
			}
		}
	}

	if s := v.dash.MapState(); s != dashboard.NotEmpty {
		msg := s.Message()
		v.text(max(0, (v.cols-len(msg))/2), mapRows/2+1, base.Foreground(rgb(pal.Muted)), msg)
	}
	v.drawTooltip(base, pal)
	v.drawStatus(base, pal)
	v.screen.Show()
}

// drawLand fills land cells from a cached mask of country names.
func (v *View) drawLand(pal scene.Palette, base tcell.Style, mapRows int) {
	bm, err := v.dash.BaseMap()
	if bm == nil {
		msg := "Loading map..."
		if err != nil {
			msg = "Map data unavailable"
		}
		v.text(max(0, (v.cols-len(msg))/2), mapRows/2, base.Foreground(rgb(pal.Muted)), msg)
		return
	}
	key := landKey{cols: v.cols, rows: mapRows, bm: bm}
	if key != v.landKey {
		v.land = v.rasterize(bm, mapRows)
		v.landKey = key
	}

	t := v.dash.Viewport().Transform()
	hovered := v.dash.HoveredCountry()
	selected := v.dash.SelectedCountry()
	for y := 0; y < mapRows; y++ {
		for x := 0; x < v.cols; x++ {
			// Sample the mask through the inverse viewport transform.
			mx, my := t.Invert(float64(x*CellW+CellW/2), float64(y*CellH+CellH/2))
			lx, ly := int(mx/CellW), int(my/CellH)
			if lx < 0 || ly < 0 || ly >= len(v.land) || lx >= len(v.land[ly]) {
				continue
			}
			name := v.land[ly][lx]
			if name == "" {
				continue
			}
			c := pal.Land
			switch name {
			case selected:
				c = pal.Selected
			case hovered:
				c = pal.Hover
			}
			v.screen.SetContent(x, y, '░', nil, base.Foreground(rgb(c)))
		}
	}
}

func (v *View) rasterize(bm *geo.BaseMap, mapRows int) [][]string {
	proj := v.dash.Projector()
	out := make([][]string, mapRows)
	for y := range out {
		out[y] = make([]string, v.cols)
		for x := range out[y] {
			c, ok := proj.Invert(geo.Point{X: float64(x*CellW + CellW/2), Y: float64(y*CellH + CellH/2)})
			if !ok {
				continue
			}
			if country, ok := bm.CountryAt(c); ok {
				out[y][x] = country.Name
			}
		}
	}
	v.logger.Debug("rasterized land mask", zap.Int("cols", v.cols), zap.Int("rows", mapRows))
	return out
}

func (v *View) drawTooltip(base tcell.Style, pal scene.Palette) {
	st := v.dash.Tooltip().State()
	if !st.Visible {
		return
	}
	lines := strings.Split(st.Content.String(), "\n")
	x, y := int(st.X/CellW), int(st.Y/CellH)
	width := 0
	for _, l := range lines {
		width = max(width, len([]rune(l)))
	}
	if x+width+2 > v.cols {
		x = max(0, v.cols-width-2)
	}
	if y+len(lines) > v.rows-statusRows {
		y = max(0, v.rows-statusRows-len(lines))
	}
	box := base.Background(rgb(pal.Button)).Foreground(rgb(pal.ButtonText))
	for i, l := range lines {
		s := box
		if i == 0 {
			s = s.Bold(true)
		}
		v.text(x, y+i, s, " "+l+strings.Repeat(" ", width-len([]rune(l))+1))
	}
}

func (v *View) drawStatus(base tcell.Style, pal scene.Palette) {
	p := v.dash.Playback()
	state := "playing"
	if p.Paused {
		state = "paused"
	}
	line := fmt.Sprintf(" %s | %s | speed %d/10 | %s | %d active | %s | %s",
		state, p.Mode, p.SpeedLevel, p.AttackTypeFilter,
		v.dash.Scheduler().Active(), v.dash.Viewport().ZoomLabel(), v.dash.Theme().Name())
	y := v.rows - statusRows
	v.text(0, y, base.Reverse(true), padRight(line, v.cols))

	help := " space pause  m mode  [ ] speed  f filter  t theme  +/- zoom  r reset  q quit"
	if v.inbox != nil {
		if n, ok := v.inbox.Latest(); ok {
			help = " " + n.Title + ": " + n.Description
			st := base.Foreground(rgb(pal.Text))
			if n.Destructive {
				st = st.Foreground(tcell.ColorRed)
			}
			v.text(0, y+1, st, padRight(help, v.cols))
			return
		}
	}
	v.text(0, y+1, base.Foreground(rgb(pal.Muted)), padRight(help, v.cols))
}

func padRight(s string, n int) string {
	if l := len([]rune(s)); l < n {
		return s + strings.Repeat(" ", n-l)
	}
	return s
}

func (v *View) text(x, y int, st tcell.Style, s string) {
	for _, r := range s {
		if x >= v.cols {
			return
		}
		if x >= 0 && y >= 0 && y < v.rows {
			v.screen.SetContent(x, y, r, nil, st)
		}
		x++
	}
}
