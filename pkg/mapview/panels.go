package mapview

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/attack-map/pkg/analytics"
	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/scene"
	"github.com/sudorandom/attack-map/pkg/viewport"
)

var (
	panelFill   = color.RGBA{0, 0, 0, 100}
	panelStroke = color.RGBA{36, 42, 53, 255}
	accent      = color.RGBA{0, 200, 170, 255}
	destructive = color.RGBA{220, 38, 38, 235}
	toastFill   = color.RGBA{20, 22, 30, 235}
)

const (
	topTargetCount = 5
	trendBuckets   = 48
	maxNameLen     = 18
)

// panelMetrics returns the margin and base font size for a surface width.
func panelMetrics(width int) (margin, fontSize float64) {
	if width > 2000 {
		return 40, 28
	}
	return 20, 14
}

// resetButtonRect is the zoom reset button in the top-right corner.
func resetButtonRect(width int) image.Rectangle {
	return image.Rect(width-60, 30, width-10, 55)
}

func imagePoint(x, y int) image.Point { return image.Pt(x, y) }

// tooltipRect places a w by h box at (x, y), pulled back inside the
// surface when it would overflow.
func tooltipRect(x, y, w, h float64, sw, sh int) (float64, float64) {
	if x+w > float64(sw) {
		x = float64(sw) - w
	}
	if y+h > float64(sh) {
		y = float64(sh) - h
	}
	return max(0, x), max(0, y)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// panelData caches the aggregates drawn in the side panels for the
// current event set.
type panelData struct {
	first *attack.Event
	n     int
	valid bool
	top   []analytics.Bucket
	trend []int
}

func (p *panelData) update(events []attack.Event) {
	var first *attack.Event
	if len(events) > 0 {
		first = &events[0]
	}
	if p.valid && first == p.first && len(events) == p.n {
		return
	}
	top := analytics.ByCountry(events)
	if len(top) > topTargetCount {
		top = top[:topTargetCount]
	}
	p.first, p.n, p.valid = first, len(events), true
	p.top = top
	p.trend = sparkline(dailySeries(events), trendBuckets)
}

// dailySeries counts events per day across the span of their timestamps.
func dailySeries(events []attack.Event) []analytics.Point {
	var lo, hi time.Time
	for _, ev := range events {
		t, ok := ev.Time()
		if !ok {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	if lo.IsZero() {
		return nil
	}
	return analytics.TimeSeries(events, lo, hi)
}

// sparkline sums points into at most n consecutive buckets.
func sparkline(points []analytics.Point, n int) []int {
	if len(points) == 0 || n <= 0 {
		return nil
	}
	n = min(n, len(points))
	out := make([]int, n)
	for i, p := range points {
		out[i*n/len(points)] += p.Value
	}
	return out
}

func (g *Game) face(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: g.fontSource, Size: size}
}

func (g *Game) monoFace(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: g.monoSource, Size: size}
}

func drawLabel(dst *ebiten.Image, s string, face *text.GoTextFace, x, y float64, c color.RGBA, alpha float64) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	op.ColorScale.ScaleAlpha(float32(alpha))
	text.Draw(dst, s, face, op)
}

// drawBox draws a translucent panel with a titled accent bar and returns
// the y of the first content line.
func (g *Game) drawBox(dst *ebiten.Image, title string, x, y, w, h, fontSize float64, pal scene.Palette) float64 {
	vector.DrawFilledRect(dst, float32(x), float32(y), float32(w), float32(h), panelFill, false)
	vector.StrokeRect(dst, float32(x), float32(y), float32(w), float32(h), 1, panelStroke, false)
	vector.DrawFilledRect(dst, float32(x), float32(y), 4, float32(fontSize+10), accent, false)
	drawLabel(dst, title, g.face(fontSize*0.8), x+12, y+6, pal.Text, 0.5)
	return y + fontSize + 14
}

func (g *Game) drawPanels(screen *ebiten.Image, now time.Time, pal scene.Palette) {
	w, h := g.dash.Size()
	margin, fontSize := panelMetrics(w)

	g.drawStatus(screen, margin, margin, fontSize, pal)
	g.drawMapState(screen, w, h, fontSize, pal)
	g.drawDetail(screen, w, margin, fontSize, pal)
	g.drawTrend(screen, h, margin, fontSize, pal)
	g.drawZoom(screen, h, margin, fontSize, pal)
	g.drawResetButton(screen, w, fontSize, pal)
	g.drawTooltip(screen, w, h, fontSize)
	g.drawToasts(screen, now, w, h, margin, fontSize)
}

func (g *Game) drawStatus(screen *ebiten.Image, x, y, fontSize float64, pal scene.Palette) {
	pb := g.dash.Playback()
	face := g.face(fontSize)
	line := fontSize * 1.4
	boxW := fontSize * 16

	state := "PLAYING"
	if pb.Paused {
		state = "PAUSED"
	}
	rows := []string{
		fmt.Sprintf("%s  %s", state, strings.ToUpper(string(pb.Mode))),
		fmt.Sprintf("Speed %d/10", pb.SpeedLevel),
		"Filter " + pb.AttackTypeFilter,
		fmt.Sprintf("%s active", humanize.Comma(int64(g.dash.Scheduler().Active()))),
	}
	cy := g.drawBox(screen, "ATTACK MAP", x, y, boxW, fontSize+20+line*float64(len(rows)), fontSize, pal)
	for _, r := range rows {
		drawLabel(screen, r, face, x+12, cy, pal.Text, 0.8)
		cy += line
	}

	y = cy + fontSize
	cy = g.drawBox(screen, "ATTACK TYPES", x, y, boxW, fontSize+20+line*float64(len(attack.Types)), fontSize, pal)
	dot := float32(fontSize / 3)
	for _, t := range attack.Types {
		alpha := 0.8
		if !(attack.Event{Type: t}).Matches(pb.AttackTypeFilter) {
			alpha = 0.3
		}
		vector.DrawFilledCircle(screen, float32(x+18), float32(cy+fontSize/2), dot, withAlpha(attack.Color(t), alpha), true)
		drawLabel(screen, string(t), face, x+32, cy, pal.Text, alpha)
		cy += line
	}

	g.panels.update(g.dash.Events())
	rows2 := g.panels.top
	if len(rows2) == 0 {
		return
	}
	y = cy + fontSize
	cy = g.drawBox(screen, "TOP TARGETS", x, y, boxW, fontSize+20+line*float64(len(rows2)), fontSize, pal)
	mono := g.monoFace(fontSize)
	for _, b := range rows2 {
		drawLabel(screen, truncate(b.Label, maxNameLen), face, x+12, cy, pal.Text, 0.8)
		count := humanize.Comma(int64(b.Value))
		tw, _ := text.Measure(count, mono, 0)
		drawLabel(screen, count, mono, x+boxW-tw-12, cy, pal.Text, 0.6)
		cy += line
	}
}

func (g *Game) drawMapState(screen *ebiten.Image, w, h int, fontSize float64, pal scene.Palette) {
	var msgs []string
	switch bm, err := g.dash.BaseMap(); {
	case err != nil:
		msgs = append(msgs, "Map data unavailable")
	case bm == nil:
		msgs = append(msgs, "Loading map...")
	}
	if st := g.dash.MapState(); st != dashboard.NotEmpty {
		msgs = append(msgs, st.Message())
	}
	face := g.face(fontSize * 1.2)
	y := float64(h)/2 - fontSize*1.5*float64(len(msgs))/2
	for _, m := range msgs {
		tw, _ := text.Measure(m, face, 0)
		drawLabel(screen, m, face, (float64(w)-tw)/2, y, pal.Muted, 1)
		y += fontSize * 1.5
	}
}

func (g *Game) drawDetail(screen *ebiten.Image, w int, margin, fontSize float64, pal scene.Palette) {
	detail, st := g.dash.CountryDetail()
	face := g.face(fontSize)
	line := fontSize * 1.4
	boxW := fontSize * 17
	x := float64(w) - boxW - margin
	y := margin + 40

	var rows []string
	if st != dashboard.NotEmpty {
		rows = wrap(st.Message(), 28)
	} else {
		rows = []string{
			truncate(detail.Name, 26),
			fmt.Sprintf("Incoming  %s", humanize.Comma(int64(detail.Incoming))),
			fmt.Sprintf("Outgoing  %s", humanize.Comma(int64(detail.Outgoing))),
			fmt.Sprintf("Total     %s", humanize.Comma(int64(detail.Total))),
		}
		for i, b := range detail.Types {
			if i == 3 {
				break
			}
			rows = append(rows, fmt.Sprintf("%-14s %d", b.Label, b.Value))
		}
		if len(detail.TopPorts) > 0 {
			ports := make([]string, 0, len(detail.TopPorts))
			for _, p := range detail.TopPorts {
				ports = append(ports, p.Label)
			}
			rows = append(rows, "Ports "+strings.Join(ports, ", "))
		}
	}
	cy := g.drawBox(screen, "COUNTRY DETAILS", x, y, boxW, fontSize+20+line*float64(len(rows)), fontSize, pal)
	for _, r := range rows {
		drawLabel(screen, r, face, x+12, cy, pal.Text, 0.8)
		cy += line
	}
}

// wrap breaks s on spaces into lines of at most n bytes.
func wrap(s string, n int) []string {
	var out []string
	cur := ""
	for _, word := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= n:
			cur += " " + word
		default:
			out = append(out, cur)
			cur = word
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func (g *Game) drawTrend(screen *ebiten.Image, h int, margin, fontSize float64, pal scene.Palette) {
	trend := g.panels.trend
	if len(trend) < 2 {
		return
	}
	boxW, boxH := fontSize*16, fontSize*5
	x, y := margin, float64(h)-margin-fontSize*2.5-boxH
	top := g.drawBox(screen, "ATTACKS OVER TIME", x, y, boxW, boxH, fontSize, pal)

	peak := 1
	for _, v := range trend {
		peak = max(peak, v)
	}
	gx, gw := x+12, boxW-24
	gy, gh := top, y+boxH-8-top
	step := gw / float64(len(trend)-1)
	for i := 1; i < len(trend); i++ {
		x0 := gx + step*float64(i-1)
		x1 := gx + step*float64(i)
		y0 := gy + gh*(1-float64(trend[i-1])/float64(peak))
		y1 := gy + gh*(1-float64(trend[i])/float64(peak))
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 1.5, accent, true)
	}
}

func (g *Game) drawZoom(screen *ebiten.Image, h int, margin, fontSize float64, pal scene.Palette) {
	label := viewport.FormatZoom(g.dash.Viewport().Scale())
	drawLabel(screen, label, g.face(fontSize), margin, float64(h)-margin-fontSize, pal.Text, 0.8)
}

func (g *Game) drawResetButton(screen *ebiten.Image, w int, fontSize float64, pal scene.Palette) {
	r := resetButtonRect(w)
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), pal.Button, false)
	face := g.face(fontSize * 0.9)
	tw, th := text.Measure("Reset", face, 0)
	drawLabel(screen, "Reset", face,
		float64(r.Min.X)+(float64(r.Dx())-tw)/2,
		float64(r.Min.Y)+(float64(r.Dy())-th)/2,
		pal.ButtonText, 1)
}

func (g *Game) drawTooltip(screen *ebiten.Image, w, h int, fontSize float64) {
	st := g.dash.Tooltip().State()
	if !st.Visible || st.Content.Title == "" {
		return
	}
	face := g.face(fontSize)
	lines := append([]string{st.Content.Title}, st.Content.Lines...)
	line := fontSize * 1.3
	bw := 0.0
	for _, l := range lines {
		tw, _ := text.Measure(l, face, 0)
		bw = max(bw, tw)
	}
	bw += 16
	bh := line*float64(len(lines)) + 12
	x, y := tooltipRect(st.X, st.Y, bw, bh, w, h)
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(bw), float32(bh), color.RGBA{0, 0, 0, 200}, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(bw), float32(bh), 1, panelStroke, false)
	cy := y + 6
	for i, l := range lines {
		alpha := 0.8
		if i == 0 {
			alpha = 1
		}
		drawLabel(screen, l, face, x+8, cy, color.RGBA{255, 255, 255, 255}, alpha)
		cy += line
	}
}

func (g *Game) drawToasts(screen *ebiten.Image, now time.Time, w, h int, margin, fontSize float64) {
	title, body := g.face(fontSize), g.face(fontSize*0.85)
	bw := fontSize * 24
	bh := fontSize*2.6 + 16
	y := float64(h) - margin - bh
	for _, t := range g.toasts.Active(now) {
		fill := toastFill
		if t.Destructive {
			fill = destructive
		}
		x := float64(w) - margin - bw
		vector.DrawFilledRect(screen, float32(x), float32(y), float32(bw), float32(bh), withAlpha(fill, t.Alpha), false)
		vector.StrokeRect(screen, float32(x), float32(y), float32(bw), float32(bh), 1, withAlpha(panelStroke, t.Alpha), false)
		white := color.RGBA{255, 255, 255, 255}
		drawLabel(screen, t.Title, title, x+10, y+8, white, t.Alpha)
		drawLabel(screen, truncate(t.Description, 60), body, x+10, y+10+fontSize*1.3, white, 0.8*t.Alpha)
		y -= bh + 8
	}
}
