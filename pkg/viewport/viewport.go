// Package viewport holds the zoom and pan state of the map.
package viewport

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	MinScale = 1.0
	MaxScale = 8.0

	// ResetDuration is how long Reset takes to return to identity.
	ResetDuration = 750 * time.Millisecond
)

// Transform is a uniform scale K followed by a translation (X, Y).
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the unzoomed, unpanned transform.
var Identity = Transform{K: 1}

// Apply maps a map-space point into screen space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen-space point back into map space.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

func clampScale(k float64) float64 {
	if math.IsNaN(k) {
		return MinScale
	}
	return math.Max(MinScale, math.Min(MaxScale, k))
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// easeCubicInOut matches the default easing of a zoom transition.
func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Controller owns the viewport transform. It is safe for concurrent use.
type Controller struct {
	mu sync.RWMutex
	t  Transform

	resetting bool
	from      Transform
	resetAt   time.Time
}

// NewController starts at identity.
func NewController() *Controller {
	return &Controller{t: Identity}
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Scale returns the current zoom factor.
func (c *Controller) Scale() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.K
}

// ZoomPan replaces the transform with t, clamping the scale to [1, 8]. A
// user gesture interrupts any running reset.
func (c *Controller) ZoomPan(t Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.K = clampScale(t.K)
	c.t = t
	c.resetting = false
}

// ZoomAt scales by factor around the screen point (x, y), keeping that
// point fixed.
func (c *Controller) ZoomAt(factor, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := clampScale(c.t.K * factor)
	mx, my := c.t.Invert(x, y)
	c.t = Transform{K: k, X: x - mx*k, Y: y - my*k}
	c.resetting = false
}

// Pan translates by (dx, dy) screen pixels.
func (c *Controller) Pan(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.X += dx
	c.t.Y += dy
	c.resetting = false
}

// Reset starts an animated return to identity at now. Call Advance to
// move it along.
func (c *Controller) Reset(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.from = c.t
	c.resetAt = now
	c.resetting = true
}

// ResetImmediate jumps to identity without animating.
func (c *Controller) ResetImmediate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = Identity
	c.resetting = false
}

// Resetting reports whether a reset animation is in progress.
func (c *Controller) Resetting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetting
}

// Advance moves a running reset to time now and returns the transform.
func (c *Controller) Advance(now time.Time) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resetting {
		return c.t
	}
	p := float64(now.Sub(c.resetAt)) / float64(ResetDuration)
	if p >= 1 {
		c.t = Identity
		c.resetting = false
		return c.t
	}
	if p < 0 {
		p = 0
	}
	e := easeCubicInOut(p)
	c.t = Transform{
		K: lerp(c.from.K, Identity.K, e),
		X: lerp(c.from.X, Identity.X, e),
		Y: lerp(c.from.Y, Identity.Y, e),
	}
	return c.t
}

// ZoomLabel formats the scale for display, e.g. "Zoom: 140%".
func (c *Controller) ZoomLabel() string {
	return FormatZoom(c.Scale())
}

// FormatZoom formats a scale factor as a rounded percentage.
func FormatZoom(k float64) string {
	return fmt.Sprintf("Zoom: %d%%", int(math.Round(k*100)))
}
