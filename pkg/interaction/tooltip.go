// Package interaction turns pointer activity over the map into tooltip
// content and country selections.
package interaction

import (
	"strings"
	"sync"
)

// ContentKind says what a tooltip describes.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentAttack
	ContentCountry
)

// Content is the text of a tooltip. Title is the first, emphasised line.
type Content struct {
	Kind  ContentKind
	Title string
	Lines []string
}

// String joins the title and lines with newlines.
func (c Content) String() string {
	if c.Title == "" && len(c.Lines) == 0 {
		return ""
	}
	return strings.Join(append([]string{c.Title}, c.Lines...), "\n")
}

// TooltipState is a snapshot of the shared tooltip.
type TooltipState struct {
	Visible bool
	Content Content
	X, Y    float64
}

// Tooltip is the single overlay shared by the map and every chart. Only one
// hover state is shown at a time; the last Show wins.
type Tooltip struct {
	mu    sync.RWMutex
	state TooltipState
}

// NewTooltip returns a hidden tooltip.
func NewTooltip() *Tooltip {
	return &Tooltip{}
}

// Show replaces the content and position and makes the tooltip visible.
func (t *Tooltip) Show(c Content, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TooltipState{Visible: true, Content: c, X: x, Y: y}
}

// Move repositions the tooltip without changing its content.
func (t *Tooltip) Move(x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.X, t.state.Y = x, y
}

// Hide hides the tooltip. The last content is kept.
func (t *Tooltip) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Visible = false
}

// State returns the current tooltip state.
func (t *Tooltip) State() TooltipState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	s.Content.Lines = append([]string(nil), s.Content.Lines...)
	return s
}
