package scene

import "image/color"

// Theme selects the static map colours. It never affects animation.
type Theme struct {
	Light bool
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme { return Theme{Light: !t.Light} }

// Name is "light" or "dark".
func (t Theme) Name() string {
	if t.Light {
		return "light"
	}
	return "dark"
}

// Palette is the set of colours a renderer needs for one theme.
type Palette struct {
	Background color.RGBA
	Land       color.RGBA
	Border     color.RGBA
	Hover      color.RGBA
	Selected   color.RGBA
	Text       color.RGBA
	Muted      color.RGBA
	Button     color.RGBA
	ButtonText color.RGBA
}

var (
	darkPalette = Palette{
		Background: color.RGBA{8, 10, 20, 255},
		Land:       color.RGBA{38, 42, 58, 255},
		Border:     color.RGBA{255, 255, 255, 255},
		Hover:      color.RGBA{0, 200, 170, 255},
		Selected:   color.RGBA{0, 150, 130, 255},
		Text:       color.RGBA{230, 230, 235, 255},
		Muted:      color.RGBA{140, 145, 160, 255},
		Button:     color.RGBA{50, 50, 50, 178},
		ButtonText: color.RGBA{255, 255, 255, 255},
	}
	lightPalette = Palette{
		Background: color.RGBA{240, 242, 245, 255},
		Land:       color.RGBA{255, 255, 255, 255},
		Border:     color.RGBA{0, 0, 0, 255},
		Hover:      color.RGBA{0, 140, 120, 255},
		Selected:   color.RGBA{0, 110, 95, 255},
		Text:       color.RGBA{0, 0, 0, 255},
		Muted:      color.RGBA{90, 95, 105, 255},
		Button:     color.RGBA{50, 50, 50, 178},
		ButtonText: color.RGBA{255, 255, 255, 255},
	}
)

// Palette returns the colours for t.
func (t Theme) Palette() Palette {
	if t.Light {
		return lightPalette
	}
	return darkPalette
}
