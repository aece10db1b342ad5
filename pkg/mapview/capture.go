package mapview

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// captureName is the PNG file name for a frame taken at t.
func captureName(t time.Time, suffix string) string {
	return fmt.Sprintf("attackmap-%s-%s.png", t.Format("20060102-150405.000"), suffix)
}

// maybeCapture saves the frame when capture is configured and the
// interval has passed since the last one.
func (g *Game) maybeCapture(screen *ebiten.Image, now time.Time) {
	if g.capture.Dir == "" || g.capture.Interval <= 0 {
		return
	}
	if !g.lastCapture.IsZero() && now.Sub(g.lastCapture) < g.capture.Interval {
		return
	}
	g.lastCapture = now
	g.captureFrame(screen, captureLabel, now)
}

func (g *Game) captureFrame(img *ebiten.Image, suffix string, timestamp time.Time) {
	if err := os.MkdirAll(g.capture.Dir, 0o755); err != nil {
		g.logger.Error("creating capture directory", zap.Error(err))
		return
	}
	path := filepath.Join(g.capture.Dir, captureName(timestamp, suffix))

	// Copy out now so encoding can run off the render goroutine.
	rgba := image.NewRGBA(img.Bounds())
	img.ReadPixels(rgba.Pix)

	go func() {
		if err := writePNG(path, rgba); err != nil {
			g.logger.Error("capturing frame", zap.String("path", path), zap.Error(err))
			return
		}
		g.logger.Debug("captured frame", zap.String("path", path))
	}()
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
