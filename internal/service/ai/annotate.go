package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"ecoscanner/internal/model"
)

var (
	boxColor   = color.NRGBA{R: 0, G: 200, B: 83, A: 255}
	labelColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// ImageAnnotator draws boxes and labels in pure Go. It backs the overlay for
// backends that do not render their own.
type ImageAnnotator struct {
	Quality int
}

func (a ImageAnnotator) Annotate(img []byte, detections []model.Detection) ([]byte, error) {
	src, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}

	canvas := imaging.Clone(src)
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	for _, d := range detections {
		x0, y0, x1, y1 := boxToPixels(d.Box, w, h)
		for s := 0; s < stroke; s++ {
			drawHLine(canvas, y0+s, x0, x1, boxColor)
			drawHLine(canvas, y1-1-s, x0, x1, boxColor)
			drawVLine(canvas, x0+s, y0, y1, boxColor)
			drawVLine(canvas, x1-1-s, y0, y1, boxColor)
		}
		drawLabel(canvas, x0, y0, fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100))
	}

	quality := a.Quality
	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabel paints text on a filled strip above the box, or inside it when the
// box touches the top edge.
func drawLabel(img *image.NRGBA, x, y int, text string) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	stripHeight := face.Height + 2

	top := y - stripHeight
	if top < 0 {
		top = y
	}
	for row := top; row < top+stripHeight; row++ {
		drawHLine(img, row, x, x+textWidth+4, boxColor)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(x+2, top+face.Ascent+1),
	}
	d.DrawString(text)
}

func boxToPixels(box model.BoundingBox, w, h int) (int, int, int, int) {
	x0 := int(clamp(box.X1, 0, float64(w)) + 0.5)
	y0 := int(clamp(box.Y1, 0, float64(h)) + 0.5)
	x1 := int(clamp(box.X2, 0, float64(w)) + 0.5)
	y1 := int(clamp(box.Y2, 0, float64(h)) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < 0 || y >= b.Dy() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > b.Dx() {
		x1 = b.Dx()
	}
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > b.Dy() {
		y1 = b.Dy()
	}
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
