package capture

import (
	"fmt"
	"image"
	"image/color"

	"github.com/eleven-am/shelfscan/internal/detection"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boxThickness = 2

var (
	boxColor   = color.RGBA{R: 0, G: 220, B: 0, A: 255}
	labelColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Annotate returns a copy of img with a box and "class 0.87" label drawn for
// every detection. The source image is left untouched.
func Annotate(img image.Image, dets []detection.Detection) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	for _, d := range dets {
		r := d.Box.Rect().Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawBox(out, r)

		label := fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
		width := font.MeasureString(face, label).Ceil()
		height := face.Height

		top := r.Min.Y - height - 2
		if top < bounds.Min.Y {
			top = r.Min.Y
		}
		bg := image.Rect(r.Min.X, top, r.Min.X+width+4, top+height+2).Intersect(bounds)
		draw.Draw(out, bg, image.NewUniform(boxColor), image.Point{}, draw.Src)

		drawer := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(labelColor),
			Face: face,
			Dot:  fixed.P(r.Min.X+2, top+face.Ascent+1),
		}
		drawer.DrawString(label)
	}
	return out
}

func drawBox(dst *image.RGBA, r image.Rectangle) {
	src := image.NewUniform(boxColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
