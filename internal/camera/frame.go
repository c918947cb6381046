package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultJPEGQuality = 80
)

// Source yields raw frames from one physical camera. Open must succeed before
// Read is called; Read blocks until a frame is available.
type Source interface {
	Open() error
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Seq        uint64
}

// Normalize scales img to width x height. An RGBA image already at that size
// is returned unchanged.
func Normalize(img image.Image, width, height int) *image.RGBA {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	target := image.Rect(0, 0, width, height)
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds() == target {
		return rgba
	}

	dst := image.NewRGBA(target)
	draw.ApproxBiLinear.Scale(dst, target, img, img.Bounds(), draw.Src, nil)
	return dst
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
