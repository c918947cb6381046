package detection

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/eleven-am/shelfscan/internal/shared"
)

type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Func adapts a plain function to Detector.
type Func func(ctx context.Context, img image.Image) ([]Detection, error)

func (f Func) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

func (f Func) Close() error {
	return nil
}

type timeoutDetector struct {
	next    Detector
	timeout time.Duration
}

// WithTimeout bounds each Detect call. An abandoned call keeps running in the
// background until the wrapped detector returns; its result is discarded.
func WithTimeout(next Detector, timeout time.Duration) Detector {
	if timeout <= 0 {
		return next
	}
	return &timeoutDetector{next: next, timeout: timeout}
}

type detectResult struct {
	detections []Detection
	err        error
}

func (d *timeoutDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan detectResult, 1)
	go func() {
		dets, err := d.next.Detect(ctx, img)
		done <- detectResult{detections: dets, err: err}
	}()

	select {
	case res := <-done:
		return res.detections, res.err
	case <-ctx.Done():
		if ctx.Err() != context.DeadlineExceeded {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", shared.ErrDetectionTimeout, d.timeout)
	}
}

func (d *timeoutDetector) Close() error {
	return d.next.Close()
}
