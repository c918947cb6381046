package webcam

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/eleven-am/shelfscan/internal/shared"
	"gocv.io/x/gocv"
)

// Device reads frames from a local capture device through OpenCV.
type Device struct {
	deviceID int
	width    int
	height   int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func New(deviceID, width, height int) *Device {
	return &Device{
		deviceID: deviceID,
		width:    width,
		height:   height,
	}
}

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", shared.ErrCameraUnavailable, d.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d not opened", shared.ErrCameraUnavailable, d.deviceID)
	}

	if d.width > 0 && d.height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}

	d.capture = capture
	d.mat = gocv.NewMat()
	return nil
}

func (d *Device) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, fmt.Errorf("%w: device %d not open", shared.ErrFrameRead, d.deviceID)
	}
	if ok := d.capture.Read(&d.mat); !ok {
		return nil, fmt.Errorf("%w: device %d returned no frame", shared.ErrFrameRead, d.deviceID)
	}
	if d.mat.Empty() {
		return nil, fmt.Errorf("%w: device %d returned an empty frame", shared.ErrFrameRead, d.deviceID)
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", shared.ErrFrameRead, err)
	}
	return img, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	d.mat.Close()
	err := d.capture.Close()
	d.capture = nil
	return err
}
