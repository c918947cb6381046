package yolo

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/eleven-am/shelfscan/internal/detection"
	"gocv.io/x/gocv"
)

type Config struct {
	ModelPath        string
	Labels           []string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThresh: 0.25,
		NMSThresh:        0.7,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Detector runs a YOLOv8 ONNX export through the OpenCV DNN module.
type Detector struct {
	net       gocv.Net
	config    Config
	mu        sync.Mutex
	inputSize image.Point
}

func New(cfg Config) (*Detector, error) {
	if cfg.InputWidth == 0 || cfg.InputHeight == 0 {
		def := DefaultConfig()
		cfg.InputWidth, cfg.InputHeight = def.InputWidth, def.InputHeight
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("no class labels configured for %s", cfg.ModelPath)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parse(output, float32(mat.Cols()), float32(mat.Rows()))
}

// parse decodes a [1, 4+classes, anchors] tensor of centre-format boxes.
func (d *Detector) parse(output gocv.Mat, imgW, imgH float32) ([]detection.Detection, error) {
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	attrs, anchors := dims[1], dims[2]
	if attrs-4 != len(d.config.Labels) {
		return nil, fmt.Errorf("model has %d classes, %d labels configured", attrs-4, len(d.config.Labels))
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := imgW / float32(d.config.InputWidth)
	scaleY := imgH / float32(d.config.InputHeight)

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)

	for i := 0; i < anchors; i++ {
		bestScore := float32(0)
		bestClass := 0
		for c := 4; c < attrs; c++ {
			if score := data[c*anchors+i]; score > bestScore {
				bestScore = score
				bestClass = c - 4
			}
		}
		if bestScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[i]
		cy := data[anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX),
			int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX),
			int((cy+h/2)*scaleY),
		))
		confidences = append(confidences, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	bounds := image.Rect(0, 0, int(imgW), int(imgH))
	dets := make([]detection.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx].Intersect(bounds)
		dets = append(dets, detection.Detection{
			Box: detection.Box{
				X1: float64(box.Min.X),
				Y1: float64(box.Min.Y),
				X2: float64(box.Max.X),
				Y2: float64(box.Max.Y),
			},
			Confidence: float64(confidences[idx]),
			Class:      d.config.Labels[classIDs[idx]],
		})
	}
	return dets, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
