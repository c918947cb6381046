package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/shelfscan/internal/camera"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/metrics"
	"github.com/eleven-am/shelfscan/internal/schedule"
	"github.com/eleven-am/shelfscan/internal/shared"
)

type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type CaptureStore interface {
	Save(domain detection.Domain, img image.Image, dets []detection.Detection) (string, error)
}

type Recorder interface {
	RecordCycle(domain detection.Domain, dets []detection.Detection, imageRef string) error
}

// Pipeline is one detection domain fed by the publisher's camera.
type Pipeline struct {
	Domain   detection.Domain
	Timer    *schedule.Timer
	Detector detection.Detector
}

type Config struct {
	Name        string
	Source      camera.Source
	Pipelines   []Pipeline
	Recorder    Recorder
	Captures    CaptureStore
	Width       int
	Height      int
	JPEGQuality int
	Buffer      int
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Publisher owns one camera. Frames are normalized, sampled by each pipeline's
// timer for detection, then JPEG encoded and fanned out to video feed
// subscribers. Once stopped it never restarts.
type Publisher struct {
	name      string
	source    camera.Source
	pipelines []Pipeline
	recorder  Recorder
	captures  CaptureStore
	width     int
	height    int
	quality   int
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger

	broadcaster *Broadcaster
	state       atomic.Int32
	seq         uint64

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	listeners []func(State)
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "camera"
	}

	return &Publisher{
		name:        cfg.Name,
		source:      cfg.Source,
		pipelines:   cfg.Pipelines,
		recorder:    cfg.Recorder,
		captures:    cfg.Captures,
		width:       cfg.Width,
		height:      cfg.Height,
		quality:     cfg.JPEGQuality,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With("component", "stream", "stream", cfg.Name),
		broadcaster: NewBroadcaster(cfg.Buffer),
		done:        make(chan struct{}),
	}
}

func (p *Publisher) Name() string {
	return p.name
}

func (p *Publisher) Domains() []detection.Domain {
	out := make([]detection.Domain, len(p.pipelines))
	for i, pl := range p.pipelines {
		out[i] = pl.Domain
	}
	return out
}

func (p *Publisher) State() State {
	return State(p.state.Load())
}

func (p *Publisher) Subscribers() int {
	return p.broadcaster.Count()
}

// OnStateChange registers fn to run on every transition. Register before Start.
func (p *Publisher) OnStateChange(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Publisher) setState(s State) {
	p.state.Store(int32(s))
	p.metrics.SetStreamState(p.name, int(s))
	for _, fn := range p.listeners {
		fn(s)
	}
}

// Start acquires the camera and launches the producer. The producer outlives
// ctx cancellation; only Stop or a camera failure ends it.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case StateStreaming:
		return nil
	case StateStopped:
		return fmt.Errorf("%w: %s", shared.ErrStreamStopped, p.name)
	}

	if err := p.source.Open(); err != nil {
		p.logger.Error("camera acquisition failed", "error", err)
		p.terminateLocked()
		if !errors.Is(err, shared.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
		}
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.setState(StateStreaming)
	p.logger.Info("stream started", "domains", p.Domains())

	go p.run(runCtx)
	return nil
}

func (p *Publisher) terminateLocked() {
	p.setState(StateStopped)
	p.broadcaster.Close()
	p.metrics.SetSubscribers(p.name, 0)
	close(p.done)
}

// Subscribe attaches a video feed consumer, starting the producer on the
// first attach. The returned channel is closed when the stream ends.
func (p *Publisher) Subscribe(ctx context.Context) (int, <-chan []byte, error) {
	id, frames := p.broadcaster.Subscribe()
	p.metrics.SetSubscribers(p.name, p.broadcaster.Count())

	switch p.State() {
	case StateStopped:
		return id, frames, fmt.Errorf("%w: %s", shared.ErrStreamStopped, p.name)
	case StateIdle:
		if err := p.Start(ctx); err != nil {
			return id, frames, err
		}
	}
	return id, frames, nil
}

// Unsubscribe detaches a consumer. The producer keeps running with zero
// subscribers.
func (p *Publisher) Unsubscribe(id int) {
	p.broadcaster.Unsubscribe(id)
	p.metrics.SetSubscribers(p.name, p.broadcaster.Count())
}

func (p *Publisher) Stop() {
	p.mu.Lock()
	switch p.State() {
	case StateIdle:
		p.terminateLocked()
		p.mu.Unlock()
		return
	case StateStopped:
		p.mu.Unlock()
		<-p.done
		return
	}
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	<-p.done
}

func (p *Publisher) run(ctx context.Context) {
	defer func() {
		if err := p.source.Close(); err != nil {
			p.logger.Warn("camera close failed", "error", err)
		}
		p.mu.Lock()
		p.terminateLocked()
		p.mu.Unlock()
		p.logger.Info("stream stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		img, err := p.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, shared.ErrFrameRead) {
				err = fmt.Errorf("%w: %v", shared.ErrFrameRead, err)
			}
			p.logger.Error("frame read failed, ending stream", "error", err)
			return
		}
		p.metrics.FrameRead(p.name)

		p.seq++
		frame := camera.Frame{
			Image:      camera.Normalize(img, p.width, p.height),
			CapturedAt: p.clock.Now(),
			Seq:        p.seq,
		}

		for _, pl := range p.pipelines {
			p.runCycle(ctx, pl, frame)
		}

		data, err := camera.EncodeJPEG(frame.Image, p.quality)
		if err != nil {
			p.logger.Warn("frame encode failed", "seq", frame.Seq, "error", err)
			continue
		}
		p.metrics.FramesDropped(p.name, p.broadcaster.Broadcast(data))
	}
}

func (p *Publisher) runCycle(ctx context.Context, pl Pipeline, frame camera.Frame) {
	if !pl.Timer.TryBegin(frame.CapturedAt) {
		return
	}
	domain := pl.Domain.String()
	logger := p.logger.With("domain", domain, "seq", frame.Seq)

	started := p.clock.Now()
	dets, err := pl.Detector.Detect(ctx, frame.Image)
	p.metrics.ObserveInference(domain, p.clock.Since(started))
	if err != nil {
		if errors.Is(err, shared.ErrDetectionTimeout) {
			logger.Warn("detection timed out, skipping cycle", "error", err)
			p.metrics.Cycle(domain, metrics.OutcomeTimeout)
			return
		}
		logger.Error("detection failed, skipping cycle", "error", err)
		p.metrics.Cycle(domain, metrics.OutcomeFailed)
		return
	}

	valid := make([]detection.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Validate() != nil {
			continue
		}
		valid = append(valid, d)
		p.metrics.Detected(domain, d.Class)
	}
	invalid := len(dets) - len(valid)
	p.metrics.InvalidDetections(domain, invalid)

	imageRef := ""
	if p.captures != nil {
		imageRef, err = p.captures.Save(pl.Domain, frame.Image, valid)
		if err != nil {
			logger.Warn("capture persist failed", "error", err)
			p.metrics.CaptureWriteFailed(domain)
			imageRef = ""
		}
	}

	if err := p.recorder.RecordCycle(pl.Domain, dets, imageRef); err != nil {
		var verr *detection.ValidationError
		if !errors.As(err, &verr) {
			logger.Error("record cycle failed", "error", err)
			p.metrics.Cycle(domain, metrics.OutcomeFailed)
			return
		}
	}
	p.metrics.Cycle(domain, metrics.OutcomeRecorded)
	logger.Debug("capture cycle recorded", "detections", len(valid), "skipped", invalid, "image", imageRef)
}
