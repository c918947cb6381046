package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/shelfscan/internal/aggregate"
	"github.com/eleven-am/shelfscan/internal/camera/webcam"
	"github.com/eleven-am/shelfscan/internal/capture"
	"github.com/eleven-am/shelfscan/internal/catalog"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/detection/yolo"
	"github.com/eleven-am/shelfscan/internal/events"
	"github.com/eleven-am/shelfscan/internal/health"
	"github.com/eleven-am/shelfscan/internal/metrics"
	"github.com/eleven-am/shelfscan/internal/query"
	"github.com/eleven-am/shelfscan/internal/schedule"
	"github.com/eleven-am/shelfscan/internal/stream"
	"go.uber.org/fx"
)

type Detectors map[detection.Domain]detection.Detector

// DetectorProbes holds the detectors that can be reached over the network,
// keyed by domain name.
type DetectorProbes map[string]health.DetectorProbe

type domainSettings struct {
	camera     int
	modelPath  string
	labelsPath string
	url        string
}

func (c *Config) domainSettings(d detection.Domain) domainSettings {
	if d == detection.DomainFruits {
		return domainSettings{
			camera:     c.FruitCamera,
			modelPath:  c.FruitModelPath,
			labelsPath: c.FruitLabelsPath,
			url:        c.FruitDetectorURL,
		}
	}
	return domainSettings{
		camera:     c.ProductCamera,
		modelPath:  c.ProductModelPath,
		labelsPath: c.ProductLabelsPath,
		url:        c.ProductDetectorURL,
	}
}

func ProvideAggregator(clk clock.Clock, logger *slog.Logger) *aggregate.Aggregator {
	return aggregate.New(clk, logger, detection.Domains...)
}

func ProvideTimers(cfg *Config) schedule.Timers {
	return schedule.NewTimers(map[detection.Domain]time.Duration{
		detection.DomainProducts: cfg.ProductCaptureInterval,
		detection.DomainFruits:   cfg.FruitCaptureInterval,
	})
}

func newDetector(cfg *Config, domain detection.Domain) (detection.Detector, error) {
	settings := cfg.domainSettings(domain)

	switch cfg.DetectorBackend {
	case DetectorBackendHTTP:
		return detection.NewClient(detection.ClientConfig{
			URL:      settings.url,
			MinScore: cfg.DetectionConfidence,
		}), nil
	case DetectorBackendYOLO:
		labels, err := detection.LoadLabels(settings.labelsPath)
		if err != nil {
			return nil, fmt.Errorf("%s labels: %w", domain, err)
		}
		yc := yolo.DefaultConfig()
		yc.ModelPath = settings.modelPath
		yc.Labels = labels
		yc.ConfidenceThresh = float32(cfg.DetectionConfidence)
		yc.NMSThresh = float32(cfg.DetectionNMS)
		det, err := yolo.New(yc)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", domain, err)
		}
		return det, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

func ProvideDetectors(lc fx.Lifecycle, cfg *Config, logger *slog.Logger) (Detectors, DetectorProbes, error) {
	detectors := make(Detectors, len(detection.Domains))
	probes := make(DetectorProbes)
	for _, d := range detection.Domains {
		det, err := newDetector(cfg, d)
		if err != nil {
			for _, opened := range detectors {
				_ = opened.Close()
			}
			return nil, nil, err
		}
		if probe, ok := det.(health.DetectorProbe); ok {
			probes[d.String()] = probe
		}
		detectors[d] = detection.WithTimeout(det, cfg.DetectionTimeout)
		logger.Info("detector ready", "domain", d, "backend", cfg.DetectorBackend, "timeout", cfg.DetectionTimeout)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			var errs []error
			for _, det := range detectors {
				errs = append(errs, det.Close())
			}
			return errors.Join(errs...)
		},
	})
	return detectors, probes, nil
}

func ProvideCaptureWriter(cfg *Config, logger *slog.Logger) (*capture.Writer, error) {
	return capture.NewWriter(capture.Config{
		Dir:       cfg.CaptureDir,
		URLPrefix: cfg.CaptureURLPrefix,
	}, logger)
}

func ProvideJanitor(lc fx.Lifecycle, cfg *Config, writer *capture.Writer, agg *aggregate.Aggregator, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *capture.Janitor {
	policy := capture.RetentionPolicy{
		MaxFiles: cfg.CaptureMaxFiles,
		MaxAge:   cfg.CaptureMaxAge,
		MaxBytes: cfg.CaptureMaxBytes,
	}
	janitor := capture.NewJanitor(writer.Dir(), policy, cfg.CaptureSweepInterval, clk, logger)
	janitor.OnPrune(m.CapturesPruned)
	janitor.Pin(agg.ImageRefs)

	if !policy.Enabled() {
		return janitor
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				janitor.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
	return janitor
}

type cameraGroup struct {
	camera  int
	domains []detection.Domain
}

// groupByCamera assigns every domain to the producer of its camera index, so
// a physical camera is only ever opened once.
func groupByCamera(assignments map[detection.Domain]int) []cameraGroup {
	byCamera := make(map[int][]detection.Domain)
	for _, d := range detection.Domains {
		idx, ok := assignments[d]
		if !ok {
			continue
		}
		byCamera[idx] = append(byCamera[idx], d)
	}

	groups := make([]cameraGroup, 0, len(byCamera))
	for idx, domains := range byCamera {
		groups = append(groups, cameraGroup{camera: idx, domains: domains})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].camera < groups[j].camera })
	return groups
}

type StreamParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     *Config
	Aggregator *aggregate.Aggregator
	Timers     schedule.Timers
	Detectors  Detectors
	Writer     *capture.Writer
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	Logger     *slog.Logger
}

func ProvideStreamRegistry(p StreamParams) (*stream.Registry, error) {
	cfg := p.Config
	assignments := make(map[detection.Domain]int, len(detection.Domains))
	for _, d := range detection.Domains {
		assignments[d] = cfg.domainSettings(d).camera
	}

	var publishers []*stream.Publisher
	for _, group := range groupByCamera(assignments) {
		pipelines := make([]stream.Pipeline, 0, len(group.domains))
		for _, d := range group.domains {
			pipelines = append(pipelines, stream.Pipeline{
				Domain:   d,
				Timer:    p.Timers[d],
				Detector: p.Detectors[d],
			})
		}
		publishers = append(publishers, stream.NewPublisher(stream.Config{
			Name:        fmt.Sprintf("camera-%d", group.camera),
			Source:      webcam.New(group.camera, cfg.FrameWidth, cfg.FrameHeight),
			Pipelines:   pipelines,
			Recorder:    p.Aggregator,
			Captures:    p.Writer,
			Width:       cfg.FrameWidth,
			Height:      cfg.FrameHeight,
			JPEGQuality: cfg.JPEGQuality,
			Clock:       p.Clock,
			Metrics:     p.Metrics,
			Logger:      p.Logger,
		}))
	}

	registry, err := stream.NewRegistry(p.Logger, publishers...)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if !cfg.StreamAutostart {
				return nil
			}
			go func() {
				if err := registry.StartAll(context.Background()); err != nil {
					p.Logger.Warn("some streams failed to autostart", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			registry.StopAll()
			return nil
		},
	})
	return registry, nil
}

func ProvideQueryService(agg *aggregate.Aggregator, timers schedule.Timers, finder catalog.Finder, clk clock.Clock, logger *slog.Logger) *query.Service {
	return query.NewService(agg, timers, finder, clk, logger)
}

func ProvideEventHub(lc fx.Lifecycle, agg *aggregate.Aggregator, logger *slog.Logger) *events.Hub {
	hub := events.NewHub(logger)
	agg.OnCycle(hub.OnCycle)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

var PipelineModule = fx.Options(
	fx.Provide(
		ProvideAggregator,
		ProvideTimers,
		ProvideDetectors,
		ProvideCaptureWriter,
		ProvideJanitor,
		ProvideStreamRegistry,
		ProvideQueryService,
		ProvideEventHub,
	),
	fx.Invoke(func(*capture.Janitor) {}),
)
