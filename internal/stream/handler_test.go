package stream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/shelfscan/internal/aggregate"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/schedule"
	"github.com/labstack/echo/v4"
)

func newFeedHandler(t *testing.T, src *fakeSource) *Handler {
	t.Helper()
	mock := clock.NewMock()
	agg := aggregate.New(mock, testLogger(), detection.DomainProducts)
	pub := NewPublisher(Config{
		Name:   "camera-1",
		Source: src,
		Pipelines: []Pipeline{{
			Domain:   detection.DomainProducts,
			Timer:    schedule.NewTimer(7 * time.Second),
			Detector: &countingDetector{},
		}},
		Recorder: agg,
		Width:    32,
		Height:   24,
		Clock:    mock,
		Logger:   testLogger(),
	})
	t.Cleanup(pub.Stop)

	registry, err := NewRegistry(testLogger(), pub)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewHandler(registry, testLogger())
}

func TestHandler_StreamsMultipartFrames(t *testing.T) {
	src := newFakeSource(2)
	src.frames <- frame()
	src.frames <- frame()
	close(src.frames)

	h := newFeedHandler(t, src)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ProductFeed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); n != 2 {
		t.Errorf("expected 2 multipart frames, got %d", n)
	}
	if !strings.Contains(body, "\xff\xd8") {
		t.Error("expected JPEG data in the body")
	}
}

func TestHandler_UnconfiguredDomain(t *testing.T) {
	h := newFeedHandler(t, newFakeSource(1))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/video_feed_fruits", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.FruitFeed(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_CameraUnavailable(t *testing.T) {
	src := newFakeSource(1)
	src.openErr = errors.New("busy")
	h := newFeedHandler(t, src)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.ProductFeed(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err)
	}
}

func TestNewRegistry_RejectsDuplicateDomain(t *testing.T) {
	mk := func(name string) *Publisher {
		return NewPublisher(Config{
			Name:      name,
			Source:    newFakeSource(1),
			Pipelines: []Pipeline{{Domain: detection.DomainFruits, Timer: schedule.NewTimer(time.Second)}},
			Logger:    testLogger(),
		})
	}
	if _, err := NewRegistry(testLogger(), mk("a"), mk("b")); err == nil {
		t.Error("expected duplicate domain to be rejected")
	}
}

func TestRegistry_StartAllReportsFailures(t *testing.T) {
	good := newFakeSource(1)
	bad := newFakeSource(1)
	bad.openErr = errors.New("missing")

	mk := func(name string, src *fakeSource, d detection.Domain) *Publisher {
		return NewPublisher(Config{
			Name:      name,
			Source:    src,
			Pipelines: []Pipeline{{Domain: d, Timer: schedule.NewTimer(time.Second), Detector: &countingDetector{}}},
			Recorder:  aggregate.New(nil, testLogger()),
			Logger:    testLogger(),
		})
	}
	a := mk("camera-0", good, detection.DomainProducts)
	b := mk("camera-2", bad, detection.DomainFruits)
	registry, err := NewRegistry(testLogger(), a, b)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	defer registry.StopAll()

	if err := registry.StartAll(t.Context()); err == nil {
		t.Error("expected autostart failure reported")
	}
	if a.State() != StateStreaming {
		t.Errorf("expected healthy camera streaming, got %s", a.State())
	}
	if b.State() != StateStopped {
		t.Errorf("expected failed camera stopped, got %s", b.State())
	}
}
