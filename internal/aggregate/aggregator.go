package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/shared"
)

type LatestCapture struct {
	ImageRef   string
	Detections []detection.Detection
	CapturedAt time.Time
	Cycle      uint64
}

// Snapshot is the published state of one domain. Values handed out by the
// aggregator are shared between readers and must not be mutated.
type Snapshot struct {
	Domain detection.Domain
	Latest *LatestCapture
	Counts map[string]int
	Cycles uint64
}

type Observer func(Snapshot)

type domainState struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

type Aggregator struct {
	clock  clock.Clock
	logger *slog.Logger
	states map[detection.Domain]*domainState
	order  []detection.Domain

	observersMu sync.RWMutex
	observers   []Observer
}

func New(clk clock.Clock, logger *slog.Logger, domains ...detection.Domain) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(domains) == 0 {
		domains = detection.Domains
	}

	a := &Aggregator{
		clock:  clk,
		logger: logger.With("component", "aggregator"),
		states: make(map[detection.Domain]*domainState, len(domains)),
	}
	for _, d := range domains {
		state := &domainState{}
		state.current.Store(&Snapshot{Domain: d, Counts: map[string]int{}})
		a.states[d] = state
		a.order = append(a.order, d)
	}
	return a
}

func (a *Aggregator) Domains() []detection.Domain {
	return append([]detection.Domain(nil), a.order...)
}

func (a *Aggregator) OnCycle(fn Observer) {
	a.observersMu.Lock()
	defer a.observersMu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *Aggregator) state(domain detection.Domain) (*domainState, error) {
	s, ok := a.states[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDomain, domain)
	}
	return s, nil
}

// RecordCycle folds one completed capture into the domain's counters and
// replaces its latest capture. Invalid detections are skipped and reported in
// the returned error; the cycle is still recorded.
func (a *Aggregator) RecordCycle(domain detection.Domain, detections []detection.Detection, imageRef string) error {
	s, err := a.state(domain)
	if err != nil {
		return err
	}

	valid := make([]detection.Detection, 0, len(detections))
	var errs []error
	for _, d := range detections {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, d)
	}

	s.mu.Lock()
	prev := s.current.Load()
	counts := maps.Clone(prev.Counts)
	for _, d := range valid {
		counts[d.Class]++
	}
	next := &Snapshot{
		Domain: domain,
		Latest: &LatestCapture{
			ImageRef:   imageRef,
			Detections: valid,
			CapturedAt: a.clock.Now(),
			Cycle:      prev.Cycles + 1,
		},
		Counts: counts,
		Cycles: prev.Cycles + 1,
	}
	s.current.Store(next)
	s.mu.Unlock()

	if len(errs) > 0 {
		a.logger.Warn("skipped invalid detections", "domain", domain, "skipped", len(errs), "recorded", len(valid))
	}

	a.notify(*next)
	return errors.Join(errs...)
}

func (a *Aggregator) notify(snap Snapshot) {
	a.observersMu.RLock()
	observers := a.observers
	a.observersMu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (a *Aggregator) Snapshot(domain detection.Domain) (Snapshot, error) {
	s, err := a.state(domain)
	if err != nil {
		return Snapshot{}, err
	}
	return *s.current.Load(), nil
}

// Latest returns false until the domain completes its first cycle.
func (a *Aggregator) Latest(domain detection.Domain) (*LatestCapture, bool) {
	s, ok := a.states[domain]
	if !ok {
		return nil, false
	}
	latest := s.current.Load().Latest
	return latest, latest != nil
}

func (a *Aggregator) Count(domain detection.Domain, class string) int {
	s, ok := a.states[domain]
	if !ok {
		return 0
	}
	return s.current.Load().Counts[class]
}

// ImageRefs returns the image reference of every domain's latest capture.
func (a *Aggregator) ImageRefs() []string {
	refs := make([]string, 0, len(a.order))
	for _, d := range a.order {
		if latest := a.states[d].current.Load().Latest; latest != nil && latest.ImageRef != "" {
			refs = append(refs, latest.ImageRef)
		}
	}
	return refs
}

// Cycles reports completed cycles keyed by domain name.
func (a *Aggregator) Cycles() map[string]uint64 {
	out := make(map[string]uint64, len(a.order))
	for _, d := range a.order {
		out[d.String()] = a.states[d].current.Load().Cycles
	}
	return out
}
