package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/shelfscan/internal/aggregate"
	"github.com/eleven-am/shelfscan/internal/catalog"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/schedule"
)

type Snapshots interface {
	Domains() []detection.Domain
	Snapshot(domain detection.Domain) (aggregate.Snapshot, error)
}

// LatestResult is either the most recent capture of a domain or, before the
// first cycle completes, a pending marker. TimeRemaining is whole seconds
// until the next capture is due.
type LatestResult struct {
	Domain        detection.Domain
	Pending       bool
	ImageURL      string
	Detections    []detection.Detection
	CapturedAt    time.Time
	TimeRemaining int
}

type Service struct {
	snapshots Snapshots
	timers    schedule.Timers
	catalog   catalog.Finder
	clock     clock.Clock
	logger    *slog.Logger
}

func NewService(snapshots Snapshots, timers schedule.Timers, finder catalog.Finder, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		snapshots: snapshots,
		timers:    timers,
		catalog:   finder,
		clock:     clk,
		logger:    logger.With("component", "query"),
	}
}

func (s *Service) timeRemaining(domain detection.Domain, now time.Time) int {
	timer, ok := s.timers[domain]
	if !ok {
		return 0
	}
	return int(timer.Remaining(now) / time.Second)
}

func (s *Service) Latest(domain detection.Domain) (LatestResult, error) {
	snap, err := s.snapshots.Snapshot(domain)
	if err != nil {
		return LatestResult{}, err
	}
	return s.result(snap, s.clock.Now()), nil
}

func (s *Service) result(snap aggregate.Snapshot, now time.Time) LatestResult {
	res := LatestResult{
		Domain:        snap.Domain,
		TimeRemaining: s.timeRemaining(snap.Domain, now),
	}
	if snap.Latest == nil {
		res.Pending = true
		return res
	}
	res.ImageURL = snap.Latest.ImageRef
	res.Detections = snap.Latest.Detections
	res.CapturedAt = snap.Latest.CapturedAt
	return res
}

// LatestAny returns the newest capture across every domain. When nothing has
// been captured yet it is pending with the soonest remaining time.
func (s *Service) LatestAny() LatestResult {
	now := s.clock.Now()

	var newest *LatestResult
	var pending *LatestResult
	for _, d := range s.snapshots.Domains() {
		snap, err := s.snapshots.Snapshot(d)
		if err != nil {
			continue
		}
		res := s.result(snap, now)
		if res.Pending {
			if pending == nil || res.TimeRemaining < pending.TimeRemaining {
				pending = &res
			}
			continue
		}
		if newest == nil || res.CapturedAt.After(newest.CapturedAt) {
			newest = &res
		}
	}

	switch {
	case newest != nil:
		return *newest
	case pending != nil:
		return *pending
	default:
		return LatestResult{Pending: true}
	}
}

func (s *Service) Count(domain detection.Domain, className string) (int, error) {
	snap, err := s.snapshots.Snapshot(domain)
	if err != nil {
		return 0, err
	}
	return snap.Counts[className], nil
}

func (s *Service) ProductLookup(ctx context.Context, className string) (*catalog.Product, error) {
	return s.catalog.FindByClass(ctx, className)
}

// ProductCount pairs the catalog product for a class with its running count.
func (s *Service) ProductCount(ctx context.Context, domain detection.Domain, className string) (*catalog.Product, int, error) {
	count, err := s.Count(domain, className)
	if err != nil {
		return nil, 0, err
	}
	product, err := s.ProductLookup(ctx, className)
	if err != nil {
		return nil, 0, err
	}
	return product, count, nil
}
