package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eleven-am/shelfscan/internal/detection"
	"golang.org/x/sync/errgroup"
)

// Registry resolves the publisher feeding each domain.
type Registry struct {
	publishers []*Publisher
	byDomain   map[detection.Domain]*Publisher
	logger     *slog.Logger
}

func NewRegistry(logger *slog.Logger, publishers ...*Publisher) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		byDomain: make(map[detection.Domain]*Publisher),
		logger:   logger.With("component", "stream_registry"),
	}
	for _, p := range publishers {
		for _, d := range p.Domains() {
			if other, ok := r.byDomain[d]; ok {
				return nil, fmt.Errorf("domain %s is fed by both %s and %s", d, other.Name(), p.Name())
			}
			r.byDomain[d] = p
		}
		r.publishers = append(r.publishers, p)
	}
	return r, nil
}

func (r *Registry) ForDomain(domain detection.Domain) (*Publisher, bool) {
	p, ok := r.byDomain[domain]
	return p, ok
}

func (r *Registry) Publishers() []*Publisher {
	return append([]*Publisher(nil), r.publishers...)
}

type Status struct {
	Name        string   `json:"name"`
	State       string   `json:"state"`
	Subscribers int      `json:"subscribers"`
	Domains     []string `json:"domains"`
}

func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(r.publishers))
	for _, p := range r.publishers {
		domains := make([]string, 0, len(p.pipelines))
		for _, d := range p.Domains() {
			domains = append(domains, d.String())
		}
		out = append(out, Status{
			Name:        p.Name(),
			State:       p.State().String(),
			Subscribers: p.Subscribers(),
			Domains:     domains,
		})
	}
	return out
}

// StartAll acquires every camera concurrently. A camera that fails to open
// leaves the others running.
func (r *Registry) StartAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range r.publishers {
		g.Go(func() error {
			if err := p.Start(gctx); err != nil {
				r.logger.Warn("stream autostart failed", "stream", p.Name(), "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Registry) StopAll() {
	var g errgroup.Group
	for _, p := range r.publishers {
		g.Go(func() error {
			p.Stop()
			return nil
		})
	}
	_ = g.Wait()
}
