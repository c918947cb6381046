package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/shelfscan/internal/shared"
	"github.com/redis/go-redis/v9"
)

type countingFinder struct {
	calls   atomic.Int32
	product *Product
	err     error
}

func (f *countingFinder) FindByClass(_ context.Context, _ string) (*Product, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.product
	return &p, nil
}

func newTestCache(t *testing.T, next Finder) (*CachedStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedStore(next, redisClient, time.Minute, logger), mr
}

func sampleProduct() *Product {
	return &Product{
		ProductID:   3,
		ProductName: "Basmati Rice",
		BrandName:   "India Gate",
		MfgDate:     shared.NewDate(2024, time.March, 1),
		UseBefore:   shared.NewDate(2025, time.March, 1),
		MRP:         "120.00",
		NetWeight:   "1kg",
	}
}

func TestCachedStore_ReadThrough(t *testing.T) {
	finder := &countingFinder{product: sampleProduct()}
	cache, mr := newTestCache(t, finder)
	ctx := context.Background()

	first, err := cache.FindByClass(ctx, "rice")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := cache.FindByClass(ctx, "rice")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}

	if finder.calls.Load() != 1 {
		t.Errorf("expected backing store hit once, got %d", finder.calls.Load())
	}
	if second.ProductName != first.ProductName || second.MfgDate.String() != "2024-03-01" || second.MRP != "120.00" {
		t.Errorf("cached product differs: %+v", second)
	}
	if !mr.Exists("catalog:class:rice") {
		t.Error("expected cache key written")
	}
	if ttl := mr.TTL("catalog:class:rice"); ttl != time.Minute {
		t.Errorf("expected 1m ttl, got %v", ttl)
	}
}

func TestCachedStore_ExpiredEntryRefetches(t *testing.T) {
	finder := &countingFinder{product: sampleProduct()}
	cache, mr := newTestCache(t, finder)
	ctx := context.Background()

	_, _ = cache.FindByClass(ctx, "rice")
	mr.FastForward(2 * time.Minute)
	_, _ = cache.FindByClass(ctx, "rice")

	if finder.calls.Load() != 2 {
		t.Errorf("expected refetch after expiry, got %d calls", finder.calls.Load())
	}
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	finder := &countingFinder{err: shared.ErrNotFound}
	cache, mr := newTestCache(t, finder)

	_, err := cache.FindByClass(context.Background(), "ghost")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("catalog:class:ghost") {
		t.Error("misses must not be cached")
	}
}

func TestCachedStore_RedisDownFallsThrough(t *testing.T) {
	finder := &countingFinder{product: sampleProduct()}
	cache, mr := newTestCache(t, finder)
	mr.Close()

	product, err := cache.FindByClass(context.Background(), "rice")
	if err != nil {
		t.Fatalf("expected lookup to survive redis outage, got %v", err)
	}
	if product.ProductID != 3 {
		t.Errorf("unexpected product %+v", product)
	}
}

func TestCachedStore_CorruptEntryIgnored(t *testing.T) {
	finder := &countingFinder{product: sampleProduct()}
	cache, mr := newTestCache(t, finder)
	if err := mr.Set("catalog:class:rice", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	product, err := cache.FindByClass(context.Background(), "rice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if product.ProductName != "Basmati Rice" || finder.calls.Load() != 1 {
		t.Errorf("expected fallthrough to store, got %+v after %d calls", product, finder.calls.Load())
	}
}

func TestCachedStore_Invalidate(t *testing.T) {
	finder := &countingFinder{product: sampleProduct()}
	cache, mr := newTestCache(t, finder)
	ctx := context.Background()

	_, _ = cache.FindByClass(ctx, "rice")
	if err := cache.Invalidate(ctx, "rice", "other"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if mr.Exists("catalog:class:rice") {
		t.Error("expected entry removed")
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Errorf("empty invalidate should be a no-op, got %v", err)
	}
}
