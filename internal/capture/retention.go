package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultSweepInterval = time.Minute

// RetentionPolicy bounds the capture directory. Zero fields are unlimited.
type RetentionPolicy struct {
	MaxFiles int
	MaxAge   time.Duration
	MaxBytes int64
}

func (p RetentionPolicy) Enabled() bool {
	return p.MaxFiles > 0 || p.MaxAge > 0 || p.MaxBytes > 0
}

type Janitor struct {
	dir      string
	policy   RetentionPolicy
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	onPrune  func(int)
	pinned   func() []string
}

func NewJanitor(dir string, policy RetentionPolicy, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		dir:      dir,
		policy:   policy,
		interval: interval,
		clock:    clk,
		logger:   logger.With("component", "capture-janitor"),
	}
}

func (j *Janitor) OnPrune(fn func(removed int)) {
	j.onPrune = fn
}

// Pin registers a source of capture references that must survive every sweep,
// such as the image each domain currently reports as its latest capture.
// References may be URLs or paths; only the file name is compared.
func (j *Janitor) Pin(fn func() []string) {
	j.pinned = fn
}

func (j *Janitor) pinnedNames() map[string]struct{} {
	if j.pinned == nil {
		return nil
	}
	names := make(map[string]struct{})
	for _, ref := range j.pinned() {
		if ref == "" {
			continue
		}
		names[path.Base(filepath.ToSlash(ref))] = struct{}{}
	}
	return names
}

type captureFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep removes captures that fall outside the policy, newest files kept first.
// Pinned captures are never removed but still count against the budget.
func (j *Janitor) Sweep() (int, error) {
	if !j.policy.Enabled() {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(j.dir, filePattern))
	if err != nil {
		return 0, fmt.Errorf("list captures: %w", err)
	}

	files := make([]captureFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, captureFile{path: m, size: info.Size(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(a, b int) bool {
		return files[a].modTime.After(files[b].modTime)
	})

	pinned := j.pinnedNames()
	now := j.clock.Now()
	var (
		kept     int
		keptSize int64
		removed  int
		errs     []error
	)
	for _, f := range files {
		if _, ok := pinned[filepath.Base(f.path)]; ok {
			kept++
			keptSize += f.size
			continue
		}
		expired := j.policy.MaxAge > 0 && now.Sub(f.modTime) > j.policy.MaxAge
		overCount := j.policy.MaxFiles > 0 && kept >= j.policy.MaxFiles
		overSize := j.policy.MaxBytes > 0 && keptSize+f.size > j.policy.MaxBytes

		if !expired && !overCount && !overSize {
			kept++
			keptSize += f.size
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("pruned captures", "removed", removed, "kept", kept, "kept_bytes", keptSize)
		if j.onPrune != nil {
			j.onPrune(removed)
		}
	}
	return removed, errors.Join(errs...)
}

func (j *Janitor) Run(ctx context.Context) {
	if !j.policy.Enabled() {
		return
	}

	ticker := j.clock.Ticker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(); err != nil {
				j.logger.Warn("capture sweep failed", "error", err)
			}
		}
	}
}
