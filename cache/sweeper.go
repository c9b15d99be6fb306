package cache

import (
	"io"
	"log/slog"
	"sync"
	"time"
	"weak"
)

// sweeper periodically purges expired entries in the background, so keys
// that are never read again still get reclaimed.
//
// It reaches the store only through a weak pointer: a cache that is
// dropped without Close becomes collectable even while the sweeper
// goroutine is parked on its ticker, and the goroutine exits on the next
// tick once the store is gone.
type sweeper[K comparable, V any] struct {
	state    weak.Pointer[store[K, V]]
	interval time.Duration
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

func newSweeper[K comparable, V any](s *store[K, V], interval time.Duration, log *slog.Logger) *sweeper[K, V] {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sweeper[K, V]{
		state:    weak.Make(s),
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// run loops until stop is called or the store is collected.
// Start it as `go sw.run()`.
func (sw *sweeper[K, V]) run() {
	t := time.NewTicker(sw.interval)
	defer t.Stop()
	for {
		select {
		case <-sw.done:
			return
		case <-t.C:
			s := sw.state.Value()
			if s == nil {
				// The owning cache was garbage collected.
				return
			}
			sw.sweep(s)
		}
	}
}

// stop terminates the loop. Safe to call repeatedly and concurrently.
func (sw *sweeper[K, V]) stop() {
	sw.stopOnce.Do(func() { close(sw.done) })
}

// sweep runs one purge pass. A panic escaping user callbacks (OnEvict,
// Metrics) is logged and confined here; the cache keeps serving reads
// and writes no matter what a pass hits, and the next tick tries again.
func (sw *sweeper[K, V]) sweep(s *store[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			sw.log.Error("cache: sweep recovered from panic", slog.Any("panic", r))
		}
	}()
	if removed := s.sweep(); removed > 0 {
		sw.log.Debug("cache: sweep removed expired entries", slog.Int("removed", removed))
	}
}
