package cache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RefreshFunc re-fetches the view behind a key and returns the fresh value.
type RefreshFunc func(ctx context.Context, key Key) (interface{}, error)

// Poller re-primes cached entries on a fixed interval. This is a freshness
// policy, not a correctness guarantee: consumers must still tolerate state
// changing between reads.
type Poller struct {
	store    *Store
	interval time.Duration
	refresh  RefreshFunc
}

// NewPoller creates a poller over store. interval defaults to 10 seconds when
// non-positive.
func NewPoller(store *Store, interval time.Duration, refresh RefreshFunc) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{store: store, interval: interval, refresh: refresh}
}

// Run refreshes every cached entry once per interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshAll(ctx)
		}
	}
}

func (p *Poller) refreshAll(ctx context.Context) {
	for _, key := range p.store.Keys() {
		value, err := p.refresh(ctx, key)
		if err != nil {
			// A failed refresh keeps the stale entry; the next tick retries.
			log.WithError(err).WithField("key", string(key)).Warn("Cache refresh failed")
			continue
		}
		p.store.Put(key, value)
	}
}
