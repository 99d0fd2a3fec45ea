// Package sweeper drives expiration. It ticks independently of client
// activity and coordinates with the stores only through their own locks.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/vaporchat/vapor/internal/blob"
	"github.com/vaporchat/vapor/internal/store"
)

type Sweeper struct {
	interval time.Duration
	messages *store.Store
	blobs    *blob.Store
}

func New(interval time.Duration, messages *store.Store, blobs *blob.Store) *Sweeper {
	return &Sweeper{
		interval: interval,
		messages: messages,
		blobs:    blobs,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().UTC())
		}
	}
}

func (s *Sweeper) sweep(now time.Time) {
	messages := s.messages.Sweep(now)
	blobs := s.blobs.Sweep(now)
	if messages > 0 || blobs > 0 {
		slog.Info("sweep complete",
			"messages_removed", messages,
			"blobs_removed", blobs)
	}
}
