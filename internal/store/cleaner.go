package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cleaner periodically removes expired sessions from a SessionStore.
type Cleaner struct {
	sessions SessionStore
	interval time.Duration
	onDelete func(count int)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleaner creates a cleaner that calls DeleteExpired every interval.
// The cleaner starts a background goroutine that runs until Stop() is called.
// onDelete, if non-nil, is called with the number of sessions removed on each pass.
func NewCleaner(ctx context.Context, sessions SessionStore, interval time.Duration, onDelete func(count int)) *Cleaner {
	cleanerCtx, cancel := context.WithCancel(ctx)

	c := &Cleaner{
		sessions: sessions,
		interval: interval,
		onDelete: onDelete,
		ctx:      cleanerCtx,
		cancel:   cancel,
	}

	c.wg.Add(1)
	go c.loop()

	return c
}

// Stop gracefully stops the background goroutine.
func (c *Cleaner) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *Cleaner) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			log.Info().Msg("Session cleaner stopped")
			return

		case <-ticker.C:
			c.clean(c.ctx)
		}
	}
}

func (c *Cleaner) clean(ctx context.Context) {
	count, err := c.sessions.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete expired sessions")
		return
	}

	if count > 0 {
		log.Debug().Int("count", count).Msg("Cleaned expired sessions")
	}

	if c.onDelete != nil {
		c.onDelete(count)
	}
}
