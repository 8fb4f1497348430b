package service

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"taskboard/internal/cache"
	"taskboard/internal/storage"
)

// Options tune a Board. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Lookup caches user emails and category names for task listings. Nil disables it.
	Lookup cache.Lookup
	// RetryBase is the first backoff step for cascade delete retries.
	RetryBase time.Duration
	// RetryMax bounds the number of retries per cascade step.
	RetryMax uint64
	// Now is the clock used for default timestamps.
	Now func() time.Time
}

// Board implements the board operations on top of a storage.Store.
type Board struct {
	store     storage.Store
	lookup    cache.Lookup
	logger    *slog.Logger
	sf        singleflight.Group
	retryBase time.Duration
	retryMax  uint64
	now       func() time.Time
}

// New constructs a Board.
func New(store storage.Store, opts Options) *Board {
	b := &Board{
		store:     store,
		lookup:    opts.Lookup,
		logger:    opts.Logger,
		retryBase: opts.RetryBase,
		retryMax:  opts.RetryMax,
		now:       opts.Now,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.retryBase <= 0 {
		b.retryBase = 200 * time.Millisecond
	}
	if b.retryMax == 0 {
		b.retryMax = 3
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *Board) timestamp() string {
	return b.now().UTC().Format(timestampLayout)
}
