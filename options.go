// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package readonly

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// notifierOptions holds configuration for a [Notifier] instance.
type notifierOptions struct {
	logger              *logiface.Logger[logiface.Event]
	redundantEntryRates map[time.Duration]int
	initiallyReadOnly   bool
}

// Option configures a [Notifier] instance. Options are applied by [New].
type Option interface {
	applyOption(*notifierOptions) error
}

// notifierOptionImpl implements [Option] via a closure.
type notifierOptionImpl struct {
	fn func(*notifierOptions) error
}

func (o *notifierOptionImpl) applyOption(opts *notifierOptions) error {
	return o.fn(opts)
}

// WithInitiallyReadOnly pre-seeds the notifier as already read-only, e.g.
// after recovering from a prior crash. A pre-seeded notifier never notifies
// listeners, nor persists, and its recorded cause is [ErrReadOnly].
func WithInitiallyReadOnly(readOnly bool) Option {
	return &notifierOptionImpl{fn: func(opts *notifierOptions) error {
		opts.initiallyReadOnly = readOnly
		return nil
	}}
}

// WithLogger configures structured logging. Logging is disabled by default.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &notifierOptionImpl{fn: func(opts *notifierOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithRedundantEntryLogRates configures the rate limits applied, per cause,
// to the debug log emitted when EnterReadOnlyMode is called after the mode
// was already decided. These calls are expected, e.g. from every thread
// that independently hits the same failure.
//
// Rates follow [catrate.NewLimiter], and must be non-empty, positive, and
// monotonic. Defaults to 1 per second, and 10 per minute. A nil map disables
// rate limiting.
func WithRedundantEntryLogRates(rates map[time.Duration]int) Option {
	return &notifierOptionImpl{fn: func(opts *notifierOptions) error {
		if rates != nil && len(rates) == 0 {
			return errors.New("readonly: redundant entry log rates must not be empty")
		}
		opts.redundantEntryRates = rates
		return nil
	}}
}

// resolveOptions applies the given options to a default [notifierOptions].
func resolveOptions(opts []Option) (*notifierOptions, error) {
	cfg := &notifierOptions{
		redundantEntryRates: map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
