// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package threads

import (
	"github.com/joeycumines/logiface"

	readonly "github.com/joeycumines/go-readonly"
)

// poolOptions holds configuration for a [Pool] instance.
type poolOptions struct {
	logger *logiface.Logger[logiface.Event]
	admin  readonly.ThreadID
}

// Option configures a [Pool] instance.
type Option interface {
	applyPool(*poolOptions) error
}

// poolOptionImpl implements [Option].
type poolOptionImpl struct {
	applyPoolFunc func(*poolOptions) error
}

func (o *poolOptionImpl) applyPool(opts *poolOptions) error {
	return o.applyPoolFunc(opts)
}

// WithAdminThread sets the administrative thread. Defaults to thread 0.
func WithAdminThread(thread readonly.ThreadID) Option {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.admin = thread
		return nil
	}}
}

// WithLogger configures structured logging of thread lifecycle events.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies Option instances to poolOptions.
func resolveOptions(opts []Option) (*poolOptions, error) {
	cfg := &poolOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
