package superblock

import (
	"fmt"
	"io/fs"

	"github.com/joeycumines/logiface"
)

// fileOptions holds configuration for a [File] instance.
type fileOptions struct {
	logger *logiface.Logger[logiface.Event]
	perm   fs.FileMode
}

// Option configures a [File] instance.
type Option interface {
	applyFile(*fileOptions) error
}

type fileOptionImpl struct {
	fn func(*fileOptions) error
}

func (o *fileOptionImpl) applyFile(opts *fileOptions) error {
	return o.fn(opts)
}

// WithFileMode sets the permissions of the record. Defaults to 0644.
func WithFileMode(perm fs.FileMode) Option {
	return &fileOptionImpl{fn: func(opts *fileOptions) error {
		if perm&^fs.ModePerm != 0 {
			return fmt.Errorf("superblock: invalid file mode: %v", perm)
		}
		opts.perm = perm
		return nil
	}}
}

// WithLogger configures structured logging of writes.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &fileOptionImpl{fn: func(opts *fileOptions) error {
		opts.logger = logger
		return nil
	}}
}

func resolveOptions(opts []Option) (*fileOptions, error) {
	cfg := &fileOptions{perm: 0644}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyFile(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
