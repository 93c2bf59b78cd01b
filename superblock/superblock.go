// Package superblock implements a file backed [readonly.Persister], which
// records the engine's read-only flag, and the cause, in a small JSON record.
//
// Writes replace the file atomically, via [renameio.WriteFile], so a crash
// leaves either the previous record, or the new one. [Load] reads the record
// back on startup, to decide whether the engine must start read-only.
package superblock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/joeycumines/go-utilpkg/jsonenc"
	"github.com/joeycumines/logiface"

	readonly "github.com/joeycumines/go-readonly"
)

type (
	// Record is the persisted state.
	Record struct {
		// Cause is the error message of the cause recorded on entering
		// read-only mode, if any.
		Cause string `json:"cause,omitempty"`
		// ReadOnly is true once the engine has entered read-only mode.
		ReadOnly bool `json:"read_only"`
	}

	// File persists a Record at a path. It implements [readonly.Persister].
	//
	// Create instances with NewFile. The zero value is not usable.
	File struct {
		logger *logiface.Logger[logiface.Event]
		path   string
		mu     sync.Mutex
		perm   fs.FileMode
	}
)

var _ readonly.Persister = (*File)(nil)

// NewFile returns a File that writes to path. The parent directory must
// exist.
func NewFile(path string, opts ...Option) (*File, error) {
	if path == `` {
		return nil, errors.New("superblock: path must not be empty")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &File{
		logger: cfg.logger,
		path:   path,
		perm:   cfg.perm,
	}, nil
}

// Path returns the path of the record.
func (x *File) Path() string {
	return x.path
}

// Persist implements [readonly.Persister]. The write is performed on a
// separate goroutine, so the calling loop is not blocked on I/O.
func (x *File) Persist(readOnly bool, cause error, done *readonly.Completion) {
	r := Record{ReadOnly: readOnly}
	if cause != nil {
		r.Cause = cause.Error()
	}
	go func() {
		err := x.Save(r)
		if err := done.Complete(err); err != nil {
			x.logger.Err().
				Str(`path`, x.path).
				Err(err).
				Log(`failed to report super block write`)
		}
	}()
}

// Save durably writes the record, replacing any previous one.
func (x *File) Save(r Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := renameio.WriteFile(x.path, r.AppendJSON(nil), x.perm); err != nil {
		return fmt.Errorf("superblock: failed to write %s: %w", x.path, err)
	}
	x.logger.Debug().
		Str(`path`, x.path).
		Bool(`read_only`, r.ReadOnly).
		Log(`super block written`)
	return nil
}

// Load reads the record from path. A missing file is the zero Record, i.e.
// an engine that has never entered read-only mode.
func Load(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("superblock: failed to read %s: %w", path, err)
	}
	var r Record
	d := json.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err := d.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("superblock: invalid record in %s: %w", path, err)
	}
	return r, nil
}

// AppendJSON appends the record, encoded as a single line of JSON.
func (r Record) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"read_only":`...)
	if r.ReadOnly {
		dst = append(dst, `true`...)
	} else {
		dst = append(dst, `false`...)
	}
	if r.Cause != `` {
		dst = append(dst, `,"cause":`...)
		dst = jsonenc.AppendString(dst, r.Cause)
	}
	return append(dst, "}\n"...)
}
