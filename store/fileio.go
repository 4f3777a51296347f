// Package store implements the RAVRF block allocator and free-list manager:
// the engine that turns the ravrf package's codec into Create/Open/Add/
// ReadData/Save/Delete/GetMeta/PutMeta operations over a single file.
package store

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	retry "github.com/sethvargo/go-retry"

	"github.com/jstanley9/ravrf"
)

// FileHandle is the positioned-I/O transport the engine runs on. Every
// mutating engine operation ends in a WriteAt followed by a Flush, per the
// write-then-flush durability model.
type FileHandle interface {
	ReadAt(ctx context.Context, b []byte, off int64) (int, error)
	WriteAt(ctx context.Context, b []byte, off int64) (int, error)
	Flush(ctx context.Context) error
	Size() int64
	// SetSize overrides the handle's cached size without touching the
	// underlying file. The allocator uses this to "forget" a trailing
	// free block it is about to reclaim and overwrite (see
	// Store.findAvailable): the bytes stay on disk until the next write
	// lands on them, but the cache no longer reports them as part of the
	// file.
	SetSize(n int64)
	Close() error
}

const filePermission = 0o644

// osFileHandle is the default FileHandle: a buffered *os.File with
// Fibonacci-backoff retry around transient errors, adapted from the
// teacher's retry-wrapped file I/O layer.
type osFileHandle struct {
	f    *os.File
	size int64
}

func openFileHandle(path string, create bool) (*osFileHandle, error) {
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, filePermission)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &osFileHandle{f: f, size: fi.Size()}, nil
}

func (h *osFileHandle) ReadAt(ctx context.Context, b []byte, off int64) (int, error) {
	var n int
	err := retryIO(ctx, func(context.Context) error {
		var e error
		n, e = h.f.ReadAt(b, off)
		return e
	})
	return n, err
}

func (h *osFileHandle) WriteAt(ctx context.Context, b []byte, off int64) (int, error) {
	var n int
	err := retryIO(ctx, func(context.Context) error {
		var e error
		n, e = h.f.WriteAt(b, off)
		return e
	})
	if err == nil {
		if end := off + int64(n); end > h.size {
			h.size = end
		}
	}
	return n, err
}

func (h *osFileHandle) Flush(ctx context.Context) error {
	return retryIO(ctx, func(context.Context) error { return h.f.Sync() })
}

func (h *osFileHandle) Size() int64 { return h.size }

func (h *osFileHandle) SetSize(n int64) { h.size = n }

func (h *osFileHandle) Close() error {
	return h.f.Close()
}

// retryIO retries task with Fibonacci backoff up to 5 times after the
// first attempt for transient errors (per shouldRetry), wrapping a
// permanent failure into a ravrf IO error.
func retryIO(ctx context.Context, task func(ctx context.Context) error) error {
	b := retry.NewFibonacci(10 * time.Millisecond)
	var lastErr error
	err := retry.Do(ctx, retry.WithMaxRetries(5, b), func(ctx context.Context) error {
		if e := task(ctx); e != nil {
			if shouldRetry(e) {
				return retry.RetryableError(e)
			}
			lastErr = e
		}
		return nil
	})
	if err != nil {
		return ravrf.NewError(ravrf.IO, "positioned I/O", err)
	}
	if lastErr != nil {
		return ravrf.NewError(ravrf.IO, "positioned I/O", lastErr)
	}
	return nil
}

// isShortRead reports whether err (or the IO error retryIO wrapped around
// it) stems from hitting EOF before a positioned read filled its span. The
// engine's read helpers use it to surface such failures as ShortRead
// rather than a generic IO error.
func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// shouldRetry reports whether err looks like a transient condition worth a
// retry, as opposed to a permanent OS-level failure. EOF is permanent
// here: a positioned read past the end of the file will not succeed on a
// second attempt. Adapted from the teacher's retry classification helper.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EINVAL),
		errors.Is(err, syscall.EBADF):
		return false
	}
	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}
	return true
}
