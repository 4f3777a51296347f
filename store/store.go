package store

import (
	"context"
	"log/slog"

	"github.com/jstanley9/ravrf"
)

// Store is an open RAVRF file: the block allocator and free-list manager
// described by the on-disk format in the ravrf package. All operations
// funnel through a single Store value; there is no internal locking, so a
// Store must not be shared across goroutines without external
// synchronization (see §5 of the design: single-writer, no concurrency).
type Store struct {
	opts   Options
	handle FileHandle
	header ravrf.FileHeader
	open   bool
}

// Create makes a new RAVRF file at path (after suffix/dot-prefix
// validation) and writes a fresh header with meta_root=0, free_root=0. It
// fails with ravrf.AlreadyExists if the resolved path already exists.
func Create(ctx context.Context, path string, opts Options) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	exists, err := statExisting(resolved)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ravrf.NewError(ravrf.AlreadyExists, resolved, nil)
	}

	handle, err := openHandle(resolved, true, opts)
	if err != nil {
		return nil, ravrf.NewError(ravrf.IO, "create", err)
	}

	s := &Store{opts: opts, handle: handle, header: ravrf.FileHeader{Version: ravrf.CurrentVersion}, open: true}
	if err := s.writeHeader(ctx); err != nil {
		handle.Close()
		return nil, err
	}
	if err := handle.Flush(ctx); err != nil {
		handle.Close()
		return nil, err
	}
	slog.Debug("ravrf store created", "path", resolved)
	return s, nil
}

// Open opens an existing RAVRF file read/write, decodes and validates its
// header, and caches the current file size.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	exists, err := statExisting(resolved)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ravrf.NewError(ravrf.NotFound, resolved, nil)
	}

	handle, err := openHandle(resolved, false, opts)
	if err != nil {
		return nil, ravrf.NewError(ravrf.IO, "open", err)
	}

	buf := make([]byte, ravrf.HeaderSize)
	if _, err := handle.ReadAt(ctx, buf, 0); err != nil {
		handle.Close()
		if isShortRead(err) {
			return nil, ravrf.NewError(ravrf.ShortRead, "file header", err)
		}
		return nil, err
	}
	hdr, err := ravrf.DecodeHeader(buf)
	if err != nil {
		handle.Close()
		return nil, err
	}
	slog.Debug("ravrf store opened", "path", resolved, "meta_root", hdr.MetaRoot, "free_root", hdr.FreeRoot)
	return &Store{opts: opts, handle: handle, header: hdr, open: true}, nil
}

func openHandle(path string, create bool, opts Options) (FileHandle, error) {
	if opts.UseDirectIO {
		return openDirectFileHandle(path, create)
	}
	return openFileHandle(path, create)
}

// Close flushes and releases the underlying file handle. It is safe to call
// more than once.
func (s *Store) Close(ctx context.Context) error {
	if !s.open {
		return nil
	}
	flushErr := s.handle.Flush(ctx)
	closeErr := s.handle.Close()
	s.open = false
	s.handle = nil
	if flushErr != nil {
		slog.Error("ravrf store flush failed on close", "error", flushErr)
		return flushErr
	}
	if closeErr != nil {
		slog.Error("ravrf store close failed", "error", closeErr)
		return ravrf.NewError(ravrf.IO, "close", closeErr)
	}
	slog.Debug("ravrf store closed")
	return nil
}

// Add inserts data as a new DATA record and returns its RREF. padding is a
// requested trailing slack byte count: the resulting record_size is at
// least len(data)+padding, but may be larger if the allocator lands the
// record in a free block that is consumed whole.
func (s *Store) Add(ctx context.Context, data []byte, padding uint32) (uint32, error) {
	if !s.open {
		return 0, ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	if len(data) == 0 {
		return 0, ravrf.NewError(ravrf.Invalid, "data must not be empty", nil)
	}
	rref, recordSize, err := s.allocate(ctx, uint32(len(data))+padding)
	if err != nil {
		return 0, err
	}
	if err := s.buildRecord(ctx, rref, ravrf.Data, data, recordSize); err != nil {
		return 0, err
	}
	if err := s.handle.Flush(ctx); err != nil {
		return 0, err
	}
	return rref, nil
}

// ReadData returns the data_size-byte meaningful prefix of the DATA record
// at rref.
func (s *Store) ReadData(ctx context.Context, rref uint32) ([]byte, error) {
	if !s.open {
		return nil, ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	return s.readPayload(ctx, rref, ravrf.Data)
}

// Save rewrites the DATA record at rref with data. If rref is 0, Save is
// equivalent to Add. If the existing record_size is large enough to hold
// len(data), the record is rewritten in place at the same RREF; otherwise a
// new record is added, the old one deleted, and the new RREF returned.
func (s *Store) Save(ctx context.Context, rref uint32, data []byte, padding uint32) (uint32, error) {
	if !s.open {
		return 0, ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	if rref == 0 {
		return s.Add(ctx, data, padding)
	}
	if len(data) == 0 {
		return 0, ravrf.NewError(ravrf.Invalid, "data must not be empty", nil)
	}
	head, err := s.readHead(ctx, rref)
	if err != nil {
		return 0, err
	}
	if head.Kind != ravrf.Data {
		return 0, ravrf.NewError(ravrf.KindMismatch, "expected DATA", nil)
	}

	if head.RecordSize >= uint32(len(data)) {
		if err := s.writeInPlace(ctx, rref, ravrf.Data, head.RecordSize, data); err != nil {
			return 0, err
		}
		if err := s.handle.Flush(ctx); err != nil {
			return 0, err
		}
		return rref, nil
	}

	newRref, err := s.Add(ctx, data, padding)
	if err != nil {
		return 0, err
	}
	if err := s.Delete(ctx, rref); err != nil {
		return 0, err
	}
	return newRref, nil
}

// Delete removes the DATA or META record at rref, coalescing it with
// AVAILABLE neighbors and pushing the result onto the free list. If rref
// was the meta record, meta_root is cleared.
func (s *Store) Delete(ctx context.Context, rref uint32) error {
	if !s.open {
		return ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	if rref < ravrf.HeaderSize {
		return ravrf.NewError(ravrf.Invalid, "rref below header", nil)
	}
	head, err := s.readHead(ctx, rref)
	if err != nil {
		return err
	}
	if head.Kind != ravrf.Data && head.Kind != ravrf.Meta {
		return ravrf.NewError(ravrf.KindMismatch, "expected DATA or META", nil)
	}

	wasMeta := s.header.MetaRoot == rref
	if err := s.deleteAndCoalesce(ctx, rref); err != nil {
		return err
	}
	if wasMeta {
		s.header.MetaRoot = 0
		if err := s.writeHeader(ctx); err != nil {
			return err
		}
	}
	return s.handle.Flush(ctx)
}

// GetMeta returns the meta record's data, or an empty slice if no meta
// record exists.
func (s *Store) GetMeta(ctx context.Context) ([]byte, error) {
	if !s.open {
		return nil, ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	if s.header.MetaRoot == 0 {
		return []byte{}, nil
	}
	return s.readPayload(ctx, s.header.MetaRoot, ravrf.Meta)
}

// PutMeta creates or updates the meta record. If no meta record exists, one
// is allocated and its RREF recorded in the header. Otherwise, if the
// existing record is large enough to hold len(data)+padding, it is rewritten
// in place; else a new META record is allocated, the header is updated to
// point at it, and the old META record is deleted. Unlike Save, the padding
// is part of the in-place fit check: PutMeta promises the caller the
// requested trailing slack, not just room for data itself.
func (s *Store) PutMeta(ctx context.Context, data []byte, padding uint32) error {
	if !s.open {
		return ravrf.NewError(ravrf.NotOpen, "", nil)
	}
	if len(data) == 0 {
		return ravrf.NewError(ravrf.Invalid, "data must not be empty", nil)
	}

	if s.header.MetaRoot == 0 {
		rref, err := s.allocateAndBuild(ctx, ravrf.Meta, data, padding)
		if err != nil {
			return err
		}
		s.header.MetaRoot = rref
		if err := s.writeHeader(ctx); err != nil {
			return err
		}
		return s.handle.Flush(ctx)
	}

	head, err := s.readHead(ctx, s.header.MetaRoot)
	if err != nil {
		return err
	}
	if head.RecordSize >= uint32(len(data))+padding {
		if err := s.writeInPlace(ctx, s.header.MetaRoot, ravrf.Meta, head.RecordSize, data); err != nil {
			return err
		}
		return s.handle.Flush(ctx)
	}

	oldRref := s.header.MetaRoot
	newRref, err := s.allocateAndBuild(ctx, ravrf.Meta, data, padding)
	if err != nil {
		return err
	}
	s.header.MetaRoot = newRref
	if err := s.writeHeader(ctx); err != nil {
		return err
	}
	if err := s.deleteAndCoalesce(ctx, oldRref); err != nil {
		return err
	}
	return s.handle.Flush(ctx)
}
