package store

import (
	"context"

	"github.com/jstanley9/ravrf"
)

// This file holds Store's block- and free-list-level internals: the codec
// glue between ravrf's HeadDescriptor/EndDescriptor/FileHeader and the
// engine operations in store.go. Every block on disk, regardless of kind,
// occupies [rref, rref+ravrf.Overhead+recordSize): a HeadDescriptor, the
// recordSize-byte payload area, and an EndDescriptor.

func (s *Store) writeHeader(ctx context.Context) error {
	buf := ravrf.EncodeHeader(s.header.Version, s.header.MetaRoot, s.header.FreeRoot)
	_, err := s.handle.WriteAt(ctx, buf, 0)
	return err
}

func (s *Store) readHead(ctx context.Context, rref uint32) (ravrf.HeadDescriptor, error) {
	buf := make([]byte, ravrf.HeadSize)
	if _, err := s.handle.ReadAt(ctx, buf, int64(rref)); err != nil {
		if isShortRead(err) {
			return ravrf.HeadDescriptor{}, ravrf.NewError(ravrf.ShortRead, "head descriptor", err)
		}
		return ravrf.HeadDescriptor{}, err
	}
	return ravrf.DecodeHead(buf)
}

func (s *Store) writeHead(ctx context.Context, rref uint32, kind ravrf.Kind, recordSize, fieldA, fieldB uint32) error {
	buf := ravrf.EncodeHead(kind, recordSize, fieldA, fieldB)
	_, err := s.handle.WriteAt(ctx, buf, int64(rref))
	return err
}

func (s *Store) writeEnd(ctx context.Context, rref uint32, recordSize uint32, kind ravrf.Kind) error {
	buf := ravrf.EncodeEnd(recordSize, kind)
	off := int64(rref) + int64(ravrf.HeadSize) + int64(recordSize)
	_, err := s.handle.WriteAt(ctx, buf, off)
	return err
}

func (s *Store) readEnd(ctx context.Context, off int64) (ravrf.EndDescriptor, error) {
	buf := make([]byte, ravrf.EndSize)
	if _, err := s.handle.ReadAt(ctx, buf, off); err != nil {
		if isShortRead(err) {
			return ravrf.EndDescriptor{}, ravrf.NewError(ravrf.ShortRead, "end descriptor", err)
		}
		return ravrf.EndDescriptor{}, err
	}
	return ravrf.DecodeEnd(buf)
}

// blockSpan is the total disk footprint of a record_size-byte record.
func blockSpan(recordSize uint32) int64 {
	return int64(ravrf.Overhead) + int64(recordSize)
}

// buildRecord lays down a fresh DATA or META record at rref as one
// positioned write: a head descriptor whose fields carry data_size/
// open_size, the payload bytes padded out to recordSize with zeros, and an
// end descriptor. recordSize is the record's total capacity, which may
// exceed len(data).
func (s *Store) buildRecord(ctx context.Context, rref uint32, kind ravrf.Kind, data []byte, recordSize uint32) error {
	dataSize := uint32(len(data))
	buf := make([]byte, blockSpan(recordSize))
	copy(buf, ravrf.EncodeHead(kind, recordSize, dataSize, recordSize-dataSize))
	copy(buf[ravrf.HeadSize:], data)
	copy(buf[int64(ravrf.HeadSize)+int64(recordSize):], ravrf.EncodeEnd(recordSize, kind))
	_, err := s.handle.WriteAt(ctx, buf, int64(rref))
	return err
}

// writeInPlace rewrites the payload of an existing record without moving or
// resizing it. recordSize must already be large enough to hold data.
func (s *Store) writeInPlace(ctx context.Context, rref uint32, kind ravrf.Kind, recordSize uint32, data []byte) error {
	return s.buildRecord(ctx, rref, kind, data, recordSize)
}

// readPayload reads back the data_size-byte meaningful prefix of the record
// at rref, failing with KindMismatch if it isn't of the expected kind.
func (s *Store) readPayload(ctx context.Context, rref uint32, want ravrf.Kind) ([]byte, error) {
	head, err := s.readHead(ctx, rref)
	if err != nil {
		return nil, err
	}
	if head.Kind != want {
		return nil, ravrf.NewError(ravrf.KindMismatch, "", nil)
	}
	dataSize := head.DataSize()
	buf := make([]byte, dataSize)
	if dataSize == 0 {
		return buf, nil
	}
	if _, err := s.handle.ReadAt(ctx, buf, int64(rref)+int64(ravrf.HeadSize)); err != nil {
		if isShortRead(err) {
			return nil, ravrf.NewError(ravrf.ShortRead, "record payload", err)
		}
		return nil, err
	}
	return buf, nil
}

// allocateAndBuild allocates a record of at least len(data)+padding bytes
// and immediately writes data into it.
func (s *Store) allocateAndBuild(ctx context.Context, kind ravrf.Kind, data []byte, padding uint32) (uint32, error) {
	rref, recordSize, err := s.allocate(ctx, uint32(len(data))+padding)
	if err != nil {
		return 0, err
	}
	if err := s.buildRecord(ctx, rref, kind, data, recordSize); err != nil {
		return 0, err
	}
	return rref, nil
}

// allocate finds or creates space for a record capable of holding required
// bytes, unlinking it from the free list (splitting it if it is
// comfortably larger than required) and returns its rref and final
// recordSize. Callers are responsible for writing the record's contents.
// findAvailable performs all free-list surgery, including the EOF-reclaim
// and plain-append cases, so there is nothing left to reconcile here.
func (s *Store) allocate(ctx context.Context, required uint32) (uint32, uint32, error) {
	rref, recordSize, _, err := s.findAvailable(ctx, required)
	return rref, recordSize, err
}

// findAvailable walks the free list looking for the first block whose
// capacity is at least required. When the leftover after carving out
// required would itself be a useful free block, the found block is split:
// it shrinks in place, keeping its spot on the free list, and the new
// record takes its tail. Otherwise the whole block is consumed and
// unlinked. If nothing fits, it falls back to reclaiming a trailing free
// block at EOF (if any) or appending a brand-new block.
//
// The EOF-reclaim case performs its own unlink using the reclaimed block's
// real prev_free/next_free before returning, rather than relying on the
// generic consume-whole path with a synthetic zero-filled descriptor: a
// trailing free block's prev_free is frequently 0 in its own right (it may
// already be the free_root), and reusing the generic path with a fabricated
// all-zero descriptor would wrongly clear free_root in that case.
func (s *Store) findAvailable(ctx context.Context, required uint32) (rref uint32, recordSize uint32, isAppend bool, err error) {
	pos := s.header.FreeRoot
	for pos != 0 {
		head, err := s.readHead(ctx, pos)
		if err != nil {
			return 0, 0, false, err
		}
		ds := head.RecordSize
		prevFree, nextFree := head.PrevFree(), head.NextFree()

		if ds >= required {
			if ds > required+ravrf.Overhead {
				newRref, err := s.splitFree(ctx, pos, ds, required, prevFree, nextFree)
				if err != nil {
					return 0, 0, false, err
				}
				return newRref, required, false, nil
			}
			if err := s.unlinkFree(ctx, prevFree, nextFree); err != nil {
				return 0, 0, false, err
			}
			return pos, ds, false, nil
		}
		pos = nextFree
	}

	// No free-list block was big enough. Check whether the last block in
	// the file is itself a free block eligible for reclaim: its span must
	// end exactly at EOF.
	if rref, head, ok, err := s.trailingFree(ctx); err != nil {
		return 0, 0, false, err
	} else if ok {
		prevFree, nextFree := head.PrevFree(), head.NextFree()
		if err := s.unlinkFree(ctx, prevFree, nextFree); err != nil {
			return 0, 0, false, err
		}
		s.handle.SetSize(int64(rref))
		return rref, required, true, nil
	}

	return uint32(s.handle.Size()), required, true, nil
}

// trailingFree reports the free block occupying the tail of the file, if
// any. It walks the free list rather than trusting position alone, since a
// block's span reaching EOF is only meaningful if it is actually AVAILABLE.
func (s *Store) trailingFree(ctx context.Context) (uint32, ravrf.HeadDescriptor, bool, error) {
	size := s.handle.Size()
	pos := s.header.FreeRoot
	for pos != 0 {
		head, err := s.readHead(ctx, pos)
		if err != nil {
			return 0, ravrf.HeadDescriptor{}, false, err
		}
		if int64(pos)+blockSpan(head.RecordSize) == size {
			return pos, head, true, nil
		}
		pos = head.NextFree()
	}
	return 0, ravrf.HeadDescriptor{}, false, nil
}

// splitFree shrinks the free block at pos (capacity ds) down to the
// remainder left after carving required bytes plus framing off its tail,
// and returns the new record's RREF. The remainder keeps pos and its
// prev_free/next_free, so neither free_root nor any neighbor needs a
// pointer fix-up; only its head and its relocated end descriptor are
// rewritten.
func (s *Store) splitFree(ctx context.Context, pos, ds, required, prevFree, nextFree uint32) (uint32, error) {
	remainder := ds - required - ravrf.Overhead
	if err := s.putFreeBlock(ctx, pos, remainder, prevFree, nextFree); err != nil {
		return 0, err
	}
	return pos + ravrf.Overhead + remainder, nil
}

// unlinkFree removes a free-list node with the given neighbors from the
// list, patching free_root or the neighbors' links as needed.
func (s *Store) unlinkFree(ctx context.Context, prevFree, nextFree uint32) error {
	if prevFree == 0 {
		s.header.FreeRoot = nextFree
		if err := s.writeHeader(ctx); err != nil {
			return err
		}
	} else if err := s.updateFreeNext(ctx, prevFree, nextFree); err != nil {
		return err
	}
	if nextFree != 0 {
		if err := s.updateFreePrev(ctx, nextFree, prevFree); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) updateFreeNext(ctx context.Context, pos, newNext uint32) error {
	head, err := s.readHead(ctx, pos)
	if err != nil {
		return err
	}
	return s.writeHead(ctx, pos, ravrf.Available, head.RecordSize, head.PrevFree(), newNext)
}

func (s *Store) updateFreePrev(ctx context.Context, pos, newPrev uint32) error {
	head, err := s.readHead(ctx, pos)
	if err != nil {
		return err
	}
	return s.writeHead(ctx, pos, ravrf.Available, head.RecordSize, newPrev, head.NextFree())
}

// putFreeBlock writes a complete AVAILABLE block (head and end descriptor)
// at pos.
func (s *Store) putFreeBlock(ctx context.Context, pos, recordSize, prevFree, nextFree uint32) error {
	if err := s.writeHead(ctx, pos, ravrf.Available, recordSize, prevFree, nextFree); err != nil {
		return err
	}
	return s.writeEnd(ctx, pos, recordSize, ravrf.Available)
}

// pushFree prepends a freshly freed block to the free list.
func (s *Store) pushFree(ctx context.Context, pos, recordSize uint32) error {
	oldRoot := s.header.FreeRoot
	if err := s.putFreeBlock(ctx, pos, recordSize, 0, oldRoot); err != nil {
		return err
	}
	if oldRoot != 0 {
		if err := s.updateFreePrev(ctx, oldRoot, pos); err != nil {
			return err
		}
	}
	s.header.FreeRoot = pos
	return s.writeHeader(ctx)
}

// deleteAndCoalesce marks the record at rref AVAILABLE, merging it with an
// immediate right and/or left AVAILABLE neighbor (in that order), and
// pushes the result onto the free list unless a left-merge absorbed it
// into a block that is already there.
func (s *Store) deleteAndCoalesce(ctx context.Context, rref uint32) error {
	head, err := s.readHead(ctx, rref)
	if err != nil {
		return err
	}
	recordSize := head.RecordSize

	// Right-merge first: an AVAILABLE successor is unlinked and its span
	// absorbed, extending this block's tail into its former space.
	size := s.handle.Size()
	rightStart := int64(rref) + blockSpan(recordSize)
	if rightStart < size {
		rightHead, err := s.readHead(ctx, uint32(rightStart))
		if err != nil {
			return err
		}
		if rightHead.Kind == ravrf.Available {
			if err := s.unlinkFree(ctx, rightHead.PrevFree(), rightHead.NextFree()); err != nil {
				return err
			}
			recordSize = recordSize + uint32(ravrf.Overhead) + rightHead.RecordSize
		}
	}

	// Left-merge second: an AVAILABLE predecessor grows in place to absorb
	// this block. It is already threaded on the free list, so its
	// prev_free/next_free stay put and nothing else is relinked.
	if leftEndOff := int64(rref) - int64(ravrf.EndSize); leftEndOff >= int64(ravrf.HeaderSize) {
		leftEnd, err := s.readEnd(ctx, leftEndOff)
		if err != nil {
			return err
		}
		if leftEnd.Kind == ravrf.Available {
			leftStart := uint32(int64(rref) - blockSpan(leftEnd.RecordSize))
			leftHead, err := s.readHead(ctx, leftStart)
			if err != nil {
				return err
			}
			if leftHead.Kind == ravrf.Available {
				merged := leftHead.RecordSize + uint32(ravrf.Overhead) + recordSize
				return s.putFreeBlock(ctx, leftStart, merged, leftHead.PrevFree(), leftHead.NextFree())
			}
		}
	}

	return s.pushFree(ctx, rref, recordSize)
}
