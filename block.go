package ravrf

import "encoding/binary"

// Kind identifies what a block currently holds. The numeric values are the
// ASCII letters written to disk, so a raw hex dump of a head descriptor's
// first byte is self-describing.
type Kind byte

const (
	// Available marks a free block threaded on the free list.
	Available Kind = 0x41 // 'A'
	// Data marks a live user record.
	Data Kind = 0x44 // 'D'
	// Meta marks the single distinguished meta record.
	Meta Kind = 0x4D // 'M'
)

func (k Kind) String() string {
	switch k {
	case Available:
		return "AVAILABLE"
	case Data:
		return "DATA"
	case Meta:
		return "META"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether k is one of Available, Data, or Meta.
func (k Kind) Valid() bool {
	return k == Available || k == Data || k == Meta
}

const (
	// HeadSize is the fixed on-disk size of a head descriptor.
	HeadSize = 15
	// EndSize is the fixed on-disk size of an end descriptor.
	EndSize = 5
	// HeaderSize is the fixed on-disk size of the file header.
	HeaderSize = 40
	// Overhead is the framing cost of a single record: HeadSize + EndSize.
	Overhead = HeadSize + EndSize
	// MinRecordSize is the minimum usable record_size; zero is a legal
	// (zero-length payload) record.
	MinRecordSize = 0
)

// HeadDescriptor is the 15-byte framing structure at the start of every
// record. For AVAILABLE blocks, FieldA/FieldB alias PrevFree/NextFree; for
// DATA/META blocks they alias DataSize/OpenSize.
type HeadDescriptor struct {
	Kind       Kind
	RecordSize uint32
	FieldA     uint32
	FieldB     uint32
}

// DataSize returns FieldA under the DATA/META interpretation.
func (h HeadDescriptor) DataSize() uint32 { return h.FieldA }

// OpenSize returns FieldB under the DATA/META interpretation.
func (h HeadDescriptor) OpenSize() uint32 { return h.FieldB }

// PrevFree returns FieldA under the AVAILABLE interpretation.
func (h HeadDescriptor) PrevFree() uint32 { return h.FieldA }

// NextFree returns FieldB under the AVAILABLE interpretation.
func (h HeadDescriptor) NextFree() uint32 { return h.FieldB }

func headChecksum(kind Kind, recordSize, fieldA, fieldB uint32) uint16 {
	cs, _ := Checksum16(int(kind), int(recordSize), int(fieldA), int(fieldB))
	return cs
}

// EncodeHead renders a head descriptor to its 15-byte on-disk form,
// including a freshly computed checksum.
func EncodeHead(kind Kind, recordSize, fieldA, fieldB uint32) []byte {
	b := make([]byte, HeadSize)
	b[0] = byte(kind)
	binary.BigEndian.PutUint32(b[1:5], recordSize)
	binary.BigEndian.PutUint32(b[5:9], fieldA)
	binary.BigEndian.PutUint32(b[9:13], fieldB)
	binary.BigEndian.PutUint16(b[13:15], headChecksum(kind, recordSize, fieldA, fieldB))
	return b
}

// DecodeHead parses a 15-byte head descriptor. A nonzero stored checksum
// must match the recomputed checksum; an all-zero checksum is accepted,
// which permits freshly constructed, not-yet-encoded descriptors to
// round-trip through storage helpers that decode before they encode.
func DecodeHead(b []byte) (HeadDescriptor, error) {
	if len(b) != HeadSize {
		return HeadDescriptor{}, NewError(ShortRead, "head descriptor", nil)
	}
	kind := Kind(b[0])
	recordSize := binary.BigEndian.Uint32(b[1:5])
	fieldA := binary.BigEndian.Uint32(b[5:9])
	fieldB := binary.BigEndian.Uint32(b[9:13])
	checksum := binary.BigEndian.Uint16(b[13:15])
	if checksum != 0 {
		if want := headChecksum(kind, recordSize, fieldA, fieldB); checksum != want {
			return HeadDescriptor{}, NewError(BadChecksum, "head descriptor", nil)
		}
	}
	return HeadDescriptor{Kind: kind, RecordSize: recordSize, FieldA: fieldA, FieldB: fieldB}, nil
}

// EndDescriptor is the 5-byte trailer that closes every record, mirroring
// the head descriptor's record size and kind for crosswise validation.
type EndDescriptor struct {
	RecordSize uint32
	Kind       Kind
}

// EncodeEnd renders an end descriptor to its 5-byte on-disk form.
func EncodeEnd(recordSize uint32, kind Kind) []byte {
	b := make([]byte, EndSize)
	binary.BigEndian.PutUint32(b[0:4], recordSize)
	b[4] = byte(kind)
	return b
}

// DecodeEnd parses a 5-byte end descriptor.
func DecodeEnd(b []byte) (EndDescriptor, error) {
	if len(b) != EndSize {
		return EndDescriptor{}, NewError(ShortRead, "end descriptor", nil)
	}
	recordSize := binary.BigEndian.Uint32(b[0:4])
	kind := Kind(b[4])
	return EndDescriptor{RecordSize: recordSize, Kind: kind}, nil
}
