package ravrf

import "encoding/binary"

// Magic is the literal 9-byte file signature every ravrf file begins with.
var Magic = [9]byte{'/', '~', 'r', 'a', 'v', 'r', 'f', '~', '/'}

// CurrentVersion is the header version this package writes.
const CurrentVersion = 1

// FileHeader is the decoded form of the fixed HeaderSize-byte file header:
// magic, version, the meta and free-list root RREFs, a checksum over the
// three preceding integer fields, and a zero-filled expansion area.
type FileHeader struct {
	Version  byte
	MetaRoot uint32
	FreeRoot uint32
}

func headerChecksum(version byte, metaRoot, freeRoot uint32) uint16 {
	cs, _ := Checksum16(int(version), int(metaRoot), int(freeRoot))
	return cs
}

// EncodeHeader renders a file header to its HeaderSize-byte on-disk form:
// magic, version, the two roots, a freshly computed checksum, and a
// zero-filled reserved expansion area.
func EncodeHeader(version byte, metaRoot, freeRoot uint32) []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:9], Magic[:])
	b[9] = version
	binary.BigEndian.PutUint32(b[10:14], metaRoot)
	binary.BigEndian.PutUint32(b[14:18], freeRoot)
	binary.BigEndian.PutUint16(b[18:20], headerChecksum(version, metaRoot, freeRoot))
	// b[20:40] stays zero: reserved expansion area.
	return b
}

// DecodeHeader parses a HeaderSize-byte file header. The magic must match
// exactly. A header whose meta_root, free_root, and checksum are all zero is
// accepted unconditionally (a freshly created file); otherwise the stored
// checksum must match the recomputed one.
func DecodeHeader(b []byte) (FileHeader, error) {
	if len(b) != HeaderSize {
		return FileHeader{}, NewError(BadHeader, "wrong header length", nil)
	}
	if string(b[0:9]) != string(Magic[:]) {
		return FileHeader{}, NewError(BadHeader, "magic mismatch", nil)
	}
	version := b[9]
	metaRoot := binary.BigEndian.Uint32(b[10:14])
	freeRoot := binary.BigEndian.Uint32(b[14:18])
	checksum := binary.BigEndian.Uint16(b[18:20])

	allZero := checksum == 0 && metaRoot == 0 && freeRoot == 0
	if !allZero {
		if want := headerChecksum(version, metaRoot, freeRoot); checksum != want {
			return FileHeader{}, NewError(BadChecksum, "file header", nil)
		}
	}
	return FileHeader{Version: version, MetaRoot: metaRoot, FreeRoot: freeRoot}, nil
}
