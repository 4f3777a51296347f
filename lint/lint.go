// Package lint implements a sequential scanner over a RAVRF file: it walks
// every block from the header to EOF, regardless of free-list or meta_root
// reachability, and renders a human-readable report of what it finds.
// It is grounded on the original project's ISAMLint.py, adapted to the Go
// package's codec and I/O abstractions.
package lint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/jstanley9/ravrf"
)

// reader is the minimal positioned-read surface lint needs. *os.File
// satisfies it directly; it is kept narrow so tests can supply a fake.
type reader interface {
	io.ReaderAt
}

// Report walks path block by block and writes a text report to w. It opens
// the file read-only and does not use the store package's allocator at
// all: a malformed free list or a dangling meta_root should not stop the
// scan from covering the rest of the file.
func Report(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return ravrf.NewError(ravrf.IO, "open for lint", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return ravrf.NewError(ravrf.IO, "stat for lint", err)
	}
	return scan(f, fi.Size(), fi.Name(), w)
}

func scan(f reader, size int64, name string, w io.Writer) error {
	scanID := ravrf.NewScanID()
	fmt.Fprintf(w, "RAVRF Lint Report for %s\n", name)
	fmt.Fprintf(w, "Scan ID: %s\n", scanID)
	fmt.Fprintf(w, "File Size: %d bytes\n\n", size)

	hdrBuf := make([]byte, ravrf.HeaderSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		fmt.Fprintf(w, "ERROR: could not read file header: %v\n", err)
		return nil
	}
	hdr, err := ravrf.DecodeHeader(hdrBuf)
	if err != nil {
		fmt.Fprintf(w, "ERROR: invalid file header: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "Header: version=%d meta_root=%d free_root=%d\n\n", hdr.Version, hdr.MetaRoot, hdr.FreeRoot)

	location := int64(ravrf.HeaderSize)
	blockNumber := 0
	for location < size {
		blockNumber++

		headBuf := make([]byte, ravrf.HeadSize)
		n, err := f.ReadAt(headBuf, location)
		if n < ravrf.HeadSize || (err != nil && err != io.EOF) {
			fmt.Fprintf(w, "ERROR: incomplete head descriptor at location %d (got %d of %d bytes)\n", location, n, ravrf.HeadSize)
			break
		}
		if !ravrf.Kind(headBuf[0]).Valid() {
			fmt.Fprintf(w, "ERROR: invalid block kind %#x at location %d\n", headBuf[0], location)
			break
		}
		head, err := ravrf.DecodeHead(headBuf)
		if err != nil {
			fmt.Fprintf(w, "ERROR: bad head descriptor checksum at location %d: %v\n", location, err)
			break
		}

		fmt.Fprintf(w, "%d: %s\n", location, describeHead(head))
		location += int64(ravrf.HeadSize)
		fmt.Fprintf(w, "    data start location: %d\n", location)

		if head.Kind != ravrf.Available {
			dataBuf := make([]byte, head.DataSize())
			n, err := f.ReadAt(dataBuf, location)
			if n < len(dataBuf) || (err != nil && err != io.EOF) {
				fmt.Fprintf(w, "    ERROR: incomplete payload at %d: expected %d, got %d bytes\n", location, len(dataBuf), n)
			}
			writeDataPreview(w, dataBuf[:min(n, len(dataBuf))], int(head.DataSize()))
		}

		location += int64(head.RecordSize)
		endBuf := make([]byte, ravrf.EndSize)
		n, err = f.ReadAt(endBuf, location)
		if n < ravrf.EndSize || (err != nil && err != io.EOF) {
			fmt.Fprintf(w, "ERROR: incomplete end descriptor at location %d (got %d of %d bytes)\n", location, n, ravrf.EndSize)
			break
		}
		end, derr := ravrf.DecodeEnd(endBuf)
		if derr != nil {
			fmt.Fprintf(w, "ERROR: could not decode end descriptor at %d: %v\n", location, derr)
			break
		}
		if end.Kind != head.Kind {
			fmt.Fprintf(w, "ERROR: end descriptor kind %s does not match head descriptor kind %s at %d\n", end.Kind, head.Kind, location)
		}
		if end.RecordSize != head.RecordSize {
			fmt.Fprintf(w, "ERROR: end descriptor record_size %d does not match head descriptor record_size %d at %d\n", end.RecordSize, head.RecordSize, location)
		}

		fmt.Fprintf(w, "%d: kind=%s record_size=%d\n\n", location, end.Kind, end.RecordSize)
		location += int64(ravrf.EndSize)
	}

	fmt.Fprintf(w, "*/ end of file reached at location %d, %d blocks scanned\n", location, blockNumber)
	slog.Debug("ravrf lint scan complete", "scan_id", scanID.String(), "name", name, "blocks_scanned", blockNumber, "bytes_scanned", location)
	return nil
}

func describeHead(h ravrf.HeadDescriptor) string {
	switch h.Kind {
	case ravrf.Data:
		return fmt.Sprintf("DATA block record_size=%d data_size=%d open_size=%d", h.RecordSize, h.DataSize(), h.OpenSize())
	case ravrf.Meta:
		return fmt.Sprintf("META block record_size=%d data_size=%d open_size=%d", h.RecordSize, h.DataSize(), h.OpenSize())
	case ravrf.Available:
		return fmt.Sprintf("AVAILABLE block record_size=%d prev_free=%d next_free=%d", h.RecordSize, h.PrevFree(), h.NextFree())
	default:
		return fmt.Sprintf("UNKNOWN block kind=%#x record_size=%d", byte(h.Kind), h.RecordSize)
	}
}

// writeDataPreview prints the meaningful prefix of a payload, wrapped at
// 100 characters per line, with non-printable bytes replaced by '?'.
func writeDataPreview(w io.Writer, data []byte, dataSize int) {
	if dataSize > len(data) {
		dataSize = len(data)
	}
	s := sanitize(string(data[:dataSize]))
	for i := 0; i < len(s); i += 100 {
		end := i + 100
		if end > len(s) {
			end = len(s)
		}
		fmt.Fprintf(w, "    %s\n", s[i:end])
	}
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
