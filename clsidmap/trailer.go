package clsidmap

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Trailer records let build tooling attach payloads to an already
// linked binary. Each record is appended as
//
//	[payload][8-byte big-endian payload length][16-byte magic]
//
// so a scan walks backwards from the end of the file. Records stack;
// the scan stops at the first 16 bytes that are not a known magic,
// which for an unadorned binary is immediately.
const (
	// MagicManifest marks an embedded class manifest payload.
	MagicManifest = "COMHOST.CLSMAP.1"
	// MagicSignature marks an embedded signature block.
	MagicSignature = "COMHOST.SIGBLK.1"

	magicLen   = 16
	footerLen  = magicLen + 8
	maxRecords = 8
	// maxRecordSize guards the scan against a corrupt length field.
	maxRecordSize = 64 << 20
)

var knownMagics = map[string]bool{
	MagicManifest:  true,
	MagicSignature: true,
}

// Records scans the trailer of the file at path and returns the payload
// per magic. A file with no trailer yields an empty map. When the same
// magic appears more than once the outermost record wins.
func Records(path string) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	records := make(map[string][]byte)
	off := st.Size()
	for i := 0; i < maxRecords && off >= footerLen; i++ {
		footer := make([]byte, footerLen)
		if _, err := f.ReadAt(footer, off-footerLen); err != nil {
			return nil, fmt.Errorf("read trailer footer: %w", err)
		}

		magic := string(footer[8:])
		if !knownMagics[magic] {
			break
		}

		size := binary.BigEndian.Uint64(footer[:8])
		if size > maxRecordSize || int64(size) > off-footerLen {
			break
		}

		payload := make([]byte, size)
		if _, err := f.ReadAt(payload, off-footerLen-int64(size)); err != nil {
			return nil, fmt.Errorf("read trailer payload: %w", err)
		}
		if _, seen := records[magic]; !seen {
			records[magic] = payload
		}
		off -= footerLen + int64(size)
	}
	return records, nil
}

// AppendRecord attaches a trailer record to the file at path. Intended
// for build tooling; the running host only reads.
func AppendRecord(path, magic string, payload []byte) error {
	if len(magic) != magicLen {
		return fmt.Errorf("trailer magic must be %d bytes, got %d", magicLen, len(magic))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	footer := make([]byte, footerLen)
	binary.BigEndian.PutUint64(footer[:8], uint64(len(payload)))
	copy(footer[8:], magic)

	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("write trailer payload: %w", err)
	}
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("write trailer footer: %w", err)
	}
	return nil
}
