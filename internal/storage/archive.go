package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ArchiveWriter appends raw captured frames to a zstd-compressed,
// length-prefixed log file -- the core's equivalent of a kismetdb
// packet log, without committing to kismetdb's sqlite schema (that
// format is named out of scope in the core's logging contract). Each
// record is an 8-byte big-endian unix-nano timestamp, a 4-byte
// big-endian length, then the raw frame bytes.
type ArchiveWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
}

// OpenArchive creates or appends to the archive at path.
func OpenArchive(path string) (*ArchiveWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: opening archive %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: creating zstd writer: %w", err)
	}
	return &ArchiveWriter{f: f, enc: enc}, nil
}

// WriteFrame appends one timestamped frame.
func (a *ArchiveWriter) WriteFrame(ts time.Time, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var header [12]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	if _, err := a.enc.Write(header[:]); err != nil {
		return fmt.Errorf("storage: writing archive header: %w", err)
	}
	if _, err := a.enc.Write(data); err != nil {
		return fmt.Errorf("storage: writing archive payload: %w", err)
	}
	return nil
}

// Flush forces buffered compressed output to disk without closing the
// stream, useful for periodic durability without losing the dictionary
// window a fresh Close/reopen would reset.
func (a *ArchiveWriter) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enc.Flush()
}

// Close flushes and closes the archive.
func (a *ArchiveWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enc.Close(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}
