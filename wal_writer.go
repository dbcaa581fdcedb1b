package lsm

import (
	"fmt"
	"os"
	"path/filepath"
)

// blockSize is the fixed alignment unit for WAL records: 32 KiB. A
// payload that doesn't fit in the block currently being written is
// split into First/Middle/Last fragments across subsequent blocks.
const blockSize = 32 * 1024

// walFileMaxSize is the point at which the writer rolls to a new
// segment file rather than keep appending to the current one.
const walFileMaxSize = 4 * 1024 * 1024

// WALWriter appends internal keys to a sequence of segment files under
// dir, each named "{seq}.xlog". Every Append call fsyncs before
// returning, so any internal key the caller believes committed is on
// disk.
type WALWriter struct {
	dir  string
	seq  *seqCounter
	file *os.File
	name string

	blockOff int // bytes written into the current 32 KiB block
}

// NewWALWriter opens (creating if necessary) a fresh segment file in
// dir named from the next value of seq.
func NewWALWriter(dir string, seq *seqCounter) (*WALWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("wal writer: mkdir %s: %w", dir, err)
	}
	w := &WALWriter{dir: dir, seq: seq}
	if err := w.openNewSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WALWriter) openNewSegment() error {
	name := walSegmentName(w.seq.next())
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("wal writer: open %s: %w", name, err)
	}
	w.file = f
	w.name = name
	w.blockOff = 0
	return nil
}

func walSegmentName(seq int64) string {
	return fmt.Sprintf("%020d.xlog", seq)
}

// SegmentName reports the file name of the segment currently being
// written, so the compactor can identify it once it has been
// fully consumed into a level-0 file.
func (w *WALWriter) SegmentName() string {
	return w.name
}

// Append encodes k and writes it to the log, fragmenting the payload
// across block boundaries per spec: a record header (13 bytes) never
// starts within the final 13 bytes of a block — that tail is zero-
// padded and recorded as a None-type stub so the reader can recognize
// it. Returns once the write has been fsynced.
//
// If the current segment has already reached walFileMaxSize, Append
// rolls to a fresh segment *before* writing k, so k lands entirely in
// the new segment and the retired segment's on-disk contents are
// exactly what the caller had already accumulated. rolled reports
// whether that happened, and retiredSegment names the segment that
// was just closed out — the caller (the engine) uses this as the sole
// signal to swap its memtable pair and schedule a minor compaction, so
// a WAL segment and a memtable generation always correspond 1:1.
func (w *WALWriter) Append(k InternalKey) (rolled bool, retiredSegment string, err error) {
	if info, statErr := w.file.Stat(); statErr == nil && info.Size() >= walFileMaxSize {
		retiredSegment = w.name
		if err := w.roll(); err != nil {
			return false, "", err
		}
		rolled = true
	}

	payload := EncodeKey(k)
	if err := w.writeFragments(payload); err != nil {
		return false, "", err
	}
	if err := w.file.Sync(); err != nil {
		return false, "", fmt.Errorf("wal writer: sync %s: %w", w.name, err)
	}
	return rolled, retiredSegment, nil
}

func (w *WALWriter) writeFragments(payload []byte) error {
	first := true
	for {
		remaining := blockSize - w.blockOff
		if remaining <= RecordHeaderSize {
			if err := w.padBlock(remaining); err != nil {
				return err
			}
			remaining = blockSize
		}

		space := remaining - RecordHeaderSize
		n := len(payload)
		var typ RecordType
		done := n <= space
		if done {
			if first {
				typ = RecordFull
			} else {
				typ = RecordLast
			}
		} else {
			n = space
			if first {
				typ = RecordFirst
			} else {
				typ = RecordMiddle
			}
		}

		chunk := payload[:n]
		payload = payload[n:]
		if err := w.writeRecord(typ, chunk); err != nil {
			return err
		}
		first = false
		if done {
			return nil
		}
	}
}

func (w *WALWriter) writeRecord(typ RecordType, chunk []byte) error {
	header := EncodeHeader(RecordHeader{
		CRC:        CRC32(chunk),
		Type:       typ,
		PayloadLen: uint64(len(chunk)),
	})
	if _, err := w.file.Write(header); err != nil {
		return fmt.Errorf("wal writer: write header: %w", err)
	}
	if _, err := w.file.Write(chunk); err != nil {
		return fmt.Errorf("wal writer: write payload: %w", err)
	}
	w.blockOff += RecordHeaderSize + len(chunk)
	return nil
}

// padBlock fills the unusable tail of the current block with a None
// record header (type byte only matters; the rest is zero) so the
// reader stops scanning the block at the right offset, then advances
// to the next block boundary.
func (w *WALWriter) padBlock(remaining int) error {
	if remaining > 0 {
		pad := make([]byte, remaining)
		if remaining > 4 {
			pad[4] = byte(RecordNone)
		}
		if _, err := w.file.Write(pad); err != nil {
			return fmt.Errorf("wal writer: pad block: %w", err)
		}
	}
	w.blockOff = 0
	return nil
}

// roll closes the current segment and opens a new one. Used both for
// the automatic 4 MiB rotation and for ForceRoll checkpoints.
func (w *WALWriter) roll() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal writer: close %s: %w", w.name, err)
	}
	return w.openNewSegment()
}

// ForceRoll rotates to a fresh segment regardless of size. The
// checkpoint loop calls this alongside a memtable swap so every
// segment maps to exactly one minor compaction job.
func (w *WALWriter) ForceRoll() error {
	return w.roll()
}

// Close closes the current segment file.
func (w *WALWriter) Close() error {
	return w.file.Close()
}
