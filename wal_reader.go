package lsm

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// WALReader replays a single segment file, reassembling fragmented
// payloads and verifying each fragment's CRC independently.
//
// Because framing is length-prefixed, a corrupted fragment's payload
// length is still known once its header has been read, so the reader
// can skip exactly that record and resume at the next header (spec.md
// §4.3, §8 scenario 6): a CRC mismatch, a failed decode, or an orphaned
// Middle/Last fragment discards that one record and logs a corruption
// event, but does not stop replay. Only a genuinely torn write — a
// short header, a header whose declared length overruns the remaining
// block, or a short payload read — stops replay, since in those cases
// the next record boundary can no longer be trusted.
type WALReader struct {
	f      *os.File
	path   string
	logger *zap.Logger
}

// OpenWALReader opens path for replay. A missing file is not an
// error — it replays as empty, since a WAL segment can be deleted
// once its data is durable in a level-0 file. A nil logger discards
// corruption warnings.
func OpenWALReader(path string, logger *zap.Logger) (*WALReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &WALReader{path: path, logger: logger}, nil
		}
		return nil, fmt.Errorf("wal reader: open %s: %w", path, err)
	}
	return &WALReader{f: f, path: path, logger: logger}, nil
}

// Close closes the underlying file, if one was opened.
func (r *WALReader) Close() error {
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}

// ReadAll replays every internal key recorded in the segment, in
// write order, skipping any corrupted records it encounters.
func (r *WALReader) ReadAll() ([]InternalKey, error) {
	if r.f == nil {
		return nil, nil
	}

	var keys []InternalKey
	var carry []byte
	header := make([]byte, RecordHeaderSize)

	for {
		blockRemaining := blockSize
		for blockRemaining > 0 {
			if blockRemaining < RecordHeaderSize {
				if _, err := r.f.Seek(int64(blockRemaining), io.SeekCurrent); err != nil {
					return keys, nil
				}
				break
			}

			n, err := io.ReadFull(r.f, header)
			if err != nil {
				if n == 0 {
					return keys, nil
				}
				// short header at EOF: torn write, stop here.
				return keys, nil
			}
			blockRemaining -= RecordHeaderSize

			h, err := DecodeHeader(header)
			if err != nil {
				return keys, nil
			}
			if h.Type == RecordNone {
				if _, err := r.f.Seek(int64(blockRemaining), io.SeekCurrent); err != nil {
					return keys, nil
				}
				break
			}
			if h.PayloadLen > uint64(blockRemaining) {
				// the header's own length field is corrupt: the next
				// record boundary can't be trusted, so stop.
				r.logger.Warn("wal reader: record header declares a length past the block end, stopping replay",
					zap.String("path", r.path))
				return keys, nil
			}

			chunk := make([]byte, h.PayloadLen)
			if _, err := io.ReadFull(r.f, chunk); err != nil {
				// short payload at EOF: torn write, stop here.
				return keys, nil
			}
			blockRemaining -= int(h.PayloadLen)

			if CRC32(chunk) != h.CRC {
				r.logger.Warn("wal reader: crc mismatch, discarding record and continuing",
					zap.String("path", r.path),
					zap.Error(&CorruptionError{Expected: h.CRC, Actual: CRC32(chunk)}))
				carry = nil
				continue
			}

			switch h.Type {
			case RecordFull:
				carry = nil
				k, err := DecodeKey(chunk)
				if err != nil {
					r.logger.Warn("wal reader: corrupt record, discarding and continuing",
						zap.String("path", r.path), zap.Error(err))
					continue
				}
				keys = append(keys, k)
			case RecordFirst:
				if carry != nil {
					r.logger.Warn("wal reader: first fragment interrupted a pending continuation, discarding it",
						zap.String("path", r.path))
				}
				carry = append([]byte(nil), chunk...)
			case RecordMiddle:
				if carry == nil {
					r.logger.Warn("wal reader: orphaned middle fragment, discarding and continuing",
						zap.String("path", r.path))
					continue
				}
				carry = append(carry, chunk...)
			case RecordLast:
				if carry == nil {
					r.logger.Warn("wal reader: orphaned last fragment, discarding and continuing",
						zap.String("path", r.path))
					continue
				}
				full := carry
				carry = nil
				k, err := DecodeKey(append(full, chunk...))
				if err != nil {
					r.logger.Warn("wal reader: corrupt record, discarding and continuing",
						zap.String("path", r.path), zap.Error(err))
					continue
				}
				keys = append(keys, k)
			default:
				r.logger.Warn("wal reader: unknown record type, discarding and continuing",
					zap.String("path", r.path), zap.Uint8("type", uint8(h.Type)))
				carry = nil
				continue
			}
		}

		pos, err := r.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return keys, nil
		}
		info, err := r.f.Stat()
		if err != nil {
			return keys, nil
		}
		if pos >= info.Size() {
			return keys, nil
		}
	}
}
