package lsm

import (
	"encoding/binary"
	"hash/crc32"
	"unicode/utf8"
)

// DataType distinguishes a live value from a tombstone. The numeric
// values match original_source's DataType enum (Delete = 0, Set = 1).
type DataType uint8

const (
	DataTypeDelete DataType = 0
	DataTypeSet    DataType = 1
)

// InternalKey is the durable unit of change: a user key tagged with a
// process-wide monotonic sequence number and a data type. See spec.md §3.
type InternalKey struct {
	Key      string
	Sequence int64
	Type     DataType
	Value    string
}

// sortKey is the literal string used to order internal keys within a
// memtable and across a flushed level-0 file: "{key}-{sequence}".
func (k InternalKey) sortKey() string {
	return k.Key + "-" + formatSequence(k.Sequence)
}

// EncodeKey serializes an internal key to its on-disk layout (little
// endian, contiguous):
//
//	internal_key_size u64 | key_bytes | sequence i64 | data_type u8 | value_size u64 | value_bytes
//
// internal_key_size = len(key_bytes) + 9 (the 8 sequence bytes + 1 type byte).
func EncodeKey(k InternalKey) []byte {
	keyBytes := []byte(k.Key)
	valueBytes := []byte(k.Value)
	internalKeySize := uint64(len(keyBytes) + 9)

	buf := make([]byte, 8+len(keyBytes)+8+1+8+len(valueBytes))
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], internalKeySize)
	off += 8
	copy(buf[off:], keyBytes)
	off += len(keyBytes)
	binary.LittleEndian.PutUint64(buf[off:], uint64(k.Sequence))
	off += 8
	buf[off] = byte(k.Type)
	off++
	binary.LittleEndian.PutUint64(buf[off:], uint64(len(valueBytes)))
	off += 8
	copy(buf[off:], valueBytes)

	return buf
}

// DecodeKey parses the layout written by EncodeKey. It fails with a
// *CorruptionError-free error when declared sizes run past the supplied
// buffer, or with an *EncodingError when key/value bytes are not valid
// UTF-8. The CRC that guards this payload lives in the enclosing record
// frame, not here — DecodeKey trusts the bytes it's handed.
func DecodeKey(data []byte) (InternalKey, error) {
	if len(data) < 8 {
		return InternalKey{}, errShortBuffer("internal_key_size")
	}
	internalKeySize := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	if internalKeySize < 9 || uint64(len(data)) < internalKeySize {
		return InternalKey{}, errShortBuffer("internal_key")
	}

	keyLen := internalKeySize - 9
	if uint64(len(data)) < keyLen+9 {
		return InternalKey{}, errShortBuffer("key")
	}
	keyBytes := data[:keyLen]
	if !utf8.Valid(keyBytes) {
		return InternalKey{}, &EncodingError{Field: "key"}
	}
	rest := data[keyLen:]

	sequence := int64(binary.LittleEndian.Uint64(rest[:8]))
	dataType := DataType(rest[8])
	rest = rest[9:]

	if len(rest) < 8 {
		return InternalKey{}, errShortBuffer("value_size")
	}
	valueSize := binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]
	if uint64(len(rest)) < valueSize {
		return InternalKey{}, errShortBuffer("value")
	}
	valueBytes := rest[:valueSize]
	if !utf8.Valid(valueBytes) {
		return InternalKey{}, &EncodingError{Field: "value"}
	}

	return InternalKey{
		Key:      string(keyBytes),
		Sequence: sequence,
		Type:     dataType,
		Value:    string(valueBytes),
	}, nil
}

// RecordType identifies how a physical record relates to its logical
// payload: a whole payload (Full), the first/middle/last fragment of a
// payload split across block boundaries, or a padding sentinel (None).
type RecordType uint8

const (
	RecordNone   RecordType = 0
	RecordFull   RecordType = 1
	RecordFirst  RecordType = 2
	RecordMiddle RecordType = 3
	RecordLast   RecordType = 4
)

// RecordHeaderSize is the fixed size, in bytes, of a record header:
// crc32 (4) + type (1) + payload_len (8).
const RecordHeaderSize = 13

// RecordHeader is the fixed 13-byte frame preceding every record
// payload, in WAL blocks and in level-0 files alike.
type RecordHeader struct {
	CRC        uint32
	Type       RecordType
	PayloadLen uint64
}

// EncodeHeader serializes a record header to its 13-byte wire form.
func EncodeHeader(h RecordHeader) []byte {
	buf := make([]byte, RecordHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.CRC)
	buf[4] = byte(h.Type)
	binary.LittleEndian.PutUint64(buf[5:13], h.PayloadLen)
	return buf
}

// DecodeHeader parses the 13-byte form written by EncodeHeader.
func DecodeHeader(b []byte) (RecordHeader, error) {
	if len(b) < RecordHeaderSize {
		return RecordHeader{}, errShortBuffer("record_header")
	}
	return RecordHeader{
		CRC:        binary.LittleEndian.Uint32(b[0:4]),
		Type:       RecordType(b[4]),
		PayloadLen: binary.LittleEndian.Uint64(b[5:13]),
	}, nil
}

// CRC32 computes the standard (IEEE polynomial) CRC-32 over payload
// bytes. It never covers the header itself.
func CRC32(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

func errShortBuffer(field string) error {
	return &EncodingError{Field: field + ": buffer shorter than declared size"}
}

// formatSequence avoids pulling in strconv at every call site that
// builds a sort key.
func formatSequence(seq int64) string {
	if seq == 0 {
		return "0"
	}
	neg := seq < 0
	if neg {
		seq = -seq
	}
	var buf [20]byte
	i := len(buf)
	for seq > 0 {
		i--
		buf[i] = byte('0' + seq%10)
		seq /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
