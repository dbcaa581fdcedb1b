package lsm

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Get when the key has no live value —
// either it was never written or its most recent internal key is a
// tombstone.
var ErrKeyNotFound = errors.New("lsm: key not found")

// ErrNotImplemented is returned by Scan. Range iteration is reserved in
// the engine's operation contract but not implemented in this revision.
var ErrNotImplemented = errors.New("lsm: scan not implemented")

// ErrLevel0Full is returned by the level-0 directory when it already
// holds the maximum number of files and the last one has no room left.
// Reducing level-0 file count is the job of major compaction, which is
// an explicitly deferred obligation (see DESIGN.md) — callers retry.
var ErrLevel0Full = errors.New("lsm: level-0 is at capacity, waiting for major compaction")

// CorruptionError reports a CRC-32 mismatch found while decoding a
// record or while verifying a WAL fragment.
type CorruptionError struct {
	Expected uint32
	Actual   uint32
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("lsm: corruption: expected crc %08x, got %08x", e.Expected, e.Actual)
}

// EncodingError reports bytes that failed UTF-8 validation where a
// well-formed key or value was required.
type EncodingError struct {
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("lsm: invalid UTF-8 in %s", e.Field)
}
