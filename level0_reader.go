package lsm

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// level0IndexEntry is one decoded internal key of a level-0 file with
// its sort key; a reader keeps these sorted by sort key. The entries
// are built by scanning the whole file at open and again on each
// Refresh. Level-0 files are append-only record streams (level0.go);
// they carry no on-disk footer, so the index and bloom filter exist
// only in memory.
type level0IndexEntry struct {
	key      InternalKey
	sortKey  string
}

// Level0Reader provides read access to a single level-0 file: a bloom
// filter for fast negative lookups and a sorted (by sort key) index
// for point lookups and full scans during major compaction.
type Level0Reader struct {
	file  *os.File
	path  string
	index []level0IndexEntry
	bloom *BloomFilter
}

// OpenLevel0Reader opens path and scans it fully to build the index
// and bloom filter.
func OpenLevel0Reader(path string) (*Level0Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("level0 reader: open %s: %w", path, err)
	}
	r := &Level0Reader{file: f, path: path}
	if err := r.rebuild(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Refresh re-scans the file from scratch. Called after the writer
// appends more entries to the same file (spec §4.5's append-until-1MiB
// policy), since the reader and writer are separate handles.
func (r *Level0Reader) Refresh() error {
	return r.rebuild()
}

func (r *Level0Reader) rebuild() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("level0 reader: seek %s: %w", r.path, err)
	}

	var entries []InternalKey
	header := make([]byte, RecordHeaderSize)
	for {
		n, err := io.ReadFull(r.file, header)
		if err != nil {
			if n == 0 {
				break
			}
			break // torn tail, stop
		}
		h, err := DecodeHeader(header)
		if err != nil || h.Type != RecordFull {
			break
		}
		payload := make([]byte, h.PayloadLen)
		if _, err := io.ReadFull(r.file, payload); err != nil {
			break
		}
		if CRC32(payload) != h.CRC {
			break
		}
		k, err := DecodeKey(payload)
		if err != nil {
			break
		}
		entries = append(entries, k)
	}

	bloom := NewBloomFilter(len(entries)+1, 0.01)
	index := make([]level0IndexEntry, 0, len(entries))
	for _, k := range entries {
		bloom.Add([]byte(k.Key))
		index = append(index, level0IndexEntry{key: k, sortKey: k.sortKey()})
	}
	sort.Slice(index, func(i, j int) bool { return index[i].sortKey < index[j].sortKey })

	r.index = index
	r.bloom = bloom
	return nil
}

// Get returns the greatest-sequence internal key for the given user
// key in this file, using the same prefix-range technique as the
// memtable: bounded by "key-" and "key:". Shares the memtable's
// ambiguity for user keys that themselves contain '-' (see
// memTable.get's comment) since both derive from the same on-disk
// sort key scheme.
func (r *Level0Reader) Get(key string) (InternalKey, bool) {
	if !r.bloom.MayContain([]byte(key)) {
		return InternalKey{}, false
	}

	lower := key + "-"
	upper := key + ":"
	lo := sort.Search(len(r.index), func(i int) bool { return r.index[i].sortKey >= lower })
	hi := sort.Search(len(r.index), func(i int) bool { return r.index[i].sortKey >= upper })
	if lo >= hi {
		return InternalKey{}, false
	}

	best := r.index[lo].key
	for _, e := range r.index[lo+1 : hi] {
		if e.key.Sequence > best.Sequence {
			best = e.key
		}
	}
	return best, true
}

// ReadAll returns every internal key in the file in sort-key order.
// Used by the (currently unimplemented) major compactor to merge
// level-0 files into level 1.
func (r *Level0Reader) ReadAll() []InternalKey {
	out := make([]InternalKey, len(r.index))
	for i, e := range r.index {
		out[i] = e.key
	}
	return out
}

// Size reports the current on-disk size of the file backing this
// reader, or 0 if the file cannot be stat'ed.
func (r *Level0Reader) Size() int64 {
	info, err := r.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

func (r *Level0Reader) Close() error {
	return r.file.Close()
}
