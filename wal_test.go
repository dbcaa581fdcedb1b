package lsm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWALWriterReaderRoundtrip(t *testing.T) {
	dir := t.TempDir()
	seq := &seqCounter{}
	w, err := NewWALWriter(dir, seq)
	if err != nil {
		t.Fatal(err)
	}

	keys := []InternalKey{
		{Key: "a", Sequence: 1, Type: DataTypeSet, Value: "1"},
		{Key: "b", Sequence: 2, Type: DataTypeSet, Value: "2"},
		{Key: "a", Sequence: 3, Type: DataTypeDelete},
	}
	for _, k := range keys {
		if _, _, err := w.Append(k); err != nil {
			t.Fatal(err)
		}
	}
	segment := w.SegmentName()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenWALReader(filepath.Join(dir, segment), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(got))
	}
	for i, k := range keys {
		if got[i] != k {
			t.Fatalf("entry %d: got %+v, want %+v", i, got[i], k)
		}
	}
}

func TestWALWriterFragmentsLargePayload(t *testing.T) {
	dir := t.TempDir()
	seq := &seqCounter{}
	w, err := NewWALWriter(dir, seq)
	if err != nil {
		t.Fatal(err)
	}

	big := make([]byte, blockSize*2+100)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	k := InternalKey{Key: "big", Sequence: 1, Type: DataTypeSet, Value: string(big)}
	if _, _, err := w.Append(k); err != nil {
		t.Fatal(err)
	}
	segment := w.SegmentName()
	w.Close()

	r, err := OpenWALReader(filepath.Join(dir, segment), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != k.Value {
		t.Fatalf("fragmented payload did not reassemble correctly, got %d entries", len(got))
	}
}

func TestWALReaderStopsAtTornTail(t *testing.T) {
	dir := t.TempDir()
	seq := &seqCounter{}
	w, err := NewWALWriter(dir, seq)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := w.Append(InternalKey{Key: "good", Sequence: 1, Type: DataTypeSet, Value: "data"}); err != nil {
		t.Fatal(err)
	}
	segment := w.SegmentName()
	w.Close()

	path := filepath.Join(dir, segment)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0xFF, 0xFF, 0xFF})
	f.Close()

	r, err := OpenWALReader(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != "good" {
		t.Fatalf("expected only the valid entry, got %+v", got)
	}
}

func TestWALReaderMissingSegmentIsEmpty(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenWALReader(filepath.Join(dir, "does-not-exist.xlog"), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}
