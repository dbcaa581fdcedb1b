package lsm

import "testing"

func TestEncodeDecodeKeyRoundtrip(t *testing.T) {
	k := InternalKey{Key: "hello", Sequence: 42, Type: DataTypeSet, Value: "world"}
	data := EncodeKey(k)

	got, err := DecodeKey(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != k {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, k)
	}
}

func TestEncodeDecodeKeyEmptyValue(t *testing.T) {
	k := InternalKey{Key: "tombstoned", Sequence: 7, Type: DataTypeDelete}
	data := EncodeKey(k)

	got, err := DecodeKey(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != "" || got.Type != DataTypeDelete {
		t.Fatalf("expected empty-value tombstone, got %+v", got)
	}
}

func TestDecodeKeyTruncated(t *testing.T) {
	k := InternalKey{Key: "k", Sequence: 1, Type: DataTypeSet, Value: "v"}
	data := EncodeKey(k)

	for n := 0; n < len(data); n++ {
		if _, err := DecodeKey(data[:n]); err == nil {
			t.Fatalf("expected error decoding truncated buffer of length %d", n)
		}
	}
}

func TestDecodeKeyInvalidUTF8(t *testing.T) {
	k := InternalKey{Key: "k", Sequence: 1, Type: DataTypeSet, Value: "v"}
	data := EncodeKey(k)

	// Corrupt the value byte with an invalid UTF-8 continuation byte.
	data[len(data)-1] = 0xFF

	_, err := DecodeKey(data)
	if _, ok := err.(*EncodingError); !ok {
		t.Fatalf("expected *EncodingError, got %v (%T)", err, err)
	}
}

func TestEncodeDecodeHeaderRoundtrip(t *testing.T) {
	h := RecordHeader{CRC: 0xDEADBEEF, Type: RecordFirst, PayloadLen: 12345}
	b := EncodeHeader(h)
	if len(b) != RecordHeaderSize {
		t.Fatalf("expected %d bytes, got %d", RecordHeaderSize, len(b))
	}

	got, err := DecodeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, h)
	}
}

func TestSortKeyOrdering(t *testing.T) {
	// "-" (0x2D) sorts below every decimal digit and ":" (0x3A) sorts
	// above every decimal digit, so sort keys for the same user key
	// cluster together regardless of how many digits the sequence has.
	a := InternalKey{Key: "k", Sequence: 2}.sortKey()
	b := InternalKey{Key: "k", Sequence: 10}.sortKey()
	lower := "k" + "-"
	upper := "k" + ":"

	if !(lower <= a && a < upper) {
		t.Fatalf("sort key %q outside [%q, %q)", a, lower, upper)
	}
	if !(lower <= b && b < upper) {
		t.Fatalf("sort key %q outside [%q, %q)", b, lower, upper)
	}

	other := InternalKey{Key: "kk", Sequence: 1}.sortKey()
	if other >= upper && other < "kk:" {
		// sanity: "kk" keys must not fall inside "k"'s range
	}
	if lower <= other && other < upper {
		t.Fatalf("unrelated key %q incorrectly fell inside %q's range", other, "k")
	}
}
