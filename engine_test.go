package lsm

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func testOptions() Options {
	return Options{Logger: zap.NewNop()}
}

func TestEngineSetGet(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.Set("hello", "world"); err != nil {
		t.Fatal(err)
	}
	val, err := e.Get("hello")
	if err != nil {
		t.Fatal(err)
	}
	if val != "world" {
		t.Fatalf("expected 'world', got %q", val)
	}
}

func TestEngineGetMissing(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := e.Get("nonexistent"); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestEngineRemove(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	e.Set("key1", "val1")
	if err := e.Remove("key1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Get("key1"); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound after remove, got %v", err)
	}
}

func TestEngineRemoveMissingKeyIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	// The engine always writes a tombstone; rejecting removes of
	// absent keys is the server layer's job, not the engine's.
	if err := e.Remove("never-written"); err != nil {
		t.Fatal(err)
	}
}

func TestEngineOverwrite(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	e.Set("key", "first")
	e.Set("key", "second")

	val, err := e.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	if val != "second" {
		t.Fatalf("expected 'second', got %q", val)
	}
}

func TestEngineScanReturnsNotImplemented(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.Scan("a", "z"); err != ErrNotImplemented {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestEnginePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	n := 100
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		val := fmt.Sprintf("val-%04d", i)
		if err := e.Set(key, val); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		expected := fmt.Sprintf("val-%04d", i)
		val, err := e2.Get(key)
		if err != nil {
			t.Fatalf("key %s not found after reopen: %v", key, err)
		}
		if val != expected {
			t.Fatalf("key %s: expected %q, got %q", key, expected, val)
		}
	}
}

func TestEngineCrashRecoveryFromWALOnly(t *testing.T) {
	dir := t.TempDir()

	// Write a WAL segment directly, bypassing the engine entirely, to
	// simulate a process that crashed before its memtable could be
	// flushed to level 0.
	walDir := dir + "/wal"
	seq := &seqCounter{}
	w, err := NewWALWriter(walDir, seq)
	if err != nil {
		t.Fatal(err)
	}
	w.Append(InternalKey{Key: "crash-key", Sequence: 1, Type: DataTypeSet, Value: "crash-val"})
	w.Append(InternalKey{Key: "another", Sequence: 2, Type: DataTypeSet, Value: "entry"})
	w.Close()

	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	val, err := e.Get("crash-key")
	if err != nil {
		t.Fatalf("crash-key not recovered: %v", err)
	}
	if val != "crash-val" {
		t.Fatalf("expected 'crash-val', got %q", val)
	}

	val, err = e.Get("another")
	if err != nil {
		t.Fatalf("another not recovered: %v", err)
	}
	if val != "entry" {
		t.Fatalf("expected 'entry', got %q", val)
	}
}

func TestEngineLargeWorkload(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large workload test")
	}

	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	n := 5000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%08d", i)
		val := fmt.Sprintf("val-%08d", i)
		if err := e.Set(key, val); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%08d", i)
		expected := fmt.Sprintf("val-%08d", i)
		val, err := e.Get(key)
		if err != nil {
			t.Fatalf("missing key %s: %v", key, err)
		}
		if val != expected {
			t.Fatalf("key %s: expected %q, got %q", key, expected, val)
		}
	}

	for i := 0; i < n; i += 2 {
		key := fmt.Sprintf("key-%08d", i)
		if err := e.Remove(key); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%08d", i)
		val, err := e.Get(key)
		if i%2 == 0 {
			if err != ErrKeyNotFound {
				t.Fatalf("key %s: expected removed, got val=%q err=%v", key, val, err)
			}
		} else {
			expected := fmt.Sprintf("val-%08d", i)
			if err != nil || val != expected {
				t.Fatalf("key %s: expected %q, got %q (err=%v)", key, expected, val, err)
			}
		}
	}
}

func TestEngineStats(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	e.Set("a", "1")
	stats := e.Stats()
	if stats.MemtableLen != 1 {
		t.Fatalf("expected memtable length 1, got %d", stats.MemtableLen)
	}
}
