package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// level0RetryAttempts and level0RetryDelay bound how long a single
// acquireLevel0Writer call waits for level-0 headroom before returning
// ErrLevel0Full. Freeing headroom is major compaction's job (deferred,
// see DESIGN.md); the compactor keeps retrying after this error, with
// its own backoff, until headroom appears.
const (
	level0RetryAttempts = 3
	level0RetryDelay    = 50 * time.Millisecond
)

// LevelDir manages the on-disk files for level 0 of a single engine.
// Higher levels are named and sized per spec (levelFileMaxSize etc.)
// but never populated in this revision — see compactor.go.
type LevelDir struct {
	dir string
	seq *seqCounter

	files []string // level-0 file names, oldest first
}

// NewLevelDir opens dir (creating it if necessary) and lists any
// pre-existing level-0 files in file-name order, which is also
// creation order since names are zero-padded sequence numbers.
func NewLevelDir(dir string, seq *seqCounter) (*LevelDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("level dir: mkdir %s: %w", dir, err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("level dir: read %s: %w", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".data" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return &LevelDir{dir: dir, seq: seq, files: files}, nil
}

// Files returns the current level-0 file names, oldest first.
func (d *LevelDir) Files() []string {
	out := make([]string, len(d.files))
	copy(out, d.files)
	return out
}

func (d *LevelDir) path(name string) string {
	return filepath.Join(d.dir, name)
}

func level0FileName(seq int64) string {
	return fmt.Sprintf("%020d.data", seq)
}

// acquireLevel0Writer implements spec §4.5's policy: append to the
// newest file if it still has room; else open a new file if level 0
// is under its file-count cap; else retry briefly and, if level 0 is
// still full, return ErrLevel0Full.
func (d *LevelDir) acquireLevel0Writer() (*level0Writer, bool, error) {
	for attempt := 0; ; attempt++ {
		if w, isNew, ok, err := d.tryAcquire(); err != nil {
			return nil, false, err
		} else if ok {
			return w, isNew, nil
		}
		if attempt >= level0RetryAttempts {
			return nil, false, ErrLevel0Full
		}
		time.Sleep(level0RetryDelay)
	}
}

func (d *LevelDir) tryAcquire() (w *level0Writer, isNew bool, ok bool, err error) {
	if len(d.files) > 0 {
		last := d.files[len(d.files)-1]
		info, statErr := os.Stat(d.path(last))
		if statErr == nil && info.Size() < level0FileMaxSize {
			w, err := openLevel0Writer(d.path(last), last)
			if err != nil {
				return nil, false, false, err
			}
			return w, false, true, nil
		}
	}

	if len(d.files) >= level0FileMaxNum {
		return nil, false, false, nil
	}

	name := level0FileName(d.seq.next())
	w, err = openLevel0Writer(d.path(name), name)
	if err != nil {
		return nil, false, false, err
	}
	d.files = append(d.files, name)
	return w, true, true, nil
}

// Readers opens a Level0Reader for every current level-0 file, newest
// first, so Get can stop at the first hit.
func (d *LevelDir) Readers() ([]*Level0Reader, error) {
	readers := make([]*Level0Reader, 0, len(d.files))
	for i := len(d.files) - 1; i >= 0; i-- {
		r, err := OpenLevel0Reader(d.path(d.files[i]))
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, nil
}
