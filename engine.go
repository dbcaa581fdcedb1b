package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine is the top-level LSM key/value store. It owns a write-ahead
// log, a mutable/immutable memtable pair, and a level-0 file directory,
// and orchestrates recovery, writes, reads, and minor compaction
// across them.
type Engine struct {
	dir    string
	walDir string

	seq       *seqCounter
	wal       *WALWriter
	memtables *MemtablePair
	levels    *LevelDir
	compactor *Compactor
	logger    *zap.Logger

	// writeMu serializes every sequence that both rolls (or may roll)
	// the WAL and swaps the memtable pair: apply, checkpoint, and
	// Close's final flush. The WAL roll is the sole swap trigger (spec
	// §4.2/§4.6), so a segment's retirement and the memtable swap that
	// corresponds to it must happen as one atomic step — otherwise a
	// write landing between an unlocked roll and its matching swap
	// would end up recorded in the segment being retired but inserted
	// into the memtable generation that survives it, and be lost when
	// that segment is deleted.
	writeMu sync.Mutex

	checkpointInterval time.Duration
	checkpointStop     chan struct{}
	checkpointWG       sync.WaitGroup

	closeOnce sync.Once
}

// Options configures Open. Zero values fall back to sane defaults.
type Options struct {
	WALDir             string
	CheckpointInterval time.Duration
	Logger             *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.CheckpointInterval == 0 {
		o.CheckpointInterval = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Open opens or creates an engine rooted at dir, replaying any WAL
// segments left over from a previous run before accepting new writes.
//
// Recovery order matters: every pre-existing .xlog segment is listed
// before any new WAL writer is created, so a segment written by this
// process's own Open call can never be mistaken for recovery data.
// Each recovered segment is replayed into the memtable, flushed to
// level 0, and only then deleted — the same durability ordering a live
// minor compaction uses, so a second crash mid-recovery is safe to
// retry.
func Open(dir string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	walDir := opts.WALDir
	if walDir == "" {
		walDir = filepath.Join(dir, "wal")
	}
	levelDir := filepath.Join(dir, "levels")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("engine open: mkdir %s: %w", dir, err)
	}

	seq := &seqCounter{}

	levels, err := NewLevelDir(levelDir, seq)
	if err != nil {
		return nil, fmt.Errorf("engine open: level dir: %w", err)
	}
	seedSeqFromLevelFiles(seq, levels.Files())

	staleSegments, err := listWALSegments(walDir)
	if err != nil {
		return nil, fmt.Errorf("engine open: list wal segments: %w", err)
	}

	memtables := NewMemtablePair()
	compactor := NewCompactor(levels, walDir, memtables, opts.Logger)

	for _, seg := range staleSegments {
		if err := recoverSegment(walDir, seg, seq, memtables, compactor, opts.Logger); err != nil {
			return nil, fmt.Errorf("engine open: recover %s: %w", seg, err)
		}
	}

	wal, err := NewWALWriter(walDir, seq)
	if err != nil {
		return nil, fmt.Errorf("engine open: wal writer: %w", err)
	}

	e := &Engine{
		dir:                dir,
		walDir:             walDir,
		seq:                seq,
		wal:                wal,
		memtables:          memtables,
		levels:             levels,
		compactor:          compactor,
		logger:             opts.Logger,
		checkpointInterval: opts.CheckpointInterval,
		checkpointStop:     make(chan struct{}),
	}
	e.checkpointWG.Add(1)
	go e.checkpointLoop()

	return e, nil
}

func listWALSegments(walDir string) ([]string, error) {
	if err := os.MkdirAll(walDir, 0755); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(walDir)
	if err != nil {
		return nil, err
	}
	var segs []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".xlog" {
			segs = append(segs, e.Name())
		}
	}
	sort.Strings(segs)
	return segs, nil
}

func recoverSegment(walDir, segment string, seq *seqCounter, pair *MemtablePair, compactor *Compactor, logger *zap.Logger) error {
	r, err := OpenWALReader(filepath.Join(walDir, segment), logger)
	if err != nil {
		return err
	}
	entries, err := r.ReadAll()
	r.Close()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return os.Remove(filepath.Join(walDir, segment))
	}

	for _, k := range entries {
		seq.observe(k.Sequence)
		pair.Insert(k)
	}
	pair.ForceSwap()
	compactor.Submit(segment)
	return nil
}

func seedSeqFromLevelFiles(seq *seqCounter, files []string) {
	for _, name := range files {
		var n int64
		if _, err := fmt.Sscanf(name, "%020d.data", &n); err == nil {
			seq.observe(n)
		}
	}
}

// Set writes key=value, durable in the WAL as soon as this returns.
func (e *Engine) Set(key, value string) error {
	return e.apply(InternalKey{Key: key, Type: DataTypeSet, Value: value})
}

// Remove writes a tombstone for key. It always succeeds, even if key
// was never written — the server layer, not the engine, is responsible
// for KeyNotExist semantics (spec §7).
func (e *Engine) Remove(key string) error {
	return e.apply(InternalKey{Key: key, Type: DataTypeDelete})
}

// apply assigns k its sequence number, appends it to the WAL, and
// inserts it into the memtable pair. The WAL roll is the only signal
// that triggers a memtable swap (spec §4.2): Append rolls to a new
// segment *before* writing k whenever the current segment has reached
// its size cap, so k always lands in whichever segment it is also
// inserted alongside in-memory. When that happens, the retiring
// segment's on-disk contents are exactly the memtable generation being
// frozen into imu, so the compactor can safely delete that segment
// once its flush to level 0 is durable.
func (e *Engine) apply(k InternalKey) error {
	k.Sequence = e.seq.next()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	rolled, retiredSegment, err := e.wal.Append(k)
	if err != nil {
		return fmt.Errorf("engine: wal append: %w", err)
	}
	if rolled {
		e.memtables.ForceSwap()
	}
	e.memtables.Insert(k)
	if rolled {
		e.compactor.Submit(retiredSegment)
	}
	return nil
}

// Get returns the current value for key, checking the memtable pair
// before any level-0 file, newest file first.
func (e *Engine) Get(key string) (string, error) {
	if k, ok := e.memtables.Get(key); ok {
		if k.Type == DataTypeDelete {
			return "", ErrKeyNotFound
		}
		return k.Value, nil
	}

	readers, err := e.levels.Readers()
	if err != nil {
		return "", fmt.Errorf("engine: get: %w", err)
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	for _, r := range readers {
		if k, ok := r.Get(key); ok {
			if k.Type == DataTypeDelete {
				return "", ErrKeyNotFound
			}
			return k.Value, nil
		}
	}
	return "", ErrKeyNotFound
}

// Scan is reserved by spec for range iteration and is not implemented
// in this revision.
func (e *Engine) Scan(start, end string) error {
	return ErrNotImplemented
}

// checkpointLoop periodically forces a memtable swap and WAL roll even
// if the memtable isn't full, bounding how much unflushed data a crash
// can lose and how large a single WAL segment can grow in a low-
// traffic engine.
func (e *Engine) checkpointLoop() {
	defer e.checkpointWG.Done()
	ticker := time.NewTicker(e.checkpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.checkpoint()
		case <-e.checkpointStop:
			return
		}
	}
}

func (e *Engine) checkpoint() {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	segment := e.wal.SegmentName()
	if !e.memtables.ForceSwap() {
		return
	}
	if err := e.wal.ForceRoll(); err != nil {
		e.logger.Error("checkpoint: wal roll failed", zap.Error(err))
		return
	}
	e.compactor.Submit(segment)
}

// Close flushes any remaining writes, stops background workers, and
// releases file handles. Safe to call once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.checkpointStop)
		e.checkpointWG.Wait()

		e.writeMu.Lock()
		segment := e.wal.SegmentName()
		if e.memtables.ForceSwap() {
			e.compactor.Submit(segment)
		}
		e.writeMu.Unlock()

		e.compactor.Close()

		err = e.wal.Close()
	})
	return err
}

// Stats reports diagnostic counters: level-0 file count, current
// memtable size, and WAL directory segment count. Not itself a wire
// command in this revision; exposed for a future INFO-style operation.
type Stats struct {
	Level0Files int
	MemtableLen int
	WALSegments int
}

func (e *Engine) Stats() Stats {
	segs, _ := listWALSegments(e.walDir)
	return Stats{
		Level0Files: len(e.levels.Files()),
		MemtableLen: len(e.memtables.mut.entries),
		WALSegments: len(segs),
	}
}
