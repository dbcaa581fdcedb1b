package lsm

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// compactionJob is one minor compaction: flush an immutable memtable's
// entries to level 0, then remove the WAL segment that made them
// durable before the flush. An empty walSegment means no segment is
// removed after the flush.
type compactionJob struct {
	entries    []InternalKey
	walSegment string
}

// Compactor runs minor compactions on a background goroutine, one at a
// time, off a single job queue. Keeping to one worker matches the
// single-mutable/single-immutable memtable design: there is never more
// than one pending flush.
//
// Major compaction — merging level-0 files down into level 1 and
// beyond — is not implemented (see DESIGN.md); ErrLevel0Full is the
// signal that it's needed, and this worker just keeps retrying with
// backoff until headroom appears (freed manually, in this revision, by
// an operator or a future major compactor).
type Compactor struct {
	levelDir *LevelDir
	walDir   string
	pair     *MemtablePair
	logger   *zap.Logger

	jobs chan compactionJob
	done chan struct{}
	wg   sync.WaitGroup
}

// NewCompactor starts the background worker immediately.
func NewCompactor(levelDir *LevelDir, walDir string, pair *MemtablePair, logger *zap.Logger) *Compactor {
	c := &Compactor{
		levelDir: levelDir,
		walDir:   walDir,
		pair:     pair,
		logger:   logger,
		jobs:     make(chan compactionJob, 1),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Submit enqueues the current immutable memtable for flushing. Blocks
// if a flush is already queued — there should never be more than one,
// since MemtablePair.ForceSwap blocks until Drain clears the slot this
// job will eventually vacate.
func (c *Compactor) Submit(walSegment string) {
	var entries []InternalKey
	if imu := c.pair.Immutable(); imu != nil {
		entries = imu.sorted()
	}
	c.jobs <- compactionJob{entries: entries, walSegment: walSegment}
}

func (c *Compactor) loop() {
	defer c.wg.Done()
	for {
		select {
		case job, ok := <-c.jobs:
			if !ok {
				return
			}
			c.run(job)
		case <-c.done:
			return
		}
	}
}

const (
	compactRetryBase = 100 * time.Millisecond
	compactRetryMax  = 2 * time.Second
)

func (c *Compactor) run(job compactionJob) {
	if len(job.entries) == 0 {
		c.pair.Drain()
		return
	}

	delay := compactRetryBase
	for {
		w, isNew, err := c.levelDir.acquireLevel0Writer()
		if err == ErrLevel0Full {
			c.logger.Warn("level 0 full, retrying minor compaction",
				zap.Duration("backoff", delay))
			time.Sleep(delay)
			if delay < compactRetryMax {
				delay *= 2
			}
			continue
		}
		if err != nil {
			c.logger.Error("minor compaction failed to acquire level-0 writer", zap.Error(err))
			time.Sleep(delay)
			continue
		}

		flushErr := w.appendAll(job.entries)
		closeErr := w.close()
		if flushErr != nil || closeErr != nil {
			c.logger.Error("minor compaction flush failed",
				zap.Error(flushErr), zap.Error(closeErr), zap.Bool("newFile", isNew))
			time.Sleep(delay)
			continue
		}

		c.logger.Info("minor compaction flushed",
			zap.Int("entries", len(job.entries)),
			zap.String("walSegment", job.walSegment))
		break
	}

	if job.walSegment != "" {
		path := filepath.Join(c.walDir, job.walSegment)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Error("failed to remove consumed WAL segment",
				zap.String("segment", job.walSegment), zap.Error(err))
		}
	}

	c.pair.Drain()
}

// Close stops accepting new jobs and waits for any in-flight job to
// finish. The caller must ensure no more Submit calls happen first.
func (c *Compactor) Close() {
	close(c.jobs)
	c.wg.Wait()
}
