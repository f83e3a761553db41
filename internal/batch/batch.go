package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-enricher/internal/artifact"
	"media-enricher/internal/library"
	"media-enricher/internal/logging"
	"media-enricher/internal/metrics"
	"media-enricher/internal/throttle"
)

// Queue is the slice of the library client the scheduler reads batches
// from and bulk-claims against.
type Queue interface {
	FindScenes(ctx context.Context, page, perPage int) (library.ScenePage, error)
	AddTag(ctx context.Context, sceneIDs []string, tagID string) error
}

// SceneProcessor enriches a single scene.
type SceneProcessor interface {
	Process(ctx context.Context, sc library.Scene, index, total int) error
}

// Scheduler drains the library's eligible-scene queue in batches.
type Scheduler struct {
	Queue     Queue
	Processor SceneProcessor
	Limits    throttle.Limits

	ClaimTag    string
	BatchSize   int
	Workers     int
	Delay       time.Duration
	Once        bool
	DryRun      bool
	ScratchRoot string
}

type job struct {
	index int
	scene library.Scene
}

// Run processes batches until the queue is empty, the context is
// cancelled, or (in once mode) a single batch has finished. Scratch
// directories abandoned by earlier runs are swept before the first
// batch.
func (s *Scheduler) Run(ctx context.Context) error {
	artifact.CleanStale(s.ScratchRoot)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.Limits.Enabled() {
			if err := s.Limits.Check(); err != nil {
				logging.Info("Deferring batch: %v", err)
				if !s.sleep(ctx) {
					return ctx.Err()
				}
				continue
			}
		}

		n, err := s.runBatch(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			logging.Progress("No eligible scenes remain, done")
			return nil
		}
		if s.Once {
			return nil
		}
		if !s.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// sleep waits out the inter-batch delay. It reports false when the
// context was cancelled while waiting.
func (s *Scheduler) sleep(ctx context.Context) bool {
	if s.Delay <= 0 {
		return true
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// runBatch fetches one page of eligible scenes, claims them, and fans
// them out over the worker pool. It returns the number of scenes the
// batch contained.
func (s *Scheduler) runBatch(ctx context.Context) (int, error) {
	// Always page 1: finished scenes leave the selection filter, so the
	// front of the queue is always fresh work.
	page, err := s.Queue.FindScenes(ctx, 1, s.BatchSize)
	if err != nil {
		return 0, err
	}
	metrics.EligibleScenes.Set(float64(page.Count))
	if len(page.Scenes) == 0 {
		return 0, nil
	}

	runID := uuid.NewString()
	logging.Progress("Batch %s: processing %d of %d eligible scenes", runID, len(page.Scenes), page.Count)

	s.claimBatch(ctx, runID, page.Scenes)

	workers := s.Workers
	if workers > len(page.Scenes) {
		workers = len(page.Scenes)
	}
	if workers < 1 {
		workers = 1
	}

	var failures atomic.Int64
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := s.Processor.Process(ctx, j.scene, j.index, len(page.Scenes)); err != nil {
					failures.Add(1)
				}
			}
		}()
	}

feed:
	for i, sc := range page.Scenes {
		select {
		case jobs <- job{index: i + 1, scene: sc}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Workers on a straggling scene finish in the background.
		return len(page.Scenes), ctx.Err()
	}

	metrics.BatchesTotal.Inc()
	logging.Progress("Batch %s complete: %d scenes, %d failures", runID, len(page.Scenes), failures.Load())
	return len(page.Scenes), nil
}

// claimBatch bulk-tags every scene in the batch as in-progress. Claim
// failures are logged and the batch proceeds; the processor re-claims
// each scene individually anyway.
func (s *Scheduler) claimBatch(ctx context.Context, runID string, scenes []library.Scene) {
	ids := make([]string, len(scenes))
	for i, sc := range scenes {
		ids[i] = sc.ID
	}
	if s.DryRun {
		logging.DryRun("claim %d scenes", len(ids))
		return
	}
	if err := s.Queue.AddTag(ctx, ids, s.ClaimTag); err != nil {
		logging.Warn("Batch %s: bulk claim failed: %v", runID, err)
	}
}
