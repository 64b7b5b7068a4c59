// Package fetch implements the concurrent, bounded, verifying
// download engine (C5).
//
// The per-task fast-path/verify/download/retry algorithm generalizes
// the teacher's DownloadFile (which only checks existence, never
// size or hash, and never retries) into the full §4.5.1 state
// machine. Concurrency is realized with golang.org/x/sync/semaphore
// and golang.org/x/sync/errgroup, the pattern the pack's own
// I/O-bound services (AltairaLabs-Omnia, google-oss-rebuild,
// nmxmxh-inos_v1 all carry golang.org/x/sync) use for bounded fan-out,
// replacing the mctui reference's hand-rolled worker-count channel
// pool with the same topology expressed through the shared library.
package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/planner"
	"github.com/voxelforge/launcher-core/internal/retry"
	"github.com/voxelforge/launcher-core/internal/store"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// Config configures the Fetch Engine (§6.7 subset relevant to C5).
type Config struct {
	ParallelFetches int // 1-32, default 8
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	UserAgent       string
	RetryPolicy     retry.Policy
	ObjectsBaseURL  string // e.g. "https://resources.download.minecraft.net"
}

// DefaultConfig matches §5/§6.7's defaults.
func DefaultConfig(objectsBaseURL string) Config {
	return Config{
		ParallelFetches: 8,
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     30 * time.Second,
		UserAgent:       "voxelforge-launcher-core/1.0",
		RetryPolicy:     retry.DefaultPolicy(),
		ObjectsBaseURL:  objectsBaseURL,
	}
}

// Failure records one task's terminal error.
type Failure struct {
	Task planner.Task
	Err  error
}

// Result is the outcome of one Run call (§4.5.2).
type Result struct {
	Failures []Failure
	Warnings []string // non-fatal issues, e.g. asset index unreachable
}

// Ok reports whether every task succeeded (ignoring warnings).
func (r Result) Ok() bool { return len(r.Failures) == 0 }

// Engine is the bounded-parallel, verifying downloader.
type Engine struct {
	cfg        Config
	httpClient *http.Client
	store      *store.Store
	log        *zap.Logger
}

// New builds an Engine writing into st.
func New(cfg Config, st *store.Store) *Engine {
	if cfg.ParallelFetches < 1 {
		cfg.ParallelFetches = 1
	}
	if cfg.ParallelFetches > 32 {
		cfg.ParallelFetches = 32
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Engine{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		store:      st,
		log:        telemetry.L(),
	}
}

// ProgressFunc receives coalesced (bytes_done, bytes_total) updates.
type ProgressFunc func(done, total int64)

// Run executes tasks per §4.5.2: the asset-index task (if present)
// runs synchronously first and is expanded into asset-object tasks;
// the remainder run across a bounded worker pool. It returns once
// every task has reached a terminal state or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, tasks []planner.Task, onProgress ProgressFunc) (Result, error) {
	var result Result

	assetIdx, rest := extractAssetIndexTask(tasks)

	var totalBytes int64
	for _, t := range rest {
		totalBytes += t.ExpectedSize
	}
	if assetIdx != nil {
		totalBytes += assetIdx.ExpectedSize
	}
	agg := NewAggregator(totalBytes, func(done, total int64) {
		if onProgress != nil {
			onProgress(done, total)
		}
	})

	if assetIdx != nil {
		outcome := e.runOne(ctx, *assetIdx, agg)
		if outcome != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"asset index unreachable, continuing without asset objects: %v", outcome))
		} else {
			objectTasks, err := e.expandAssetIndex(*assetIdx)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"asset index unparsable, continuing without asset objects: %v", err))
			} else {
				for _, t := range objectTasks {
					totalBytes += t.ExpectedSize
				}
				agg.SetTotal(totalBytes)
				rest = append(rest, objectTasks...)
			}
		}
	}

	sem := semaphore.NewWeighted(int64(e.cfg.ParallelFetches))
	var failMu failureCollector

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range rest {
		task := task
		if err := sem.Acquire(gctx, 1); err != nil {
			// context cancelled while waiting for a permit
			failMu.add(Failure{Task: task, Err: launchererr.New(launchererr.KindCancelled, task.DestRelativePath)})
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := e.runOne(gctx, task, agg); err != nil {
				failMu.add(Failure{Task: task, Err: err})
			}
			return nil // individual task failures do not abort the group; collected in failMu
		})
	}
	_ = g.Wait()

	agg.Finish()
	result.Failures = append(result.Failures, failMu.list()...)
	return result, nil
}

func extractAssetIndexTask(tasks []planner.Task) (*planner.Task, []planner.Task) {
	var idx *planner.Task
	rest := make([]planner.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Category == planner.CategoryAssetIndex && idx == nil {
			tCopy := t
			idx = &tCopy
			continue
		}
		rest = append(rest, t)
	}
	return idx, rest
}

// expandAssetIndex downloads (already verified by runOne) the asset
// index file from the store and turns its objects map into
// deduplicated asset-object tasks (§4.5.2 step 1, §3.2 invariant 4).
func (e *Engine) expandAssetIndex(idxTask planner.Task) ([]planner.Task, error) {
	path := e.absPath(idxTask.DestRelativePath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ai, err := manifest.DecodeAssetIndex("", data)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []planner.Task
	for _, obj := range ai.Objects {
		hash := obj.Hash
		if len(hash) < 2 {
			continue
		}
		dest := "assets/objects/" + hash[:2] + "/" + hash
		if seen[dest] {
			continue
		}
		seen[dest] = true
		out = append(out, planner.Task{
			SourceURL:        e.cfg.ObjectsBaseURL + "/" + hash[:2] + "/" + hash,
			DestRelativePath: dest,
			ExpectedSHA1:     hash,
			ExpectedSize:     obj.SizeBytes,
			Category:         planner.CategoryAssetObject,
		})
	}
	return out, nil
}

func (e *Engine) absPath(rel string) string {
	return e.store.Root() + string(os.PathSeparator) + rel
}

// runOne executes the §4.5.1 per-task state machine for a single
// FetchTask, reporting bytes to agg on the fast path and, during a
// download, as they are streamed (before the checksum is verified).
func (e *Engine) runOne(ctx context.Context, task planner.Task, agg *Aggregator) error {
	dest := e.absPath(task.DestRelativePath)

	if store.ExistsWith(dest, task.ExpectedSize, task.ExpectedSHA1) {
		agg.Add(task.ExpectedSize)
		return nil
	}

	if _, err := os.Stat(dest); err == nil {
		if err := store.DeleteMismatched(dest); err != nil {
			return launchererr.Wrap(launchererr.KindIO, task.DestRelativePath, err)
		}
	}

	checksumRetried := false
	err := e.cfg.RetryPolicy.Do(ctx, func() error {
		dlErr := e.downloadOnce(ctx, task, dest, agg)
		if dlErr == nil {
			return nil
		}
		if kind, ok := launchererr.KindOf(dlErr); ok && kind == launchererr.KindChecksumMismatch {
			if checksumRetried {
				return dlErr
			}
			checksumRetried = true
		}
		return dlErr
	})
	if err != nil {
		e.log.Warn("fetch task failed", zap.String("dest", task.DestRelativePath), zap.Error(err))
	}
	return err
}

// downloadOnce performs one attempt of the "Download" state: stream
// the body into a sibling temp file while updating a rolling SHA-1
// and the progress aggregator, then verify and atomically rename.
func (e *Engine) downloadOnce(ctx context.Context, task planner.Task, dest string, agg *Aggregator) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.SourceURL, nil)
	if err != nil {
		return launchererr.Wrap(launchererr.KindBadArgument, task.DestRelativePath, err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return launchererr.Wrap(launchererr.KindNetwork, task.DestRelativePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
		return launchererr.HTTPStatus(task.DestRelativePath, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return launchererr.HTTPStatus(task.DestRelativePath, resp.StatusCode)
	}

	hasher := sha1.New()
	var written int64
	var mismatch error

	writeErr := e.store.AtomicWriteVerified(dest, func(w io.Writer) error {
		buf := make([]byte, 32*1024)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				if _, err := w.Write(buf[:n]); err != nil {
					return err
				}
				hasher.Write(buf[:n])
				written += int64(n)
				agg.Add(int64(n))
			}
			if readErr == io.EOF {
				return nil
			}
			if readErr != nil {
				return readErr
			}
		}
	}, func() error {
		// Runs before fsync+rename, so a bad hash never becomes visible
		// at dest under its final name (§4.5.1 step 3 ordering).
		sum := hex.EncodeToString(hasher.Sum(nil))
		if task.ExpectedSHA1 != "" && sum != task.ExpectedSHA1 {
			mismatch = launchererr.New(launchererr.KindChecksumMismatch, task.DestRelativePath)
			return mismatch
		}
		if task.ExpectedSize > 0 && written != task.ExpectedSize {
			mismatch = launchererr.New(launchererr.KindChecksumMismatch, task.DestRelativePath)
			return mismatch
		}
		return nil
	})
	if mismatch != nil {
		return mismatch
	}
	if writeErr != nil {
		return launchererr.Wrap(launchererr.KindIO, task.DestRelativePath, writeErr)
	}
	return nil
}

// failureCollector is a mutex-guarded slice of terminal task errors;
// a plain mutex fits better here than any concurrent-container library
// for appending from a handful of goroutines.
type failureCollector struct {
	mu    sync.Mutex
	items []Failure
}

func (c *failureCollector) add(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, f)
}

func (c *failureCollector) list() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.items))
	copy(out, c.items)
	return out
}
