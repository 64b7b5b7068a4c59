// Package engine implements the facade (C11): the single entry point
// external collaborators (the CLI, a future GUI) use to list, inspect,
// install, and launch versions.
//
// Grounded on the mctui reference's Launcher, which pipelines
// manifest/download/java-check/spawn steps behind a narrow
// list/get/launch surface with a status channel; generalized here to
// the spec's four-operation contract plus a per-id single-flight
// install guard, since the teacher itself exposes no such facade (its
// main.go calls downloader/launcher functions directly in sequence).
package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/voxelforge/launcher-core/internal/args"
	"github.com/voxelforge/launcher-core/internal/config"
	"github.com/voxelforge/launcher-core/internal/events"
	"github.com/voxelforge/launcher-core/internal/fetch"
	"github.com/voxelforge/launcher-core/internal/javart"
	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/natives"
	"github.com/voxelforge/launcher-core/internal/planner"
	"github.com/voxelforge/launcher-core/internal/process"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/store"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// Engine is the facade. One instance owns one local store and one
// manifest client; callers normally construct a single long-lived
// instance per process.
type Engine struct {
	cfg       config.Config
	client    *manifest.Client
	store     *store.Store
	bus       *events.Bus
	log       *zap.Logger
	env       rules.Env
	assembler *args.Assembler

	mu       sync.Mutex
	inFlight map[manifest.VersionID]*installOp
}

// installOp tracks a single in-progress install so concurrent callers
// for the same id observe the same result (§4.11 concurrency rule).
type installOp struct {
	done   chan struct{}
	result fetch.Result
	err    error
}

// New constructs a facade from cfg. env is normally rules.CurrentEnv
// for the running platform, overridable by tests.
func New(cfg config.Config, env rules.Env, bus *events.Bus) *Engine {
	return &Engine{
		cfg:       cfg,
		client:    manifest.NewClient(clientConfig(cfg)),
		store:     store.New(cfg.StoreRoot),
		bus:       bus,
		log:       telemetry.L(),
		env:       env,
		assembler: args.NewAssembler(),
		inFlight:  make(map[manifest.VersionID]*installOp),
	}
}

func clientConfig(cfg config.Config) manifest.ClientConfig {
	return manifest.ClientConfig{
		IndexURL:       cfg.IndexURL,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		UserAgent:      cfg.UserAgent,
		RetryPolicy:    cfg.RetryPolicy(),
	}
}

// ListVersions fetches and decodes the manifest index.
func (e *Engine) ListVersions(ctx context.Context) (manifest.Index, error) {
	return e.client.FetchIndex(ctx)
}

// Inspect returns id's detail, reading a cached copy from the store
// when present and falling back to a network fetch (caching the raw
// response bytes for next time) otherwise.
func (e *Engine) Inspect(ctx context.Context, id manifest.VersionID, detailURL, detailSHA1 string) (manifest.Detail, error) {
	detailPath := e.store.VersionDetailPath(id)
	if data, err := os.ReadFile(detailPath); err == nil {
		if d, decodeErr := manifest.DecodeDetail(data); decodeErr == nil {
			return d, nil
		}
	}

	raw, err := e.client.FetchDetailBytes(ctx, detailURL, detailSHA1)
	if err != nil {
		return manifest.Detail{}, err
	}
	d, err := manifest.DecodeDetail(raw)
	if err != nil {
		return manifest.Detail{}, err
	}

	if writeErr := e.store.AtomicWrite(detailPath, func(w io.Writer) error {
		_, werr := w.Write(raw)
		return werr
	}); writeErr != nil {
		e.log.Warn("failed caching version detail", zap.String("id", string(id)), zap.Error(writeErr))
	}
	return d, nil
}

// AssetsDir returns the store's assets root, for launch_params'
// assets_dir.
func (e *Engine) AssetsDir() string {
	return e.store.AssetsDir()
}

// ClasspathEntries returns detail's classpath, in source order: the
// client jar followed by every rule-allowed non-native library,
// exactly the files planner.Plan would have downloaded under
// CategoryClient/CategoryLibrary (§3.1 invariant 7 excludes natives
// archives from classpath, so CategoryNative tasks are skipped here).
func (e *Engine) ClasspathEntries(detail manifest.Detail) []string {
	tasks, err := planner.Plan(detail, e.env, e.store)
	if err != nil {
		return nil
	}
	entries := make([]string, 0, len(tasks))
	for _, t := range tasks {
		switch t.Category {
		case planner.CategoryClient, planner.CategoryLibrary:
			entries = append(entries, filepath.Join(e.store.Root(), t.DestRelativePath))
		}
	}
	return entries
}

// IsInstalled reports whether detail is fully installed: the client
// artifact, every rule-allowed library artifact, the asset index, and
// every asset object it references are all present and verified. This
// backs Launch's fail-fast gate, so a present-but-incomplete install
// (missing library, corrupt asset) must report false rather than just
// checking the client jar.
func (e *Engine) IsInstalled(detail manifest.Detail) bool {
	tasks, err := planner.Plan(detail, e.env, e.store)
	if err != nil {
		return false
	}
	for _, t := range tasks {
		path := filepath.Join(e.store.Root(), t.DestRelativePath)
		if !store.ExistsWith(path, t.ExpectedSize, t.ExpectedSHA1) {
			return false
		}
	}
	return e.assetObjectsInstalled(detail)
}

// assetObjectsInstalled checks every object the asset index references,
// mirroring the expansion the fetch engine performs at install time
// (internal/fetch.expandAssetIndex) but read back from the store
// instead of re-downloaded.
func (e *Engine) assetObjectsInstalled(detail manifest.Detail) bool {
	data, err := os.ReadFile(e.store.AssetIndexPath(detail.AssetsID))
	if err != nil {
		return false
	}
	ai, err := manifest.DecodeAssetIndex(detail.AssetsID, data)
	if err != nil {
		return false
	}
	for _, obj := range ai.Objects {
		if len(obj.Hash) < 2 {
			continue
		}
		if !store.ExistsWith(e.store.AssetObjectPath(obj.Hash), obj.SizeBytes, obj.Hash) {
			return false
		}
	}
	return true
}

// Install plans and runs every FetchTask for detail, deduplicating
// concurrent calls for the same id (§4.11 concurrency rule: at most
// one install(id) in progress; other ids may install in parallel).
func (e *Engine) Install(ctx context.Context, detail manifest.Detail, onProgress fetch.ProgressFunc) (fetch.Result, error) {
	id := detail.ID

	e.mu.Lock()
	if op, inProgress := e.inFlight[id]; inProgress {
		e.mu.Unlock()
		<-op.done
		return op.result, op.err
	}
	op := &installOp{done: make(chan struct{})}
	e.inFlight[id] = op
	e.mu.Unlock()

	result, err := e.runInstall(ctx, detail, onProgress)

	op.result, op.err = result, err
	close(op.done)

	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()

	return result, err
}

func (e *Engine) runInstall(ctx context.Context, detail manifest.Detail, onProgress fetch.ProgressFunc) (fetch.Result, error) {
	tasks, err := planner.Plan(detail, e.env, e.store)
	if err != nil {
		return fetch.Result{}, err
	}

	fetchCfg := fetch.Config{
		ParallelFetches: e.cfg.ParallelFetches,
		ConnectTimeout:  e.cfg.ConnectTimeout(),
		ReadTimeout:     e.cfg.ReadTimeout(),
		UserAgent:       e.cfg.UserAgent,
		RetryPolicy:     e.cfg.RetryPolicy(),
		ObjectsBaseURL:  e.cfg.ObjectsBaseURL,
	}
	eng := fetch.New(fetchCfg, e.store)

	result, err := eng.Run(ctx, tasks, func(done, total int64) {
		if e.bus != nil {
			e.bus.Emit(events.ProgressEvent(events.Progress{
				ID: string(detail.ID), Fraction: fetch.Fraction(done, total),
				BytesDone: done, BytesTotal: total,
			}))
		}
		if onProgress != nil {
			onProgress(done, total)
		}
	})
	if err != nil {
		return result, err
	}
	if e.cfg.StrictAssets && len(result.Warnings) > 0 {
		return result, launchererr.New(launchererr.KindBadManifest, string(detail.ID))
	}

	return result, nil
}

// Launch assembles arguments, locates a Java runtime, and spawns the
// game process. id must already be installed (§4.11: "launch(id)
// requires id to be installed and fails fast otherwise"). Native
// staging happens here, per launch, rather than at install time: natives
// are not part of installation state and may be cleaned between an
// install and a later launch (spec.md:68), so every launch re-stages
// them from the store's library artifacts.
func (e *Engine) Launch(ctx context.Context, detail manifest.Detail, p args.Params, runtimeHomeHint string) (*process.Handle, error) {
	if !e.IsInstalled(detail) {
		return nil, launchererr.New(launchererr.KindBadArgument, string(detail.ID)+" is not installed")
	}

	javaPath, err := javart.Locate(runtimeHomeHint)
	if err != nil {
		return nil, err
	}

	outDir := e.store.NativesDir(detail.ID)
	if err := natives.Stage(detail, e.store, e.env, outDir); err != nil {
		return nil, err
	}

	p.NativesDir = outDir
	assembled := e.assembler.Assemble(detail, e.env, p)
	argv := append([]string{javaPath}, assembled.CommandLine()...)

	return process.Spawn(ctx, string(detail.ID), argv, p.GameDir, nil, e.bus)
}

// Shutdown waits for every install in flight at the time of the call to
// finish, returning ctx.Err() if ctx is done first; it does not cancel
// those installs. An ambient graceful-shutdown concern the spec's
// Non-goals do not exclude.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ops := make([]*installOp, 0, len(e.inFlight))
	for _, op := range e.inFlight {
		ops = append(ops, op)
	}
	e.mu.Unlock()

	for _, op := range ops {
		select {
		case <-op.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
