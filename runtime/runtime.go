package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/bluele/gcache"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/hostcall/wasm-bridge/errors"
)

// Config holds configuration for Runtime creation.
type Config struct {
	// MemoryLimitPages caps linear memory per instance in 64KB pages.
	// 0 means the engine default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// ModuleCacheSize bounds the Load memoization cache (entries).
	// 0 disables memoization; compiled machine code is still shared
	// through the engine's compilation cache.
	ModuleCacheSize int

	// Logger receives debug-level bridge events. Defaults to a no-op.
	Logger *zap.Logger
}

// Runtime is the explicit factory for Modules. It owns engine-wide
// resources: the compilation cache shared by all per-module stores and
// the Load memoization cache.
type Runtime struct {
	log     *zap.Logger
	cfg     Config
	cache   wazero.CompilationCache
	modules gcache.Cache

	mu     sync.Mutex
	loaded []*Module
	closed bool
}

// New creates a Runtime with default configuration.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates a Runtime with custom configuration.
func NewWithConfig(cfg *Config) *Runtime {
	r := &Runtime{cache: wazero.NewCompilationCache()}
	if cfg != nil {
		r.cfg = *cfg
	}
	r.log = r.cfg.Logger
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.cfg.ModuleCacheSize > 0 {
		r.modules = gcache.New(r.cfg.ModuleCacheSize).ARC().Build()
	}
	return r
}

// Load compiles bytecode into a Module and extracts its import/export
// descriptors. Identical bytecode may return a previously loaded Module:
// modules are immutable after compilation, so sharing is safe.
func (r *Runtime) Load(ctx context.Context, bytecode []byte) (*Module, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.Closed(errors.PhaseLoad, "runtime")
	}
	r.mu.Unlock()

	var key string
	if r.modules != nil {
		sum := sha256.Sum256(bytecode)
		key = hex.EncodeToString(sum[:])
		if cached, err := r.modules.Get(key); err == nil {
			r.log.Debug("module cache hit", zap.String("key", key[:12]))
			return cached.(*Module), nil
		} else if err != gcache.KeyNotFoundError {
			return nil, errors.InvalidInput(errors.PhaseLoad, "module cache: "+err.Error())
		}
	}

	mod, err := r.compile(ctx, bytecode)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.loaded = append(r.loaded, mod)
	r.mu.Unlock()

	if r.modules != nil {
		// Eviction only drops the cache reference; the module stays
		// valid until explicitly closed.
		_ = r.modules.Set(key, mod)
	}

	r.log.Debug("module loaded",
		zap.Int("imports", len(mod.imports)),
		zap.Int("exports", len(mod.exports)),
		zap.Int("hook_namespaces", len(mod.hooks)))
	return mod, nil
}

// compile builds a fresh engine store for the module and compiles the
// bytecode under it. Nothing is left allocated on failure.
func (r *Runtime) compile(ctx context.Context, bytecode []byte) (*Module, error) {
	rcfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(r.cache)
	if r.cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(r.cfg.MemoryLimitPages)
	}

	store := wazero.NewRuntimeWithConfig(ctx, rcfg)
	compiled, err := store.CompileModule(ctx, bytecode)
	if err != nil {
		_ = store.Close(ctx)
		return nil, errors.Compile(err)
	}

	return newModule(r, store, compiled)
}

// Close releases the runtime and every Module loaded through it.
// Instances still running are torn down with their modules.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	loaded := r.loaded
	r.loaded = nil
	r.mu.Unlock()

	if r.modules != nil {
		r.modules.Purge()
	}

	var firstErr error
	for _, m := range loaded {
		if err := m.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.cache.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
