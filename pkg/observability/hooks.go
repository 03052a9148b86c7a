// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about discovery, resolution and the probe
// cache.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnDiscoverStart(ctx, len(finders))
//	// ... discover ...
//	observability.Pipeline().OnDiscoverComplete(ctx, candidates, nonConforming, duration, err)
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from a discovery and resolution run.
type PipelineHooks interface {
	// Discovery events
	OnDiscoverStart(ctx context.Context, finders int)
	OnDiscoverComplete(ctx context.Context, candidates, nonConforming int, duration time.Duration, err error)

	// Resolution events
	OnResolveStart(ctx context.Context, candidates int)
	OnResolveComplete(ctx context.Context, accepted, conflicts int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnDiscoverStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnDiscoverComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnResolveStart(context.Context, int)                                {}
func (NoopPipelineHooks) OnResolveComplete(context.Context, int, int, time.Duration)         {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks reports every event at debug level.
type LogHooks struct {
	Logger *log.Logger
}

func (h LogHooks) OnDiscoverStart(_ context.Context, finders int) {
	h.Logger.Debug("discovery started", "finders", finders)
}

func (h LogHooks) OnDiscoverComplete(_ context.Context, candidates, nonConforming int, d time.Duration, err error) {
	h.Logger.Debug("discovery finished", "candidates", candidates, "non_conforming", nonConforming, "duration", d, "err", err)
}

func (h LogHooks) OnResolveStart(_ context.Context, candidates int) {
	h.Logger.Debug("resolution started", "candidates", candidates)
}

func (h LogHooks) OnResolveComplete(_ context.Context, accepted, conflicts int, d time.Duration) {
	h.Logger.Debug("resolution finished", "accepted", accepted, "conflicts", conflicts, "duration", d)
}

func (h LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any run.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any run.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
