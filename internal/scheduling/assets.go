package scheduling

import (
	"context"
	"sync"
)

// AssetLoader loads something a dialog needs before it can open.
type AssetLoader interface {
	Load(ctx context.Context) error
}

// LoaderFunc adapts a function to [AssetLoader].
type LoaderFunc func(ctx context.Context) error

func (f LoaderFunc) Load(ctx context.Context) error { return f(ctx) }

// Assets loads its loaders in order once. A failed load is retried on the next call.
type Assets struct {
	mu      sync.Mutex
	loaders []AssetLoader
	loaded  bool
}

// NewAssets creates a cache over loaders. Nil loaders are skipped.
func NewAssets(loaders ...AssetLoader) *Assets {
	a := &Assets{}
	for _, l := range loaders {
		if l != nil {
			a.loaders = append(a.loaders, l)
		}
	}
	return a
}

// Load runs every loader unless a previous call succeeded.
func (a *Assets) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return nil
	}
	for _, l := range a.loaders {
		if err := l.Load(ctx); err != nil {
			return err
		}
	}
	a.loaded = true
	return nil
}

// Loaded reports whether the assets are cached.
func (a *Assets) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}
