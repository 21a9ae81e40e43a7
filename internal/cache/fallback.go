package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// FallbackBackend serves from primary and switches to local whenever primary
// returns an error. It never returns an error itself.
type FallbackBackend struct {
	primary Backend
	local   Backend
}

// NewFallbackBackend decorates primary with a local fallback.
func NewFallbackBackend(primary, local Backend) *FallbackBackend {
	return &FallbackBackend{primary: primary, local: local}
}

func (f *FallbackBackend) Name() string {
	return f.primary.Name() + "+" + f.local.Name()
}

// Primary returns the decorated remote backend.
func (f *FallbackBackend) Primary() Backend { return f.primary }

// Local returns the fallback backend.
func (f *FallbackBackend) Local() Backend { return f.local }

func (f *FallbackBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := f.primary.Get(ctx, key)
	if err == nil {
		if ok {
			return data, true, nil
		}
		// Entries written while the primary was failing live only locally.
		return f.localGet(ctx, key)
	}
	f.logFallback("get", err)
	return f.localGet(ctx, key)
}

func (f *FallbackBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		f.logFallback("set", err)
		if err := f.local.Set(ctx, key, value, ttl); err != nil {
			logger.Log.Warn("Local cache set failed", zap.Error(err))
		}
	}
	return nil
}

func (f *FallbackBackend) Invalidate(ctx context.Context, key string) error {
	if err := f.primary.Invalidate(ctx, key); err != nil {
		f.logFallback("invalidate", err)
	}
	if err := f.local.Invalidate(ctx, key); err != nil {
		logger.Log.Warn("Local cache invalidate failed", zap.Error(err))
	}
	return nil
}

func (f *FallbackBackend) localGet(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := f.local.Get(ctx, key)
	if err != nil {
		logger.Log.Warn("Local cache get failed", zap.Error(err))
		return nil, false, nil
	}
	return data, ok, nil
}

func (f *FallbackBackend) logFallback(op string, err error) {
	logger.Log.Warn("Remote cache unavailable, using local backend",
		zap.String("operation", op),
		zap.String("backend", f.primary.Name()),
		zap.Error(err),
	)
}
