package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"upload-ai/domain/video"

	"golang.org/x/sync/singleflight"
)

// EngineFactory creates a conversion engine
type EngineFactory func(ctx context.Context) (video.Engine, error)

// EngineProvider owns the process-wide conversion engine. The engine is
// created on first use and reused afterwards; concurrent first calls share a
// single initialization. A failed initialization is retried on the next call.
type EngineProvider struct {
	factory EngineFactory
	group   singleflight.Group

	mu     sync.Mutex
	engine video.Engine
	closed bool
}

// NewEngineProvider creates a provider that builds its engine with factory
func NewEngineProvider(factory EngineFactory) *EngineProvider {
	return &EngineProvider{factory: factory}
}

// Get returns the engine, initializing it if needed
func (p *EngineProvider) Get(ctx context.Context) (video.Engine, error) {
	if engine, err := p.current(); engine != nil || err != nil {
		return engine, err
	}

	ch := p.group.DoChan("engine", func() (interface{}, error) {
		if engine, err := p.current(); engine != nil || err != nil {
			return engine, err
		}

		// Shared by every waiter, so one caller's cancellation must not abort it
		engine, err := p.factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			engine.Close()
			return nil, video.ErrEngineClosed
		}
		p.engine = engine
		return engine, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, video.ErrEngineInit) || errors.Is(res.Err, video.ErrEngineClosed) {
				return nil, res.Err
			}
			return nil, fmt.Errorf("%w: %v", video.ErrEngineInit, res.Err)
		}
		return res.Val.(video.Engine), nil
	}
}

// Initialized reports whether the engine has been created
func (p *EngineProvider) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine != nil
}

// Close tears the engine down; later calls to Get fail
func (p *EngineProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.engine == nil {
		return nil
	}
	err := p.engine.Close()
	p.engine = nil
	return err
}

func (p *EngineProvider) current() (video.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, video.ErrEngineClosed
	}
	return p.engine, nil
}
