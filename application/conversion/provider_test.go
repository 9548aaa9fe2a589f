package conversion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"upload-ai/domain/video"
)

func TestEngineProvider_InitializesOnce(t *testing.T) {
	var calls int32
	engine := newMemEngine()
	provider := NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return engine, nil
	})

	if provider.Initialized() {
		t.Fatal("provider should start uninitialized")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := provider.Get(context.Background())
			if err != nil {
				t.Errorf("Get() unexpected error: %v", err)
				return
			}
			if got != engine {
				t.Error("Get() returned a different engine")
			}
		}()
	}
	wg.Wait()

	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("factory called %d times, want 1", n)
	}
	if !provider.Initialized() {
		t.Error("provider should report initialized")
	}
}

func TestEngineProvider_RetriesAfterFailure(t *testing.T) {
	attempts := 0
	provider := NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("ffmpeg missing")
		}
		return newMemEngine(), nil
	})

	_, err := provider.Get(context.Background())
	if !errors.Is(err, video.ErrEngineInit) {
		t.Fatalf("first Get() error = %v, want ErrEngineInit", err)
	}

	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("second Get() unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("factory called %d times, want 2", attempts)
	}
}

func TestEngineProvider_Close(t *testing.T) {
	engine := newMemEngine()
	provider := NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		return engine, nil
	})

	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if !engine.closed {
		t.Error("Close() should close the engine")
	}
	if _, err := provider.Get(context.Background()); !errors.Is(err, video.ErrEngineClosed) {
		t.Errorf("Get() after Close error = %v, want ErrEngineClosed", err)
	}
	if err := provider.Close(); err != nil {
		t.Errorf("second Close() should be a no-op, got %v", err)
	}
}

func TestEngineProvider_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	provider := NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		<-release
		return newMemEngine(), nil
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := provider.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
