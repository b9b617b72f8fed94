package voicecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetMissThenHit(t *testing.T) {
	c := New(10)

	if _, ok := c.Get("Hello", "Kore"); ok {
		t.Fatal("expected miss on empty cache")
	}

	audio, err := c.GetOrSynthesize(context.Background(), "Hello", "Kore", func(ctx context.Context) ([]byte, error) {
		return []byte("wav-bytes"), nil
	})
	if err != nil {
		t.Fatalf("GetOrSynthesize() error = %v", err)
	}
	if string(audio) != "wav-bytes" {
		t.Errorf("expected wav-bytes, got %q", audio)
	}

	got, ok := c.Get("Hello", "Kore")
	if !ok {
		t.Fatal("expected hit after synthesis")
	}
	if string(got) != "wav-bytes" {
		t.Errorf("expected cached wav-bytes, got %q", got)
	}
}

func TestKeyIncludesVoice(t *testing.T) {
	c := New(10)

	_, _ = c.GetOrSynthesize(context.Background(), "Hello", "Kore", func(ctx context.Context) ([]byte, error) {
		return []byte("kore-audio"), nil
	})

	if _, ok := c.Get("Hello", "Nova"); ok {
		t.Error("same text with different voice must be a miss")
	}
	if _, ok := c.Get("hello", "Kore"); ok {
		t.Error("lookup must use exact string equality, case included")
	}
}

func TestConcurrentCallsCoalesce(t *testing.T) {
	c := New(10)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	synth := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return []byte("shared-audio"), nil
	}

	const waiters = 8
	results := make([][]byte, waiters)
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrSynthesize(context.Background(), "Hello", "Kore", synth)
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 synthesis call, got %d", got)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d error = %v", i, errs[i])
		}
		if string(results[i]) != "shared-audio" {
			t.Errorf("waiter %d got %q, want shared-audio", i, results[i])
		}
	}
}

func TestFailureIsNotCached(t *testing.T) {
	c := New(10)

	boom := errors.New("synthesis backend unavailable")
	_, err := c.GetOrSynthesize(context.Background(), "Hi", "Nova", func(ctx context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected synthesis error surfaced, got %v", err)
	}

	if _, ok := c.Get("Hi", "Nova"); ok {
		t.Fatal("failed synthesis must not be cached")
	}

	// A retry attempts synthesis again and can succeed.
	audio, err := c.GetOrSynthesize(context.Background(), "Hi", "Nova", func(ctx context.Context) ([]byte, error) {
		return []byte("retry-audio"), nil
	})
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if string(audio) != "retry-audio" {
		t.Errorf("retry got %q, want retry-audio", audio)
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	c := New(3)

	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("text-%d", i)
		_, err := c.GetOrSynthesize(context.Background(), text, "Kore", func(ctx context.Context) ([]byte, error) {
			return []byte(text), nil
		})
		if err != nil {
			t.Fatalf("GetOrSynthesize(%s) error = %v", text, err)
		}
	}

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", c.Len())
	}
	for _, evicted := range []string{"text-0", "text-1"} {
		if _, ok := c.Get(evicted, "Kore"); ok {
			t.Errorf("expected oldest entry %s to be evicted", evicted)
		}
	}
	for _, kept := range []string{"text-2", "text-3", "text-4"} {
		if _, ok := c.Get(kept, "Kore"); !ok {
			t.Errorf("expected newer entry %s to survive eviction", kept)
		}
	}
}

func TestStatsAndClear(t *testing.T) {
	c := New(10)

	c.Get("a", "Kore")
	_, _ = c.GetOrSynthesize(context.Background(), "a", "Kore", func(ctx context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	c.Get("a", "Kore")

	hits, misses, size := c.Stats()
	if hits == 0 || misses == 0 || size != 1 {
		t.Errorf("unexpected stats: hits=%d misses=%d size=%d", hits, misses, size)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", c.Len())
	}
}
