// ABOUTME: Tests for the Registry: single loading, guard exclusivity, invalidation and load failures.
// ABOUTME: Uses an in-memory ObjectSource built from the small infrastructure document.
package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/cache/cachetest"
	"github.com/2389-research/infracache/schema"
)

type docSource struct {
	doc   *schema.RailJSON
	loads atomic.Int32
	err   error
}

func (s *docSource) LoadObjects(_ context.Context, _ ulid.ULID, objType schema.ObjectType) ([]schema.InfraObject, error) {
	if s.err != nil {
		return nil, s.err
	}
	if objType == schema.TrackSection {
		s.loads.Add(1)
		time.Sleep(5 * time.Millisecond)
	}
	var out []schema.InfraObject
	for _, obj := range s.doc.Objects() {
		if obj.ObjectType() == objType {
			out = append(out, obj)
		}
	}
	return out, nil
}

func TestRegistry_LoadsOnceUnderConcurrency(t *testing.T) {
	reg := cache.NewRegistry()
	src := &docSource{doc: cachetest.SmallInfra()}
	id := ulid.Make()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard, err := reg.GetOrLoad(context.Background(), src, id)
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			defer guard.Release()
			if guard.Cache().Len(schema.TrackSection) != 4 {
				t.Errorf("got %d tracks, want 4", guard.Cache().Len(schema.TrackSection))
			}
		}()
	}
	wg.Wait()

	if got := src.loads.Load(); got != 1 {
		t.Errorf("got %d loads, want 1", got)
	}
	if reg.Len() != 1 {
		t.Errorf("got %d entries, want 1", reg.Len())
	}
}

func TestRegistry_WriteGuardIsExclusive(t *testing.T) {
	reg := cache.NewRegistry()
	src := &docSource{doc: cachetest.SmallInfra()}
	id := ulid.Make()

	w, err := reg.GetOrLoadMut(context.Background(), src, id)
	if err != nil {
		t.Fatalf("get mut: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := reg.GetOrLoad(context.Background(), src, id)
		if err != nil {
			t.Errorf("get: %v", err)
			close(acquired)
			return
		}
		r.Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired the entry while a writer held it")
	case <-time.After(50 * time.Millisecond):
	}

	if err := w.Cache().ApplyDelete(schema.NewObjectRef(schema.Signal, "S0")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w.Release()
	w.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired the entry after release")
	}
}

func TestRegistry_ReadersShare(t *testing.T) {
	reg := cache.NewRegistry()
	id := ulid.Make()
	reg.Insert(id, cachetest.SmallInfraCache(t))

	first, err := reg.GetOrLoad(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	defer first.Release()
	second, err := reg.GetOrLoad(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("second reader blocked or failed: %v", err)
	}
	second.Release()
}

// gatedSource blocks track loading until gate is closed, failing early if
// its context ends first.
type gatedSource struct {
	doc     *schema.RailJSON
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *gatedSource) LoadObjects(ctx context.Context, id ulid.ULID, objType schema.ObjectType) ([]schema.InfraObject, error) {
	if objType == schema.TrackSection {
		s.once.Do(func() { close(s.started) })
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var out []schema.InfraObject
	for _, obj := range s.doc.Objects() {
		if obj.ObjectType() == objType {
			out = append(out, obj)
		}
	}
	return out, nil
}

func TestRegistry_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	reg := cache.NewRegistry()
	src := &gatedSource{doc: cachetest.SmallInfra(), started: make(chan struct{}), gate: make(chan struct{})}
	id := ulid.Make()

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		g, err := reg.GetOrLoad(ctx, src, id)
		if err == nil {
			g.Release()
		}
		firstErr <- err
	}()
	<-src.started

	secondErr := make(chan error, 1)
	go func() {
		g, err := reg.GetOrLoad(context.Background(), src, id)
		if err == nil {
			if g.Cache().Len(schema.TrackSection) != 4 {
				t.Errorf("got %d tracks, want 4", g.Cache().Len(schema.TrackSection))
			}
			g.Release()
		}
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("first caller: got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the load")
	}

	close(src.gate)
	select {
	case err := <-secondErr:
		if err != nil {
			t.Fatalf("second caller: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second caller never got the cache")
	}
	if reg.Len() != 1 {
		t.Errorf("got %d entries, want 1", reg.Len())
	}
}

func TestRegistry_LoadFailure(t *testing.T) {
	reg := cache.NewRegistry()
	boom := errors.New("storage down")
	id := ulid.Make()

	_, err := reg.GetOrLoad(context.Background(), &docSource{err: boom}, id)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped storage error", err)
	}
	if reg.Len() != 0 {
		t.Error("failed load must not leave an entry")
	}

	_, err = reg.GetOrLoad(context.Background(), nil, ulid.Make())
	if !errors.Is(err, cache.ErrNoObjectSource) {
		t.Errorf("got %v, want ErrNoObjectSource", err)
	}
}

func TestRegistry_Invalidate(t *testing.T) {
	reg := cache.NewRegistry()
	src := &docSource{doc: cachetest.SmallInfra()}
	id := ulid.Make()

	g, err := reg.GetOrLoad(context.Background(), src, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	g.Release()

	if !reg.Invalidate(id) {
		t.Fatal("expected entry to be dropped")
	}
	if reg.Invalidate(id) {
		t.Error("second invalidate should report nothing dropped")
	}

	g, err = reg.GetOrLoad(context.Background(), src, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	g.Release()
	if got := src.loads.Load(); got != 2 {
		t.Errorf("got %d loads, want 2", got)
	}
}
