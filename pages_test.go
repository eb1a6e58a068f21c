package pubfront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageStoreGenerateStores(t *testing.T) {
	var calls atomic.Int32
	store := NewPageStore(context.Background(), func(_ context.Context, route string) (Page, error) {
		calls.Add(1)
		return Page{Status: http.StatusOK, Body: []byte(route)}, nil
	}, 0)

	_, _, ok := store.Get("/a/")
	assert.False(t, ok)

	p, err := store.Generate(context.Background(), "/a/")
	require.NoError(t, err)
	assert.Equal(t, "/a/", string(p.Body))
	assert.False(t, p.Generated.IsZero())

	got, stale, ok := store.Get("/a/")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, p.Body, got.Body)
	assert.Equal(t, []string{"/a/"}, store.Routes())
	assert.EqualValues(t, 1, calls.Load())
}

func TestPageStoreDeduplicatesConcurrentGeneration(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		calls.Add(1)
		<-release
		return Page{Status: http.StatusOK}, nil
	}, 0)

	store.Start("/x/")
	store.Start("/x/")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	store.Start("/x/")
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())

	close(release)
	require.Eventually(t, func() bool {
		_, _, ok := store.Get("/x/")
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPageStoreRecordsBackgroundFailure(t *testing.T) {
	boom := errors.New("boom")
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		return Page{}, boom
	}, 0)

	store.Start("/bad/")
	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return store.failed["/bad/"] != nil
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, store.TakeErr("/bad/"), boom)
	assert.NoError(t, store.TakeErr("/bad/"))
	_, _, ok := store.Get("/bad/")
	assert.False(t, ok)
}

func TestPageStoreStaleAfterRevalidate(t *testing.T) {
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		return Page{Status: http.StatusOK, Generated: time.Now().Add(-time.Hour)}, nil
	}, time.Minute)

	_, err := store.Generate(context.Background(), "/")
	require.NoError(t, err)

	_, stale, ok := store.Get("/")
	assert.True(t, ok)
	assert.True(t, stale)
}

func TestPageStorePrerenderAndInvalidate(t *testing.T) {
	store := NewPageStore(context.Background(), func(_ context.Context, route string) (Page, error) {
		if route == "/fail/" {
			return Page{}, errors.New("fail")
		}
		return Page{Status: http.StatusOK}, nil
	}, 0)

	require.NoError(t, store.Prerender(context.Background(), []string{"/", "/post/a/"}))
	assert.Equal(t, []string{"/", "/post/a/"}, store.Routes())

	assert.Error(t, store.Prerender(context.Background(), []string{"/fail/", "/post/b/"}))
	assert.Equal(t, []string{"/", "/post/a/"}, store.Routes())

	store.Invalidate()
	assert.Empty(t, store.Routes())
}

func TestPageStoreInvalidateDiscardsInFlightGeneration(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		v := version.Load()
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return Page{Status: http.StatusOK, Body: []byte(fmt.Sprintf("version %d", v))}, nil
	}, 0)

	old := make(chan Page, 1)
	go func() {
		p, _ := store.Generate(context.Background(), "/a/")
		old <- p
	}()
	<-started

	version.Store(2)
	store.Invalidate()
	require.NoError(t, store.Prerender(context.Background(), []string{"/a/"}))

	close(release)
	assert.Equal(t, "version 1", string((<-old).Body))

	p, _, ok := store.Get("/a/")
	require.True(t, ok)
	assert.Equal(t, "version 2", string(p.Body))
	assert.EqualValues(t, 2, calls.Load())
}

func TestPageStoreBoundsMissingPages(t *testing.T) {
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		return Page{Status: http.StatusNotFound}, nil
	}, 0)
	store.maxMissing = 8

	for i := range 50 {
		p, err := store.Generate(context.Background(), fmt.Sprintf("/post/junk-%d/", i))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, p.Status)
	}

	assert.Equal(t, 8, store.Missing())
	assert.Empty(t, store.Routes())
	p, _, ok := store.Get("/post/junk-49/")
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, p.Status)
}

func TestPageStoreMissingPagesExpire(t *testing.T) {
	var calls atomic.Int32
	store := NewPageStore(context.Background(), func(context.Context, string) (Page, error) {
		calls.Add(1)
		return Page{Status: http.StatusNotFound}, nil
	}, 0)
	store.missingTTL = 20 * time.Millisecond

	_, err := store.Generate(context.Background(), "/post/gone/")
	require.NoError(t, err)
	_, _, ok := store.Get("/post/gone/")
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		_, _, ok := store.Get("/post/gone/")
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, err = store.Generate(context.Background(), "/post/gone/")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 1, store.Missing())
}
