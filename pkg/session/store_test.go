package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/jsonapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settings = explorer.Settings{
	PlacenameEndpoint: "https://x/placenames/ID_PLACEHOLDER",
	MapEnabled:        true,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = clock.Now
	return s, clock
}

func TestCreateMountsExplorer(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	id, state := s.Create(settings)
	require.NotEmpty(t, id)
	assert.Equal(t, explorer.PanelMap, state.Active)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, explorer.PanelMap, got.Active)

	other, _ := s.Create(explorer.Settings{})
	assert.NotEqual(t, id, other)
	otherState, ok := s.Get(other)
	require.True(t, ok)
	assert.Equal(t, explorer.PanelDetailCard, otherState.Active)
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	id, _ := s.Create(settings)

	result := &jsonapi.SearchResult{Data: []jsonapi.PlacenameRecord{{ID: "1"}}}
	state, ok := s.Update(id, func(st explorer.State) explorer.State {
		return st.SubmitSearch(result)
	})
	require.True(t, ok)
	assert.Equal(t, explorer.PanelSearchResults, state.Active)

	state, ok = s.Update(id, func(st explorer.State) explorer.State {
		return st.SelectPlacename("1")
	})
	require.True(t, ok)
	assert.Equal(t, "https://x/placenames/1", state.DetailURL)

	stored, _ := s.Get(id)
	assert.Equal(t, explorer.PanelDetailCard, stored.Active)
	assert.Same(t, result, stored.Result)

	_, ok = s.Update("unknown", func(st explorer.State) explorer.State { return st })
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	id, _ := s.Create(settings)
	kept, _ := s.Create(settings)

	clock.Advance(45 * time.Second)
	_, ok := s.Get(kept)
	require.True(t, ok)

	clock.Advance(30 * time.Second)
	_, ok = s.Get(id)
	assert.False(t, ok, "idle session should have expired")

	_, ok = s.Get(kept)
	assert.True(t, ok, "recently used session should be kept")
}

func TestSweep(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.Create(settings)
	s.Create(settings)
	require.Equal(t, 2, s.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestNoExpiry(t *testing.T) {
	s, clock := newTestStore(0)
	id, _ := s.Create(settings)

	clock.Advance(24 * time.Hour)
	_, ok := s.Get(id)
	assert.True(t, ok)
	assert.Equal(t, 0, s.Sweep())
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	id, _ := s.Create(settings)
	s.Delete(id)
	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestRunStopsWithContext(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	id, _ := s.Create(settings)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(id, func(st explorer.State) explorer.State {
				return st.SelectPlacename("x")
			})
		}()
	}
	wg.Wait()

	state, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, explorer.PanelDetailCard, state.Active)
}
