package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(opts Options) (*Store, *clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	return NewStore(fc, opts), fc
}

func TestJoinReusesOpenRoom(t *testing.T) {
	store, _ := newTestStore(Options{Passages: []string{"alpha beta"}})

	first, p1 := store.Join("", "p1", "Guest-p1")
	require.NotNil(t, p1)

	second, _ := store.Join("", "p2", "Guest-p2")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Len())
}

func TestJoinSkipsFullRooms(t *testing.T) {
	store, _ := newTestStore(Options{MaxPlayers: 2, Passages: []string{"alpha beta"}})

	first, _ := store.Join("", "p1", "a")
	store.Join("", "p2", "b")

	second, _ := store.Join("", "p3", "c")
	assert.NotEqual(t, first.ID, second.ID)

	first.Mu.RLock()
	assert.Len(t, first.Players, 2)
	first.Mu.RUnlock()
}

func TestJoinSkipsStartedRooms(t *testing.T) {
	store, fc := newTestStore(Options{Countdown: time.Second, Passages: []string{"alpha beta"}})

	first, _ := store.Join("", "p1", "a")

	fired := make(chan struct{})
	store.ScheduleCountdown(first, func(*Room) { close(fired) })
	fc.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("countdown never fired")
	}

	second, _ := store.Join("", "p2", "b")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestJoinConcurrentNeverExceedsCapacity(t *testing.T) {
	const maxPlayers, joiners = 2, 8
	store, _ := newTestStore(Options{MaxPlayers: maxPlayers, Passages: []string{"alpha beta"}})

	start := make(chan struct{})
	joined := make([]*Room, joiners)
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			r, _ := store.Join("", fmt.Sprintf("p%d", i), "guest")
			joined[i] = r
		}(i)
	}
	close(start)
	wg.Wait()

	members := 0
	seen := make(map[string]bool)
	for _, r := range joined {
		require.NotNil(t, r)
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		r.Mu.RLock()
		count := len(r.Players)
		r.Mu.RUnlock()
		assert.LessOrEqualf(t, count, maxPlayers, "room %s holds %d players", r.ID, count)
		members += count
	}
	assert.Equal(t, joiners, members)
}

func TestCreateRoomAvoidsExcludedPassage(t *testing.T) {
	store, _ := newTestStore(Options{Passages: []string{"alpha", "beta"}})
	for i := 0; i < 50; i++ {
		r := store.CreateRoom("alpha")
		assert.Equal(t, "beta", r.Passage)
		store.RemovePlayer(r, "nobody")
	}
}

func TestRemovePlayerDestroysEmptyRoom(t *testing.T) {
	store, _ := newTestStore(Options{Passages: []string{"alpha beta"}})

	r, _ := store.Join("", "p1", "a")
	require.Equal(t, 1, store.Len())

	assert.False(t, store.RemovePlayer(r, "ghost"))
	assert.True(t, store.RemovePlayer(r, "p1"))
	assert.Equal(t, 0, store.Len())

	_, ok := store.Room(r.ID)
	assert.False(t, ok)
}

func TestScheduleCountdownSetsStartAndFiresOnce(t *testing.T) {
	store, fc := newTestStore(Options{Countdown: 5 * time.Second, Passages: []string{"alpha beta"}})

	r, _ := store.Join("", "p1", "a")

	fired := make(chan *Room, 2)
	store.ScheduleCountdown(r, func(room *Room) { fired <- room })
	// Second arm is a no-op.
	store.ScheduleCountdown(r, func(room *Room) { fired <- room })

	r.Mu.RLock()
	require.False(t, r.CountdownAt.IsZero())
	remaining := r.CountdownRemaining(fc.Now())
	r.Mu.RUnlock()
	require.NotNil(t, remaining)
	assert.Equal(t, int64(5000), *remaining)

	fc.Advance(5 * time.Second)

	select {
	case got := <-fired:
		assert.Equal(t, r.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("countdown never fired")
	}

	r.Mu.RLock()
	assert.True(t, r.Started())
	r.Mu.RUnlock()

	select {
	case <-fired:
		t.Fatal("countdown fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}
