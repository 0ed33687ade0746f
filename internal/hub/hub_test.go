package hub

import (
	"context"
	"testing"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/lobby"
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(h *Hub, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: code, Reply: reply}
	return <-reply
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "ZED123", Sentence: "hi", Reply: reply}
	lb1 := <-reply
	lb2 := lookup(h, "ZED123")

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}

	h.Inbox() <- CreateLobby{Code: "ZED123", Sentence: "other", Reply: reply}
	assert.Nil(t, <-reply, "taken code")
}

func TestHub_EnsureReusesExisting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- EnsureLobby{Code: "default", Sentence: "one", Reply: reply}
	first := <-reply
	h.Inbox() <- EnsureLobby{Code: "default", Sentence: "two", Reply: reply}
	second := <-reply
	require.NotNil(t, first)
	assert.Same(t, first, second)

	state := make(chan lobby.View, 1)
	first.Inbox() <- lobby.GetState{Reply: state}
	assert.Equal(t, "one", (<-state).Sentence)
}

func TestHub_RemoveOnlyMatchingLobby(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- EnsureLobby{Code: "room", Sentence: "hi", Reply: reply}
	lb := <-reply

	h.Inbox() <- RemoveLobby{Code: "room", Lobby: nil}
	assert.Same(t, lb, lookup(h, "room"))

	h.Remove(lb)
	assert.Nil(t, lookup(h, "room"))
}

func TestHub_EmptyLobbyIsForgotten(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- EnsureLobby{Code: "room", Sentence: "hi", Reply: reply}
	lb := <-reply

	out := make(chan protocol.Message, 4)
	seat := make(chan lobby.Seat, 1)
	lb.Inbox() <- lobby.Join{Username: "ana", Outbox: out, Reply: seat}
	s := <-seat
	lb.Inbox() <- lobby.Leave{PlayerID: s.PlayerID, Outbox: out}

	require.Eventually(t, func() bool { return lookup(h, "room") == nil }, time.Second, 10*time.Millisecond)
	<-lb.Done()
}

func TestHub_ShutdownStopsLobbies(t *testing.T) {
	h := NewHub(context.Background(), Config{})
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "room", Sentence: "hi", Reply: reply}
	lb := <-reply

	h.Inbox() <- ShutdownHub{}
	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("lobby still running after hub shutdown")
	}
	<-h.Done()
}

func TestHub_RoomsInheritRaceTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	h := NewHub(ctx, Config{RaceTimeout: 30 * time.Second, Clock: clock})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- EnsureLobby{Code: "room", Sentence: "hi", Reply: reply}
	lb := <-reply

	out := make(chan protocol.Message, 4)
	seat := make(chan lobby.Seat, 1)
	lb.Inbox() <- lobby.Join{Username: "ana", Outbox: out, Reply: seat}
	s := <-seat
	<-out // joined

	lb.Inbox() <- lobby.Start{PlayerID: s.PlayerID}
	<-out // started

	clock.Advance(30 * time.Second)
	select {
	case m := <-out:
		assert.Equal(t, protocol.GameFinished{}, m)
	case <-time.After(time.Second):
		t.Fatalf("race did not time out")
	}
}
