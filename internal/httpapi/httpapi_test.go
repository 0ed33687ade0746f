package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/client"
	"github.com/BigMop13/final-sentence-dis-version/internal/hub"
	"github.com/BigMop13/final-sentence-dis-version/internal/lobby"
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/BigMop13/final-sentence-dis-version/internal/sentences"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, sentence string) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool, err := sentences.New([]string{sentence})
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(hub.NewHub(ctx, hub.Config{}), pool, nil))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func getRoom(t *testing.T, srv *httptest.Server, channel string) (lobby.View, int) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/rooms/" + channel)
	require.NoError(t, err)
	defer resp.Body.Close()

	var v lobby.View
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	}
	return v, resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, "hi")
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}

func TestCreateRoomThenGet(t *testing.T) {
	srv := newServer(t, "hello there")

	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ChannelID string `json:"channelID"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ChannelID)

	v, status := getRoom(t, srv, created.ChannelID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ChannelID, v.ChannelID)
	assert.Equal(t, race.StatusWaiting, v.Status)
	assert.Equal(t, "hello there", v.Sentence)
	assert.Empty(t, v.Players)

	_, status = getRoom(t, srv, "nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWS_FirstFrameMustBeJoinRoom(t *testing.T) {
	srv := newServer(t, "hi")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	frame, err := protocol.Encode(protocol.StartGame{})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestWS_JoinDefaultsChannel(t *testing.T) {
	srv := newServer(t, "hi")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	frame, err := protocol.Encode(protocol.JoinRoom{Username: "ana"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	m, err := protocol.Decode(data)
	require.NoError(t, err)
	joined, ok := m.(protocol.Joined)
	require.True(t, ok)
	assert.Equal(t, "hi", joined.TargetSentence)
	assert.NotEmpty(t, joined.PlayerID)

	v, status := getRoom(t, srv, "default")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, v.NumClients)
}

type racer struct {
	c    *client.Client
	done chan struct{}
}

func startRacer(t *testing.T, srv *httptest.Server, channel, username string) *racer {
	t.Helper()
	opts := client.DefaultOptions()
	opts.ChannelID = channel
	opts.Username = username

	r := &racer{c: client.New(client.WSDialer{URL: wsURL(srv)}, opts), done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(r.done)
		_ = r.c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-r.done
	})
	return r
}

func (r *racer) eventually(t *testing.T, cond func(client.View) bool) client.View {
	t.Helper()
	var last client.View
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := r.c.View(ctx)
		if err != nil {
			return false
		}
		last = v
		return cond(v)
	}, 3*time.Second, 10*time.Millisecond)
	return last
}

func TestEndToEnd_TwoPlayersRace(t *testing.T) {
	srv := newServer(t, "hi")

	ana := startRacer(t, srv, "race1", "ana")
	bob := startRacer(t, srv, "race1", "bob")

	seated := func(v client.View) bool { return v.PlayerID != "" && len(v.Players) == 2 }
	ana.eventually(t, seated)
	bob.eventually(t, seated)

	require.NoError(t, bob.c.Start())
	for _, r := range []*racer{ana, bob} {
		v := r.eventually(t, func(v client.View) bool { return v.Status == race.StatusPlaying })
		assert.Equal(t, "hi", v.Sentence)
		assert.Equal(t, typing.PhaseActive, v.Typing.Phase)
	}

	// a typo first; the correct keys still complete the sentence
	require.NoError(t, ana.c.Press(typing.Char('x')))
	require.NoError(t, ana.c.Press(typing.Backspace))
	require.NoError(t, ana.c.Press(typing.Char('h')))
	require.NoError(t, ana.c.Press(typing.Char('I')))

	for _, r := range []*racer{ana, bob} {
		v := r.eventually(t, func(v client.View) bool { return v.Status == race.StatusFinished })
		assert.Equal(t, "ana", v.Winner)
	}

	// bob sees ana's marker at the end of the sentence
	var anaColor string
	v := bob.eventually(t, func(v client.View) bool {
		for _, p := range v.Players {
			if p.Username == "ana" {
				anaColor = p.Color
				return p.CurrentIndex == 2 && p.Finished
			}
		}
		return false
	})
	assert.Equal(t, []string{anaColor}, v.Markers[2])

	room, status := getRoom(t, srv, "race1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, race.StatusFinished, room.Status)
	assert.Equal(t, "ana", room.Winner)
}

func TestRooms_HubStoppedAnswersUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(ctx, hub.Config{})
	cancel()
	<-h.Done()

	pool, err := sentences.New([]string{"hi"})
	require.NoError(t, err)
	srv := httptest.NewServer(SetupRoutes(h, pool, nil))
	defer srv.Close()

	hc := &http.Client{Timeout: 2 * time.Second}
	resp, err := hc.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = hc.Get(srv.URL + "/rooms/ABC123")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
