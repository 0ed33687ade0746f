package hub

import (
	"context"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/lobby"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby replies nil when the code is already taken.
type CreateLobby struct {
	Code     string
	Sentence string
	Reply    chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code     string
	Sentence string // only used if creation happens
	Reply    chan *lobby.Lobby
}

// RemoveLobby forgets Code only while it still maps to Lobby, so a late
// removal cannot evict a room created under the same code afterwards.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Config is shared by every room the hub opens.
type Config struct {
	Logger      *zap.Logger
	RaceTimeout time.Duration
	Clock       clockwork.Clock
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub stops.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Remove asks the hub to forget lb. Safe to call from a lobby goroutine.
func (h *Hub) Remove(lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Code: lb.Code(), Lobby: lb}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				msg.Reply <- h.open(msg.Code, msg.Sentence)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.open(msg.Code, msg.Sentence)

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.log.Info("room closed", zap.String("channel", msg.Code))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) open(code, sentence string) *lobby.Lobby {
	lb := lobby.NewLobby(h.ctx, lobby.Config{
		Code:        code,
		Sentence:    sentence,
		Logger:      h.log,
		RaceTimeout: h.cfg.RaceTimeout,
		Clock:       h.cfg.Clock,
		OnEmpty:     h.Remove,
	})
	h.lobbies[code] = lb
	h.log.Info("room opened", zap.String("channel", code))
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Send(lobby.Shutdown{})
	}
	clear(h.lobbies)
	h.cancel()
}
