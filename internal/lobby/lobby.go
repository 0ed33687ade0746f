package lobby

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

// Join seats a connection. A known ResumeToken re-binds the player it was
// issued to; anything else creates a new player.
type Join struct {
	Username    string
	ResumeToken string
	Outbox      chan protocol.Message // where this connection wants its frames
	Reply       chan Seat
}

func (Join) isLobbyMsg() {}

// Leave unregisters a connection. Outbox must be the one passed to Join so a
// stale connection cannot evict a newer one for the same player.
type Leave struct {
	PlayerID string
	Outbox   chan protocol.Message
}

func (Leave) isLobbyMsg() {}

type Start struct{ PlayerID string }

func (Start) isLobbyMsg() {}

type Progress struct {
	PlayerID     string
	CurrentIndex int
	MistakeCount int
}

func (Progress) isLobbyMsg() {}

type Finish struct{ PlayerID string }

func (Finish) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// raceTimeout fires RaceTimeout after the race that started at startedAt.
type raceTimeout struct{ startedAt time.Time }

func (raceTimeout) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Seat struct {
	PlayerID    string
	ResumeToken string
	Resumed     bool
}

type View struct {
	ChannelID  string            `json:"channelID"`
	Status     race.Status       `json:"status"`
	Sentence   string            `json:"targetSentence"`
	Winner     string            `json:"winner,omitempty"`
	NumClients int               `json:"numClients"`
	Players    []protocol.Player `json:"players"`
}

type Config struct {
	Code     string
	Sentence string
	Logger   *zap.Logger
	// RaceTimeout ends a race with no winner once it has run this long.
	// Zero disables the limit.
	RaceTimeout time.Duration
	Clock       clockwork.Clock
	// OnEmpty runs on the lobby goroutine once a room that has seated players
	// has no connections left and no race running. The lobby stops right after.
	OnEmpty func(*Lobby)
}

type player struct {
	id       string
	username string
	token    string
	index    int
	mistakes int
}

type Lobby struct {
	code        string
	inbox       chan Msg
	status      race.Status
	sentence    string
	sentenceLen int
	winner      string
	startedAt   time.Time
	timeout     time.Duration
	timer       clockwork.Timer

	players map[string]*player
	order   []string
	tokens  map[string]string // resume token -> player id
	clients map[string]chan protocol.Message

	onEmpty func(*Lobby)
	clock   clockwork.Clock
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	l := &Lobby{
		code:        cfg.Code,
		inbox:       make(chan Msg, 64), // Small buffer
		status:      race.StatusWaiting,
		sentence:    cfg.Sentence,
		sentenceLen: utf8.RuneCountInString(cfg.Sentence),
		players:     make(map[string]*player),
		tokens:      make(map[string]string),
		clients:     make(map[string]chan protocol.Message),
		timeout:     cfg.RaceTimeout,
		onEmpty:     cfg.OnEmpty,
		clock:       clock,
		log:         log.With(zap.String("channel", cfg.Code)),
		ctx:         ctx,
		cancel:      cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)

			case Leave:
				l.leave(msg)

			case Start:
				if l.status != race.StatusWaiting || l.players[msg.PlayerID] == nil {
					break
				}
				l.status = race.StatusPlaying
				l.startedAt = l.clock.Now()
				l.log.Info("race started", zap.String("sentence", l.sentence), zap.Int("players", len(l.players)))
				l.armTimeout()
				l.broadcast(protocol.GameStarted{TargetSentence: l.sentence})

			case Progress:
				p := l.players[msg.PlayerID]
				if p == nil || l.status != race.StatusPlaying {
					break
				}
				p.index = max(0, min(msg.CurrentIndex, l.sentenceLen))
				p.mistakes = max(0, msg.MistakeCount)
				l.broadcast(protocol.PlayerProgress{Players: l.roster()})

			case Finish:
				p := l.players[msg.PlayerID]
				// the finisher's last progress must already cover the sentence
				if p == nil || l.status != race.StatusPlaying || p.index != l.sentenceLen {
					break
				}
				l.status = race.StatusFinished
				l.winner = p.username
				l.stopTimeout()
				l.log.Info("race won",
					zap.String("player_id", p.id),
					zap.String("winner", p.username),
					zap.Duration("duration", l.clock.Since(l.startedAt)))
				l.broadcast(protocol.GameFinished{Winner: p.username})

			case raceTimeout:
				// a timer from an earlier race, or one that lost to a finisher
				if l.status != race.StatusPlaying || !msg.startedAt.Equal(l.startedAt) {
					break
				}
				l.status = race.StatusFinished
				l.timer = nil
				l.log.Info("race timed out",
					zap.String("sentence", l.sentence),
					zap.Int("players", len(l.players)),
					zap.Duration("duration", l.clock.Since(l.startedAt)))
				l.broadcast(protocol.GameFinished{})

			case GetState:
				msg.Reply <- View{
					ChannelID:  l.code,
					Status:     l.status,
					Sentence:   l.sentence,
					Winner:     l.winner,
					NumClients: len(l.clients),
					Players:    l.roster(),
				}

			case Shutdown:
				l.shutdown()
				return
			}

			if l.idle() {
				if l.onEmpty != nil {
					l.onEmpty(l)
				}
				l.shutdown()
				return
			}
		}
	}
}

// idle reports whether seated players have all gone while no race is
// running. Clients can disappear through Leave or by being dropped as slow.
func (l *Lobby) idle() bool {
	return len(l.players) > 0 && len(l.clients) == 0 && l.status != race.StatusPlaying
}

func (l *Lobby) armTimeout() {
	if l.timeout <= 0 {
		return
	}
	startedAt := l.startedAt
	l.timer = l.clock.AfterFunc(l.timeout, func() {
		l.Send(raceTimeout{startedAt: startedAt})
	})
}

func (l *Lobby) stopTimeout() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Lobby) join(msg Join) {
	p, resumed := l.players[l.tokens[msg.ResumeToken]]
	if msg.ResumeToken == "" {
		resumed = false
	}
	if !resumed {
		p = &player{id: uuid.NewString(), username: msg.Username, token: uuid.NewString()}
		l.players[p.id] = p
		l.order = append(l.order, p.id)
		l.tokens[p.token] = p.id
	}

	if old, ok := l.clients[p.id]; ok {
		close(old)
	}
	l.clients[p.id] = msg.Outbox

	l.log.Info("player joined",
		zap.String("player_id", p.id),
		zap.String("username", p.username),
		zap.Bool("resumed", resumed))

	msg.Outbox <- protocol.Joined{
		PlayerID:       p.id,
		TargetSentence: l.sentence,
		Players:        l.roster(),
		Status:         string(l.status),
		ResumeToken:    p.token,
	}
	l.broadcastExcept(p.id, protocol.PlayerJoined{Players: l.roster()})
	msg.Reply <- Seat{PlayerID: p.id, ResumeToken: p.token, Resumed: resumed}
}

// leave unregisters the connection. The player stays on the roster so their
// token can resume.
func (l *Lobby) leave(msg Leave) {
	if ch, ok := l.clients[msg.PlayerID]; !ok || ch != msg.Outbox {
		return
	}
	close(msg.Outbox)
	delete(l.clients, msg.PlayerID)
	l.log.Info("player left", zap.String("player_id", msg.PlayerID))
}

func (l *Lobby) roster() []protocol.Player {
	out := make([]protocol.Player, 0, len(l.order))
	for _, id := range l.order {
		p := l.players[id]
		out = append(out, protocol.Player{
			ID:           p.id,
			Username:     p.username,
			CurrentIndex: p.index,
			MistakeCount: p.mistakes,
		})
	}
	return out
}

func (l *Lobby) shutdown() {
	l.stopTimeout()
	for id, ch := range l.clients {
		close(ch) // Tell client no more frames
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(m protocol.Message) {
	l.broadcastExcept("", m)
}

func (l *Lobby) broadcastExcept(skip string, m protocol.Message) {
	for id, ch := range l.clients {
		if id == skip {
			continue
		}
		select {
		case ch <- m:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("player_id", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the lobby has already stopped.
func (l *Lobby) Send(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Done is closed once the lobby stops.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) Code() string { return l.code }
