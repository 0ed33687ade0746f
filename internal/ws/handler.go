package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/hub"
	"github.com/BigMop13/final-sentence-dis-version/internal/lobby"
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/sentences"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	joinTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 32
	seatAttempts = 3
)

var errNoSeat = errors.New("no room could seat the player")

// Handler upgrades the request and speaks the race protocol. The first frame
// from the client must be JoinRoom; the room is created on demand with a
// sentence drawn from pool.
func Handler(h *hub.Hub, pool *sentences.Pool, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		jr, err := readJoin(r.Context(), conn)
		if err != nil {
			log.Debug("handshake failed", zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "expected JoinRoom")
			return
		}
		channel := jr.ChannelID
		if channel == "" {
			channel = protocol.DefaultChannel
		}

		out := make(chan protocol.Message, outboxSize)
		lb, seat, err := takeSeat(r.Context(), h, pool, channel, lobby.Join{
			Username:    jr.Username,
			ResumeToken: jr.ResumeToken,
			Outbox:      out,
		})
		if err != nil {
			log.Warn("could not seat player", zap.String("channel", channel), zap.Error(err))
			conn.Close(websocket.StatusTryAgainLater, "room unavailable")
			return
		}
		defer lb.Send(lobby.Leave{PlayerID: seat.PlayerID, Outbox: out})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for m := range out {
				payload, err := protocol.Encode(m)
				if err != nil {
					log.Error("encode outbound frame", zap.String("type", string(m.Kind())), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					break
				}
			}
			// Outbox closed by the room (left, too slow or shut down).
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		// Reader loop
		for {
			typ, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.String("player_id", seat.PlayerID), zap.Error(err))
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}

			m, err := protocol.Decode(data)
			if err != nil {
				log.Debug("dropping malformed frame", zap.String("player_id", seat.PlayerID), zap.Error(err))
				continue
			}

			msg, ok := toLobbyMsg(seat.PlayerID, m)
			if !ok {
				log.Debug("ignoring frame", zap.String("type", string(m.Kind())))
				continue
			}
			if !lb.Send(msg) {
				return
			}
		}
	}
}

func readJoin(ctx context.Context, conn *websocket.Conn) (protocol.JoinRoom, error) {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.JoinRoom{}, err
	}
	m, err := protocol.Decode(data)
	if err != nil {
		return protocol.JoinRoom{}, err
	}
	jr, ok := m.(protocol.JoinRoom)
	if !ok {
		return protocol.JoinRoom{}, protocol.ErrMalformed
	}
	return jr, nil
}

// takeSeat joins the room for channel, creating it if needed. A room may stop
// between lookup and join when its last player leaves, so this retries.
func takeSeat(ctx context.Context, h *hub.Hub, pool *sentences.Pool, channel string, join lobby.Join) (*lobby.Lobby, lobby.Seat, error) {
	for range seatAttempts {
		reply := make(chan *lobby.Lobby, 1)
		select {
		case h.Inbox() <- hub.EnsureLobby{Code: channel, Sentence: pool.Pick(), Reply: reply}:
		case <-h.Done():
			return nil, lobby.Seat{}, errNoSeat
		case <-ctx.Done():
			return nil, lobby.Seat{}, ctx.Err()
		}

		var lb *lobby.Lobby
		select {
		case lb = <-reply:
		case <-h.Done():
			return nil, lobby.Seat{}, errNoSeat
		}

		join.Reply = make(chan lobby.Seat, 1)
		if !lb.Send(join) {
			continue
		}
		select {
		case seat := <-join.Reply:
			return lb, seat, nil
		case <-lb.Done():
		case <-ctx.Done():
			return nil, lobby.Seat{}, ctx.Err()
		}
	}
	return nil, lobby.Seat{}, errNoSeat
}

func toLobbyMsg(playerID string, m protocol.Message) (lobby.Msg, bool) {
	switch msg := m.(type) {
	case protocol.StartGame:
		return lobby.Start{PlayerID: playerID}, true
	case protocol.ProgressUpdate:
		return lobby.Progress{PlayerID: playerID, CurrentIndex: msg.CurrentIndex, MistakeCount: msg.MistakeCount}, true
	case protocol.GameFinished:
		return lobby.Finish{PlayerID: playerID}, true
	default:
		return nil, false
	}
}
