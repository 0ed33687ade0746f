package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/BigMop13/final-sentence-dis-version/internal/hub"
	"github.com/BigMop13/final-sentence-dis-version/internal/lobby"
	"github.com/BigMop13/final-sentence-dis-version/internal/sentences"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateRoom opens a room under a fresh code so players can share it as their
// channel ID.
func CreateRoom(h *hub.Hub, pool *sentences.Pool, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var lb *lobby.Lobby
		for lb == nil {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *lobby.Lobby, 1)
			var ok bool
			lb, ok = ask(r.Context(), h, hub.CreateLobby{Code: c, Sentence: pool.Pick(), Reply: reply}, reply)
			if !ok {
				http.Error(w, "server shutting down", http.StatusServiceUnavailable)
				return
			}
			if lb == nil {
				log.Debug("collision on code, regenerating", zap.String("code", c))
			}
		}

		writeJSON(w, http.StatusCreated, struct {
			ChannelID string `json:"channelID"`
		}{ChannelID: lb.Code()})
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *lobby.Lobby, 1)
		lb, ok := ask(r.Context(), h, hub.GetLobby{Code: chi.URLParam(r, "channelID"), Reply: reply}, reply)
		if !ok {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		state := make(chan lobby.View, 1)
		if !lb.Send(lobby.GetState{Reply: state}) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		select {
		case v := <-state:
			writeJSON(w, http.StatusOK, v)
		case <-lb.Done():
			http.Error(w, "room not found", http.StatusNotFound)
		case <-r.Context().Done():
		}
	}
}

// ask sends msg to the hub and waits for its reply. It gives up when the hub
// has stopped or the request is gone.
func ask(ctx context.Context, h *hub.Hub, msg hub.HubMsg, reply <-chan *lobby.Lobby) (*lobby.Lobby, bool) {
	select {
	case h.Inbox() <- msg:
	case <-h.Done():
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
	select {
	case lb := <-reply:
		return lb, true
	case <-h.Done():
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
