package client

import (
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
	"go.uber.org/zap"
)

// Signal flags a transient presentation effect tied to an Update.
type Signal string

const (
	SignalNone            Signal = ""
	SignalConnected       Signal = "connected"
	SignalDisconnected    Signal = "disconnected"
	SignalStarted         Signal = "started"
	SignalMismatch        Signal = "mismatch"
	SignalMismatchCleared Signal = "mismatch-cleared"
	SignalCriticalReset   Signal = "critical-reset"
	SignalCompleted       Signal = "completed"
	SignalFinished        Signal = "finished"
)

type PlayerView struct {
	race.Player
	Color    string
	Self     bool
	Finished bool
}

// View is a copy of everything a renderer needs. It shares nothing mutable
// with the client loop.
type View struct {
	Connected bool
	Notice    string

	ChannelID string
	PlayerID  string
	Status    race.Status
	Sentence  string
	Winner    string

	Typing  typing.State
	Players []PlayerView
	Markers map[int][]string
}

type Update struct {
	View   View
	Signal Signal
}

func (c *Client) view() View {
	v := View{
		Connected: c.connected,
		Notice:    c.notice,
		ChannelID: c.opts.ChannelID,
		PlayerID:  c.playerID,
		Status:    race.StatusWaiting,
	}

	t := c.typing
	t.Marks = append([]typing.Mark(nil), t.Marks...)
	v.Typing = t

	if c.session == nil {
		return v
	}
	v.Status = c.session.Status()
	v.Sentence = c.session.Sentence()
	v.Winner = c.session.Winner()
	v.Markers = c.session.Markers(c.playerID)

	for _, p := range c.session.Players() {
		pv := PlayerView{
			Player:   p,
			Color:    c.session.Color(p.ID),
			Self:     p.ID == c.playerID,
			Finished: c.session.Finished(p.ID),
		}
		// our own cursor is whatever we typed, not the server's echo of it
		if pv.Self && c.typing.Phase != typing.PhaseIdle {
			pv.CurrentIndex = c.typing.Index
			pv.MistakeCount = c.typing.Mistakes
			pv.Finished = c.typing.Phase == typing.PhaseDone
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// publish hands an update to the presenter without ever blocking the loop.
// When the presenter lags, the oldest pending update is discarded.
func (c *Client) publish(sig Signal) {
	u := Update{View: c.view(), Signal: sig}
	select {
	case c.updates <- u:
		return
	default:
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- u:
	default:
		c.log.Debug("presenter lagging, update dropped", zap.String("signal", string(sig)))
	}
}
