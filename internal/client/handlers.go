package client

import (
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
	"go.uber.org/zap"
)

func (c *Client) playing() bool {
	return c.joined && c.session.Status() == race.StatusPlaying
}

func (c *Client) onKey(k typing.Key) {
	if !c.playing() {
		return
	}
	prev := c.typing
	events, next := typing.Apply(prev, k)
	if len(events) == 0 {
		return
	}
	c.typing = next

	sig := SignalNone
	for _, e := range events {
		switch e.Type {
		case typing.EvtMismatch:
			sig = SignalMismatch
			c.arm(c.opts.MismatchClearDelay, timerFired{kind: timerMismatchClear, gen: c.sessionGen, index: e.Index})
		case typing.EvtResetScheduled:
			c.arm(c.opts.CriticalResetDelay, timerFired{kind: timerCriticalReset, gen: c.sessionGen})
		case typing.EvtCompleted:
			sig = SignalCompleted
		}
	}

	if next.Changed(prev) {
		c.sendProgress()
	}
	if typing.ContainsEvent(events, typing.EvtCompleted) {
		c.sendFinished()
	}
	c.publish(sig)
}

func (c *Client) onStart() {
	if !c.joined || c.session.Status() != race.StatusWaiting {
		c.log.Debug("start ignored outside waiting room")
		return
	}
	c.send(protocol.StartGame{})
}

func (c *Client) sendProgress() {
	if !c.playing() {
		return
	}
	c.send(protocol.ProgressUpdate{CurrentIndex: c.typing.Index, MistakeCount: c.typing.Mistakes})
}

func (c *Client) sendFinished() {
	if c.finishSent || !c.playing() {
		return
	}
	c.finishSent = true
	c.send(protocol.GameFinished{})
}

func (c *Client) onMessage(msg protocol.Message) {
	if _, ok := msg.(protocol.Joined); !ok && !c.joined {
		c.anomaly(msg, "message before join handshake")
		return
	}

	sig := SignalNone
	switch m := msg.(type) {
	case protocol.Joined:
		sig = c.onJoined(m)
	case protocol.PlayerJoined:
		c.mergeRoster(m.Players)
	case protocol.GameStarted:
		sig = c.onGameStarted(m)
	case protocol.PlayerProgress:
		c.mergeRoster(m.Players)
	case protocol.GameFinished:
		if c.session.MarkFinished(m.Winner) {
			c.log.Info("race finished", zap.String("winner", m.Winner))
			sig = SignalFinished
		}
	case protocol.Unknown:
		c.log.Debug("ignoring unknown message", zap.String("type", m.Type))
		return
	default:
		c.anomaly(msg, "client-bound stream carried a client message")
		return
	}
	c.publish(sig)
}

func (c *Client) onJoined(m protocol.Joined) Signal {
	if c.joined {
		c.anomaly(m, "duplicate Joined")
		return SignalNone
	}
	c.joined = true
	c.playerID = m.PlayerID
	if m.ResumeToken != "" {
		c.resumeToken = m.ResumeToken
	}
	c.log.Info("joined room", zap.String("player_id", m.PlayerID), zap.String("status", m.Status))

	if m.TargetSentence != "" {
		if err := c.session.SetTargetSentence(m.TargetSentence); err != nil {
			c.anomaly(m, err.Error())
		}
	}
	c.mergeRoster(m.Players)

	status, ok := race.ParseStatus(m.Status)
	if !ok {
		status = race.StatusWaiting
	}
	c.typing = typing.New(c.session.Sentence())
	if status == race.StatusWaiting {
		return SignalNone
	}

	_, _ = c.session.ApplyStatusTransition(race.StatusPlaying)
	if status == race.StatusFinished {
		c.session.MarkFinished("")
		return SignalFinished
	}
	c.activate()
	return SignalStarted
}

func (c *Client) onGameStarted(m protocol.GameStarted) Signal {
	if m.TargetSentence != "" {
		if err := c.session.SetTargetSentence(m.TargetSentence); err != nil {
			c.anomaly(m, err.Error())
		}
	}
	changed, err := c.session.ApplyStatusTransition(race.StatusPlaying)
	if err != nil {
		c.anomaly(m, err.Error())
		return SignalNone
	}
	if !changed {
		return SignalNone
	}
	c.typing = typing.New(c.session.Sentence())
	c.activate()
	return SignalStarted
}

// activate opens the local typing state, picking up any progress the server
// still holds for us from before a reconnect.
func (c *Client) activate() {
	if self, ok := c.session.Player(c.playerID); ok && self.CurrentIndex > 0 {
		c.typing = typing.Seed(c.typing, self.CurrentIndex)
	}
	c.typing = typing.Start(c.typing)
	if c.typing.Phase == typing.PhaseDone && c.typing.Len() > 0 {
		c.sendFinished()
	}
}

func (c *Client) mergeRoster(players []protocol.Player) {
	roster := make([]race.Player, 0, len(players))
	for _, p := range players {
		roster = append(roster, race.Player{
			ID:           p.ID,
			Username:     p.Username,
			CurrentIndex: p.CurrentIndex,
			MistakeCount: p.MistakeCount,
		})
	}
	if err := c.session.ApplyRosterSnapshot(roster); err != nil {
		c.log.Debug("roster anomaly", zap.Error(err))
	}
}

func (c *Client) anomaly(msg protocol.Message, reason string) {
	c.log.Debug("protocol anomaly", zap.String("type", string(msg.Kind())), zap.String("reason", reason))
}
