package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/palette"
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("client closed")
var ErrAlreadyRunning = errors.New("client already running")

// Client keeps one player's typing state in sync with a race room. All state
// below the inbox is owned by the Run goroutine.
type Client struct {
	opts    Options
	log     *zap.Logger
	clock   clockwork.Clock
	dialer  Dialer
	inbox   chan Event
	updates chan Update
	done    chan struct{}
	running atomic.Bool
	ctx     context.Context

	// connection
	link             *link
	linkGen          int
	connected        bool
	reconnectPending bool
	notice           string
	resumeToken      string

	// race session, rebuilt on every (re)connect
	session    *race.Session
	sessionGen int
	playerID   string
	joined     bool
	typing     typing.State
	finishSent bool
}

func New(dialer Dialer, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:    opts,
		log:     opts.Logger.With(zap.String("channel", opts.ChannelID), zap.String("username", opts.Username)),
		clock:   opts.Clock,
		dialer:  dialer,
		inbox:   make(chan Event, opts.InboxSize),
		updates: make(chan Update, opts.UpdateQueue),
		done:    make(chan struct{}),
	}
}

// Inbox exposes the event queue so callers and tests can feed the loop.
func (c *Client) Inbox() chan<- Event { return c.inbox }

// Updates delivers a fresh View after every handled event.
func (c *Client) Updates() <-chan Update { return c.updates }

func (c *Client) Press(key typing.Key) error { return c.enqueue(KeyPressed{Key: key}) }

func (c *Client) Start() error { return c.enqueue(RequestStart{}) }

// View returns a snapshot taken after every event queued before the call.
func (c *Client) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := c.enqueue(GetView{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Client) enqueue(ev Event) error {
	select {
	case c.inbox <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// post is used by goroutines and timers owned by the client. It gives up once
// ctx ends so nothing is left blocked after shutdown.
func (c *Client) post(ctx context.Context, ev Event) bool {
	select {
	case c.inbox <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run connects and processes events until ctx is cancelled. A Client runs
// at most once.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(c.done)
	c.ctx = ctx

	c.dial()
	for {
		select {
		case <-ctx.Done():
			c.closeLink()
			c.log.Info("client stopped")
			return nil
		case ev := <-c.inbox:
			c.handle(ev)
		}
	}
}

func (c *Client) handle(ev Event) {
	switch e := ev.(type) {
	case KeyPressed:
		c.onKey(e.Key)
	case RequestStart:
		c.onStart()
	case GetView:
		select {
		case e.Reply <- c.view():
		default:
			c.log.Debug("view reply not ready, dropped")
		}
	case inbound:
		if e.gen != c.linkGen || c.link == nil {
			return
		}
		c.onMessage(e.msg)
	case connOpened:
		c.onOpened(e)
	case connLost:
		c.onLost(e)
	case timerFired:
		c.onTimer(e)
	}
}

func (c *Client) dial() {
	c.linkGen++
	gen := c.linkGen
	ctx := c.ctx
	go func() {
		dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
		defer cancel()
		conn, err := c.dialer.Dial(dctx)
		if err != nil {
			c.post(ctx, connLost{gen: gen, err: err})
			return
		}
		if !c.post(ctx, connOpened{gen: gen, conn: conn}) {
			_ = conn.Close()
		}
	}()
}

func (c *Client) onOpened(e connOpened) {
	if e.gen != c.linkGen || c.link != nil {
		_ = e.conn.Close()
		return
	}
	c.link = c.openLink(e.gen, e.conn)
	c.connected = true
	c.notice = ""
	c.resetSession()

	c.log.Info("connected", zap.Bool("resume", c.resumeToken != ""))
	c.send(protocol.JoinRoom{
		ChannelID:   c.opts.ChannelID,
		Username:    c.opts.Username,
		ResumeToken: c.resumeToken,
	})
	c.publish(SignalConnected)
}

func (c *Client) onLost(e connLost) {
	if e.gen != c.linkGen || c.reconnectPending {
		return
	}
	c.closeLink()
	c.connected = false
	c.notice = fmt.Sprintf("Connection lost. Reconnecting in %s...", c.opts.ReconnectDelay)
	c.log.Warn("connection lost", zap.Error(e.err))

	c.reconnectPending = true
	c.arm(c.opts.ReconnectDelay, timerFired{kind: timerReconnect, gen: c.linkGen})
	c.publish(SignalDisconnected)
}

func (c *Client) closeLink() {
	if c.link == nil {
		return
	}
	c.link.cancel()
	c.link = nil
}

// resetSession drops everything learned on the previous connection. Identity
// survives only through the resume token.
func (c *Client) resetSession() {
	c.sessionGen++
	c.session = race.NewSession(c.opts.ChannelID, palette.New(c.opts.Palette))
	c.playerID = ""
	c.joined = false
	c.typing = typing.New("")
	c.finishSent = false
}

func (c *Client) arm(d time.Duration, ev timerFired) {
	ctx := c.ctx
	c.clock.AfterFunc(d, func() {
		c.post(ctx, ev)
	})
}

func (c *Client) onTimer(e timerFired) {
	switch e.kind {
	case timerReconnect:
		if e.gen != c.linkGen || !c.reconnectPending {
			return
		}
		c.reconnectPending = false
		c.log.Info("reconnecting")
		c.dial()

	case timerMismatchClear:
		if e.gen != c.sessionGen {
			return
		}
		if e.index >= len(c.typing.Marks) || c.typing.Marks[e.index] != typing.MarkIncorrect {
			return
		}
		c.typing = typing.ClearMismatch(c.typing, e.index)
		c.publish(SignalMismatchCleared)

	case timerCriticalReset:
		// a reset armed before the race ended must not reach the wire
		if e.gen != c.sessionGen || c.session.Status() != race.StatusPlaying {
			return
		}
		events, next := typing.Reset(c.typing)
		if len(events) == 0 {
			return
		}
		c.typing = next
		c.log.Debug("critical reset")
		c.sendProgress()
		c.publish(SignalCriticalReset)
	}
}
