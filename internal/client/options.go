package client

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Options struct {
	ChannelID string
	Username  string
	Palette   []string

	Logger *zap.Logger
	Clock  clockwork.Clock

	ReconnectDelay     time.Duration
	MismatchClearDelay time.Duration
	CriticalResetDelay time.Duration
	DialTimeout        time.Duration
	WriteTimeout       time.Duration

	InboxSize   int
	SendQueue   int
	UpdateQueue int
}

func DefaultOptions() Options {
	return Options{
		ChannelID:          protocol.DefaultChannel,
		ReconnectDelay:     3 * time.Second,
		MismatchClearDelay: 500 * time.Millisecond,
		CriticalResetDelay: 500 * time.Millisecond,
		DialTimeout:        10 * time.Second,
		WriteTimeout:       3 * time.Second,
		InboxSize:          64,
		SendQueue:          32,
		UpdateQueue:        16,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChannelID == "" {
		o.ChannelID = d.ChannelID
	}
	if o.Username == "" {
		o.Username = DefaultUsername()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = d.ReconnectDelay
	}
	if o.MismatchClearDelay <= 0 {
		o.MismatchClearDelay = d.MismatchClearDelay
	}
	if o.CriticalResetDelay <= 0 {
		o.CriticalResetDelay = d.CriticalResetDelay
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.InboxSize <= 0 {
		o.InboxSize = d.InboxSize
	}
	if o.SendQueue <= 0 {
		o.SendQueue = d.SendQueue
	}
	if o.UpdateQueue <= 0 {
		o.UpdateQueue = d.UpdateQueue
	}
	return o
}

// DefaultUsername is the placeholder name used when none is supplied.
func DefaultUsername() string {
	return fmt.Sprintf("player-%04d", rand.IntN(10000))
}
