package client

import (
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
)

// Event is anything the client loop consumes. Keys, inbound frames,
// connection changes and timer fires all arrive through the same inbox, so
// they are handled strictly one at a time in arrival order.
type Event interface{ isClientEvent() }

type KeyPressed struct {
	Key typing.Key
}

func (KeyPressed) isClientEvent() {}

// RequestStart asks the server to start the race. Dropped unless the room is
// still waiting.
type RequestStart struct{}

func (RequestStart) isClientEvent() {}

// GetView asks the loop for a snapshot. Reply must have room for one value;
// the loop never waits on it.
type GetView struct {
	Reply chan View
}

func (GetView) isClientEvent() {}

type inbound struct {
	gen int
	msg protocol.Message
}

func (inbound) isClientEvent() {}

type connOpened struct {
	gen  int
	conn Conn
}

func (connOpened) isClientEvent() {}

type connLost struct {
	gen int
	err error
}

func (connLost) isClientEvent() {}

type timerKind string

const (
	timerMismatchClear timerKind = "mismatch-clear"
	timerCriticalReset timerKind = "critical-reset"
	timerReconnect     timerKind = "reconnect"
)

// timerFired carries the generation it was armed under; a fire whose
// generation no longer matches is stale and dropped.
type timerFired struct {
	kind  timerKind
	gen   int
	index int
}

func (timerFired) isClientEvent() {}
