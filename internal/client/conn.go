package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Conn is one open message connection to the race server.
type Conn interface {
	Read(ctx context.Context) (protocol.Message, error)
	Write(ctx context.Context, m protocol.Message) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WSDialer opens websocket connections carrying JSON text frames.
type WSDialer struct {
	URL        string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (d WSDialer) Dial(ctx context.Context) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, &websocket.DialOptions{HTTPClient: d.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &wsConn{conn: conn, log: log}, nil
}

type wsConn struct {
	conn *websocket.Conn
	log  *zap.Logger
}

// Read returns the next decodable frame. Binary and malformed frames are
// skipped.
func (w *wsConn) Read(ctx context.Context) (protocol.Message, error) {
	for {
		typ, data, err := w.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		m, err := protocol.Decode(data)
		if err != nil {
			w.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		return m, nil
	}
}

func (w *wsConn) Write(ctx context.Context, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "bye")
}
