package client

import (
	"context"

	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// link owns the reader and writer goroutines of one connection. Whichever
// fails first takes the other down and the loop hears about it as connLost.
type link struct {
	out    chan protocol.Message
	cancel context.CancelFunc
}

func (c *Client) openLink(gen int, conn Conn) *link {
	parent := c.ctx
	lctx, cancel := context.WithCancel(parent)
	l := &link{
		out:    make(chan protocol.Message, c.opts.SendQueue),
		cancel: cancel,
	}

	g, gctx := errgroup.WithContext(lctx)
	g.Go(func() error {
		for {
			msg, err := conn.Read(gctx)
			if err != nil {
				return err
			}
			if !c.post(gctx, inbound{gen: gen, msg: msg}) {
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case msg := <-l.out:
				wctx, cancel := context.WithTimeout(gctx, c.opts.WriteTimeout)
				err := conn.Write(wctx, msg)
				cancel()
				if err != nil {
					return err
				}
			}
		}
	})

	go func() {
		err := g.Wait()
		_ = conn.Close()
		cancel()
		c.post(parent, connLost{gen: gen, err: err})
	}()
	return l
}

// send queues m on the current link. Delivery is fire-and-forget: with no link
// or a full queue the message is dropped and the next snapshot heals it.
func (c *Client) send(m protocol.Message) {
	if c.link == nil {
		c.log.Debug("not connected, dropping", zap.String("type", string(m.Kind())))
		return
	}
	select {
	case c.link.out <- m:
	default:
		c.log.Warn("send queue full, dropping", zap.String("type", string(m.Kind())))
	}
}
