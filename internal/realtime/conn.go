// Package realtime is the WebSocket event transport between the chat client
// and the support server.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
	eventBuffer    = 64
)

// ErrClosed is returned by Emit once the connection is closed.
var ErrClosed = errors.New("realtime: connection closed")

// Dialer opens connections to the support server.
type Dialer struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	Logger           *zap.Logger
}

// Dial connects and starts the read and write pumps.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	wd := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if wd.HandshakeTimeout == 0 {
		wd.HandshakeTimeout = 15 * time.Second
	}

	hdr := http.Header{}
	if d.Token != "" {
		hdr.Set("Authorization", "Bearer "+strings.TrimPrefix(d.Token, "Bearer "))
	}

	ws, resp, err := wd.DialContext(ctx, d.URL, hdr)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return newConn(ws, log.Named("realtime")), nil
}

// Accept wraps a server-side connection that was already upgraded.
func Accept(ws *websocket.Conn, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return newConn(ws, log)
}

// Conn is one live connection. Emits are written in call order by a single
// writer goroutine. Inbound events are delivered on Events until the
// connection ends.
type Conn struct {
	ws     *websocket.Conn
	log    *zap.Logger
	send   chan []byte
	events chan Envelope
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newConn(ws *websocket.Conn, log *zap.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		log:    log,
		send:   make(chan []byte, sendBuffer),
		events: make(chan Envelope, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

// Emit queues one event for delivery.
func (c *Conn) Emit(event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Events returns the inbound event stream. It is closed when the connection
// ends, after which Err reports why.
func (c *Conn) Events() <-chan Envelope {
	return c.events
}

// Done is closed once the connection is shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the transport error that ended the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Conn) readPump() {
	defer func() {
		close(c.events)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn("read failed", zap.Error(err))
					c.shutdown(err)
				} else {
					c.shutdown(nil)
				}
			}
			return
		}

		env, err := Decode(frame)
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("write failed", zap.Error(err))
				c.shutdown(err)
				_ = c.ws.Close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(err)
				_ = c.ws.Close()
				return
			}

		case <-c.done:
			c.drain()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = c.ws.Close()
			return
		}
	}
}

// drain flushes frames queued before Close.
func (c *Conn) drain() {
	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
