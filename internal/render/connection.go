package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/geoanchor/pkg/streaming"
)

const (
	sendQueueSize = 1024
	ackQueueSize  = 16
	maxReconnect  = 10
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
)

// sceneReplay is what a reconnected client needs to rebuild the scene:
// the session announcement, then each live entity's place and latest move.
type sceneReplay struct {
	start []byte
	order []string
	place map[string][]byte
	move  map[string][]byte
}

func (r *sceneReplay) reset(start []byte) {
	r.start = start
	r.order = nil
	r.place = make(map[string][]byte)
	r.move = make(map[string][]byte)
}

func (r *sceneReplay) placed(id string, msg []byte) {
	if _, ok := r.place[id]; !ok {
		r.order = append(r.order, id)
	}
	r.place[id] = msg
	delete(r.move, id)
}

func (r *sceneReplay) moved(id string, msg []byte) {
	if _, ok := r.place[id]; ok {
		r.move[id] = msg
	}
}

func (r *sceneReplay) removed(id string) {
	if _, ok := r.place[id]; !ok {
		return
	}
	delete(r.place, id)
	delete(r.move, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// messages returns the replay in send order. Nothing is replayed outside a
// session.
func (r *sceneReplay) messages() [][]byte {
	if r.start == nil {
		return nil
	}
	out := [][]byte{r.start}
	for _, id := range r.order {
		out = append(out, r.place[id])
		if m, ok := r.move[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// connection is the WebSocket link to a render client. A single write
// goroutine owns the socket; acks are routed from the read goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	replay sceneReplay

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	wsURL  string
	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	c := &connection{
		sendCh: make(chan []byte, sendQueueSize),
		ackCh:  make(chan streaming.AckMessage, ackQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	c.replay.reset(nil)
	return c
}

// dial connects to the render client and starts the loops.
func (c *connection) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	c.wsURL = u.String()

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *connection) attach(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// stop ends the write loop once the read loop sees the socket fail.
	stop := make(chan struct{})
	go c.writeLoop(conn, stop)
	go c.readLoop(conn, stop)
}

func (c *connection) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// control writes a ping or close frame. Unlike write it is safe alongside
// the write loop.
func control(conn *ws.Conn, kind int, data []byte) error {
	return conn.WriteControl(kind, data, time.Now().Add(writeWait))
}

// writeLoop drains sendCh into conn and pings the client. It exits on the
// first write error, handing over to reconnect.
func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			err = control(conn, ws.PingMessage, nil)
		case data := <-c.sendCh:
			err = c.write(conn, data)
		}
		if err != nil {
			c.logger.Warn("Render client write failed", "error", err)
			go c.reconnect(conn)
			return
		}
	}
}

// readLoop forwards acks to ackCh. Other messages are ignored.
func (c *connection) readLoop(conn *ws.Conn, stop chan<- struct{}) {
	defer close(stop)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("Render client read failed", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring render client message", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack queue full, dropping", "for", ack.For, "ref", ack.Ref)
		}
	}
}

// reconnect replaces a failed socket. The read and write loops both call it
// for the same socket; only the first call that still owns it proceeds.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	_ = failed.Close()
	c.conn = nil
	c.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second

	for attempt := 1; attempt <= maxReconnect; attempt++ {
		wait := b.NextBackOff()
		select {
		case <-c.done:
			return
		case <-time.After(wait):
		}

		c.logger.Info("Reconnecting to render client", "attempt", attempt, "backoff", wait)
		conn, err := c.dialOnce()
		if err == nil {
			err = c.replayScene(conn)
		}
		if err != nil {
			c.logger.Warn("Render client reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		c.logger.Info("Render client reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.logger.Error("Giving up on render client", "maxAttempts", maxReconnect)
}

// replayScene writes the cached scene to a fresh socket. Acks for the
// replayed messages are not awaited.
func (c *connection) replayScene(conn *ws.Conn) error {
	c.mu.Lock()
	msgs := c.replay.messages()
	c.mu.Unlock()

	for _, m := range msgs {
		if err := c.write(conn, m); err != nil {
			_ = conn.Close()
			return fmt.Errorf("scene replay: %w", err)
		}
	}
	if len(msgs) > 0 {
		c.logger.Info("Replayed scene to render client", "messages", len(msgs))
	}
	return nil
}

// track updates the replay cache. It runs under the lock so a concurrent
// reconnect sees either the state before or after the change.
func (c *connection) track(fn func(*sceneReplay)) {
	c.mu.Lock()
	fn(&c.replay)
	c.mu.Unlock()
}

// send queues data for the write loop and drops it when the queue is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("Render client send queue full, dropping message")
	}
}

// sendAndWait sends data and blocks until the client acknowledges the
// message type and ref, or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor, ref string, timeout time.Duration) (streaming.AckMessage, error) {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor && ack.Ref == ref {
				return ack, nil
			}
		case <-timer.C:
			return streaming.AckMessage{}, fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return streaming.AckMessage{}, fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops the loops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = control(conn, ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
