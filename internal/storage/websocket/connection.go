package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/tactical/pkg/streaming"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxReadSize  = 64 << 10
	ackTimeout   = 10 * time.Second
)

// link is one dialed socket with its read and write loops. Both loops stop
// when either of them fails.
type link struct {
	conn *ws.Conn
	down chan struct{}
	once sync.Once
}

func newLink(conn *ws.Conn) *link {
	return &link{conn: conn, down: make(chan struct{})}
}

func (l *link) fail() {
	l.once.Do(func() { close(l.down) })
}

func (l *link) failed() bool {
	select {
	case <-l.down:
		return true
	default:
		return false
	}
}

// connection keeps a socket to the viewer alive. Messages queued while it
// reconnects are written after the preamble.
type connection struct {
	mu      sync.Mutex
	current *link
	closed  bool

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}
	wg     sync.WaitGroup

	wsURL  string
	secret string

	// preamble is written first on every reconnect: start_battle followed by
	// each add_entity, so the server can rebuild the roster.
	preamble [][]byte

	dropped atomic.Uint64
	logger  *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// dial connects once and hands the socket to the supervisor.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go c.supervise(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// supervise runs one link at a time until close, redialing whenever a link
// goes down. It gives up after maxReconnect failed attempts.
func (c *connection) supervise(conn *ws.Conn) {
	defer c.wg.Done()
	for conn != nil {
		l := newLink(conn)
		c.mu.Lock()
		c.current = l
		c.mu.Unlock()

		go c.writeLoop(l)
		go c.readLoop(l)

		select {
		case <-c.done:
			_ = l.conn.Close()
			return
		case <-l.down:
		}

		c.mu.Lock()
		if c.current == l {
			c.current = nil
		}
		c.mu.Unlock()
		_ = l.conn.Close()

		conn = c.redial()
	}
}

// redial returns a connected socket with the preamble already written, or
// nil once the connection is closed or every attempt failed.
func (c *connection) redial() *ws.Conn {
	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		preamble := append([][]byte(nil), c.preamble...)
		c.mu.Unlock()
		if err := writePreamble(conn, preamble); err != nil {
			c.logger.Warn("Failed to replay battle preamble after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", len(preamble))
		return conn
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
	return nil
}

func writePreamble(conn *ws.Conn, msgs [][]byte) error {
	for _, msg := range msgs {
		if err := writeText(conn, msg); err != nil {
			return err
		}
	}
	return nil
}

func writeText(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// setPreamble replaces the reconnect preamble with a single start message.
func (c *connection) setPreamble(start []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start == nil {
		c.preamble = nil
		return
	}
	c.preamble = [][]byte{start}
}

func (c *connection) appendPreamble(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preamble != nil {
		c.preamble = append(c.preamble, data)
	}
}

// writeLoop is the only writer of data frames on l. It pings the server
// every pingPeriod.
func (c *connection) writeLoop(l *link) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-l.down:
			return
		case data := <-c.sendCh:
			if err := writeText(l.conn, data); err != nil {
				c.dropped.Add(1)
				c.logger.Warn("WebSocket write error", "error", err)
				l.fail()
				return
			}
		case <-ticker.C:
			if err := l.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket ping failed", "error", err)
				l.fail()
				return
			}
		}
	}
}

// readLoop routes acks to ackCh and ignores anything else. A missing pong
// for pongWait ends the link.
func (c *connection) readLoop(l *link) {
	l.conn.SetReadLimit(maxReadSize)
	_ = l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !l.failed() {
					c.logger.Warn("WebSocket read error", "error", err)
				}
			}
			l.fail()
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// send queues data without blocking. Messages are dropped when the queue is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.dropped.Add(1)
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait queues data and blocks until the server acks ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close says goodbye on the current link and waits for the supervisor.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	l := c.current
	c.current = nil
	c.mu.Unlock()

	if l != nil {
		_ = l.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
	}
	c.wg.Wait()
	return nil
}
