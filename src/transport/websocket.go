// transport/websocket.go
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sphinx-core/lamport/src/crypto/lamport"
	logger "github.com/sphinx-core/lamport/src/log"
	"github.com/sphinx-core/lamport/src/metrics"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
	maxMessage      = 1 << 20
)

// Option configures a WebSocketServer.
type Option func(*WebSocketServer)

// WithDigest sets the digest used by generate frames that name none.
func WithDigest(name string) Option { return func(s *WebSocketServer) { s.digest = name } }

// WithMetrics records session operations on m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *WebSocketServer) { s.metrics = m } }

// WithKeepalive sets how long a session may go without hearing from the peer.
// The server pings at nine tenths of that interval, so an idle peer that
// answers pings stays connected. Non-positive values keep the default.
func WithKeepalive(pongWait time.Duration) Option {
	return func(s *WebSocketServer) {
		if pongWait > 0 {
			s.pongWait = pongWait
		}
	}
}

// WithCheckOrigin replaces the upgrader's same-origin check.
func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(s *WebSocketServer) { s.upgrader.CheckOrigin = f }
}

// NewWebSocketServer creates a new WebSocket server. It is an http.Handler
// meant to be mounted on a router.
func NewWebSocketServer(opts ...Option) *WebSocketServer {
	s := &WebSocketServer{
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		digest:   lamport.DefaultDigest,
		pongWait: defaultPongWait,
		log:      logger.Named("ws"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports the number of open sessions.
func (s *WebSocketServer) Active() int64 { return s.active.Load() }

// ServeHTTP upgrades HTTP to WebSocket and runs a session until the peer
// disconnects.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)
	log := s.log.With(zap.String("remote", r.RemoteAddr))
	log.Debug("session opened")

	c := &serverConn{ws: conn}
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(c, done, log)

	sess := &session{digest: s.digest}
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("session dropped", zap.Error(err))
			} else {
				log.Debug("session closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))

		var req Request
		var resp Response
		if err := json.Unmarshal(data, &req); err != nil {
			resp = Response{Type: TypeError, Error: "invalid frame: " + err.Error()}
		} else {
			resp = sess.handle(req, s.metrics)
		}
		switch {
		case resp.Type == TypeError:
			log.Debug("session request failed", zap.String("type", req.Type), zap.String("error", resp.Error))
		case req.Type == TypeGenerate:
			log.Info("session key generated", zap.String("key_id", resp.KeyID), zap.String("digest", resp.Digest))
		}
		if err := c.write(resp); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

// serverConn serializes the writes of the read loop and the keepalive pinger.
type serverConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *serverConn) write(resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(resp)
}

func (c *serverConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// keepalive pings the peer until done is closed. A peer that stops answering
// lets the read deadline expire, which ends the session.
func (s *WebSocketServer) keepalive(c *serverConn, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(s.pongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

// Conn is the client side of a session. A background reader keeps consuming
// frames, so pings from the server are answered while the session is idle.
type Conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex // one request in flight
	frames  chan []byte
	readErr error // set before frames is closed
}

// ConnectWebSocket dials a session endpoint such as ws://host:port/ws.
func ConnectWebSocket(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{ws: ws, frames: make(chan []byte, 1)}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			close(c.frames)
			return
		}
		c.frames <- data
	}
}

// Do sends one request and waits for its reply.
func (c *Conn) Do(req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	return c.send(data)
}

// send writes a raw text frame and decodes the reply.
func (c *Conn) send(data []byte) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var resp Response
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return resp, err
	}
	reply, ok := <-c.frames
	if !ok {
		return resp, c.readErr
	}
	err := json.Unmarshal(reply, &resp)
	return resp, err
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.ws.Close()
}
