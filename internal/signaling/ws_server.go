package signaling

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wavecall/signal-relay/internal/config"
	"github.com/wavecall/signal-relay/internal/metrics"
)

const wsWriteWait = 1 * time.Second

// WSServer upgrades signaling clients to WebSocket, assigns each
// connection its opaque identity and pumps inbound frames into the hub.
//
// Per-connection hardening mirrors the rest of the transport surface: an
// Origin allow-list on upgrade, a frame size cap, a message rate limit and
// ping/pong keepalive with an idle deadline.
type WSServer struct {
	log *slog.Logger
	hub *Hub

	allowedOrigins       []string
	idleTimeout          time.Duration
	pingInterval         time.Duration
	maxMessageBytes      int64
	maxMessagesPerSecond int

	upgrader websocket.Upgrader
}

func NewWSServer(cfg config.Config, log *slog.Logger, hub *Hub) *WSServer {
	s := &WSServer{
		log: log,
		hub: hub,

		allowedOrigins:       cfg.AllowedOrigins,
		idleTimeout:          cfg.WSIdleTimeout,
		pingInterval:         cfg.WSPingInterval,
		maxMessageBytes:      cfg.MaxMessageBytes,
		maxMessagesPerSecond: cfg.MaxMessagesPerSecond,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.originAllowed,
	}
	return s
}

// originAllowed accepts any request when no allow-list is configured.
// Otherwise the Origin header must match an entry exactly, or an entry must
// be "*". Requests without an Origin header (non-browser clients) are
// always accepted.
func (s *WSServer) originAllowed(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	p := &wsPeer{
		id:      uuid.NewString(),
		conn:    conn,
		log:     s.log,
		metrics: s.hub.Metrics(),
	}

	s.hub.Connect(p)
	s.serve(p)
}

func (s *WSServer) serve(p *wsPeer) {
	defer func() {
		s.hub.Disconnect(p.id)
		_ = p.conn.Close()
	}()

	p.conn.SetReadLimit(s.maxMessageBytes)
	p.resetReadDeadline(s.idleTimeout)
	p.conn.SetPongHandler(func(string) error {
		p.resetReadDeadline(s.idleTimeout)
		return nil
	})

	if s.pingInterval > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go p.keepalive(s.pingInterval, stop)
	}

	limiter := newRateLimiter(s.maxMessagesPerSecond)

	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		p.resetReadDeadline(s.idleTimeout)

		// Rate-limit after reading so bytes already in the TCP receive buffer
		// are consumed before the close frame goes out.
		if limiter != nil && !limiter.Allow(time.Now()) {
			s.hub.Metrics().Inc(metrics.DropReasonRateLimited)
			p.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			p.closeWith(websocket.CloseUnsupportedData, "expected text message")
			return
		}

		s.hub.HandleMessage(p.id, data)
	}
}

// wsPeer is the WebSocket-backed Peer implementation. Writes are serialized
// by writeMu and bounded by a short deadline; send errors are swallowed
// (fire-and-forget) and only surface as a drop counter.
type wsPeer struct {
	id      string
	conn    *websocket.Conn
	log     *slog.Logger
	metrics *metrics.Metrics

	writeMu sync.Mutex
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) Send(v any) {
	data, ok := v.(json.RawMessage)
	if !ok {
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			p.metrics.Inc(metrics.DropReasonSendFailed)
			p.log.Error("failed to encode outbound event", "conn_id", p.id, "err", err)
			return
		}
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.metrics.Inc(metrics.DropReasonSendFailed)
		p.log.Debug("dropping outbound event", "conn_id", p.id, "err", err)
	}
}

func (p *wsPeer) keepalive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.writeMu.Lock()
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			p.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (p *wsPeer) closeWith(code int, reason string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func (p *wsPeer) resetReadDeadline(idle time.Duration) {
	if idle <= 0 {
		return
	}
	_ = p.conn.SetReadDeadline(time.Now().Add(idle))
}

// rateLimiter is a token bucket sized to the per-second message budget.
type rateLimiter struct {
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
}

// newRateLimiter returns nil when messagesPerSecond <= 0 (unlimited).
func newRateLimiter(messagesPerSecond int) *rateLimiter {
	if messagesPerSecond <= 0 {
		return nil
	}
	rate := float64(messagesPerSecond)
	return &rateLimiter{
		rate:     rate,
		capacity: rate,
		tokens:   rate,
		last:     time.Now(),
	}
}

func (rl *rateLimiter) Allow(now time.Time) bool {
	elapsed := now.Sub(rl.last).Seconds()
	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.last = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
