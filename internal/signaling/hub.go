package signaling

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/wavecall/signal-relay/internal/metrics"
	"github.com/wavecall/signal-relay/internal/room"
)

// Peer is the transport-side handle for one connected client. Send is
// fire-and-forget: there is no acknowledgment, no retry and no
// backpressure; a failed or slow delivery is the recipient's loss.
type Peer interface {
	ID() string
	Send(v any)
}

// delivery pairs a resolved recipient with the event to push to it.
// Recipient sets are computed inside the hub's exclusive section; the
// actual sends happen outside it.
type delivery struct {
	peer  Peer
	event any
}

// Hub owns the registry and room directory and drives every state
// transition. All Registry/Directory access is serialized behind mu, which
// is the single exclusive section the state stores rely on; no partially
// applied transition is ever observable.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	registry *room.Registry
	rooms    *room.Directory
	peers    map[string]Peer
}

func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		log:      log,
		metrics:  m,
		registry: room.NewRegistry(),
		rooms:    room.NewDirectory(),
		peers:    make(map[string]Peer),
	}
}

func (h *Hub) Metrics() *metrics.Metrics { return h.metrics }

// Connect attaches a transport connection to the hub. The connection starts
// unjoined; it acquires an Association only via a join-room event.
func (h *Hub) Connect(p Peer) {
	h.mu.Lock()
	h.peers[p.ID()] = p
	h.mu.Unlock()

	h.metrics.Inc(metrics.ConnectionsActive)
	h.metrics.Inc(metrics.ConnectionsTotal)

	h.log.Debug("connection attached", "conn_id", p.ID())
}

// Disconnect detaches the connection and, when it had joined a room, runs
// the leave transition. Disconnecting a connection that never joined is a
// no-op beyond the detach; duplicate disconnects never drive the active
// connection gauge below zero.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	_, attached := h.peers[connID]
	delete(h.peers, connID)

	var notices []delivery
	if assoc, ok := h.registry.Lookup(connID); ok {
		notices = h.detachLocked(assoc)
	}
	h.mu.Unlock()

	if attached {
		h.metrics.Dec(metrics.ConnectionsActive)
		h.log.Debug("connection detached", "conn_id", connID)
	}

	deliver(notices)
}

// HandleMessage processes one inbound frame. Each frame is an isolated unit
// of work: a fault while handling it is caught here, counted, and must not
// affect any other connection or crash the process.
func (h *Hub) HandleMessage(connID string, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			h.metrics.Inc(metrics.HandlerErrors)
			h.log.Error("panic handling signaling event",
				"conn_id", connID,
				"recover", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	msg, err := ParseMessage(data)
	if err != nil {
		h.metrics.Inc(metrics.HandlerErrors)
		h.log.Debug("dropping malformed frame", "conn_id", connID, "err", err)
		return
	}

	switch {
	case msg.Type == MessageTypeJoinRoom:
		h.handleJoin(connID, msg)
	case msg.Type == MessageTypeLeaveRoom:
		h.handleLeave(connID)
	case msg.IsRelay():
		h.route(connID, msg)
	default:
		h.log.Debug("ignoring unknown event type", "conn_id", connID, "type", msg.Type)
	}
}

func (h *Hub) handleJoin(connID string, msg Message) {
	if msg.RoomID == "" || msg.UserID == "" {
		h.sendTo(connID, errorEvent{
			Type:    MessageTypeError,
			Message: "join-room requires roomId and userId",
		})
		return
	}

	departed, joined, joiner, participants := h.applyJoin(connID, msg.RoomID, msg.UserID)

	// The prior room (if any) sees the leave before anyone sees the join.
	deliver(departed)
	deliver(joined)
	if joiner != nil {
		joiner.Send(roomParticipantsEvent{
			Type:         MessageTypeRoomParticipants,
			Participants: participants,
		})
	}

	h.log.Info("user joined room",
		"conn_id", connID,
		"room_id", msg.RoomID,
		"user_id", msg.UserID,
		"peers", len(participants),
	)
}

// applyJoin runs the Unjoined -> Joined transition inside the exclusive
// section: retire any prior Association (last-join-wins), update the
// directory, register, and resolve every recipient set.
func (h *Hub) applyJoin(connID, roomID, userID string) (departed, joined []delivery, joiner Peer, participants []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.registry.Lookup(connID); ok {
		departed = h.detachLocked(prev)
	}

	participants = h.rooms.Join(roomID, userID)
	h.registry.Register(room.Association{ConnID: connID, UserID: userID, RoomID: roomID})

	for _, uid := range participants {
		p, ok := h.peerForLocked(uid, roomID)
		if !ok {
			continue
		}
		joined = append(joined, delivery{peer: p, event: userJoinedEvent{
			Type:         MessageTypeUserJoined,
			UserID:       userID,
			ConnectionID: connID,
		}})
	}

	return departed, joined, h.peers[connID], participants
}

func (h *Hub) handleLeave(connID string) {
	h.mu.Lock()
	var notices []delivery
	assoc, ok := h.registry.Lookup(connID)
	if ok {
		notices = h.detachLocked(assoc)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	deliver(notices)
	h.log.Info("user left room", "conn_id", connID, "room_id", assoc.RoomID, "user_id", assoc.UserID)
}

// detachLocked runs the Joined -> Left transition. The remaining peer set
// is computed first; removing the departing user cannot change who else is
// present, so order is immaterial, but resolving recipients before mutation
// keeps the transition obviously atomic.
func (h *Hub) detachLocked(a room.Association) []delivery {
	if owner, ok := h.registry.FindByUser(a.UserID, a.RoomID); ok && owner != a.ConnID {
		// A newer connection claimed this (user, room) pair, so the departing
		// association is stale. Drop its registration without touching the
		// room membership or notifying anyone; the winner is still present.
		h.registry.Unregister(a.ConnID)
		return nil
	}

	var notices []delivery
	for _, uid := range h.rooms.Members(a.RoomID) {
		if uid == a.UserID {
			continue
		}
		p, ok := h.peerForLocked(uid, a.RoomID)
		if !ok {
			continue
		}
		notices = append(notices, delivery{peer: p, event: userLeftEvent{
			Type:         MessageTypeUserLeft,
			UserID:       a.UserID,
			ConnectionID: a.ConnID,
		}})
	}

	h.registry.Unregister(a.ConnID)
	h.rooms.Leave(a.RoomID, a.UserID)
	return notices
}

// route relays a signaling payload. Targeted when targetUserId is present,
// room broadcast otherwise. Unresolved recipients are dropped silently:
// best-effort, at-most-once, counted as routed either way.
func (h *Hub) route(connID string, msg Message) {
	h.metrics.Inc(metrics.MessagesRouted)

	h.mu.Lock()
	assoc, ok := h.registry.Lookup(connID)
	if !ok {
		// Sender never joined; there is no identity to stamp. Drop.
		h.mu.Unlock()
		return
	}

	var recipients []Peer
	if msg.TargetUserID != "" {
		if p, ok := h.peerForLocked(msg.TargetUserID, msg.RoomID); ok {
			recipients = append(recipients, p)
		}
	} else {
		for _, uid := range h.rooms.Members(assoc.RoomID) {
			if uid == assoc.UserID {
				continue
			}
			if p, ok := h.peerForLocked(uid, assoc.RoomID); ok {
				recipients = append(recipients, p)
			}
		}
	}
	h.mu.Unlock()

	if len(recipients) == 0 {
		return
	}

	// Stamp the registry-resolved sender identity. Whatever fromUserId the
	// client asserted is overwritten, so payloads cannot spoof identity.
	msg.Fields["fromUserId"] = assoc.UserID
	payload, err := json.Marshal(msg.Fields)
	if err != nil {
		h.metrics.Inc(metrics.HandlerErrors)
		h.log.Error("failed to encode relayed payload", "conn_id", connID, "err", err)
		return
	}

	for _, p := range recipients {
		p.Send(json.RawMessage(payload))
	}
}

// peerForLocked resolves a (userID, roomID) pair to its transport peer.
func (h *Hub) peerForLocked(userID, roomID string) (Peer, bool) {
	connID, ok := h.registry.FindByUser(userID, roomID)
	if !ok {
		return nil, false
	}
	p, ok := h.peers[connID]
	return p, ok
}

func (h *Hub) sendTo(connID string, event any) {
	h.mu.Lock()
	p := h.peers[connID]
	h.mu.Unlock()
	if p != nil {
		p.Send(event)
	}
}

// Rooms returns a live snapshot of every room for introspection.
func (h *Hub) Rooms() []room.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.ListAll()
}

// Room returns the live snapshot of one room.
func (h *Hub) Room(roomID string) (room.Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.Get(roomID)
}

func deliver(notices []delivery) {
	for _, d := range notices {
		d.peer.Send(d.event)
	}
}
