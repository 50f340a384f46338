// Package signaling implements the room-based signaling engine: the hub
// that tracks which connection joined which room, the join/leave/disconnect
// lifecycle, targeted and broadcast relay of session-negotiation payloads,
// and the WebSocket transport that carries them.
//
// Payloads (SDP, ICE candidates) are opaque to this package; it only routes
// them and stamps the sender identity.
package signaling
