package updater

import "github.com/covenantmesh/covnode/relaywire"

// Transport is the push-only surface the updater uses to reply to peers.
// Framing, connection management, and back-pressure belong to the
// transport collaborator; the updater only ever calls Send.
type Transport interface {
	// Send delivers msg to peerID. Implementations may block; that
	// blocking is the back-pressure mechanism described in the
	// concurrency model.
	Send(peerID string, msg relaywire.Message) error
}

// EventKind identifies the kind of Event delivered on the updater's
// inbound channel.
type EventKind int

const (
	// EventPeerConnected signals a new peer the updater should start
	// reconciling with.
	EventPeerConnected EventKind = iota

	// EventPeerDisconnected signals a peer has gone away; any session
	// state for it is dropped.
	EventPeerDisconnected

	// EventMessage carries an inbound relay protocol message from a
	// peer.
	EventMessage

	// EventTick drives the once-per-interval timeout check.
	EventTick
)

// Event is the single type flowing over the updater's bounded inbound
// channel. Exactly one goroutine (the dispatch loop) ever reads from that
// channel, which is what gives per-peer session transitions their strict
// ordering.
type Event struct {
	Kind   EventKind
	PeerID string
	Msg    relaywire.Message
}
