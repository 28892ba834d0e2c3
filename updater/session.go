package updater

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/covenantmesh/covnode/iblt"
)

// State is one of the four states a per-peer reconciliation session moves
// through.
type State int

const (
	// StateIdle: no expectations outstanding.
	StateIdle State = iota

	// StatePollAsked: we've sent our PollContent and are waiting on the
	// peer's reply.
	StatePollAsked

	// StateIBLTExchanging: tips matched, we've sent our IBLT and are
	// waiting on the peer's.
	StateIBLTExchanging

	// StateFetching: we decoded a diff and sent Get; waiting on Content.
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePollAsked:
		return "poll_asked"
	case StateIBLTExchanging:
		return "iblt_exchanging"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// savedPoll is the snapshot of our own keyset we sent in a PollContent, so
// we can recognize the peer's reply as an answer to it and pick up where
// the protocol left off.
type savedPoll struct {
	tip    chainhash.Hash
	sketch *iblt.Sketch
	size   uint32
}

// session is the per-peer reconciliation state. It is only ever touched by
// the updater's single dispatch goroutine, so it carries no internal
// locking.
type session struct {
	state   State
	ourPoll *savedPoll
}
