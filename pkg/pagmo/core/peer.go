package core

import (
	"sync"

	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// PeerTable holds the set of remote endpoints this island's subscriber
// socket is currently connected to (spec.md §4.3). It does not track
// publisher-side peers: publication is a bound broadcast endpoint,
// peers connect to us.
//
// AddPeer is called from Initialise (for members already in the
// registry) and from the control-channel goroutine; every access is
// serialized by mu. AddPeer performs the
// subscriber-socket connect inside its own critical section so that
// "added to table" happens-before "subscriber wired" is guaranteed by
// construction, per spec.md §4.3.
type PeerTable struct {
	mu      sync.Mutex
	peers   map[string]types.Endpoint
	connect func(types.Endpoint) error
}

// NewPeerTable builds a PeerTable that invokes connect to wire a newly
// added peer into the subscriber socket.
func NewPeerTable(connect func(types.Endpoint) error) *PeerTable {
	return &PeerTable{
		peers:   make(map[string]types.Endpoint),
		connect: connect,
	}
}

// AddPeer idempotently adds endpoint to the table, connecting the
// subscriber socket to it the first time it is seen. A repeat add is a
// no-op and leaves the subscriber socket's connected set unchanged
// (spec.md §8 "Peer-table idempotence").
func (t *PeerTable) AddPeer(endpoint types.Endpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := endpoint.String()
	if _, already := t.peers[key]; already {
		return nil
	}
	if err := t.connect(endpoint); err != nil {
		return err
	}
	t.peers[key] = endpoint
	return nil
}

// Snapshot returns a copy of the currently known peer set, for
// diagnostics. No entry is ever removed while a tick is in flight;
// removals (not currently performed — see spec.md §9) would only be
// observed on the next tick.
func (t *PeerTable) Snapshot() []types.Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.Endpoint, 0, len(t.peers))
	for _, ep := range t.peers {
		out = append(out, ep)
	}
	return out
}

// Len returns the number of known peers.
func (t *PeerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
