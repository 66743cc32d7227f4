package pagmotest

import (
	"errors"
	"sync"

	"github.com/jdiez17/pagmo/pkg/pagmo/core"
	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// ErrFakeBindFailed is returned by FakeTransport.Bind when BindErr has
// been armed, e.g. to simulate a port collision.
var ErrFakeBindFailed = errors.New("pagmotest: simulated bind failure")

// FakeTransport is a deterministic, in-memory stand-in for a ZeroMQ
// PUB/SUB socket pair: Publish appends to an outbox whose latest entry
// a test can read with LastPublished, and Deliver injects a payload a test wants the
// next Receive to return.
type FakeTransport struct {
	mu      sync.Mutex
	bound   bool
	peers   []types.Endpoint
	outbox  [][]byte
	inbox   [][]byte
	BindErr error
}

// NewFakeTransport returns an empty transport. BindErr may be set
// before use to make the next Bind call fail.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (t *FakeTransport) Bind(endpoint types.Endpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BindErr != nil {
		err := t.BindErr
		t.BindErr = nil
		return err
	}
	t.bound = true
	return nil
}

func (t *FakeTransport) ConnectPeer(endpoint types.Endpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = append(t.peers, endpoint)
	return nil
}

func (t *FakeTransport) Publish(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	t.outbox = append(t.outbox, buf)
	return nil
}

func (t *FakeTransport) Receive() ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbox) == 0 {
		return nil, false, nil
	}
	data := t.inbox[0]
	t.inbox = t.inbox[1:]
	return data, true, nil
}

func (t *FakeTransport) Close() error { return nil }

// Deliver queues data to be returned by the next Receive call.
func (t *FakeTransport) Deliver(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbox = append(t.inbox, data)
}

// LastPublished returns the most recent payload handed to Publish.
func (t *FakeTransport) LastPublished() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.outbox) == 0 {
		return nil, false
	}
	return t.outbox[len(t.outbox)-1], true
}

// Peers returns every endpoint ConnectPeer has been called with.
func (t *FakeTransport) Peers() []types.Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Endpoint(nil), t.peers...)
}

// NewFakeTransportFactory adapts a single FakeTransport instance into
// the factory shape Island's WithTransportFactory option expects. The
// injected logger is ignored; FakeTransport never logs.
func NewFakeTransportFactory(t *FakeTransport) func(types.Logger) (core.Transport, error) {
	return func(types.Logger) (core.Transport, error) { return t, nil }
}
