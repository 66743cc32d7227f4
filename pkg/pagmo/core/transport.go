package core

import (
	"fmt"
	"syscall"

	"github.com/pebbe/zmq4"

	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// Transport is the pub/sub pair described in spec.md §4.4: one
// publisher bound to this island's own endpoint, one aggregating
// subscriber connected to every known peer. Receive never blocks.
type Transport interface {
	// Bind binds the publisher socket to endpoint.
	Bind(endpoint types.Endpoint) error

	// ConnectPeer wires the subscriber socket to a peer's publisher
	// endpoint. Safe to call multiple times for the same endpoint;
	// ZeroMQ connect is itself idempotent.
	ConnectPeer(endpoint types.Endpoint) error

	// Publish broadcasts data on the publisher socket, fire-and-
	// forget: if nothing is connected, the message is silently
	// discarded by ZeroMQ's PUB/SUB semantics.
	Publish(data []byte) error

	// Receive performs exactly one non-blocking poll. ok is false
	// when no message was ready; this is not an error.
	Receive() (data []byte, ok bool, err error)

	// Close tears down both sockets. Best-effort, idempotent. The
	// ZeroMQ implementation creates its sockets on the process-wide
	// default context, which Close leaves open; islands do not get a
	// messaging context of their own.
	Close() error
}

// zmqTransport implements Transport over ZeroMQ TCP sockets, matching
// the wire-level contract ("tcp://host:port", PUB/SUB, empty-prefix
// subscribe, non-blocking receive) of the original zmq_island this
// package's design descends from.
type zmqTransport struct {
	pub *zmq4.Socket
	sub *zmq4.Socket
	log types.Logger
}

// NewZMQTransport creates the publisher and subscriber sockets for one
// island. The publisher is not bound and the subscriber is not
// connected to anything yet; Bind and ConnectPeer do that. Socket-level
// errors are reported through log, the same injected types.Logger used
// everywhere else in this package.
func NewZMQTransport(log types.Logger) (Transport, error) {
	pub, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create publisher socket: %w", err)
	}
	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create subscriber socket: %w", err)
	}
	// Subscribe with the empty prefix: accept all messages,
	// per spec.md §4.4.
	if err := sub.SetSubscribe(""); err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return nil, fmt.Errorf("configure subscriber socket: %w", err)
	}
	return &zmqTransport{pub: pub, sub: sub, log: log}, nil
}

func (t *zmqTransport) Bind(endpoint types.Endpoint) error {
	// A bind failure (port already in use) is surfaced as an error
	// out of initialisation, per spec.md §7 point 4 — fatal to this
	// attempt, but the caller may retry with a freshly chosen port.
	return t.pub.Bind(endpoint.ZMQAddress())
}

func (t *zmqTransport) ConnectPeer(endpoint types.Endpoint) error {
	return t.sub.Connect(endpoint.ZMQAddress())
}

func (t *zmqTransport) Publish(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	if _, err := t.pub.SendBytes(buf, zmq4.DONTWAIT); err != nil {
		t.log.Errorf("pagmo: publish failed: %v", err)
		PublishFailures.Inc()
		return err
	}
	return nil
}

func (t *zmqTransport) Receive() ([]byte, bool, error) {
	data, err := t.sub.RecvBytes(zmq4.DONTWAIT)
	if err != nil {
		if errno, ok := err.(zmq4.Errno); ok && errno == zmq4.Errno(syscall.EAGAIN) {
			return nil, false, nil
		}
		t.log.Errorf("pagmo: receive failed: %v", err)
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

func (t *zmqTransport) Close() error {
	errPub := t.pub.Close()
	errSub := t.sub.Close()
	if errPub != nil {
		return errPub
	}
	return errSub
}
