package core

import (
	"testing"
	"time"

	"github.com/jdiez17/pagmo/pkg/pagmo/definition"
	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// These tests bind and connect real loopback ZeroMQ sockets, in the
// same spirit as this corpus's own transport tests, which exercise a
// real socket rather than mocking the transport boundary.

func TestZMQTransport_PublishAndReceive(t *testing.T) {
	log := definition.NewDefaultLogger()

	publisher, err := NewZMQTransport(log)
	if err != nil {
		t.Fatalf("create publisher transport: %v", err)
	}
	defer publisher.Close()

	subscriber, err := NewZMQTransport(log)
	if err != nil {
		t.Fatalf("create subscriber transport: %v", err)
	}
	defer subscriber.Close()

	endpoint := types.Endpoint{Host: "127.0.0.1", Port: 17555}
	if err := publisher.Bind(endpoint); err != nil {
		t.Fatalf("bind publisher: %v", err)
	}
	if err := subscriber.ConnectPeer(endpoint); err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}

	// ZeroMQ's PUB/SUB has no handshake signal; give the connection a
	// moment to settle before the first publish, matching common
	// practice for ZeroMQ-based transports under test.
	time.Sleep(200 * time.Millisecond)

	payload := []byte("hello island")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := publisher.Publish(payload); err != nil {
			t.Fatalf("publish: %v", err)
		}
		data, ok, err := subscriber.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if ok {
			if string(data) != string(payload) {
				t.Fatalf("expected %q, got %q", payload, data)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for published message")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestZMQTransport_ReceiveNonBlockingWhenEmpty(t *testing.T) {
	transport, err := NewZMQTransport(definition.NewDefaultLogger())
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}
	defer transport.Close()

	data, ok, err := transport.Receive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Fatalf("expected no message, got ok=%v data=%v", ok, data)
	}
}
