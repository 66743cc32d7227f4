package core

import (
	"testing"

	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

func TestPeerTable_AddPeerIsIdempotent(t *testing.T) {
	connects := 0
	table := NewPeerTable(func(types.Endpoint) error {
		connects++
		return nil
	})

	ep := types.Endpoint{Host: "10.0.0.2", Port: 1700}
	if err := table.AddPeer(ep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := table.AddPeer(ep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if connects != 1 {
		t.Fatalf("expected exactly 1 socket connect, got %d", connects)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 peer, got %d", table.Len())
	}
}

func TestPeerTable_ConnectFailurePropagates(t *testing.T) {
	table := NewPeerTable(func(types.Endpoint) error {
		return errTestConnect
	})

	if err := table.AddPeer(types.Endpoint{Host: "10.0.0.3", Port: 1800}); err == nil {
		t.Fatal("expected connect failure to propagate")
	}
	if table.Len() != 0 {
		t.Fatalf("peer must not be recorded when connect fails, got %d", table.Len())
	}
}

func TestPeerTable_Snapshot(t *testing.T) {
	table := NewPeerTable(func(types.Endpoint) error { return nil })
	a := types.Endpoint{Host: "10.0.0.1", Port: 1500}
	b := types.Endpoint{Host: "10.0.0.2", Port: 1700}
	_ = table.AddPeer(a)
	_ = table.AddPeer(b)

	snap := table.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(snap))
	}
}

var errTestConnect = &testError{"connect failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
