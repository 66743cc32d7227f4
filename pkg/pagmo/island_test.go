package pagmo

import (
	"context"
	"testing"
	"time"

	"github.com/jdiez17/pagmo/pkg/pagmo/core"
	"github.com/jdiez17/pagmo/pkg/pagmo/pagmotest"
	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

func newTestIsland(t *testing.T, bus *pagmotest.Bus, transport *pagmotest.FakeTransport, opts ...Option) *Island {
	t.Helper()
	base := []Option{
		WithRegistryFactory(pagmotest.NewFakeRegistryFactory(bus)),
		WithControlFactory(pagmotest.NewFakeControlFactory(bus)),
		WithTransportFactory(pagmotest.NewFakeTransportFactory(transport)),
	}
	isl := NewIsland(pagmotest.NoopAlgorithm{}, pagmotest.BoxProblem{Dimensions: 2}, 4, append(base, opts...)...)
	isl.SetBrokerDetails("broker.internal", 6379)
	isl.SetToken("swarm-a")
	t.Cleanup(func() { _ = isl.Close() })
	return isl
}

func TestIsland_InitialiseRequiresConfiguration(t *testing.T) {
	bus := pagmotest.NewBus()
	isl := NewIsland(pagmotest.NoopAlgorithm{}, pagmotest.BoxProblem{Dimensions: 2}, 4,
		WithRegistryFactory(pagmotest.NewFakeRegistryFactory(bus)),
		WithControlFactory(pagmotest.NewFakeControlFactory(bus)),
		WithTransportFactory(pagmotest.NewFakeTransportFactory(pagmotest.NewFakeTransport())),
	)
	if _, err := isl.Initialise("10.0.0.1"); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestIsland_InitialiseRequiresAdvertisedIP(t *testing.T) {
	bus := pagmotest.NewBus()
	isl := newTestIsland(t, bus, pagmotest.NewFakeTransport())
	if _, err := isl.Initialise(""); err != ErrMissingAdvertisedIP {
		t.Fatalf("expected ErrMissingAdvertisedIP, got %v", err)
	}
}

func TestIsland_SoloIslandTicksWithEvolveDisabled(t *testing.T) {
	bus := pagmotest.NewBus()
	isl := newTestIsland(t, bus, pagmotest.NewFakeTransport())
	isl.SetEvolve(false)

	ok, err := isl.Initialise("10.0.0.1")
	if err != nil || !ok {
		t.Fatalf("initialise failed: ok=%v err=%v", ok, err)
	}
	if isl.State() != types.Initialized {
		t.Fatalf("expected Initialized, got %s", isl.State())
	}

	before := isl.Population().Individuals()
	isl.Evolve(3)
	after := isl.Population().Individuals()

	if len(before) != len(after) {
		t.Fatalf("population size changed with evolve disabled: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Fitness != after[i].Fitness {
			t.Fatalf("individual %d mutated with evolve disabled", i)
		}
	}
	if isl.State() != types.Running {
		t.Fatalf("expected Running after first tick, got %s", isl.State())
	}
}

func TestIsland_TwoIslandsExchangeAfterOneTick(t *testing.T) {
	bus := pagmotest.NewBus()

	transportA := pagmotest.NewFakeTransport()
	transportB := pagmotest.NewFakeTransport()

	islA := newTestIsland(t, bus, transportA)
	islB := newTestIsland(t, bus, transportB)
	islA.SetEvolve(false)
	islB.SetEvolve(false)

	if ok, err := islA.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise A: ok=%v err=%v", ok, err)
	}
	if ok, err := islB.Initialise("10.0.0.2"); err != nil || !ok {
		t.Fatalf("initialise B: ok=%v err=%v", ok, err)
	}

	// A ticks first and publishes its population.
	islA.Evolve(1)
	published, ok := transportA.LastPublished()
	if !ok {
		t.Fatal("expected A to have published a payload")
	}

	// Simulate the wire by handing A's publish straight to B's inbox:
	// the FakeTransport pair isn't actually connected to one another.
	transportB.Deliver(published)

	islB.Evolve(1)

	decoded, err := types.DecodePopulation(published)
	if err != nil {
		t.Fatalf("decode published payload: %v", err)
	}
	want := types.NewPopulation(pagmotest.BoxProblem{Dimensions: 2})
	want.Replace(decoded)
	if !islB.Population().Equal(want) {
		t.Fatalf("B's population was not replaced by A's published population")
	}
}

func TestIsland_PeerReceivesLateJoinerAnnouncement(t *testing.T) {
	bus := pagmotest.NewBus()

	transportA := pagmotest.NewFakeTransport()
	islA := newTestIsland(t, bus, transportA)
	if ok, err := islA.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise A: ok=%v err=%v", ok, err)
	}

	islB := newTestIsland(t, bus, pagmotest.NewFakeTransport())
	if ok, err := islB.Initialise("10.0.0.2"); err != nil || !ok {
		t.Fatalf("initialise B: ok=%v err=%v", ok, err)
	}

	// B's "connected" control announcement is dispatched to A
	// asynchronously over the fake bus; A's control subscriber goroutine
	// reacts by wiring B into A's own peer table.
	waitForPeers(t, transportA, 1)
}

func waitForPeers(t *testing.T, transport *pagmotest.FakeTransport, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(transport.Peers()) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d peer(s), got %d", want, len(transport.Peers()))
}

func TestIsland_MalformedMessageLeavesPopulationUnchanged(t *testing.T) {
	bus := pagmotest.NewBus()
	transport := pagmotest.NewFakeTransport()
	isl := newTestIsland(t, bus, transport)
	isl.SetEvolve(false)

	if ok, err := isl.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise: ok=%v err=%v", ok, err)
	}

	before := append([]types.Individual(nil), isl.Population().Individuals()...)

	transport.Deliver([]byte("not valid json"))
	isl.Evolve(1)

	after := isl.Population().Individuals()
	if len(before) != len(after) {
		t.Fatalf("population size changed after malformed message: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Fitness != after[i].Fitness {
			t.Fatalf("individual %d changed after malformed message", i)
		}
	}
}

func TestIsland_CallbackRunsBeforeDecode(t *testing.T) {
	bus := pagmotest.NewBus()
	transport := pagmotest.NewFakeTransport()
	isl := newTestIsland(t, bus, transport)
	isl.SetEvolve(false)

	if ok, err := isl.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise: ok=%v err=%v", ok, err)
	}

	var received []byte
	isl.SetCallback(func(data []byte) { received = data })

	payload := []byte(`{"whatever":"is delivered"}`)
	transport.Deliver(payload)
	isl.Evolve(1)

	if string(received) != string(payload) {
		t.Fatalf("callback did not receive raw payload: %q", received)
	}
}

func TestIsland_CloseIsIdempotentAndReinitialisable(t *testing.T) {
	bus := pagmotest.NewBus()
	isl := newTestIsland(t, bus, pagmotest.NewFakeTransport())

	if ok, err := isl.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise: ok=%v err=%v", ok, err)
	}
	if err := isl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := isl.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got: %v", err)
	}
	if isl.State() != types.Configured {
		t.Fatalf("expected Configured after close, got %s", isl.State())
	}

	ok, err := isl.Initialise("10.0.0.1")
	if err != nil || !ok {
		t.Fatalf("re-initialise after clean close: ok=%v err=%v", ok, err)
	}
}

func TestIsland_PortCollisionRecovers(t *testing.T) {
	bus := pagmotest.NewBus()
	transport := pagmotest.NewFakeTransport()
	transport.BindErr = pagmotest.ErrFakeBindFailed

	isl := newTestIsland(t, bus, transport)

	ok, err := isl.Initialise("10.0.0.1")
	if ok || err == nil {
		t.Fatalf("expected first bind to fail, got ok=%v err=%v", ok, err)
	}
	if isl.State() != types.Configured {
		t.Fatalf("failed bind must leave state at Configured, got %s", isl.State())
	}

	ok, err = isl.Initialise("10.0.0.1")
	if !ok || err != nil {
		t.Fatalf("expected retry to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestIsland_DisconnectedControlMessageIsANoOp(t *testing.T) {
	verb, endpoint, err := core.ParseControlPayload("disconnected/10.0.0.9:1999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verb != "disconnected" {
		t.Fatalf("expected disconnected, got %s", verb)
	}
	_ = endpoint

	// A running island that sees a disconnected notification followed by
	// a connected one must wire only the connected peer.
	bus := pagmotest.NewBus()
	transport := pagmotest.NewFakeTransport()
	isl := newTestIsland(t, bus, transport)
	if ok, err := isl.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise: ok=%v err=%v", ok, err)
	}

	announcer := pagmotest.NewFakeRegistry(bus)
	controlKey := core.ControlKey("swarm-a")
	_ = announcer.PublishControl(context.Background(), controlKey, "disconnected/10.0.0.9:1999")
	_ = announcer.PublishControl(context.Background(), controlKey, "connected/10.0.0.8:1888")

	waitForPeers(t, transport, 1)
	peers := transport.Peers()
	if len(peers) != 1 || peers[0].String() != "10.0.0.8:1888" {
		t.Fatalf("expected only the connected peer to be wired, got %v", peers)
	}
}
