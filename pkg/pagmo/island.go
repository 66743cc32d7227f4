// Package pagmo implements the networked island subsystem: a
// peer-to-peer overlay in which independent local optimizer instances
// discover one another through a shared registry and asynchronously
// exchange their current populations so that good solutions propagate
// across the fleet while each island continues its own local search.
package pagmo

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"sync"

	"github.com/jdiez17/pagmo/pkg/pagmo/core"
	"github.com/jdiez17/pagmo/pkg/pagmo/definition"
	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// portRangeLow and portRangeHigh bound the uniform random local port
// selection in spec.md §3: "[1000, 3000)".
const (
	portRangeLow  = 1000
	portRangeHigh = 3000
)

// Island is the networked island engine (spec.md §4.5): it owns a
// local Population, and on every tick runs the local Algorithm,
// publishes the result, polls for one incoming population, and
// applies it.
//
// An Island is not copyable: cloning a live island would need a fresh
// port, fresh sockets and fresh registry membership, none of which
// can be meaningfully duplicated (spec.md §9 "Island value
// semantics"). Callers needing independent islands construct them
// separately with NewIsland.
type Island struct {
	mu sync.Mutex

	algorithm  types.Algorithm
	population *types.Population
	evolve     bool
	callback   func([]byte)

	state types.State

	brokerHost string
	brokerPort int
	token      string

	advertisedIP  string
	localEndpoint types.Endpoint
	connected     bool

	registry  core.RegistryClient
	control   core.ControlSubscriber
	peers     *core.PeerTable
	transport core.Transport

	rng *mathrand.Rand
	log types.Logger

	newRegistry  func() core.RegistryClient
	newControl   func(core.RegistryClient, types.Logger) core.ControlSubscriber
	newTransport func(types.Logger) (core.Transport, error)
}

// Option configures an Island at construction time.
type Option func(*Island)

// WithLogger overrides the default logrus-backed logger.
func WithLogger(log types.Logger) Option {
	return func(isl *Island) { isl.log = log }
}

// WithRegistryFactory overrides how the island builds its
// RegistryClient. Used by tests to install an in-memory fake instead
// of dialing a real Redis broker.
func WithRegistryFactory(f func() core.RegistryClient) Option {
	return func(isl *Island) { isl.newRegistry = f }
}

// WithControlFactory overrides how the island builds its
// ControlSubscriber from an already-constructed RegistryClient. Used
// by tests alongside WithRegistryFactory.
func WithControlFactory(f func(core.RegistryClient, types.Logger) core.ControlSubscriber) Option {
	return func(isl *Island) { isl.newControl = f }
}

// WithTransportFactory overrides how the island builds its Transport.
// Used by tests that want deterministic in-process delivery instead
// of real ZeroMQ sockets.
func WithTransportFactory(f func(types.Logger) (core.Transport, error)) Option {
	return func(isl *Island) { isl.newTransport = f }
}

// defaultControlFactory builds a Redis-backed ControlSubscriber
// sharing the connection pool opened by a Redis-backed RegistryClient.
func defaultControlFactory(r core.RegistryClient, log types.Logger) core.ControlSubscriber {
	client := core.RedisClientForSubscription(r)
	return core.NewRedisControlSubscriber(client, log)
}

// NewIsland constructs an island with a random n-individual population
// for problem, per spec.md §4.5 "construct". The island starts
// Unconfigured; SetBrokerDetails and SetToken must both be called
// before Initialise can succeed.
func NewIsland(algorithm types.Algorithm, problem types.Problem, n int, opts ...Option) *Island {
	isl := &Island{
		algorithm:    algorithm,
		evolve:       true,
		state:        types.Unconfigured,
		rng:          newIsolatedRNG(),
		log:          definition.NewDefaultLogger(),
		newRegistry:  core.NewRedisRegistryClient,
		newControl:   defaultControlFactory,
		newTransport: core.NewZMQTransport,
	}
	isl.population = types.NewRandomPopulation(problem, n, isl.rng)
	for _, opt := range opts {
		opt(isl)
	}
	return isl
}

// newIsolatedRNG builds a random source private to one island. Per
// spec.md §5 and §9, seeding must never touch process-global random
// state, so that multiple co-existing islands don't couple their
// search through a shared PRNG.
func newIsolatedRNG() *mathrand.Rand {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err == nil {
		seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
		return mathrand.New(mathrand.NewSource(seed))
	}
	// crypto/rand is not expected to fail on any supported platform;
	// this fallback only avoids a nil RNG in that unlikely event.
	return mathrand.New(mathrand.NewSource(0))
}

// SetBrokerDetails records the registry broker's address. The island
// transitions Unconfigured -> Configured once a token has also been
// set (spec.md §3).
func (isl *Island) SetBrokerDetails(host string, port int) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	isl.brokerHost = host
	isl.brokerPort = port
	isl.maybeConfigureLocked()
}

// SetToken records the registry topic token. The island transitions
// Unconfigured -> Configured once broker host and port have also been
// set (spec.md §3).
func (isl *Island) SetToken(token string) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	isl.token = token
	isl.maybeConfigureLocked()
}

func (isl *Island) maybeConfigureLocked() {
	if isl.state == types.Unconfigured && isl.brokerHost != "" && isl.brokerPort != 0 && isl.token != "" {
		isl.state = types.Configured
	}
}

// SetCallback installs a per-message observer invoked with the raw
// incoming payload, before the local population is replaced
// (spec.md §8 "Callback ordering").
func (isl *Island) SetCallback(fn func([]byte)) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	isl.callback = fn
}

// DisableCallback clears any installed callback.
func (isl *Island) DisableCallback() {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	isl.callback = nil
}

// SetEvolve toggles whether the local algorithm runs each tick. With
// evolve disabled, the island is in pure exchange mode: it still
// publishes and receives, but never advances its population locally.
func (isl *Island) SetEvolve(value bool) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	isl.evolve = value
}

// GetEvolve reports whether the local algorithm runs each tick.
func (isl *Island) GetEvolve() bool {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.evolve
}

// State reports the island's current lifecycle state.
func (isl *Island) State() types.State {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.state
}

// Population exposes the island's current population, e.g. for
// reading results between Evolve calls. The returned pointer aliases
// the island's own state and must not be mutated by the caller.
func (isl *Island) Population() *types.Population {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.population
}

// Initialise runs the initialisation protocol from spec.md §4.5:
// it validates configuration, connects to the broker, discovers and
// wires existing peers, advertises this island's own endpoint, binds
// the publisher, and subscribes to the control channel. advertisedIP
// is the routable IPv4 address other islands should use to reach this
// one; automatic discovery is explicitly out of scope (spec.md §9 "IP
// discovery").
//
// Returns false without changing the broker/token/population state
// whenever a precondition is unmet or a registry operation fails
// (spec.md §7, points 1-3); a transport bind failure is returned as an
// error so the caller can retry — a fresh random port is chosen on
// every call (spec.md §7 point 4, and the "Port collision recovery"
// scenario in §8).
func (isl *Island) Initialise(advertisedIP string) (bool, error) {
	isl.mu.Lock()
	defer isl.mu.Unlock()

	if isl.state == types.Initialized || isl.state == types.Running {
		return false, ErrAlreadyInitialised
	}
	if isl.state != types.Configured {
		return false, ErrNotConfigured
	}
	if advertisedIP == "" {
		return false, ErrMissingAdvertisedIP
	}
	isl.advertisedIP = advertisedIP

	ctx := context.Background()

	if !isl.connected {
		if isl.registry == nil {
			isl.registry = isl.newRegistry()
		}
		if err := isl.registry.Connect(ctx, isl.brokerHost, isl.brokerPort); err != nil {
			return false, fmt.Errorf("%w: %v", ErrBrokerUnreachable, err)
		}
		isl.control = isl.newControl(isl.registry, isl.log)
		isl.connected = true
	}

	if isl.transport == nil {
		transport, err := isl.newTransport(isl.log)
		if err != nil {
			return false, fmt.Errorf("create transport: %w", err)
		}
		isl.transport = transport
	}
	if isl.peers == nil {
		isl.peers = core.NewPeerTable(func(endpoint types.Endpoint) error {
			err := isl.transport.ConnectPeer(endpoint)
			if err == nil {
				core.PeersConnected.Inc()
			}
			return err
		})
	}

	// Choose a local port uniformly from [1000, 3000) and compute the
	// local endpoint string, per spec.md §3.
	port := portRangeLow + isl.rng.Intn(portRangeHigh-portRangeLow)
	isl.localEndpoint = types.Endpoint{Host: advertisedIP, Port: port}

	membershipKey := core.MembershipKey(isl.token)
	controlKey := core.ControlKey(isl.token)

	members, err := isl.registry.ListMembers(ctx, membershipKey)
	if err != nil {
		return false, fmt.Errorf("list registry members: %w", err)
	}

	// Peers already in the registry are wired before we advertise
	// ourselves. The publisher is bound only after the announcement
	// below, so a peer reacting to it may connect before the bind.
	for _, member := range members {
		endpoint, err := types.ParseEndpoint(member)
		if err != nil {
			isl.log.Warnf("ignoring malformed registry member %q: %v", member, err)
			continue
		}
		if err := isl.peers.AddPeer(endpoint); err != nil {
			isl.log.Errorf("failed connecting to peer %s: %v", endpoint, err)
		}
	}

	if err := isl.registry.AddMember(ctx, membershipKey, isl.localEndpoint.String()); err != nil {
		return false, fmt.Errorf("advertise membership: %w", err)
	}
	if err := isl.registry.PublishControl(ctx, controlKey, "connected/"+isl.localEndpoint.String()); err != nil {
		return false, fmt.Errorf("publish connected notification: %w", err)
	}

	if err := isl.transport.Bind(isl.localEndpoint); err != nil {
		return false, fmt.Errorf("bind publisher to %s: %w", isl.localEndpoint, err)
	}

	if err := isl.control.Start(ctx, controlKey, func(endpoint types.Endpoint) {
		if err := isl.peers.AddPeer(endpoint); err != nil {
			isl.log.Errorf("failed connecting to newly announced peer %s: %v", endpoint, err)
		}
	}); err != nil {
		return false, fmt.Errorf("start control subscriber: %w", err)
	}

	isl.state = types.Initialized
	return true, nil
}

// Evolve runs n ticks synchronously. Each tick: if the evolve flag is
// set, the local algorithm advances the population; if the island is
// initialised, the current population is published and at most one
// incoming population is polled for and, on successful decode, applied
// wholesale (spec.md §4.5 "Tick semantics").
func (isl *Island) Evolve(n int) {
	for i := 0; i < n; i++ {
		isl.tick()
	}
}

func (isl *Island) tick() {
	isl.mu.Lock()
	defer isl.mu.Unlock()

	networkCapable := isl.state == types.Initialized || isl.state == types.Running
	if isl.state == types.Initialized {
		isl.state = types.Running
	}

	if isl.evolve {
		isl.algorithm.Evolve(isl.population)
	}
	core.TicksRun.Inc()

	if !networkCapable {
		return
	}

	data, err := types.EncodePopulation(isl.population)
	if err != nil {
		isl.log.Errorf("%s: failed to encode population for publish: %v", isl.algorithm.Name(), err)
	} else if err := isl.transport.Publish(data); err != nil {
		isl.log.Debugf("%s: publish failed (no subscribers or transient error): %v", isl.algorithm.Name(), err)
	}

	incoming, ok, err := isl.transport.Receive()
	if err != nil {
		isl.log.Errorf("%s: receive failed: %v", isl.algorithm.Name(), err)
		return
	}
	if !ok {
		return
	}

	if isl.callback != nil {
		isl.callback(incoming)
	}

	individuals, err := types.DecodePopulation(incoming)
	if err != nil {
		// Deserialization failure never propagates out of the tick:
		// the surrounding optimization loop must keep making
		// progress (spec.md §4.5, §7 point 5).
		isl.log.Errorf("ZMQ Recv Error during island evolution using %s: %v", isl.algorithm.Name(), err)
		core.MigrationsDropped.Inc()
		return
	}
	isl.population.Replace(individuals)
	core.MigrationsApplied.Inc()
}

// Close removes this island from the registry, publishes a
// disconnected notification, and tears down the control subscriber
// and transport sockets. All steps are best-effort: a failure in one
// does not prevent the rest from running. Idempotent; safe to call on
// an island that was never initialised.
//
// If broker and token were configured, the island settles back at
// Configured rather than a terminal Closed, so Initialise can be
// called again on the same value — this is what lets a caller recover
// from a bind failure, and what the "safe to call after a clean
// close" property in spec.md §8 relies on.
func (isl *Island) Close() error {
	isl.mu.Lock()
	defer isl.mu.Unlock()

	if isl.state == types.Closed {
		return nil
	}

	ctx := context.Background()
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if isl.registry != nil && isl.connected {
		membershipKey := core.MembershipKey(isl.token)
		controlKey := core.ControlKey(isl.token)
		record(isl.registry.RemoveMember(ctx, membershipKey, isl.localEndpoint.String()))
		record(isl.registry.PublishControl(ctx, controlKey, "disconnected/"+isl.localEndpoint.String()))
	}
	if isl.control != nil {
		record(isl.control.Close())
	}
	if isl.registry != nil {
		record(isl.registry.Close())
	}
	if isl.transport != nil {
		record(isl.transport.Close())
	}

	if isl.peers != nil {
		core.PeersConnected.Sub(float64(isl.peers.Len()))
	}
	isl.registry = nil
	isl.control = nil
	isl.transport = nil
	isl.peers = nil
	isl.connected = false

	if isl.brokerHost != "" && isl.brokerPort != 0 && isl.token != "" {
		isl.state = types.Configured
	} else {
		isl.state = types.Closed
	}
	return firstErr
}
