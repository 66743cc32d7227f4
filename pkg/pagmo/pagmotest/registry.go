package pagmotest

import (
	"context"

	"github.com/jdiez17/pagmo/pkg/pagmo/core"
)

// FakeRegistry implements core.RegistryClient against a shared Bus
// instead of a real Redis connection.
type FakeRegistry struct {
	bus        *Bus
	ConnectErr error
}

// NewFakeRegistry binds a new registry client to bus.
func NewFakeRegistry(bus *Bus) *FakeRegistry {
	return &FakeRegistry{bus: bus}
}

// NewFakeRegistryFactory adapts NewFakeRegistry into the factory shape
// that Island's WithRegistryFactory option expects.
func NewFakeRegistryFactory(bus *Bus) func() core.RegistryClient {
	return func() core.RegistryClient { return NewFakeRegistry(bus) }
}

func (r *FakeRegistry) Connect(ctx context.Context, host string, port int) error {
	return r.ConnectErr
}

func (r *FakeRegistry) AddMember(ctx context.Context, key, member string) error {
	r.bus.addMember(key, member)
	return nil
}

func (r *FakeRegistry) RemoveMember(ctx context.Context, key, member string) error {
	r.bus.removeMember(key, member)
	return nil
}

func (r *FakeRegistry) ListMembers(ctx context.Context, key string) ([]string, error) {
	return r.bus.members(key), nil
}

func (r *FakeRegistry) PublishControl(ctx context.Context, channel, payload string) error {
	r.bus.publish(channel, payload)
	return nil
}

func (r *FakeRegistry) Close() error { return nil }
