package pagmotest

import (
	"context"

	"github.com/jdiez17/pagmo/pkg/pagmo/core"
	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// FakeControlSubscriber implements core.ControlSubscriber against a
// shared Bus instead of a real Redis PubSub connection.
type FakeControlSubscriber struct {
	bus     *Bus
	channel string
	ch      chan string
	cancel  context.CancelFunc
}

// NewFakeControlFactory adapts a Bus into the factory shape Island's
// WithControlFactory option expects. The RegistryClient argument is
// ignored; the fake control subscriber always talks to bus directly.
func NewFakeControlFactory(bus *Bus) func(core.RegistryClient, types.Logger) core.ControlSubscriber {
	return func(core.RegistryClient, types.Logger) core.ControlSubscriber {
		return &FakeControlSubscriber{bus: bus}
	}
}

func (s *FakeControlSubscriber) Start(ctx context.Context, channel string, onConnected func(types.Endpoint)) error {
	s.channel = channel
	s.ch = s.bus.subscribe(channel)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case payload, ok := <-s.ch:
				if !ok {
					return
				}
				verb, endpoint, err := core.ParseControlPayload(payload)
				if err != nil {
					continue
				}
				if verb == "connected" {
					onConnected(endpoint)
				}
			}
		}
	}()
	return nil
}

func (s *FakeControlSubscriber) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ch != nil {
		s.bus.unsubscribe(s.channel, s.ch)
	}
	return nil
}
