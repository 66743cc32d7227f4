package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jdiez17/pagmo/pkg/pagmo/types"
)

// ControlSubscriber is the long-lived subscription to a topic's
// control channel (spec.md §4.2). Notifications are delivered
// asynchronously, on a dedicated background goroutine, through
// onConnected. The "disconnected" verb is parsed but intentionally
// not acted upon here — see spec.md §9 "Control-channel disconnected
// path".
type ControlSubscriber interface {
	// Start begins listening on channel. onConnected is invoked once
	// per "connected/<endpoint>" message, in registry delivery order.
	// Malformed messages are dropped silently.
	Start(ctx context.Context, channel string, onConnected func(types.Endpoint)) error

	// Close ends the subscription. Best-effort, idempotent.
	Close() error
}

// ParseControlPayload parses the bit-exact grammar from spec.md §4.2:
// "<verb>/<endpointString>", verb is "connected" or "disconnected".
func ParseControlPayload(payload string) (verb string, endpoint types.Endpoint, err error) {
	idx := strings.IndexByte(payload, '/')
	if idx < 0 {
		return "", types.Endpoint{}, fmt.Errorf("control payload %q: missing verb/endpoint separator", payload)
	}
	verb = payload[:idx]
	if verb != "connected" && verb != "disconnected" {
		return "", types.Endpoint{}, fmt.Errorf("control payload %q: unknown verb %q", payload, verb)
	}
	endpoint, err = types.ParseEndpoint(payload[idx+1:])
	if err != nil {
		return "", types.Endpoint{}, fmt.Errorf("control payload %q: %w", payload, err)
	}
	return verb, endpoint, nil
}

// redisControlSubscriber implements ControlSubscriber against a Redis
// pub/sub connection shared with the registry client.
type redisControlSubscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    types.Logger
}

// NewRedisControlSubscriber builds a ControlSubscriber on top of an
// already-connected Redis client (see RedisClientForSubscription).
func NewRedisControlSubscriber(client *redis.Client, log types.Logger) ControlSubscriber {
	return &redisControlSubscriber{client: client, log: log}
}

func (s *redisControlSubscriber) Start(ctx context.Context, channel string, onConnected func(types.Endpoint)) error {
	s.pubsub = s.client.Subscribe(ctx, channel)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to control channel %s: %w", channel, err)
	}

	ch := s.pubsub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.dispatch(msg.Payload, onConnected)
			}
		}
	}()
	return nil
}

func (s *redisControlSubscriber) dispatch(payload string, onConnected func(types.Endpoint)) {
	verb, endpoint, err := ParseControlPayload(payload)
	if err != nil {
		s.log.Debugf("dropping malformed control message: %v", err)
		return
	}
	switch verb {
	case "connected":
		onConnected(endpoint)
	case "disconnected":
		// Observed, intentionally not acted upon: see
		// spec.md §9 "Control-channel disconnected path".
	}
}

func (s *redisControlSubscriber) Close() error {
	if s.pubsub == nil {
		return nil
	}
	return s.pubsub.Close()
}
