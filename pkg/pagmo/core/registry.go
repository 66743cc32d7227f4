package core

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RegistryClient is the synchronous call-and-wait façade onto the
// external key/value + pub/sub registry (spec.md §4.1). Failures are
// surfaced, never retried; timeouts are whatever the underlying client
// library defaults to.
type RegistryClient interface {
	// Connect dials the broker. No retry on failure.
	Connect(ctx context.Context, host string, port int) error

	// AddMember adds member to the set at key.
	AddMember(ctx context.Context, key, member string) error

	// RemoveMember removes member from the set at key.
	RemoveMember(ctx context.Context, key, member string) error

	// ListMembers returns the current members of the set at key.
	ListMembers(ctx context.Context, key string) ([]string, error)

	// PublishControl publishes payload on channel, one-shot.
	PublishControl(ctx context.Context, channel, payload string) error

	// Close releases the connection. Best-effort, idempotent.
	Close() error
}

// MembershipKey is the registry set key for a topic token, per
// spec.md §6: "pagmo.islands.<token>".
func MembershipKey(token string) string {
	return "pagmo.islands." + token
}

// ControlKey is the registry control-channel key for a topic token,
// per spec.md §6: "pagmo.islands.<token>.control".
func ControlKey(token string) string {
	return MembershipKey(token) + ".control"
}

// redisRegistryClient implements RegistryClient against a real Redis
// server, the registry backend named in spec.md §4.1.
type redisRegistryClient struct {
	client *redis.Client
}

// NewRedisRegistryClient builds a RegistryClient backed by Redis. The
// client is not connected to host/port until Connect is called, so
// construction itself cannot fail.
func NewRedisRegistryClient() RegistryClient {
	return &redisRegistryClient{}
}

func (r *redisRegistryClient) Connect(ctx context.Context, host string, port int) error {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to broker %s:%d: %w", host, port, err)
	}
	r.client = client
	return nil
}

func (r *redisRegistryClient) AddMember(ctx context.Context, key, member string) error {
	return r.client.SAdd(ctx, key, member).Err()
}

func (r *redisRegistryClient) RemoveMember(ctx context.Context, key, member string) error {
	return r.client.SRem(ctx, key, member).Err()
}

func (r *redisRegistryClient) ListMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *redisRegistryClient) PublishControl(ctx context.Context, channel, payload string) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *redisRegistryClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// RedisClientForSubscription exposes the underlying *redis.Client so
// ControlSubscriber can open its own PubSub on the same connection
// pool. Returns nil until Connect has succeeded.
func RedisClientForSubscription(r RegistryClient) *redis.Client {
	rc, ok := r.(*redisRegistryClient)
	if !ok {
		return nil
	}
	return rc.client
}
