package store

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// ChangeBus fans collection-level change markers out to subscribed watchers.
// Backends without native change streams publish a marker after every write;
// subscribers re-run their query when a marker arrives.
type ChangeBus interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(ctx context.Context, collection string, fn func()) (Subscription, error)
}

const changeChannelPrefix = "store:changes:"

// RedisChangeBus is a ChangeBus over Redis pub/sub.
type RedisChangeBus struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisChangeBus creates a bus on the provided Redis client.
func NewRedisChangeBus(client *redis.Client, logger *logging.Logger) *RedisChangeBus {
	if client == nil {
		panic("store: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisChangeBus{client: client, logger: logger}
}

// NewRedisClient builds a go-redis client from connection settings.
func NewRedisClient(addr, password string, useTLS bool) *redis.Client {
	opts := &redis.Options{Addr: addr, Password: password}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

var _ ChangeBus = (*RedisChangeBus)(nil)

// Publish emits a change marker for the collection.
func (b *RedisChangeBus) Publish(ctx context.Context, collection string) error {
	return b.client.Publish(ctx, changeChannelPrefix+collection, "1").Err()
}

// Subscribe invokes fn on every change marker for the collection until the
// returned subscription is cancelled.
func (b *RedisChangeBus) Subscribe(ctx context.Context, collection string, fn func()) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, changeChannelPrefix+collection)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisBusSub{pubsub: pubsub}
	go func() {
		for range pubsub.Channel() {
			fn()
		}
	}()
	return sub, nil
}

type redisBusSub struct {
	pubsub     *redis.PubSub
	cancelOnce sync.Once
}

func (s *redisBusSub) Cancel() {
	s.cancelOnce.Do(func() {
		_ = s.pubsub.Close()
	})
}

// MemoryChangeBus is an in-process ChangeBus for tests and single-node runs.
type MemoryChangeBus struct {
	mu     sync.Mutex
	subs   map[int]*memoryBusSub
	nextID int
}

// NewMemoryChangeBus creates an empty in-process bus.
func NewMemoryChangeBus() *MemoryChangeBus {
	return &MemoryChangeBus{subs: make(map[int]*memoryBusSub)}
}

var _ ChangeBus = (*MemoryChangeBus)(nil)

// Publish synchronously invokes every subscriber of the collection.
func (b *MemoryChangeBus) Publish(_ context.Context, collection string) error {
	b.mu.Lock()
	var fns []func()
	for _, sub := range b.subs {
		if sub.collection == collection {
			fns = append(fns, sub.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Subscribe registers fn for the collection's change markers.
func (b *MemoryChangeBus) Subscribe(_ context.Context, collection string, fn func()) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &memoryBusSub{bus: b, id: b.nextID, collection: collection, fn: fn}
	b.subs[sub.id] = sub
	return sub, nil
}

type memoryBusSub struct {
	bus        *MemoryChangeBus
	id         int
	collection string
	fn         func()
	cancelOnce sync.Once
}

func (s *memoryBusSub) Cancel() {
	s.cancelOnce.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
}
