package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 100

// Redis stores manifests in a Redis server, namespaced so several projects
// can share one server. It is safe for concurrent use.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis connects a backend for namespace. The connection is lazy; use
// Ping to check it.
func NewRedis(opts *redis.Options, namespace string) (*Redis, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Redis{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

// NewRedisFromURL parses a redis:// URL and connects a backend.
func NewRedisFromURL(url, namespace string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewRedis(opts, namespace)
}

// Namespace returns the key namespace.
func (r *Redis) Namespace() string {
	return r.namespace
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return &Error{Backend: "redis", Op: "ping", Err: err}
	}
	return nil
}

// Put writes the manifest hash and publishes an Event in one MULTI/EXEC
// transaction. If the transaction fails the key is deleted, so a failed Put
// never leaves a manifest behind.
func (r *Redis) Put(ctx context.Context, target gitoid.GitOid, manifest []byte) error {
	if target.IsZero() {
		return &Error{Backend: "redis", Op: "put", Err: fmt.Errorf("zero target id")}
	}

	storedAt := time.Now()
	event, err := json.Marshal(&Event{
		ID:         uuid.New().String(),
		Target:     target.URL(),
		StoredAtMs: storedAt.UnixMilli(),
	})
	if err != nil {
		return &Error{Backend: "redis", Op: "put", Target: target, Err: fmt.Errorf("failed to marshal event: %w", err)}
	}

	key := ManifestKey(r.namespace, target)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, manifestToHash(target, manifest, storedAt))
		pipe.Publish(ctx, ManifestEventsChannel(r.namespace), event)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed to store manifest: %w", err)
		if delErr := r.rdb.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove manifest %s: %w", key, delErr))
		}
		return &Error{Backend: "redis", Op: "put", Target: target, Err: err}
	}
	return nil
}

// Get reads the manifest field of the hash for target.
func (r *Redis) Get(ctx context.Context, target gitoid.GitOid) ([]byte, bool, error) {
	if target.IsZero() {
		return nil, false, nil
	}

	manifest, err := r.rdb.HGet(ctx, ManifestKey(r.namespace, target), fieldManifest).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &Error{Backend: "redis", Op: "get", Target: target, Err: err}
	}
	return []byte(manifest), true, nil
}

// List scans the namespace for manifest keys.
func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	iter := r.rdb.Scan(ctx, 0, ManifestKeyPattern(r.namespace), scanBatch).Iterator()
	for iter.Next(ctx) {
		fields, err := r.rdb.HMGet(ctx, iter.Val(), fieldTarget, fieldStoredAtMs).Result()
		if err != nil {
			return nil, &Error{Backend: "redis", Op: "list", Err: err}
		}
		target, _ := fields[0].(string)
		storedAtMs, _ := fields[1].(string)
		if target == "" {
			// Deleted between SCAN and HMGET.
			continue
		}

		entry, err := hashToEntry(target, storedAtMs)
		if err != nil {
			return nil, &Error{Backend: "redis", Op: "list", Err: fmt.Errorf("key %s: %w", iter.Val(), err)}
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, &Error{Backend: "redis", Op: "list", Err: err}
	}

	sortEntries(entries)
	return entries, nil
}

// Subscription is an active Pub/Sub subscription to manifest events.
// Callers must Close it when done.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events delivers manifest events. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors delivers undecodable messages. The subscription keeps running.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe streams manifest events for the namespace until ctx is done or
// the subscription is closed. Delivery is at most once; a slow consumer can
// miss events.
func (r *Redis) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, ManifestEventsChannel(r.namespace))

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, &Error{Backend: "redis", Op: "subscribe", Err: err}
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal manifest event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: eventsChan, errors: errorsChan, cancel: cancel}, nil
}
