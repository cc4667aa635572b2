// Package redisconf feeds a host's configuration plane from Redis.
//
// Dictionaries live as JSON strings under prefix + pid. The source seeds the
// sink with a full scan on Start and then follows Pub/Sub messages on the
// prefix + "events" channel ("set <pid>" / "del <pid>"). Factory instances
// use the factoryPid + "~" + name pid form.
package redisconf

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	backend "github.com/redis/go-redis/v9"

	"github.com/csierra/osgi-component-dsl/internal/logging"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// Source watches configuration dictionaries in Redis and pushes them into a
// ConfigurationSink.
type Source struct {
	client *backend.Client
	sink   ports.ConfigurationSink
	prefix string
	logger *slog.Logger

	mu  sync.Mutex
	sub *backend.PubSub
}

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets the key prefix for configuration entries.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a source with its own Redis client.
func New(address, password string, db int, sink ports.ConfigurationSink, opts ...Option) *Source {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, sink, opts...)
}

// NewFromClient creates a source from an existing client.
func NewFromClient(client *backend.Client, sink ports.ConfigurationSink, opts ...Option) *Source {
	s := &Source{
		client: client,
		sink:   sink,
		prefix: "osgi:conf:",
		logger: logging.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Source) key(pid string) string {
	return s.prefix + pid
}

func (s *Source) eventsChannel() string {
	return s.prefix + "events"
}

// Start seeds the sink with every stored dictionary and begins following
// change events. It returns once the seed is complete; event handling runs on
// a background subscription goroutine until Close.
func (s *Source) Start(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return err
	}

	sub := s.client.Subscribe(ctx, s.eventsChannel())
	// Force the subscription to be established before Start returns, so no
	// event published after Start is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", s.eventsChannel(), err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	go func() {
		for msg := range sub.Channel() {
			s.handleEvent(ctx, msg.Payload)
		}
	}()

	return nil
}

func (s *Source) seed(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan %s*: %w", s.prefix, err)
		}

		for _, key := range keys {
			if key == s.eventsChannel() {
				continue
			}
			pid := strings.TrimPrefix(key, s.prefix)
			if err := s.push(ctx, pid); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Source) handleEvent(ctx context.Context, payload string) {
	op, pid, ok := strings.Cut(payload, " ")
	if !ok {
		s.logger.Warn("malformed configuration event", "payload", payload)
		return
	}

	switch op {
	case "set":
		if err := s.push(ctx, pid); err != nil {
			s.logger.Error("push configuration", "pid", pid, "err", err)
		}
	case "del":
		s.delete(pid)
	default:
		s.logger.Warn("unknown configuration event", "op", op, "pid", pid)
	}
}

func (s *Source) push(ctx context.Context, pid string) error {
	val, err := s.client.Get(ctx, s.key(pid)).Result()
	if err != nil {
		if err == backend.Nil {
			s.delete(pid)
			return nil
		}
		return fmt.Errorf("get %s: %w", s.key(pid), err)
	}

	var props map[string]any
	if err := json.Unmarshal([]byte(val), &props); err != nil {
		return fmt.Errorf("unmarshal %s: %w", s.key(pid), err)
	}

	s.logger.Debug("configuration loaded", "pid", pid)

	if factoryPid, name, ok := strings.Cut(pid, "~"); ok {
		s.sink.UpdateFactoryConfiguration(factoryPid, name, props)
	} else {
		s.sink.UpdateConfiguration(pid, props)
	}
	return nil
}

func (s *Source) delete(pid string) {
	if factoryPid, name, ok := strings.Cut(pid, "~"); ok {
		s.sink.DeleteFactoryConfiguration(factoryPid, name)
	} else {
		s.sink.DeleteConfiguration(pid)
	}
}

// Close stops the event subscription and the underlying client.
func (s *Source) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
	return s.client.Close()
}
