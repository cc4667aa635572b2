package redisconf_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csierra/osgi-component-dsl/pkg/adapters/redisconf"
)

// recordingSink captures sink calls; events arrive from the subscription
// goroutine, so it locks.
type recordingSink struct {
	mu        sync.Mutex
	updates   map[string]map[string]any
	deletes   []string
	factories map[string]map[string]any
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		updates:   make(map[string]map[string]any),
		factories: make(map[string]map[string]any),
	}
}

func (s *recordingSink) UpdateConfiguration(pid string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[pid] = props
}

func (s *recordingSink) DeleteConfiguration(pid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.updates, pid)
	s.deletes = append(s.deletes, pid)
}

func (s *recordingSink) UpdateFactoryConfiguration(factoryPid, name string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[factoryPid+"~"+name] = props
}

func (s *recordingSink) DeleteFactoryConfiguration(factoryPid, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.factories, factoryPid+"~"+name)
}

func (s *recordingSink) config(pid string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[pid]
}

func (s *recordingSink) factory(pid string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.factories[pid]
}

func TestSource_SeedsExisting(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("osgi:conf:http.server", `{"port": 8080}`))
	require.NoError(t, mr.Set("osgi:conf:log.writer~audit", `{"path": "/var/log"}`))

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	sink := newRecordingSink()

	src := redisconf.NewFromClient(client, sink)
	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	require.NotNil(t, sink.config("http.server"))
	assert.EqualValues(t, 8080, sink.config("http.server")["port"])

	require.NotNil(t, sink.factory("log.writer~audit"), "factory pids route to the factory plane")
	assert.Equal(t, "/var/log", sink.factory("log.writer~audit")["path"])
}

func TestSource_FollowsEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	sink := newRecordingSink()

	src := redisconf.NewFromClient(client, sink)
	ctx := context.Background()
	require.NoError(t, src.Start(ctx))
	defer src.Close()

	require.NoError(t, mr.Set("osgi:conf:my.pid", `{"a": 1}`))
	require.NoError(t, client.Publish(ctx, "osgi:conf:events", "set my.pid").Err())

	assert.Eventually(t, func() bool {
		return sink.config("my.pid") != nil
	}, 2*time.Second, 10*time.Millisecond, "the set event should reach the sink")

	mr.Del("osgi:conf:my.pid")
	require.NoError(t, client.Publish(ctx, "osgi:conf:events", "del my.pid").Err())

	assert.Eventually(t, func() bool {
		return sink.config("my.pid") == nil
	}, 2*time.Second, 10*time.Millisecond, "the del event should reach the sink")
}

func TestSource_CustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("custom:app:my.pid", `{"a": 1}`))

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	sink := newRecordingSink()

	src := redisconf.NewFromClient(client, sink, redisconf.WithPrefix("custom:app:"))
	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	require.NotNil(t, sink.config("my.pid"))
}
