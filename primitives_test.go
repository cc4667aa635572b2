package osgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csierra/osgi-component-dsl/pkg/adapters/memory"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

func TestJust(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[int](t, ctx, Just(42))

	require.Len(t, pr.added, 1)
	assert.Equal(t, 42, pr.added[0].Value)
	assert.Empty(t, pr.removed)

	r.Close()
	assert.Len(t, pr.added, 1)
	assert.Empty(t, pr.removed)
}

func TestNothing(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[int](t, ctx, Nothing[int]())
	r.Close()

	assert.Empty(t, pr.added)
	assert.Empty(t, pr.removed)
}

func TestOnClose(t *testing.T) {
	ctx := memory.New()

	var closed int
	pr, r := runProbe[struct{}](t, ctx, OnClose(func() { closed++ }))

	assert.Len(t, pr.added, 1, "start emits a single unit token")
	assert.Zero(t, closed)

	r.Close()
	assert.Equal(t, 1, closed)
}

func TestRegister(t *testing.T) {
	ctx := memory.New()

	var seen int
	f, err := ctx.CreateFilter("(objectClass=" + ClassName[echoer]() + ")")
	require.NoError(t, err)
	tracker := ctx.TrackServices(f, ports.ServiceCustomizer{
		Adding:  func(ref ports.ServiceReference) any { seen++; return ref },
		Removed: func(ports.ServiceReference, any) { seen-- },
	})
	require.NoError(t, tracker.Open())
	defer tracker.Close()

	pr, r := runProbe[ports.ServiceRegistration](t, ctx, Register[echoer](echo{id: 7}, map[string]any{"rank": 1}))

	assert.Equal(t, 1, seen, "registration happens when the program materializes")
	require.Len(t, pr.added, 1)
	assert.Equal(t, 1, pr.added[0].Value.Reference().Property("rank"))

	r.Close()
	assert.Zero(t, seen, "close unregisters")

	// Best-effort teardown: a second close swallows the unregister failure.
	r.Close()
	assert.Zero(t, seen)
}
