package osgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csierra/osgi-component-dsl/pkg/adapters/memory"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// S3: a property modification is a removal followed by an addition with a
// fresh identity.
func TestServiceReferences_Modification(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[ports.ServiceReference](t, ctx, ServiceReferences[echoer](""))
	defer r.Close()

	reg, err := ctx.RegisterService(ClassName[echoer](), echo{id: 1}, map[string]any{"rank": 1})
	require.NoError(t, err)
	require.Len(t, pr.added, 1)

	require.NoError(t, reg.SetProperties(map[string]any{"rank": 2}))

	require.Len(t, pr.removed, 1)
	require.Len(t, pr.added, 2)
	assert.Equal(t, pr.added[0].ID, pr.removed[0].ID, "the removal undoes the first addition")
	assert.NotEqual(t, pr.added[0].ID, pr.added[1].ID, "the re-addition is a fresh identity")
	assert.Equal(t, 2, pr.added[1].Value.Property("rank"))
}

func TestServiceReferences_Filter(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[ports.ServiceReference](t, ctx, ServiceReferences[echoer]("(rank>=5)"))
	defer r.Close()

	_, err := ctx.RegisterService(ClassName[echoer](), echo{id: 1}, map[string]any{"rank": 1})
	require.NoError(t, err)
	assert.Empty(t, pr.added, "below the rank threshold")

	_, err = ctx.RegisterService(ClassName[echoer](), echo{id: 2}, map[string]any{"rank": 7})
	require.NoError(t, err)
	require.Len(t, pr.added, 1)
}

func TestServiceReferences_BadFilter(t *testing.T) {
	ctx := memory.New()

	_, err := ServiceReferences[echoer]("(rank>=").program().op(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidFilter)
}

func TestServices_CheckoutBalance(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[echoer](t, ctx, Services[echoer](""))

	reg, err := ctx.RegisterService(ClassName[echoer](), echo{id: 3}, nil)
	require.NoError(t, err)

	require.Len(t, pr.added, 1)
	assert.Equal(t, 3, pr.added[0].Value.Echo())

	use := reg.(interface{ UseCount() int })
	assert.Equal(t, 1, use.UseCount(), "the token holds a checked-out instance")

	r.Close()

	require.Len(t, pr.removed, 1)
	assert.Equal(t, pr.added[0].ID, pr.removed[0].ID)
	assert.Zero(t, use.UseCount(), "the instance is returned after the removal is emitted")
}

func TestPrototypes(t *testing.T) {
	ctx := memory.New()

	built := 0
	ctx.RegisterPrototype(ClassName[echoer](), func() any {
		built++
		return echo{id: built}
	}, nil)

	pr, r := runProbe[ports.ServiceObjects](t, ctx, Prototypes[echoer](""))
	defer r.Close()

	require.Len(t, pr.added, 1)
	assert.Zero(t, built, "no checkout happens at this layer")

	objects := pr.added[0].Value
	first := objects.GetService().(echoer)
	second := objects.GetService().(echoer)
	assert.Equal(t, 1, first.Echo())
	assert.Equal(t, 2, second.Echo(), "every checkout yields a distinct instance")
}

func TestBundles_MaskTransitions(t *testing.T) {
	ctx := memory.New()

	pr, r := runProbe[ports.Bundle](t, ctx, Bundles(ports.BundleActive))
	defer r.Close()

	b := ctx.InstallBundle("lib.a")
	assert.Empty(t, pr.added, "installed is outside the mask")

	b.Start()
	require.Len(t, pr.added, 1)
	assert.Equal(t, "lib.a", pr.added[0].Value.SymbolicName())

	b.Stop()
	require.Len(t, pr.removed, 1)
	assert.Equal(t, pr.added[0].ID, pr.removed[0].ID)
}

// S5: once keeps the first emission and never reacts again.
func TestBundles_Once(t *testing.T) {
	ctx := memory.New()

	x := ctx.InstallBundle("bundle.x")
	y := ctx.InstallBundle("bundle.y")
	x.Start()
	y.Start()

	p := FlatMap[ports.Bundle, int64](Bundles(ports.BundleActive).Once(), func(b ports.Bundle) Source[int64] {
		return Just(b.ID())
	})

	pr, r := runProbe[int64](t, ctx, p)
	defer r.Close()

	require.Len(t, pr.added, 1)
	assert.Equal(t, x.ID(), pr.added[0].Value, "the first bundle in enumeration order wins")

	ctx.InstallBundle("bundle.z").Start()
	ctx.InstallBundle("bundle.w").Start()
	assert.Len(t, pr.added, 1, "later arrivals never add")

	x.Stop()
	assert.Empty(t, pr.removed, "stopping the chosen bundle yields no removal downstream")
}
