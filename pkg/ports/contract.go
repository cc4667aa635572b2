package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextContract runs a suite of tests to verify that a Context
// implementation adheres to the defined interface contract.
func RunContextContract(t *testing.T, ctx Context) {
	t.Run("Filter Syntax", func(t *testing.T) {
		f, err := ctx.CreateFilter("(objectClass=contract.Probe)")
		require.NoError(t, err)
		assert.True(t, f.Matches(map[string]any{"objectClass": "contract.Probe"}))
		assert.False(t, f.Matches(map[string]any{"objectClass": "other"}))

		_, err = ctx.CreateFilter("(objectClass=broken")
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("Register and Track", func(t *testing.T) {
		f, err := ctx.CreateFilter("(objectClass=contract.Probe)")
		require.NoError(t, err)

		var added, modified, removed int
		tracker := ctx.TrackServices(f, ServiceCustomizer{
			Adding: func(ref ServiceReference) any {
				added++
				return ref
			},
			Modified: func(ref ServiceReference, tracked any) any {
				modified++
				return tracked
			},
			Removed: func(ref ServiceReference, tracked any) {
				removed++
			},
		})
		require.NoError(t, tracker.Open())

		reg, err := ctx.RegisterService("contract.Probe", "probe", map[string]any{"rank": 1})
		require.NoError(t, err, "RegisterService should not return error")
		assert.Equal(t, 1, added, "open tracker should observe registration synchronously")

		require.NoError(t, reg.SetProperties(map[string]any{"rank": 2}))
		assert.Equal(t, 1, modified)
		assert.Equal(t, 2, reg.Reference().Property("rank"))

		require.NoError(t, reg.Unregister())
		assert.Equal(t, 1, removed)
		assert.ErrorIs(t, reg.Unregister(), ErrAlreadyUnregistered)

		_, err = ctx.ServiceObjects(reg.Reference())
		assert.ErrorIs(t, err, ErrNoSuchService, "dead references must not check out")

		tracker.Close()
	})

	t.Run("Tracker Close Drains", func(t *testing.T) {
		f, err := ctx.CreateFilter("(objectClass=contract.Drain)")
		require.NoError(t, err)

		var removed int
		tracker := ctx.TrackServices(f, ServiceCustomizer{
			Adding:  func(ref ServiceReference) any { return ref },
			Removed: func(ref ServiceReference, tracked any) { removed++ },
		})
		require.NoError(t, tracker.Open())

		reg, err := ctx.RegisterService("contract.Drain", "probe", nil)
		require.NoError(t, err)

		tracker.Close()
		assert.Equal(t, 1, removed, "closing the tracker should release everything tracked")

		// A second close must be a no-op.
		tracker.Close()
		assert.Equal(t, 1, removed)

		require.NoError(t, reg.Unregister())
	})

	t.Run("Managed Configuration", func(t *testing.T) {
		var got []map[string]any
		reg, err := ctx.RegisterManaged("contract.pid", func(props map[string]any) {
			got = append(got, props)
		})
		require.NoError(t, err)

		sink, ok := ctx.(ConfigurationSink)
		require.True(t, ok, "contract hosts must accept configuration pushes")

		sink.UpdateConfiguration("contract.pid", map[string]any{"answer": 42})
		require.Len(t, got, 1)
		assert.Equal(t, 42, got[0]["answer"])

		sink.DeleteConfiguration("contract.pid")
		require.Len(t, got, 2)
		assert.Nil(t, got[1])

		require.NoError(t, reg.Unregister())
	})
}
