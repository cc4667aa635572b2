package osgi

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csierra/osgi-component-dsl/pkg/adapters/memory"
	"github.com/csierra/osgi-component-dsl/pkg/adapters/yamlconf"
	"github.com/csierra/osgi-component-dsl/pkg/conf"
)

type writerConfig struct {
	Path    string `conf:"path"`
	MaxSize int    `conf:"max_size"`
}

// Configuration dictionaries loaded from YAML flow through the host's
// configuration plane into a running program and decode into typed structs.
func TestConfigurationStack(t *testing.T) {
	ctx := memory.New()

	var decoded []writerConfig
	p := Foreach(Configurations("log.writer"), func(props map[string]any) Source[struct{}] {
		var cfg writerConfig
		require.NoError(t, conf.Decode(props, &cfg))
		decoded = append(decoded, cfg)
		return Nothing[struct{}]()
	})

	_, r := runProbe[struct{}](t, ctx, p)
	defer r.Close()

	fsys := fstest.MapFS{
		"app.yaml": {Data: []byte(`
factories:
  log.writer:
    audit:
      path: /var/log/audit
      max_size: "64"
`)},
	}
	require.NoError(t, yamlconf.Load(fsys, "app.yaml", ctx))

	require.Len(t, decoded, 1)
	assert.Equal(t, "/var/log/audit", decoded[0].Path)
	assert.Equal(t, 64, decoded[0].MaxSize, "weak typing coerces the quoted number")
}
