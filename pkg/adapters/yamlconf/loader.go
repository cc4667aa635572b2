// Package yamlconf loads configuration dictionaries from YAML documents into
// a host's configuration plane.
//
// A document carries singleton pids under "configurations" and factory
// instances under "factories":
//
//	configurations:
//	  http.server:
//	    port: 8080
//	factories:
//	  log.writer:
//	    audit:
//	      path: /var/log/audit
package yamlconf

import (
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

type document struct {
	Configurations map[string]map[string]any            `yaml:"configurations"`
	Factories      map[string]map[string]map[string]any `yaml:"factories"`
}

// Load reads one YAML document from fsys and pushes every dictionary it
// defines into sink.
func Load(fsys fs.FS, path string, sink ports.ConfigurationSink) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for pid, props := range doc.Configurations {
		sink.UpdateConfiguration(pid, props)
	}
	for factoryPid, instances := range doc.Factories {
		for name, props := range instances {
			sink.UpdateFactoryConfiguration(factoryPid, name, props)
		}
	}
	return nil
}

// LoadDir loads every .yaml and .yml file under dir in lexical order.
func LoadDir(fsys fs.FS, dir string, sink ports.ConfigurationSink) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := path.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := Load(fsys, path.Join(dir, name), sink); err != nil {
			return err
		}
	}
	return nil
}
