// Package conf decodes configuration dictionaries into typed structs.
//
// Dictionaries delivered through the configuration primitives are loosely
// typed maps (sourced from YAML files, Redis JSON, or host pushes). Decode
// bridges them to application structs with weak typing, so "8080" satisfies
// an int field regardless of which source produced it.
package conf

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode fills target from a configuration dictionary. Fields are matched by
// the "conf" tag, falling back to case-insensitive field names. Unknown keys
// are ignored.
func Decode(props map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "conf",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := dec.Decode(props); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}
	return nil
}
