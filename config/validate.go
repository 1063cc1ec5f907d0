// CUE schema validation code
package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// schema closes the configuration: unknown keys are rejected along with
// out-of-range values.
const schema = `
#Photons: 128 | 256 | 512 | 720 | 1024

#Config: {
	seed?:      int
	log_level?: "panic" | "fatal" | "error" | "warn" | "warning" | "info" | "debug" | "trace"
	simulation?: {
		photon_count?:    #Photons
		speed?:           "slow" | "medium" | "fast"
		target_key_bits?: int & >0
		eavesdropper?:    bool
		key_convention?:  "sender" | "receiver"
	}
	analysis?: {
		photon_count?:      #Photons
		sample_size?:       int & >=0
		threshold_percent?: number & >=0 & <=100
		gate_on_sample?:    bool
		confidence?:        number & >0 & <1
	}
	encryption?: {
		format?: "hex" | "base64"
	}
}
`

// ValidateWithCue validates YAML configuration data, read from filename,
// against the embedded CUE schema.
func ValidateWithCue(filename string, data []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("BUG: compiling embedded schema: %w", err)
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML config: %w", err)
	}

	// Merge values with schema
	final := schemaVal.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
