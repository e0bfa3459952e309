package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Validate checks the config against the embedded JSON schema and then
// applies the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	doc, err := c.document()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	names := make(map[string]bool, len(c.Races))
	for _, r := range c.Races {
		if names[r.Name] {
			return fmt.Errorf("%w: duplicate race %q", ErrInvalidConfig, r.Name)
		}
		names[r.Name] = true
	}
	for _, r := range c.Races {
		if len(r.Fitrah) != len(r.Actions) {
			return fmt.Errorf("%w: race %q has %d actions but %d fitrah weights",
				ErrInvalidConfig, r.Name, len(r.Actions), len(r.Fitrah))
		}
		var sum float64
		for _, f := range r.Fitrah {
			sum += f
		}
		if sum <= 0 {
			return fmt.Errorf("%w: race %q fitrah sums to zero", ErrInvalidConfig, r.Name)
		}
		if r.Enemy != "" && !names[r.Enemy] {
			return fmt.Errorf("%w: race %q names unknown enemy %q", ErrInvalidConfig, r.Name, r.Enemy)
		}
	}
	return nil
}

// document converts the config into the generic JSON value the schema
// validator expects.
func (c *Config) document() (any, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("re-reading config: %w", err)
	}
	js, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encoding config as json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding config json: %w", err)
	}
	return doc, nil
}
