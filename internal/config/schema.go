package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	compiled   *jsonschema.Schema
	compileErr error
	compileOne sync.Once
)

func compileSchema() (*jsonschema.Schema, error) {
	compileOne.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("parity.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("parity.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile config schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate checks raw YAML against the embedded schema. The document is
// round-tripped through JSON so the validator sees JSON types.
func Validate(data []byte) error {
	sch, err := compileSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	if doc == nil {
		return nil // empty file
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting to json: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("converting to json: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
