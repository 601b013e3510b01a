package registry

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CompileSchema checks that a capability parameter schema is a valid JSON
// Schema document. Empty means "accept anything".
func CompileSchema(schemaJSON string) (*jsonschema.Schema, error) {
	if schemaJSON == "" {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateParams validates resolved intent parameters against the
// capability's parameter schema before the operation runs.
func (c Capability) ValidateParams(params map[string]string) error {
	schema, err := CompileSchema(c.ParameterSchema)
	if err != nil {
		return fmt.Errorf("capability %s: %w", c.Name, err)
	}
	if schema == nil {
		return nil
	}

	payload := make(map[string]any, len(params))
	for k, v := range params {
		payload[k] = v
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("params do not satisfy schema for %s: %w", c.Name, err)
	}
	return nil
}
