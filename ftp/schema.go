package ftp

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
)

// validateInputSchema implements spec.md §4.4 step 2: when a function
// declares an input_schema, the request input must validate against it,
// or the resolution fails fatally with InputSchemaMismatch.
//
// jsonschema-go is already a pack dependency (intelligencedev-manifold's
// MCP tool definitions); this is the one component in the pack that needs
// a generic instance-against-schema validator rather than a struct-
// derived schema, so its lower-level Schema/Resolve/Validate surface is
// used directly instead of the reflection-based For[T]() helper.
func validateInputSchema(schema *domain.Input, input domain.Input) error {
	if schema == nil {
		return nil
	}

	raw, err := json.Marshal(schema.ToNative())
	if err != nil {
		return apperr.InputSchemaMismatch(fmt.Sprintf("encoding input_schema: %v", err))
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return apperr.InputSchemaMismatch(fmt.Sprintf("parsing input_schema: %v", err))
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return apperr.InputSchemaMismatch(fmt.Sprintf("resolving input_schema: %v", err))
	}
	if err := resolved.Validate(input.ToNative()); err != nil {
		return apperr.InputSchemaMismatch(err.Error())
	}
	return nil
}
