// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateSchema builds an inline JSON Schema for T.
//
// Field names come from json tags. The jsonschema tag supplies metadata and
// only fields tagged `required` are required:
//
//	type Args struct {
//	    Location string `json:"location" jsonschema:"description=City name,required"`
//	    Unit     string `json:"unit"     jsonschema:"enum=celsius,enum=fahrenheit"`
//	}
func GenerateSchema[T any]() json.RawMessage {
	var zero T
	return generateSchemaFromType(reflect.TypeOf(&zero).Elem())
}

func generateSchemaFromType(t reflect.Type) json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		Anonymous:                  true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.ReflectFromType(t)
	// Providers reject the meta-schema keywords inside tool and response schemas.
	schema.Version = ""
	schema.ID = ""

	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("generate schema for %s: %v", t, err))
	}
	return b
}

// RequiredProperties returns the names listed under "required" in a JSON
// Schema object. Invalid schemas yield nil.
func RequiredProperties(schema json.RawMessage) []string {
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil
	}
	return s.Required
}
