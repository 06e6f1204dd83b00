package config

//go:generate go run ../tools/schema-generator -out ../schema/pyfinder.schema.json

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/pyfinder/schema"
	"github.com/invopop/jsonschema"
)

var (
	compiledOnce      sync.Once
	compiledValidator *schema.Validator
	compiledErr       error
)

// GenerateSchema generates the JSON Schema for the core configuration.
// Sections are closed, while unknown top-level keys are left to extensions
// such as "logging".
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	s := r.Reflect(&Config{})
	s.Title = "pyfinder configuration"
	s.Description = "Settings for Python environment discovery."
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.AdditionalProperties = jsonschema.TrueSchema

	return json.MarshalIndent(s, "", "  ")
}

// NewSchemaValidator returns a validator for raw configuration documents.
// The schema is compiled once per process.
func NewSchemaValidator() (*schema.Validator, error) {
	compiledOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compiledErr = err
			return
		}
		compiledValidator, compiledErr = schema.NewValidator("pyfinder.json", data)
	})
	return compiledValidator, compiledErr
}
