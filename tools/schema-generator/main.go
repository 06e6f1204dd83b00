// Command schema-generator writes the JSON schema of pyfinder.toml and
// pyfinder.yml, with the logging extension composed into it, for editors.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/schema"
	"github.com/invopop/jsonschema"
)

func main() {
	out := flag.String("out", "schema/pyfinder.schema.json", "output file")
	flag.Parse()

	base, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}
	composed, err := compose(base)
	if err != nil {
		log.Fatalf("Error composing schema: %v", err)
	}

	// The composed document must still compile.
	if _, err := schema.NewValidator("pyfinder.schema.json", composed); err != nil {
		log.Fatalf("Composed schema does not compile: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*out, composed, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated schema at %s", *out)
}

// compose adds the logging extension under properties.logging.
func compose(base []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}
	loggingSchema := r.Reflect(&logging.Config{})
	loggingSchema.Version = ""
	loggingSchema.Required = nil
	loggingSchema.Description = "Log level, format and optional file sink."

	raw, err := json.Marshal(loggingSchema)
	if err != nil {
		return nil, err
	}
	var section map[string]interface{}
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil, err
	}

	props, _ := doc["properties"].(map[string]interface{})
	if props == nil {
		props = make(map[string]interface{})
		doc["properties"] = props
	}
	props["logging"] = section
	return json.MarshalIndent(doc, "", "  ")
}
