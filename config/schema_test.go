package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "http://json-schema.org/draft-07/schema#", doc["$schema"])
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok, "expected properties")
	assert.Contains(t, props, "search")
	assert.Contains(t, props, "resolve")
	assert.NotContains(t, props, "Extensions")

	search := props["search"].(map[string]interface{})
	searchProps := search["properties"].(map[string]interface{})
	for _, key := range []string{"exclude", "search_paths", "virtual_env_paths", "conda_executable", "watch", "concurrency"} {
		assert.Contains(t, searchProps, key)
	}
	assert.Equal(t, false, search["additionalProperties"])
}

func TestSchemaValidatorIsShared(t *testing.T) {
	a, err := NewSchemaValidator()
	require.NoError(t, err)
	b, err := NewSchemaValidator()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
