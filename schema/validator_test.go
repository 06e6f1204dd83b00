package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "watch": {"type": "boolean"},
    "exclude": {"type": "array", "items": {"type": "string"}}
  }
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	t.Run("accepts a conforming document", func(t *testing.T) {
		doc := map[string]interface{}{
			"watch":   true,
			"exclude": []string{"**/node_modules"},
		}
		assert.NoError(t, v.Validate(doc))
	})

	t.Run("reports the offending location", func(t *testing.T) {
		doc := map[string]interface{}{"watch": "yes"}
		err := v.Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/watch")
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		err := v.Validate(map[string]interface{}{"bogus": 1})
		assert.Error(t, err)
	})
}

func TestNewValidatorRejectsBrokenSchema(t *testing.T) {
	_, err := NewValidator("broken.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
