package dag

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the structural contract for raw workflow definition
// JSON, checked before unmarshalling. Referential rules (depends_on
// existence, template references) are Parse's job, not the schema's.
const definitionSchema = `{
  "type": "object",
  "required": ["name", "version"],
  "properties": {
    "name": {"type": "string", "minLength": 3},
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "parameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "default": {},
          "required": {"type": "boolean"}
        }
      }
    },
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "action"],
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z0-9_-]+$"},
          "name": {"type": "string", "minLength": 1},
          "action": {"type": "string", "minLength": 1},
          "depends_on": {"type": "array", "items": {"type": "string"}},
          "condition": {"type": "string"},
          "params": {"type": "object"},
          "timeout_seconds": {"type": "integer", "minimum": 0},
          "on_failure": {"enum": ["RETRY", "CONTINUE", "ABORT"]},
          "retry": {
            "type": "object",
            "properties": {
              "max_attempts": {"type": "integer", "minimum": 1},
              "backoff_seconds": {"type": "number", "minimum": 0},
              "backoff_multiplier": {"type": "number", "minimum": 1},
              "max_backoff_seconds": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    },
    "outputs": {"type": "object"}
  }
}`

var compiledDefinitionSchema = gojsonschema.NewStringLoader(definitionSchema)

// ValidateDefinitionJSON checks raw definition JSON against the schema.
// Violations come back as a single ValidationError listing every problem.
func ValidateDefinitionJSON(raw []byte) error {
	result, err := gojsonschema.Validate(compiledDefinitionSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return &ValidationError{Problems: problems}
}
