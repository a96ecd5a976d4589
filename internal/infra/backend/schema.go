package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	payingStatusSchema = mustSchema(`{
		"type": "object",
		"required": ["externalUserId", "plan", "isPaying", "exists"],
		"properties": {
			"externalUserId": {"type": "string"},
			"plan": {"type": "string", "enum": ["starter", "pro", "scale"]},
			"isPaying": {"type": "boolean"},
			"exists": {"type": "boolean"}
		}
	}`)

	syncedUserSchema = mustSchema(`{
		"type": "object",
		"required": ["userId", "email"],
		"properties": {
			"userId": {"type": "string", "minLength": 1},
			"email": {"type": "string"}
		}
	}`)
)

// ShapeError means the backend answered with a value we cannot trust.
type ShapeError struct {
	Path   string
	Errors []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("backend %s returned unexpected shape: %s", e.Path, strings.Join(e.Errors, "; "))
}

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("backend: invalid schema: %v", err))
	}
	return schema
}

func checkShape(schema *gojsonschema.Schema, path string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return &ShapeError{Path: path, Errors: []string{"empty value"}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ShapeError{Path: path, Errors: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, re.String())
	}
	return &ShapeError{Path: path, Errors: errs}
}
