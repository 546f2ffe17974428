package comparison

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed comparison.schema.json
var recordSchemaJSON string

var (
	recordSchemaOnce sync.Once
	recordSchema     *gojsonschema.Schema
	recordSchemaErr  error
)

// FieldError is one schema violation in a persisted record.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists every violation found in a persisted record.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "record does not match schema: " + strings.Join(parts, "; ")
}

func compiledSchema() (*gojsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchemaJSON))
	})
	return recordSchema, recordSchemaErr
}

// validateRecord checks raw persisted bytes against the record schema.
// Malformed JSON is reported as an error from the loader.
func validateRecord(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load record schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, re := range result.Errors() {
		se.Errors = append(se.Errors, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return se
}
