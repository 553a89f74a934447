package schema

import "fmt"

// SchemaError indicates a raw input value outside the declared level set for
// its field. Fatal for the record batch; never recovered.
type SchemaError struct {
	Field    string
	Value    string
	Row      int
	Declared []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: row %d: %s value %q not among declared levels %v", e.Row, e.Field, e.Value, e.Declared)
}
