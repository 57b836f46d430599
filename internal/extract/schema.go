package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildFieldsSchema returns the JSON-Schema (draft 2020-12 subset) the
// committed record must satisfy: only declared keys, typed values, no nulls.
func buildFieldsSchema() map[string]any {
	props := map[string]any{
		"due_date":         dateProp(),
		"issue_date":       dateProp(),
		"amount":           decimalProp(),
		"interest_amount":  decimalProp(),
		"fine_amount":      decimalProp(),
		"digitable_line":   map[string]any{"type": "string", "pattern": `^\d{47,48}$`},
		"barcode":          map[string]any{"type": "string", "pattern": `^\d{44}$`},
		"cpf":              map[string]any{"type": "string", "pattern": `^\d{3}\.\d{3}\.\d{3}-\d{2}$`},
		"cnpj":             map[string]any{"type": "string", "pattern": `^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`},
		"document_number":  map[string]any{"type": "string", "minLength": 5},
		"payee_name":       map[string]any{"type": "string", "minLength": 1},
		"payer_name":       map[string]any{"type": "string", "minLength": 1},
		"billing_address":  map[string]any{"type": "string", "minLength": 1},
		"instructions":     map[string]any{"type": "string", "minLength": 1},
		"contact_phone":    map[string]any{"type": "string", "pattern": `^55\d{10,11}$`},
		"age_years":        map[string]any{"type": "integer", "minimum": 14, "maximum": 99},
		"experience_years": map[string]any{"type": "integer", "minimum": 0, "maximum": 60},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func decimalProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^-?\d+\.\d{2}$`}
}

var fieldsSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	raw, err := json.Marshal(buildFieldsSchema())
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("fields.json", bytes.NewReader(raw)); err != nil {
		panic(err)
	}
	return c.MustCompile("fields.json")
}

// ValidateJSON checks a marshaled record against the declared field schema.
// It guards the commit: a record that fails here never reaches storage.
func ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode extracted record: %w", err)
	}
	if err := fieldsSchema.Validate(doc); err != nil {
		return fmt.Errorf("extracted record schema: %w", err)
	}
	return nil
}
