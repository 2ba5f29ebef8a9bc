package store

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// TableJSONSchema describes the records of table as a JSON Schema object.
// The identity column is read-only and unknown properties are rejected.
func (s *Store) TableJSONSchema(ctx context.Context, table string) (*jsonschema.Schema, error) {
	meta, err := s.GetColumnMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	return ColumnsJSONSchema(table, meta, s.IDColumn()), nil
}

// ColumnsJSONSchema builds the JSON Schema for a record of cols.
func ColumnsJSONSchema(title string, cols schema.Columns, idColumn string) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, col := range cols {
		prop := columnSchema(col)
		if strings.EqualFold(col.Name, idColumn) {
			prop.ReadOnly = true
		}
		props.Set(col.Name, prop)
	}
	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                title,
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func columnSchema(col schema.Column) *jsonschema.Schema {
	nullable := func(t string) *jsonschema.Schema {
		return &jsonschema.Schema{
			Description: col.Type,
			AnyOf: []*jsonschema.Schema{
				{Type: t},
				{Type: "null"},
			},
		}
	}
	switch schema.BaseType(col.Type) {
	case schema.TypeInteger:
		return nullable("integer")
	case schema.TypeReal, schema.TypeNumeric:
		return nullable("number")
	case schema.TypeText:
		return nullable("string")
	case schema.TypeBlob:
		s := nullable("string")
		s.AnyOf[0].ContentEncoding = "base64"
		return s
	default:
		return &jsonschema.Schema{Description: col.Type}
	}
}
