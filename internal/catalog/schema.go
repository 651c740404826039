package catalog

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema describes the catalog file format for validation and editor tooling.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(new(FileDocuments))
	schema.Title = "Satchel Item Catalog"
	schema.Description = "Item definitions referenced by inventories: category, stack size and durability."
	return schema
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
