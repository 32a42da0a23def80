package catalog

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

var (
	schemaOnce   sync.Once
	schemaJSON   []byte
	schemaLoader gojsonschema.JSONLoader
)

// Schema returns the JSON Schema describing a catalog document
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Document{})
	schema.Title = "Skill catalog"

	if skills, ok := schema.Properties.Get("skills"); ok && skills.Items != nil {
		if priority, ok := skills.Items.Properties.Get("priority"); ok {
			priority.Type = ""
			priority.OneOf = []*jsonschema.Schema{
				{Type: "string", Enum: []any{"critical", "high", "medium", "low", "1", "2", "3", "4"}},
				{Type: "integer", Enum: []any{1, 2, 3, 4}},
			}
		}
	}
	return schema
}

// SchemaJSON returns the indented catalog schema
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal catalog schema")
	}
	return data, nil
}

// ValidateDocument checks a decoded catalog document against the schema
func ValidateDocument(doc any) error {
	schemaOnce.Do(func() {
		data, err := json.Marshal(Schema())
		if err != nil {
			return
		}
		schemaJSON = data
		schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)
	})
	if schemaLoader == nil {
		return errors.New("catalog schema is unavailable")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return errors.Wrap(err, "failed to validate catalog document")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.Errorf("catalog does not match schema: %s", strings.Join(msgs, "; "))
}
