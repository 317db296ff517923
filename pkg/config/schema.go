package config

import (
	"encoding/json"

	"github.com/swaggest/jsonschema-go"
)

// Schema returns the JSON schema of Settings, indented.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(Settings{})
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(schema, "", "  ")
}
