package protocol

import (
	"embed"
	"path"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema returns the JSON schema for a wire message, by file name
// (e.g. "act.schema.json").
func Schema(name string) (string, error) {
	b, err := schemaFS.ReadFile(path.Join("schemas", name))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
