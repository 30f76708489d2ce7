package api

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/minerva/internal/prompt"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// errInvalidJSON is returned for bodies that are not a JSON object.
var errInvalidJSON = errors.New("invalid JSON body")

// rootField is how gojsonschema names the document itself.
const rootField = "(root)"

// schemas holds the compiled request schemas, keyed by file stem.
type schemas map[string]*gojsonschema.Schema

func loadSchemas() (schemas, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	out := make(schemas, len(entries))
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = s
	}
	return out, nil
}

// check validates body against the named schema. Missing required fields
// become a MissingField error and wrongly typed fields an InvalidField
// error, each listing the offending fields in schema order.
func (s schemas) check(name string, body []byte) error {
	schema, ok := s[name]
	if !ok {
		return fmt.Errorf("no schema named %q", name)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errInvalidJSON
	}
	if result.Valid() {
		return nil
	}

	var missing, invalid []string
	for _, re := range result.Errors() {
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				missing = appendUnique(missing, prop)
			}
			continue
		}
		field := re.Field()
		if field == rootField {
			return errInvalidJSON
		}
		// "subjects.0" reports an array item; the field is "subjects".
		field, _, _ = strings.Cut(field, ".")
		invalid = appendUnique(invalid, field)
	}

	if len(missing) > 0 {
		return &prompt.ValidationError{Fields: missing, Reason: prompt.ReasonMissing}
	}
	return &prompt.ValidationError{Fields: invalid, Reason: prompt.ReasonInvalid}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
