package schemaval

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Reference points at a credential schema document.
type Reference struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Source retrieves schema bytes for a reference.
type Source interface {
	GetSchema(ctx context.Context, ref Reference) ([]byte, error)
}

// Validate checks a credential subject against a JSON Schema. A nil slice
// means the subject conforms; a non-nil slice lists the violations. The
// error return is reserved for an unusable schema, which is an
// infrastructure fault rather than a verification finding.
func Validate(subject map[string]interface{}, schema []byte) ([]string, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("schema.json",
		bytes.NewReader(schema)); err != nil {
		return nil, errors.WithMessage(err, "add schema resource")
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, errors.WithMessage(err, "compile schema")
	}

	err = compiled.Validate(subject)
	if err == nil {
		return nil, nil
	}

	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return flatten(ve), nil
	}
	return []string{err.Error()}, nil
}

// flatten walks the validation error tree into leaf messages.
func flatten(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}

// DocumentSource adapts a remote document loader into a schema Source.
type DocumentSource struct {
	Loader ld.DocumentLoader
}

func (s DocumentSource) GetSchema(ctx context.Context, ref Reference) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Loader == nil {
		return nil, errors.New("schema loader is not configured")
	}

	doc, err := s.Loader.LoadDocument(ref.ID)
	if err != nil {
		return nil, errors.WithMessagef(err, "load schema %s", ref.ID)
	}
	return json.Marshal(doc.Document)
}
