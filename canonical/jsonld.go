package canonical

import (
	"context"

	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
)

// CanonicalizeJSONLD normalizes a JSON-LD document with the URDNA2015
// algorithm and returns the resulting n-quads bytes. Callers working with
// context-bearing documents should prefer this over Canonicalize, since it
// is invariant under term aliasing as well as key order. The loader resolves
// remote @context references; pass nil to use the json-gold default.
func CanonicalizeJSONLD(ctx context.Context, doc map[string]interface{},
	loader ld.DocumentLoader) ([]byte, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Algorithm = ld.AlgorithmURDNA2015
	options.Format = "application/n-quads"
	if loader != nil {
		options.DocumentLoader = loader
	}

	normalized, err := proc.Normalize(doc, options)
	if err != nil {
		return nil, errors.WithMessage(err, "URDNA2015 normalization")
	}

	quads, ok := normalized.(string)
	if !ok {
		return nil, errors.Errorf(
			"unexpected normalization result type %T", normalized)
	}

	return []byte(quads), nil
}
