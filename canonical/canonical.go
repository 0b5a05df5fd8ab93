package canonical

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ErrMalformedDocument is returned when a document contains values that have
// no deterministic serialization (NaN, infinities, functions, channels and
// other non-JSON types).
var ErrMalformedDocument = errors.New("document is not canonicalizable")

// Canonicalize serializes a structured document into a deterministic byte
// sequence: object keys are emitted in lexicographic order at every nesting
// level and no insignificant whitespace is produced. Two documents that are
// equal as structured data always canonicalize to identical bytes regardless
// of field insertion order.
func Canonicalize(doc map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeJSONScalar(buf, t)
	case json.Number:
		buf.WriteString(t.String())
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.WithMessage(ErrMalformedDocument,
				"non-finite number")
		}
		return writeJSONScalar(buf, t)
	case float32:
		return writeCanonical(buf, float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return writeJSONScalar(buf, t)
	case []interface{}:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		els := make([]interface{}, len(t))
		for i, s := range t {
			els[i] = s
		}
		return writeCanonical(buf, els)
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.WithMessagef(ErrMalformedDocument,
			"unsupported value type %T", v)
	}
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.WithMessage(ErrMalformedDocument, err.Error())
	}
	buf.Write(b)
	return nil
}
