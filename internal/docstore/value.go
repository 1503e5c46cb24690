package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire tags of the typed value envelope.
const (
	tagNull    = "nullValue"
	tagBool    = "booleanValue"
	tagInteger = "integerValue"
	tagDouble  = "doubleValue"
	tagString  = "stringValue"
)

// EncodeValue wraps a scalar in its single-key typed envelope.
// Integers are sent as decimal strings; anything that is not a recognized
// scalar is sent as its string form.
func EncodeValue(v any) map[string]any {
	switch x := v.(type) {
	case nil:
		return map[string]any{tagNull: nil}
	case bool:
		return map[string]any{tagBool: x}
	case int:
		return map[string]any{tagInteger: strconv.FormatInt(int64(x), 10)}
	case int8:
		return map[string]any{tagInteger: strconv.FormatInt(int64(x), 10)}
	case int16:
		return map[string]any{tagInteger: strconv.FormatInt(int64(x), 10)}
	case int32:
		return map[string]any{tagInteger: strconv.FormatInt(int64(x), 10)}
	case int64:
		return map[string]any{tagInteger: strconv.FormatInt(x, 10)}
	case uint:
		return map[string]any{tagInteger: strconv.FormatUint(uint64(x), 10)}
	case uint8:
		return map[string]any{tagInteger: strconv.FormatUint(uint64(x), 10)}
	case uint16:
		return map[string]any{tagInteger: strconv.FormatUint(uint64(x), 10)}
	case uint32:
		return map[string]any{tagInteger: strconv.FormatUint(uint64(x), 10)}
	case uint64:
		return map[string]any{tagInteger: strconv.FormatUint(x, 10)}
	case float32:
		return map[string]any{tagDouble: float64(x)}
	case float64:
		return map[string]any{tagDouble: x}
	case string:
		return map[string]any{tagString: x}
	case fmt.Stringer:
		return map[string]any{tagString: x.String()}
	default:
		return map[string]any{tagString: fmt.Sprint(x)}
	}
}

// DecodeValue unwraps an envelope. The first recognized tag wins, checked in
// the order string, integer, double, boolean, null. Anything else decodes to
// the envelope's JSON text.
func DecodeValue(env map[string]json.RawMessage) any {
	if raw, ok := env[tagString]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	if raw, ok := env[tagInteger]; ok {
		if n, ok := decodeInteger(raw); ok {
			return n
		}
		return string(raw)
	}
	if raw, ok := env[tagDouble]; ok {
		if f, ok := decodeDouble(raw); ok {
			return f
		}
		return string(raw)
	}
	if raw, ok := env[tagBool]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
		return string(raw)
	}
	if _, ok := env[tagNull]; ok {
		return nil
	}
	text, err := json.Marshal(env)
	if err != nil {
		return fmt.Sprint(env)
	}
	return string(text)
}

func decodeInteger(raw json.RawMessage) (int64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodeDouble(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	// Non-finite doubles arrive as strings.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	return 0, false
}

type wireDocument struct {
	Name   string                                `json:"name,omitempty"`
	Fields map[string]map[string]json.RawMessage `json:"fields"`
}

// encodeFields builds the "fields" object. The id is carried by the document
// name and never stored as a field.
func encodeFields(rec Record) map[string]map[string]any {
	fields := make(map[string]map[string]any, len(rec))
	for k, v := range rec {
		if k == IDField {
			continue
		}
		fields[k] = EncodeValue(v)
	}
	return fields
}

func decodeFields(fields map[string]map[string]json.RawMessage) Record {
	rec := make(Record, len(fields)+1)
	for k, env := range fields {
		rec[k] = DecodeValue(env)
	}
	return rec
}

func decodeDocument(doc wireDocument) Record {
	rec := decodeFields(doc.Fields)
	if doc.Name != "" {
		rec[IDField] = lastSegment(doc.Name)
	}
	return rec
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
