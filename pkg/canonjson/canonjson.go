// Package canonjson produces a canonical JSON encoding used for the
// config-hash fingerprint. The persistent cache's TEXT columns are written
// with plain encoding/json, not with this encoder, so their floats are not
// rounded.
package canonjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// roundPlaces is the decimal precision applied to every float leaf before
// encoding, matching the config-hash stability requirement.
const roundPlaces = 5

// Marshal renders v as canonical JSON: object keys sorted lexicographically
// at every nesting level, float leaves rounded to roundPlaces decimals.
func Marshal(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize converts v into a tree of map[string]interface{}, []interface{},
// and rounded float64/string/bool/nil leaves, with no dependence on the
// origin map's iteration order.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal intermediate: %w", err)
	}

	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonjson: decode intermediate: %w", err)
	}

	return normalizeValue(generic), nil
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := newOrderedObject(len(keys))
		for _, k := range keys {
			out.set(k, normalizeValue(t[k]))
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return roundFloat(f)
	default:
		return v
	}
}

func roundFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	scale := math.Pow(10, roundPlaces)
	return math.Round(f*scale) / scale
}

// orderedObject marshals as a JSON object while preserving explicit key
// insertion order, so the sorted keys from normalizeValue survive encoding
// (encoding/json would otherwise re-sort a plain map[string]interface{}
// identically for ASCII keys, but we keep this explicit for clarity and to
// avoid relying on that incidental behavior).
type orderedObject struct {
	keys   []string
	values map[string]interface{}
}

func newOrderedObject(capacity int) *orderedObject {
	return &orderedObject{
		keys:   make([]string, 0, capacity),
		values: make(map[string]interface{}, capacity),
	}
}

func (o *orderedObject) set(key string, value interface{}) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
