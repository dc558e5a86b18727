// Copyright 2025 The fuzzer-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuzz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// RecordField is one key/value pair of a RecordPayload. Field order is part
// of the payload identity, so records are kept as an ordered slice rather
// than a map.
type RecordField struct {
	Key   string
	Value interface{}
}

// RecordPayload is a structured key/value record, serialized as a JSON
// object. It is the payload shape of HTTP-style targets.
type RecordPayload struct {
	fields []RecordField
}

// NewRecordPayload builds a record from the given fields in order.
func NewRecordPayload(fields ...RecordField) *RecordPayload {
	p := &RecordPayload{fields: make([]RecordField, len(fields))}
	copy(p.fields, fields)
	return p
}

// preferredOrder lists the well-known record fields in their canonical
// position. Unknown fields sort alphabetically after them so that decoding a
// JSON object (whose key order Go does not preserve) stays deterministic.
var preferredOrder = []string{"name", "price", "info"}

// RecordFromMap builds a record from a decoded JSON object, imposing the
// canonical field order.
func RecordFromMap(m map[string]interface{}) *RecordPayload {
	p := &RecordPayload{}
	seen := make(map[string]bool, len(m))
	for _, key := range preferredOrder {
		if v, ok := m[key]; ok {
			p.fields = append(p.fields, RecordField{Key: key, Value: v})
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(m))
	for key := range m {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		p.fields = append(p.fields, RecordField{Key: key, Value: m[key]})
	}
	return p
}

// Len returns the number of fields.
func (p *RecordPayload) Len() int { return len(p.fields) }

// Keys returns the field keys in order.
func (p *RecordPayload) Keys() []string {
	keys := make([]string, len(p.fields))
	for i, f := range p.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value of the named field.
func (p *RecordPayload) Get(key string) (interface{}, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the named field is present.
func (p *RecordPayload) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set replaces the named field's value, appending the field if absent.
func (p *RecordPayload) Set(key string, value interface{}) {
	for i := range p.fields {
		if p.fields[i].Key == key {
			p.fields[i].Value = value
			return
		}
	}
	p.fields = append(p.fields, RecordField{Key: key, Value: value})
}

// Remove deletes the named field, reporting whether it was present.
func (p *RecordPayload) Remove(key string) bool {
	for i := range p.fields {
		if p.fields[i].Key == key {
			p.fields = append(p.fields[:i], p.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Clone implements Payload.
func (p *RecordPayload) Clone() Payload {
	out := &RecordPayload{fields: make([]RecordField, len(p.fields))}
	for i, f := range p.fields {
		out.fields[i] = RecordField{Key: f.Key, Value: cloneValue(f.Value)}
	}
	return out
}

// WireBytes serializes the record as a JSON object in field order.
// Non-finite numbers and raw bytes are coerced to their string forms so the
// output is always valid JSON, mirroring what the target actually receives.
func (p *RecordPayload) WireBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, f.Key)
		buf.WriteByte(':')
		writeJSONValue(&buf, f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fingerprint implements Payload. The wire serialization is already
// deterministic, so it doubles as the fingerprint.
func (p *RecordPayload) Fingerprint() string {
	wire, _ := p.WireBytes()
	return string(wire)
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc, err := json.Marshal(s)
	if err != nil {
		enc = []byte(strconv.Quote(s))
	}
	buf.Write(enc)
}

// writeJSONValue encodes a field value, tolerating the shapes the mutation
// operators produce: nil, booleans, non-finite floats, raw bytes, nested
// collections. Anything unrecognized falls back to its string rendering.
func writeJSONValue(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeJSONString(buf, val)
	case float64:
		writeJSONFloat(buf, val)
	case float32:
		writeJSONFloat(buf, float64(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		buf.WriteString(val.String())
	case []byte:
		writeJSONString(buf, string(val))
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONValue(buf, e)
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			writeJSONValue(buf, val[k])
		}
		buf.WriteByte('}')
	default:
		writeJSONString(buf, fmt.Sprintf("%v", val))
	}
}

func writeJSONFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}
