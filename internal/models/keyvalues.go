package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

type KeyValuesKind int

const (
	KeyValuesEmpty KeyValuesKind = iota
	KeyValuesPairs
	KeyValuesMapping
)

// KeyValues holds params or headers as sent by the client: either an ordered
// list of {key, value} pairs or a ready-made object. Fold turns both into one
// canonical mapping.
type KeyValues struct {
	Kind    KeyValuesKind
	Pairs   []json.RawMessage
	Mapping map[string]json.RawMessage
}

// PairsOf builds a pair-list KeyValues, mostly for callers constructing
// requests in code.
func PairsOf(pairs ...Pair) KeyValues {
	kv := KeyValues{Kind: KeyValuesPairs}
	for _, p := range pairs {
		raw, _ := json.Marshal(p)
		kv.Pairs = append(kv.Pairs, raw)
	}
	return kv
}

// MappingOf builds a mapping KeyValues.
func MappingOf(m map[string]string) KeyValues {
	kv := KeyValues{Kind: KeyValuesMapping, Mapping: make(map[string]json.RawMessage, len(m))}
	for k, v := range m {
		raw, _ := json.Marshal(v)
		kv.Mapping[k] = raw
	}
	return kv
}

type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (kv *KeyValues) UnmarshalJSON(data []byte) error {
	*kv = KeyValues{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var pairs []json.RawMessage
		if err := json.Unmarshal(data, &pairs); err == nil {
			kv.Kind = KeyValuesPairs
			kv.Pairs = pairs
		}
	case '{':
		var mapping map[string]json.RawMessage
		if err := json.Unmarshal(data, &mapping); err == nil {
			kv.Kind = KeyValuesMapping
			kv.Mapping = mapping
		}
	}
	return nil
}

func (kv KeyValues) MarshalJSON() ([]byte, error) {
	switch kv.Kind {
	case KeyValuesPairs:
		return json.Marshal(kv.Pairs)
	case KeyValuesMapping:
		return json.Marshal(kv.Mapping)
	default:
		return []byte("{}"), nil
	}
}

// Fold returns the canonical mapping. Pairs are applied left to right with
// trimmed keys, so the last duplicate wins; entries that are not objects or
// whose key is empty or not a string are skipped. A mapping passes through
// with its keys untouched, minus null values.
func (kv KeyValues) Fold() map[string]string {
	out := make(map[string]string)

	switch kv.Kind {
	case KeyValuesPairs:
		for _, raw := range kv.Pairs {
			var item map[string]json.RawMessage
			if err := json.Unmarshal(raw, &item); err != nil || item == nil {
				continue
			}
			var key string
			if err := json.Unmarshal(item["key"], &key); err != nil {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			out[key], _ = scalarString(item["value"])
		}
	case KeyValuesMapping:
		for key, raw := range kv.Mapping {
			if isNull(raw) {
				continue
			}
			out[key], _ = scalarString(raw)
		}
	}

	return out
}

// scalarString renders a JSON value as the string sent on the wire: strings
// verbatim, null or missing as "", anything else as its compact JSON text.
func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
