// Copyright 2025 Certen Protocol
//
// Package manifest canonicalizes a compose manifest so that two semantically
// identical YAML documents — differing only in key order, indentation, or
// quoting style — normalize to the same byte sequence before they are
// hashed. encoding/json sorts map keys during marshaling, which gives the
// recursive-sort canonicalization the measurement pipeline requires for
// free once the YAML tree has been decoded into plain Go values.
package manifest

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
)

// Canonicalize parses raw as YAML and re-serializes it as indented JSON with
// map keys in sorted order. The result is stable under any reordering,
// reindentation, or quoting change that leaves the decoded value unchanged.
func Canonicalize(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "manifest.Canonicalize", err)
	}
	doc = normalize(doc)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "manifest.Canonicalize", err)
	}
	return out, nil
}

// normalize walks a yaml.v3-decoded tree and converts the map[string]interface{}
// and map[interface{}]interface{} shapes yaml.v3 may produce into plain
// map[string]interface{}, which is the only map shape encoding/json accepts.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[toString(k)] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return val
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
