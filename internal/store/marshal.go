package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/ir"
)

// marshalTopics converts result topics to canonical JSON TEXT.
func marshalTopics(topics ir.Object) (string, error) {
	if topics == nil {
		topics = ir.Object{}
	}
	data, err := ir.MarshalCanonical(topics)
	if err != nil {
		return "", fmt.Errorf("marshal topics: %w", err)
	}
	return string(data), nil
}

// unmarshalTopics parses stored topics. Empty objects decode to nil so a
// read entry compares equal to a freshly built one.
func unmarshalTopics(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}
	return obj, nil
}

// marshalProofs stores proof statements as a JSON array with HTML escaping
// disabled, matching the canonical encoder.
func marshalProofs(proofs []string) (string, error) {
	if proofs == nil {
		proofs = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(proofs); err != nil {
		return "", fmt.Errorf("marshal proofs: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalProofs(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var proofs []string
	if err := json.Unmarshal([]byte(data), &proofs); err != nil {
		return nil, fmt.Errorf("unmarshal proofs: %w", err)
	}
	return proofs, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
