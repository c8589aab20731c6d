package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is one topic value: String, Int, Bool, Array or Object.
// Numbers are whole; a float cannot be represented.
type Value interface {
	topic()
}

type (
	// String is a text topic value.
	String string
	// Int is a whole-number topic value.
	Int int64
	// Bool is a boolean topic value.
	Bool bool
	// Array is an ordered list of topic values.
	Array []Value
	// Object is a topic map. It encodes through MarshalCanonical, so its
	// JSON form has sorted keys.
	Object map[string]Value
)

func (String) topic() {}
func (Int) topic()    {}
func (Bool) topic()   {}
func (Array) topic()  {}
func (Object) topic() {}

// Field is one entry of an Object under construction.
type Field struct {
	Key   string
	Value Value
}

// O builds a Field, as in NewObject(O("cached", Bool(true))).
func O(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// NewObject collects fields into an Object. A repeated key keeps the last value.
func NewObject(fields ...Field) Object {
	obj := make(Object, len(fields))
	for _, f := range fields {
		obj[f.Key] = f.Value
	}
	return obj
}

// SortedKeys returns the keys ordered by UTF-16 code units, the order
// canonical JSON requires.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})
	return keys
}

func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// UnmarshalJSON decodes stored topics. Floats and nulls are rejected.
func (obj *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := topicOf(raw)
	if err != nil {
		return err
	}
	*obj = v.(Object)
	return nil
}

// topicOf converts a value decoded with UseNumber.
func topicOf(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("topic number %s is not a whole number", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := topicOf(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := topicOf(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	case nil:
		return nil, fmt.Errorf("null topic values are not supported")
	default:
		return nil, fmt.Errorf("unsupported topic type %T", v)
	}
}
