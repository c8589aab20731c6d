package store

import (
	"reflect"
	"testing"

	"github.com/roach88/stepwise/internal/ir"
)

func TestMarshalTopics_Nil(t *testing.T) {
	got, err := marshalTopics(nil)
	if err != nil {
		t.Fatalf("marshalTopics() failed: %v", err)
	}
	if got != "{}" {
		t.Errorf("marshalTopics(nil) = %q, want {}", got)
	}
}

func TestMarshalTopics_Canonical(t *testing.T) {
	got, err := marshalTopics(ir.Object{
		"z":     ir.Int(1),
		"a":     ir.String("<x>"),
		"count": ir.Array{ir.Bool(true)},
	})
	if err != nil {
		t.Fatalf("marshalTopics() failed: %v", err)
	}
	want := `{"a":"<x>","count":[true],"z":1}`
	if got != want {
		t.Errorf("marshalTopics() = %s, want %s", got, want)
	}
}

func TestUnmarshalTopics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ir.Object
	}{
		{"empty string", "", nil},
		{"empty object", "{}", nil},
		{"values", `{"n":9007199254740993,"s":"x"}`, ir.Object{"n": ir.Int(9007199254740993), "s": ir.String("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unmarshalTopics(tt.in)
			if err != nil {
				t.Fatalf("unmarshalTopics() failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("unmarshalTopics() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalTopics_RejectsFloat(t *testing.T) {
	if _, err := unmarshalTopics(`{"x":1.5}`); err == nil {
		t.Error("expected error for float topic")
	}
}

func TestMarshalProofs(t *testing.T) {
	got, err := marshalProofs([]string{"a < b", "c"})
	if err != nil {
		t.Fatalf("marshalProofs() failed: %v", err)
	}
	if got != `["a < b","c"]` {
		t.Errorf("marshalProofs() = %s", got)
	}

	empty, err := marshalProofs(nil)
	if err != nil || empty != "[]" {
		t.Errorf("marshalProofs(nil) = %q, %v", empty, err)
	}

	back, err := unmarshalProofs(got)
	if err != nil {
		t.Fatalf("unmarshalProofs() failed: %v", err)
	}
	if !reflect.DeepEqual(back, []string{"a < b", "c"}) {
		t.Errorf("unmarshalProofs() = %v", back)
	}
}
