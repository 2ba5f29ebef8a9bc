package record

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRecord_PreservesInsertionOrder(t *testing.T) {
	var r Record
	r.Set("Name", Text("Tower"))
	r.Set("Height", Real(310.5))
	r.Set("Floors", Int(72))
	r.Set("Name", Text("Shard")) // overwrite keeps position

	want := []string{"Name", "Height", "Floors"}
	got := r.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	v, ok := r.Get("Name")
	if !ok || !v.Equal(Text("Shard")) {
		t.Errorf("Get(Name) = %v, %v; want \"Shard\", true", v, ok)
	}
}

func TestRecord_ZeroValue(t *testing.T) {
	var r Record
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, ok := r.Get("x"); ok {
		t.Error("Get() on zero record reported present")
	}
	if r.Delete("x") {
		t.Error("Delete() on zero record reported present")
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Marshal() = %s, want {}", data)
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := New()
	r.Set("A", Int(1))

	c := r.Clone()
	c.Set("B", Int(2))

	if r.Has("B") {
		t.Error("mutating clone changed original")
	}
	if !c.Has("A") {
		t.Error("clone lost original field")
	}
}

func TestRecord_JSONKeepsKeyOrderAndKinds(t *testing.T) {
	input := `{"Zeta":"z","Alpha":1,"Mid":2.5,"Flag":true,"Empty":null}`

	var r Record
	if err := json.Unmarshal([]byte(input), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantKeys := []string{"Zeta", "Alpha", "Mid", "Flag", "Empty"}
	for i, k := range r.Keys() {
		if k != wantKeys[i] {
			t.Errorf("key %d = %q, want %q", i, k, wantKeys[i])
		}
	}

	tests := []struct {
		key  string
		kind Kind
	}{
		{"Zeta", KindText},
		{"Alpha", KindInteger},
		{"Mid", KindReal},
		{"Flag", KindBool},
		{"Empty", KindNull},
	}
	for _, tt := range tests {
		v, _ := r.Get(tt.key)
		if v.Kind() != tt.kind {
			t.Errorf("%s kind = %v, want %v", tt.key, v.Kind(), tt.kind)
		}
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != input {
		t.Errorf("Marshal() = %s, want %s", out, input)
	}
}

func TestRecord_UnmarshalRejectsNestedValues(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"Tags":["a","b"]}`), &r); err == nil {
		t.Error("Unmarshal() expected error for array value, got nil")
	}
}

func TestFromMap_SortsKeys(t *testing.T) {
	r, err := FromMap(map[string]any{"b": 2, "a": "x", "c": nil})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	got := r.Keys()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Keys() = %v, want [a b c]", got)
	}
}

func TestFromAny(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		input   any
		want    Value
		wantErr bool
	}{
		{"nil", nil, Null(), false},
		{"int", 42, Int(42), false},
		{"uint8", uint8(7), Int(7), false},
		{"float32", float32(1.5), Real(1.5), false},
		{"string", "hi", Text("hi"), false},
		{"bytes", []byte{1, 2}, Blob([]byte{1, 2}), false},
		{"bool", true, Bool(true), false},
		{"json integer", json.Number("12"), Int(12), false},
		{"json real", json.Number("1e3"), Real(1000), false},
		{"time", ts, Text("2026-01-02T03:04:05Z"), false},
		{"uint64 overflow", uint64(1 << 63), Null(), true},
		{"struct", struct{}{}, Null(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAny() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Errorf("FromAny() error = %v, want ErrUnsupportedType", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromAny() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_DriverValue(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want any
	}{
		{"null", Null(), nil},
		{"bool true", Bool(true), int64(1)},
		{"bool false", Bool(false), int64(0)},
		{"integer", Int(5), int64(5)},
		{"real", Real(2.5), 2.5},
		{"text", Text("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Value()
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFromDriver_TextBytes(t *testing.T) {
	if v := FromDriver([]byte("abc"), "TEXT"); v.Kind() != KindText {
		t.Errorf("FromDriver(TEXT bytes) kind = %v, want text", v.Kind())
	}
	if v := FromDriver([]byte("abc"), "BLOB"); v.Kind() != KindBlob {
		t.Errorf("FromDriver(BLOB bytes) kind = %v, want blob", v.Kind())
	}
}

func TestBlob_CopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Blob(src)
	src[0] = 9

	got, _ := v.AsBlob()
	if got[0] != 1 {
		t.Error("Blob() shares memory with its input")
	}
}
