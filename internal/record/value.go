package record

import (
	"bytes"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedType is returned when a Go value has no scalar mapping.
var ErrUnsupportedType = errors.New("record: unsupported value type")

// Kind identifies which member of the Value union is set.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
	KindBool
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a loosely-typed scalar stored in a Record column.
//
// The zero Value is Null. Values are immutable; Blob copies its input.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the SQL NULL value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Real returns a floating point value.
func Real(f float64) Value { return Value{kind: KindReal, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Blob returns a binary value holding a copy of b.
func Blob(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBlob, b: bytes.Clone(b)}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Kind reports which member of the union is set.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInteger }

// AsReal returns the floating point payload.
func (v Value) AsReal() (float64, bool) { return v.f, v.kind == KindReal }

// AsText returns the text payload.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsBlob returns a copy of the binary payload.
func (v Value) AsBlob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return bytes.Clone(v.b), true
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.i != 0, v.kind == KindBool }

// Any returns the payload as a plain Go value (nil, int64, float64, string, []byte or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return bytes.Clone(v.b)
	case KindBool:
		return v.i != 0
	default:
		return nil
	}
}

// Value implements driver.Valuer. Booleans are stored as 0/1 integers.
func (v Value) Value() (driver.Value, error) {
	switch v.kind {
	case KindInteger, KindBool:
		return v.i, nil
	case KindReal:
		return v.f, nil
	case KindText:
		return v.s, nil
	case KindBlob:
		return v.b, nil
	default:
		return nil, nil
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindReal:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	default:
		return v.i == o.i
	}
}

// String formats the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	case KindBlob:
		return fmt.Sprintf("blob[%d]", len(v.b))
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	default:
		return "NULL"
	}
}

// FromAny converts a dynamically-typed Go value into a Value.
//
// Supported inputs: nil, Value, all integer and float kinds, string, []byte,
// bool, json.Number and time.Time (stored as RFC 3339 text).
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Real(float64(t)), nil
	case float64:
		return Real(t), nil
	case string:
		return Text(t), nil
	case []byte:
		return Blob(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return fromNumber(t.String())
	case time.Time:
		return Text(t.UTC().Format(time.RFC3339Nano)), nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Null(), fmt.Errorf("%w: %d overflows int64", ErrUnsupportedType, u)
	}
	return Int(int64(u)), nil
}

// fromNumber decodes a JSON number literal. Literals without fraction or
// exponent that fit in int64 become integers.
func fromNumber(lit string) (Value, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Null(), fmt.Errorf("record: invalid number %q: %w", lit, err)
	}
	return Real(f), nil
}

// FromDriver converts a value scanned from database/sql into a Value.
// declType is the column's declared type and disambiguates []byte text.
func FromDriver(src any, declType string) Value {
	switch t := src.(type) {
	case nil:
		return Null()
	case int64:
		return Int(t)
	case float64:
		return Real(t)
	case string:
		return Text(t)
	case []byte:
		if isTextDecl(declType) {
			return Text(string(t))
		}
		return Blob(t)
	case bool:
		return Bool(t)
	case time.Time:
		return Text(t.UTC().Format(time.RFC3339Nano))
	default:
		v, err := FromAny(src)
		if err != nil {
			return Text(fmt.Sprint(src))
		}
		return v
	}
}

func isTextDecl(declType string) bool {
	d := strings.ToUpper(declType)
	return strings.Contains(d, "CHAR") || strings.Contains(d, "CLOB") || strings.Contains(d, "TEXT")
}

// MarshalJSON encodes the value as a JSON scalar. Blobs encode as base64 text.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindReal:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("record: cannot encode %v as JSON", v.f)
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBlob:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.b))
	case KindBool:
		return []byte(strconv.FormatBool(v.i != 0)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: decoding value: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case json.Number:
		n, err := fromNumber(t.String())
		if err != nil {
			return err
		}
		*v = n
	case string:
		*v = Text(t)
	default:
		return fmt.Errorf("%w: JSON %v is not a scalar", ErrUnsupportedType, t)
	}
	return nil
}
