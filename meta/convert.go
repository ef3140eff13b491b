package meta

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// ErrUnsupportedMetaValue is returned for values that cannot be represented
// in durable storage without losing information.
var ErrUnsupportedMetaValue = errors.New("unsupported meta value")

// FromAny converts plain Go data into a Value. Accepted inputs are nil,
// bool, integer and float kinds, string, slices and arrays of accepted
// inputs, maps with string keys, Value and Map.
func FromAny(x any) (Value, error) {
	return fromAny(x, "$")
}

// MustFromAny is FromAny for literals known to be valid.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

func fromAny(x any, path string) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case Map:
		return Object(t.Clone()), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			v, err := fromAny(e, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case map[string]any:
		out := make(Map, len(t))
		for k, e := range t {
			v, err := fromAny(e, path+"."+k)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Object(out), nil
	}
	return fromReflect(reflect.ValueOf(x), path)
}

func fromReflect(rv reflect.Value, path string) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %s: %d overflows int64", ErrUnsupportedMetaValue, path, u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromAny(rv.Elem().Interface(), path)
	case reflect.Slice:
		if rv.IsNil() {
			return Value{kind: KindList, list: []Value{}}, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := fromAny(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: %s: map key type %s", ErrUnsupportedMetaValue, path, rv.Type().Key())
		}
		out := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			v, err := fromAny(iter.Value().Interface(), path+"."+k)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Object(out), nil
	}
	if !rv.IsValid() {
		return Null(), nil
	}
	return Value{}, fmt.Errorf("%w: %s: %s", ErrUnsupportedMetaValue, path, rv.Type())
}

// ToAny converts v back into plain Go data: nil, bool, int64, float64,
// string, []any and map[string]any.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, x := range v.list {
			out[i] = x.ToAny()
		}
		return out
	case KindMap:
		return v.m.ToAny()
	}
	return nil
}

// ToAny converts every entry of m with Value.ToAny.
func (m Map) ToAny() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.ToAny()
	}
	return out
}

// Validate reports the first value that durable storage cannot hold
// losslessly: NaN or infinite floats, and strings or keys that are not
// valid UTF-8.
func Validate(v Value) error {
	return validate(v, "$")
}

// Validate checks every entry of m.
func (m Map) Validate() error {
	for _, k := range m.Keys() {
		if err := validateKey(k, "$"); err != nil {
			return err
		}
		if err := validate(m[k], "$."+k); err != nil {
			return err
		}
	}
	return nil
}

func validate(v Value, path string) error {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%w: %s: non-finite float %v", ErrUnsupportedMetaValue, path, v.f)
		}
	case KindString:
		if !utf8.ValidString(v.s) {
			return fmt.Errorf("%w: %s: invalid utf-8 string", ErrUnsupportedMetaValue, path)
		}
	case KindList:
		for i, x := range v.list {
			if err := validate(x, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case KindMap:
		for _, k := range v.m.Keys() {
			if err := validateKey(k, path); err != nil {
				return err
			}
			if err := validate(v.m[k], path+"."+k); err != nil {
				return err
			}
		}
	case KindNull, KindBool, KindInt:
	default:
		return fmt.Errorf("%w: %s: unknown kind %s", ErrUnsupportedMetaValue, path, v.kind)
	}
	return nil
}

func validateKey(k, path string) error {
	if !utf8.ValidString(k) {
		return fmt.Errorf("%w: %s: invalid utf-8 key %q", ErrUnsupportedMetaValue, path, k)
	}
	return nil
}
