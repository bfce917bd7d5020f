// Package codec implements pylon's typed scalar codec (C1): a reversible
// wire representation for scalar kinds that plain JSON and msgpack cannot
// round-trip natively (arbitrary-precision decimals, dates, large integers).
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Tag identifies the scalar kind encoded in a tagged lexical string.
type Tag string

// Scalar tags, per §4.1.
const (
	TagDecimal      Tag = "N"
	TagDate         Tag = "D"
	TagDateTimeUTC  Tag = "DHZ"
	TagTime         Tag = "H"
	TagLargeInt     Tag = "L"
	TagBool         Tag = "B"
	separator           = "::"
)

// Mode selects the wire form used by Marshal/Unmarshal.
type Mode uint8

const (
	ModeJSON Mode = iota
	ModeMsgpack
)

// Tagged is the typed-scalar wrapper. Decode produces one of these for any
// scalar carrying a recognized tag suffix; Encode consumes one to produce
// the tagged lexical form.
type Tagged struct {
	Tag   Tag
	Value string
}

// String renders the wire form "<lexical>::<TAG>".
func (t Tagged) String() string {
	return t.Value + separator + string(t.Tag)
}

// ParseTagged splits a wire string back into its lexical value and tag, if
// it carries one. The second return value is false for ordinary strings.
func ParseTagged(s string) (Tagged, bool) {
	for _, tag := range []Tag{TagDateTimeUTC, TagDecimal, TagDate, TagTime, TagLargeInt, TagBool} {
		suffix := separator + string(tag)
		if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
			return Tagged{Tag: tag, Value: s[:len(s)-len(suffix)]}, true
		}
	}
	return Tagged{}, false
}

// EncodeDecimal produces the tagged lexical form for an arbitrary-precision
// decimal, per §4.1's "N" scalar.
func EncodeDecimal(d decimal.Decimal) string {
	return Tagged{Tag: TagDecimal, Value: d.String()}.String()
}

// DecodeDecimal parses a tagged decimal string back into a decimal.Decimal.
func DecodeDecimal(s string) (decimal.Decimal, error) {
	t, ok := ParseTagged(s)
	if !ok || t.Tag != TagDecimal {
		return decimal.Decimal{}, fmt.Errorf("codec: not a tagged decimal: %q", s)
	}
	return decimal.NewFromString(t.Value)
}

// EncodeDate produces the tagged lexical form for a calendar date (no time
// component), per §4.1's "D" scalar.
func EncodeDate(t time.Time) string {
	return Tagged{Tag: TagDate, Value: t.Format("2006-01-02")}.String()
}

// EncodeDateTimeUTC produces the tagged lexical form for a UTC timestamp,
// per §4.1's "DHZ" scalar.
func EncodeDateTimeUTC(t time.Time) string {
	return Tagged{Tag: TagDateTimeUTC, Value: t.UTC().Format(time.RFC3339Nano)}.String()
}

// EncodeTime produces the tagged lexical form for a time-of-day value, per
// §4.1's "H" scalar.
func EncodeTime(t time.Time) string {
	return Tagged{Tag: TagTime, Value: t.Format("15:04:05.999999999")}.String()
}

// DecodeTimeLike parses any of the D/DHZ/H tags back into a time.Time using
// the matching layout.
func DecodeTimeLike(s string) (time.Time, error) {
	t, ok := ParseTagged(s)
	if !ok {
		return time.Time{}, fmt.Errorf("codec: not a tagged time-like value: %q", s)
	}
	switch t.Tag {
	case TagDate:
		return time.Parse("2006-01-02", t.Value)
	case TagDateTimeUTC:
		return time.Parse(time.RFC3339Nano, t.Value)
	case TagTime:
		return time.Parse("15:04:05.999999999", t.Value)
	default:
		return time.Time{}, fmt.Errorf("codec: tag %q is not time-like", t.Tag)
	}
}

// EncodeLargeInt produces the tagged lexical form for an arbitrary-precision
// integer, per §4.1's "L" scalar.
func EncodeLargeInt(i *big.Int) string {
	return Tagged{Tag: TagLargeInt, Value: i.String()}.String()
}

// DecodeLargeInt parses a tagged large-integer string into a *big.Int.
func DecodeLargeInt(s string) (*big.Int, error) {
	t, ok := ParseTagged(s)
	if !ok || t.Tag != TagLargeInt {
		return nil, fmt.Errorf("codec: not a tagged large int: %q", s)
	}
	i, success := new(big.Int).SetString(t.Value, 10)
	if !success {
		return nil, fmt.Errorf("codec: invalid large int lexical form: %q", t.Value)
	}
	return i, nil
}

// EncodeBool produces the tagged lexical form for a boolean, per §4.1's "B"
// scalar (used only where the surrounding wire format has no native bool,
// e.g. form-encoded transports funneled through the typed codec).
func EncodeBool(b bool) string {
	return Tagged{Tag: TagBool, Value: fmt.Sprintf("%t", b)}.String()
}

// Marshal encodes v in the given mode. When typed is true, scalar values
// recognized by this package (decimal.Decimal, *big.Int, time.Time) are
// rewritten into their tagged lexical form before encoding; maps and slices
// are walked recursively. When typed is false this is a plain pass-through
// to encoding/json or msgpack, matching native rules outside typed mode.
func Marshal(v interface{}, mode Mode, typed bool) ([]byte, error) {
	if typed {
		v = tagValue(reflect.ValueOf(v))
	}
	switch mode {
	case ModeMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// Unmarshal decodes data in the given mode into a generic interface{} tree
// (map[string]interface{}, []interface{}, scalars). When typed is true,
// string scalars carrying a recognized tag are rewritten into native Go
// types (decimal.Decimal, time.Time, *big.Int, bool) before being returned.
func Unmarshal(data []byte, mode Mode, typed bool) (interface{}, error) {
	var v interface{}
	switch mode {
	case ModeMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
	}
	if typed {
		v = untagValue(v)
	}
	return v, nil
}

// tagValue walks v recursively, rewriting any recognized scalar type into
// its tagged lexical string form.
func tagValue(rv reflect.Value) interface{} {
	if !rv.IsValid() {
		return nil
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch x := rv.Interface().(type) {
	case decimal.Decimal:
		return EncodeDecimal(x)
	case time.Time:
		return EncodeDateTimeUTC(x)
	case big.Int:
		return EncodeLargeInt(&x)
	}

	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = tagValue(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = tagValue(rv.Index(i))
		}
		return out
	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]interface{}, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			out[name] = tagValue(rv.Field(i))
		}
		return out
	default:
		return rv.Interface()
	}
}

// untagValue walks a decoded interface{} tree, rewriting any recognized
// tagged string back into its native Go type.
func untagValue(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		t, ok := ParseTagged(x)
		if !ok {
			return x
		}
		switch t.Tag {
		case TagDecimal:
			if d, err := decimal.NewFromString(t.Value); err == nil {
				return d
			}
		case TagDate, TagDateTimeUTC, TagTime:
			if tm, err := DecodeTimeLike(x); err == nil {
				return tm
			}
		case TagLargeInt:
			if i, err := DecodeLargeInt(x); err == nil {
				return i
			}
		case TagBool:
			return t.Value == "true"
		}
		return x
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = untagValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = untagValue(e)
		}
		return out
	default:
		return v
	}
}
