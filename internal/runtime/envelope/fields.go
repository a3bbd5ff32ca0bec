package envelope

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

// UnknownJobID is reported for payloads that carry no usable job_id. It is a
// logging sentinel only.
const UnknownJobID = "unknown"

// Fields is an open JSON object: values are strings, numbers, booleans, nil,
// nested objects or arrays. Transforms receive and return Fields. Numbers
// parsed off the wire are json.Number.
type Fields map[string]any

// JobID returns the job_id as a string, or UnknownJobID when absent.
func (f Fields) JobID() string {
	switch v := f["job_id"].(type) {
	case string:
		if v != "" {
			return v
		}
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return UnknownJobID
}

// Clone returns a deep copy so callers can mutate nested objects freely.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return cloneValue(map[string]any(f)).(map[string]any)
}

// Object returns the nested object stored at key. The second result is false
// when the key is absent or nil; err is set when the value is not an object.
func (f Fields) Object(key string) (Fields, bool, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return Fields(v), true, nil
	case Fields:
		return v, true, nil
	}
	return nil, false, fmt.Errorf("%q is %T, not an object", key, raw)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Fields:
		return Fields(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Reader extracts typed values from Fields on behalf of a named record and
// reports problems as *errors.DecodeError.
type Reader struct {
	record string
	fields Fields
}

// NewReader returns a Reader over f. A nil f fails every required lookup.
func NewReader(record string, f Fields) *Reader {
	return &Reader{record: record, fields: f}
}

func (r *Reader) missing(key string) error {
	return errspkg.NewDecodeError(r.record, key, "missing required field")
}

func (r *Reader) wrongType(key string, want string, got any) error {
	return errspkg.NewDecodeError(r.record, key, fmt.Sprintf("expected %s, got %T", want, got))
}

func (r *Reader) lookup(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok && v != nil
}

func (r *Reader) RequiredString(key string) (string, error) {
	v, ok := r.lookup(key)
	if !ok {
		return "", r.missing(key)
	}
	s, isString := v.(string)
	if !isString {
		return "", r.wrongType(key, "string", v)
	}
	return s, nil
}

func (r *Reader) OptionalString(key, fallback string) (string, error) {
	if _, ok := r.lookup(key); !ok {
		return fallback, nil
	}
	return r.RequiredString(key)
}

// OptionalStringPtr returns nil when the key is absent or null.
func (r *Reader) OptionalStringPtr(key string) (*string, error) {
	if _, ok := r.lookup(key); !ok {
		return nil, nil
	}
	s, err := r.RequiredString(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Reader) RequiredInt(key string) (int64, error) {
	v, ok := r.lookup(key)
	if !ok {
		return 0, r.missing(key)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, errspkg.NewDecodeError(r.record, key, err.Error())
	}
	return n, nil
}

func (r *Reader) OptionalFloat(key string, fallback float64) (float64, error) {
	v, ok := r.lookup(key)
	if !ok {
		return fallback, nil
	}
	n, err := toFloat64(v)
	if err != nil {
		return 0, errspkg.NewDecodeError(r.record, key, err.Error())
	}
	return n, nil
}

func (r *Reader) OptionalBool(key string, fallback bool) (bool, error) {
	v, ok := r.lookup(key)
	if !ok {
		return fallback, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, r.wrongType(key, "boolean", v)
	}
	return b, nil
}

// OptionalObject returns an empty object when the key is absent or null.
func (r *Reader) OptionalObject(key string) (Fields, error) {
	obj, ok, err := r.fields.Object(key)
	if err != nil {
		return nil, r.wrongType(key, "object", r.fields[key])
	}
	if !ok {
		return Fields{}, nil
	}
	return obj, nil
}

// List returns the array stored at key. required controls whether absence is
// an error; an absent optional list yields nil.
func (r *Reader) List(key string, required bool) ([]any, error) {
	v, ok := r.lookup(key)
	if !ok {
		if required {
			return nil, r.missing(key)
		}
		return nil, nil
	}
	return r.asList(key, v)
}

func (r *Reader) asList(key string, v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []uint64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, nil
	case [][2]uint64:
		out := make([]any, len(t))
		for i, pair := range t {
			out[i] = []any{pair[0], pair[1]}
		}
		return out, nil
	}
	return nil, r.wrongType(key, "array", v)
}

func (r *Reader) StringList(key string) ([]string, error) {
	items, err := r.List(key, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, r.wrongType(fmt.Sprintf("%s[%d]", key, i), "string", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Reader) Uint64List(key string, required bool) ([]uint64, error) {
	items, err := r.List(key, required)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(items))
	for i, item := range items {
		n, err := ToUint64(item)
		if err != nil {
			return nil, errspkg.NewDecodeError(r.record, fmt.Sprintf("%s[%d]", key, i), err.Error())
		}
		out = append(out, n)
	}
	return out, nil
}

// PairList decodes an array of two-element integer arrays.
func (r *Reader) PairList(key string) ([][2]uint64, error) {
	items, err := r.List(key, false)
	if err != nil {
		return nil, err
	}
	out := make([][2]uint64, 0, len(items))
	for i, item := range items {
		name := fmt.Sprintf("%s[%d]", key, i)
		pair, err := r.asList(name, item)
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, errspkg.NewDecodeError(r.record, name, fmt.Sprintf("expected a pair, got %d elements", len(pair)))
		}
		var p [2]uint64
		for j := range p {
			if p[j], err = ToUint64(pair[j]); err != nil {
				return nil, errspkg.NewDecodeError(r.record, name, err.Error())
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// ToUint64 converts any integral, non-negative JSON number representation.
func ToUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case json.Number:
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not a number", t)
		}
		v = f
	}
	if f, ok := v.(float64); ok && f >= math.MaxInt64 {
		if f != math.Trunc(f) || f >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not a valid address", f)
		}
		return uint64(f), nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return uint64(n), nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", t)
		}
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		if t >= math.MaxInt64 || t < math.MinInt64 {
			return 0, fmt.Errorf("%v overflows int64", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return float64(n), nil
}
