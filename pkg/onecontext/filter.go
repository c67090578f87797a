package onecontext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Filter is a boolean expression over file metadata, sent as metadataFilters.
// It is one of And, Or or Field.
type Filter interface {
	json.Marshaler
	// Match evaluates the expression against metadata locally.
	Match(m Metadata) bool
	isFilter()
}

// Op is a field predicate operator, sent verbatim.
type Op string

const (
	OpEq       Op = "$eq"
	OpNe       Op = "$ne"
	OpContains Op = "$contains"
	OpIn       Op = "$in"
	OpGt       Op = "$gt"
	OpGte      Op = "$gte"
	OpLt       Op = "$lt"
	OpLte      Op = "$lte"
)

// And matches when every operand matches.
type And []Filter

// Or matches when any operand matches.
type Or []Filter

// Field compares one metadata field against a value.
type Field struct {
	Name  string
	Op    Op
	Value any
}

func (And) isFilter()   {}
func (Or) isFilter()    {}
func (Field) isFilter() {}

// Eq matches when the field equals v.
func Eq(name string, v any) Field       { return Field{Name: name, Op: OpEq, Value: v} }
// Ne matches when the field differs from v or is absent.
func Ne(name string, v any) Field       { return Field{Name: name, Op: OpNe, Value: v} }
// Contains matches when the field's string or list contains v.
func Contains(name string, v any) Field { return Field{Name: name, Op: OpContains, Value: v} }
// In matches when the field equals one of vs.
func In(name string, vs ...any) Field   { return Field{Name: name, Op: OpIn, Value: vs} }
// Gt matches when the field is greater than v.
func Gt(name string, v any) Field       { return Field{Name: name, Op: OpGt, Value: v} }
// Gte matches when the field is at least v.
func Gte(name string, v any) Field      { return Field{Name: name, Op: OpGte, Value: v} }
// Lt matches when the field is less than v.
func Lt(name string, v any) Field       { return Field{Name: name, Op: OpLt, Value: v} }
// Lte matches when the field is at most v.
func Lte(name string, v any) Field      { return Field{Name: name, Op: OpLte, Value: v} }

// MarshalJSON encodes f as {"$and": [...]}.
func (f And) MarshalJSON() ([]byte, error) {
	return marshalGroup("$and", f)
}

// MarshalJSON encodes f as {"$or": [...]}.
func (f Or) MarshalJSON() ([]byte, error) {
	return marshalGroup("$or", f)
}

func marshalGroup(key string, operands []Filter) ([]byte, error) {
	if operands == nil {
		operands = []Filter{}
	}
	for i, operand := range operands {
		if operand == nil {
			return nil, fmt.Errorf("%s operand %d is nil", key, i)
		}
	}
	return json.Marshal(map[string][]Filter{key: operands})
}

// MarshalJSON encodes f as {name: {op: value}}.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.Name == "" {
		return nil, errors.New("filter field name is empty")
	}
	return json.Marshal(map[string]map[Op]any{f.Name: {f.Op: f.Value}})
}

// Match reports whether every operand matches.
func (f And) Match(m Metadata) bool {
	for _, operand := range f {
		if operand == nil || !operand.Match(m) {
			return false
		}
	}
	return true
}

// Match reports whether any operand matches.
func (f Or) Match(m Metadata) bool {
	for _, operand := range f {
		if operand != nil && operand.Match(m) {
			return true
		}
	}
	return false
}

// Match applies the operator to the named field of m.
func (f Field) Match(m Metadata) bool {
	actual, ok := m[f.Name]
	if !ok {
		return f.Op == OpNe
	}

	switch f.Op {
	case OpEq:
		return valuesEqual(actual, f.Value)
	case OpNe:
		return !valuesEqual(actual, f.Value)
	case OpContains:
		return contains(actual, f.Value)
	case OpIn:
		return contains(f.Value, actual)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := compare(actual, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	default:
		return false
	}
}

// ParseFilter decodes the JSON form of a filter. An empty object yields a nil
// Filter. Objects with several keys, and fields with several operators, are
// read as an implicit $and.
func ParseFilter(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("metadata filter must be a JSON object: %w", err)
	}
	return parseObject(raw)
}

func parseObject(raw map[string]json.RawMessage) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var parts And
	for _, key := range sortedKeys(raw) {
		switch key {
		case "$and", "$or":
			var items []map[string]json.RawMessage
			if err := json.Unmarshal(raw[key], &items); err != nil {
				return nil, fmt.Errorf("%s expects an array of filters: %w", key, err)
			}
			operands := make([]Filter, 0, len(items))
			for _, item := range items {
				f, err := parseObject(item)
				if err != nil {
					return nil, err
				}
				if f != nil {
					operands = append(operands, f)
				}
			}
			if key == "$and" {
				parts = append(parts, And(operands))
			} else {
				parts = append(parts, Or(operands))
			}
		default:
			if strings.HasPrefix(key, "$") {
				return nil, fmt.Errorf("unknown logical operator %q", key)
			}
			fields, err := parseField(key, raw[key])
			if err != nil {
				return nil, err
			}
			parts = append(parts, fields...)
		}
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts, nil
}

func parseField(name string, data json.RawMessage) ([]Filter, error) {
	var ops map[string]any
	if err := json.Unmarshal(data, &ops); err != nil || len(ops) == 0 {
		return nil, fmt.Errorf("field %q expects an object like {\"$eq\": value}", name)
	}

	out := make([]Filter, 0, len(ops))
	for _, op := range sortedKeys(ops) {
		if !strings.HasPrefix(op, "$") {
			return nil, fmt.Errorf("field %q: operator %q must start with $", name, op)
		}
		out = append(out, Field{Name: name, Op: Op(op), Value: ops[op]})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// marshalFilter encodes f for a request body, sending {} when f is nil.
func marshalFilter(f Filter) (json.RawMessage, error) {
	if f == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode metadata filter: %w", err)
	}
	return data, nil
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// contains reports whether haystack holds needle: an element of a slice, or a
// substring of a string.
func contains(haystack, needle any) bool {
	if s, ok := haystack.(string); ok {
		n, ok := needle.(string)
		return ok && strings.Contains(s, n)
	}

	v := reflect.ValueOf(haystack)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := range v.Len() {
		if valuesEqual(v.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}

func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, ok := a.(string)
	if !ok {
		return 0, false
	}
	sb, ok := b.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
