package template

import (
	"fmt"
	"strconv"
)

// Structs - Public

// Env is one frame of an environment chain. Lookups walk from the innermost frame
// outwards, so inner bindings shadow outer ones. Frames are never mutated after
// creation, which lets expansions share a chain safely.
type Env struct {
	vars   map[string]any
	parent *Env
}

// NewEnv creates a root frame.
func NewEnv(vars map[string]any) *Env {
	return &Env{vars: vars}
}

// Lookup resolves name innermost-first.
func (e *Env) Lookup(name string) (any, bool) {
	for frame := e; frame != nil; frame = frame.parent {
		if v, ok := frame.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// With returns a child frame holding vars.
func (e *Env) With(vars map[string]any) *Env {
	return &Env{vars: vars, parent: e}
}

// Object is a record value. Dotted paths read its fields; a loop with several
// variables unpacks the fields named by Unpack, in that order.
type Object struct {
	Fields map[string]any
	Unpack []string
}

// Field returns the named field.
func (o Object) Field(name string) (any, bool) {
	v, ok := o.Fields[name]

	return v, ok
}

// Functions - Private

func field(v any, name string) (any, bool) {
	switch rec := v.(type) {
	case Object:
		return rec.Field(name)
	case *Object:
		return rec.Field(name)
	case map[string]any:
		f, ok := rec[name]

		return f, ok
	default:
		return nil, false
	}
}

func sequence(v any) ([]any, bool) {
	switch seq := v.(type) {
	case nil:
		return nil, true
	case []any:
		return seq, true
	case []string:
		out := make([]any, len(seq))
		for i, s := range seq {
			out[i] = s
		}

		return out, true
	case []Object:
		out := make([]any, len(seq))
		for i, o := range seq {
			out[i] = o
		}

		return out, true
	default:
		return nil, false
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case uint64:
		return strconv.FormatUint(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case uint64:
		return val != 0
	case Object, *Object, map[string]any:
		return true
	default:
		seq, ok := sequence(v)
		if ok {
			return len(seq) > 0
		}

		return true
	}
}

// unpack binds the fields of a record positionally.
func unpack(v any, count int) ([]any, bool) {
	if tuple, ok := v.([]any); ok {
		if len(tuple) < count {
			return nil, false
		}

		return tuple[:count], true
	}

	var rec Object

	switch val := v.(type) {
	case Object:
		rec = val
	case *Object:
		rec = *val
	default:
		return nil, false
	}

	if len(rec.Unpack) < count {
		return nil, false
	}

	out := make([]any, count)
	for i := range count {
		out[i] = rec.Fields[rec.Unpack[i]]
	}

	return out, true
}
