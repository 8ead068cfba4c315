// Package registry maps block type names to factories with declared
// parameter schemas, so diagrams loaded from files can be instantiated
// and validated without reflection.
package registry

import (
	"fmt"
	"sort"

	"github.com/diagsim/diagsim/internal/block"
)

// ParamKind is the declared type of a block parameter.
type ParamKind int

const (
	Float ParamKind = iota
	Int
	Bool
	String
	Floats
)

func (k ParamKind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Floats:
		return "float list"
	}
	return "unknown"
}

// Param declares one parameter of a block type: its name, kind, default
// value (nil means required) and an optional extra validator.
type Param struct {
	Name     string
	Kind     ParamKind
	Default  any
	Validate func(v any) error
}

// Values holds coerced parameter values keyed by parameter name.
type Values map[string]any

func (v Values) Float(name string) float64 { f, _ := v[name].(float64); return f }
func (v Values) Int(name string) int       { i, _ := v[name].(int); return i }
func (v Values) Bool(name string) bool     { b, _ := v[name].(bool); return b }
func (v Values) String(name string) string { s, _ := v[name].(string); return s }
func (v Values) Floats(name string) []float64 {
	f, _ := v[name].([]float64)
	return f
}

// Factory builds a block from validated parameter values.
type Factory func(v Values) (block.Block, error)

// Type describes one registrable block type.
type Type struct {
	Name   string
	Params []Param
	New    Factory
}

// Registry holds the known block types.
type Registry struct {
	types map[string]Type
}

func New() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Add registers a block type; duplicate names are rejected.
func (r *Registry) Add(t Type) error {
	if t.Name == "" || t.New == nil {
		return fmt.Errorf("registry: type needs a name and a factory")
	}
	if _, dup := r.types[t.Name]; dup {
		return fmt.Errorf("registry: duplicate type %q", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// MustAdd registers a block type and panics on conflict; the catalog is
// assembled at startup where a conflict is a programming error.
func (r *Registry) MustAdd(t Type) {
	if err := r.Add(t); err != nil {
		panic(err)
	}
}

// Lookup returns the declared type for a name.
func (r *Registry) Lookup(name string) (Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// List returns all registered type names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates a block of the named type. Parameters are checked
// against the declared schema before the factory runs: unknown names,
// missing required values and kind mismatches are all configuration
// errors raised here, not at run time.
func (r *Registry) Build(name string, params map[string]any) (block.Block, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, block.ConfigErrorf(name, "unknown block type")
	}

	declared := make(map[string]Param, len(t.Params))
	for _, p := range t.Params {
		declared[p.Name] = p
	}
	for pname := range params {
		if _, ok := declared[pname]; !ok {
			return nil, block.ConfigErrorf(name, "unknown parameter %q", pname)
		}
	}

	vals := make(Values, len(t.Params))
	for _, p := range t.Params {
		raw, given := params[p.Name]
		if !given {
			if p.Default == nil {
				return nil, block.ConfigErrorf(name, "missing required parameter %q", p.Name)
			}
			raw = p.Default
		}
		v, err := coerce(p.Kind, raw)
		if err != nil {
			return nil, block.ConfigErrorf(name, "parameter %q: %v", p.Name, err)
		}
		if p.Validate != nil {
			if err := p.Validate(v); err != nil {
				return nil, block.ConfigErrorf(name, "parameter %q: %v", p.Name, err)
			}
		}
		vals[p.Name] = v
	}

	return t.New(vals)
}

// coerce converts a raw parameter value, which may come from JSON or
// YAML decoding, to the declared kind.
func coerce(kind ParamKind, raw any) (any, error) {
	switch kind {
	case Float:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case Int:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		}
	case Bool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case String:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case Floats:
		switch v := raw.(type) {
		case []float64:
			return append([]float64(nil), v...), nil
		case float64:
			return []float64{v}, nil
		case int:
			return []float64{float64(v)}, nil
		case []any:
			out := make([]float64, len(v))
			for i, e := range v {
				switch n := e.(type) {
				case float64:
					out[i] = n
				case int:
					out[i] = float64(n)
				default:
					return nil, fmt.Errorf("element %d is %T, want number", i, e)
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("got %T, want %s", raw, kind)
}
