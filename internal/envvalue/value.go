// Package envvalue resolves configuration values that may differ per
// deployment environment.
//
// A value is either a scalar that applies everywhere or a mapping from
// environment name to scalar, optionally carrying a "_default" entry:
//
//	replicas: 2
//	replicas:
//	  prod: 4
//	  _default: 1
package envvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the per-environment entry used when the current
// environment has no entry of its own.
const DefaultKey = "_default"

type kind uint8

const (
	kindUnset kind = iota
	kindScalar
	kindPerEnvironment
)

// Value is either Scalar(T) or PerEnvironment(map[string]T). The zero Value
// is unset and resolves to nothing in every environment.
type Value[T any] struct {
	kind   kind
	scalar T
	perEnv map[string]T
}

// Scalar returns a value that resolves to v in every environment.
func Scalar[T any](v T) Value[T] {
	return Value[T]{kind: kindScalar, scalar: v}
}

// PerEnvironment returns a value keyed by environment name.
func PerEnvironment[T any](m map[string]T) Value[T] {
	if m == nil {
		m = map[string]T{}
	}
	return Value[T]{kind: kindPerEnvironment, perEnv: m}
}

// IsSet reports whether the value was provided at all.
func (v Value[T]) IsSet() bool {
	return v.kind != kindUnset
}

// IsZero reports whether v is unset. It lets omitempty and omitzero skip
// unset values.
func (v Value[T]) IsZero() bool {
	return !v.IsSet()
}

// IsPerEnvironment reports whether the value is an environment mapping.
func (v Value[T]) IsPerEnvironment() bool {
	return v.kind == kindPerEnvironment
}

// Environments returns the sorted keys of a per-environment value,
// including DefaultKey when present. Scalars have no keys.
func (v Value[T]) Environments() []string {
	if v.kind != kindPerEnvironment {
		return nil
	}
	keys := make([]string, 0, len(v.perEnv))
	for k := range v.perEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns every concrete scalar the value can resolve to, keyed by
// environment. A scalar is reported under DefaultKey.
func (v Value[T]) Entries() map[string]T {
	switch v.kind {
	case kindScalar:
		return map[string]T{DefaultKey: v.scalar}
	case kindPerEnvironment:
		out := make(map[string]T, len(v.perEnv))
		for k, e := range v.perEnv {
			out[k] = e
		}
		return out
	default:
		return nil
	}
}

// Resolve returns the value effective for env. Scalars resolve to
// themselves; mappings pick env, then DefaultKey. The boolean is false
// when nothing applies, which callers must treat as absent.
func (v Value[T]) Resolve(env string) (T, bool) {
	switch v.kind {
	case kindScalar:
		return v.scalar, true
	case kindPerEnvironment:
		if e, ok := v.perEnv[env]; ok {
			return e, true
		}
		if e, ok := v.perEnv[DefaultKey]; ok {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// ResolveOr is Resolve with a fallback for the absent case.
func (v Value[T]) ResolveOr(env string, fallback T) T {
	if e, ok := v.Resolve(env); ok {
		return e
	}
	return fallback
}

// Transform applies fn to every entry, keeping the scalar or
// per-environment shape.
func (v Value[T]) Transform(fn func(T) (T, error)) (Value[T], error) {
	switch v.kind {
	case kindScalar:
		out, err := fn(v.scalar)
		if err != nil {
			return Value[T]{}, err
		}
		return Scalar(out), nil
	case kindPerEnvironment:
		m := make(map[string]T, len(v.perEnv))
		for _, env := range v.Environments() {
			out, err := fn(v.perEnv[env])
			if err != nil {
				return Value[T]{}, fmt.Errorf("%s: %w", env, err)
			}
			m[env] = out
		}
		return PerEnvironment(m), nil
	default:
		return v, nil
	}
}

// MarshalJSON encodes the scalar or the mapping; unset encodes as null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindScalar:
		return json.Marshal(v.scalar)
	case kindPerEnvironment:
		return json.Marshal(v.perEnv)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a scalar, an object keyed by environment, or null.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value[T]{}
		return nil
	}

	if data[0] == '{' {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		m := make(map[string]T, len(raw))
		for env, r := range raw {
			e, err := decodeJSONScalar[T](r)
			if err != nil {
				return fmt.Errorf("environment %q: %w", env, err)
			}
			m[env] = e
		}
		*v = PerEnvironment(m)
		return nil
	}

	e, err := decodeJSONScalar[T](data)
	if err != nil {
		return err
	}
	*v = Scalar(e)
	return nil
}

// decodeJSONScalar decodes raw into T. Numbers and booleans are accepted
// where a string is expected, matching how YAML scalars decode.
func decodeJSONScalar[T any](raw json.RawMessage) (T, error) {
	var out T
	err := json.Unmarshal(raw, &out)
	if err == nil {
		return out, nil
	}
	raw = bytes.TrimSpace(raw)
	if s, ok := any(&out).(*string); ok && len(raw) > 0 && raw[0] != '"' && raw[0] != '{' && raw[0] != '[' {
		*s = string(raw)
		return out, nil
	}
	return out, err
}

// MarshalYAML encodes the scalar or the mapping; unset encodes as null.
func (v Value[T]) MarshalYAML() (any, error) {
	switch v.kind {
	case kindScalar:
		return v.scalar, nil
	case kindPerEnvironment:
		return v.perEnv, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts a scalar (or sequence), a mapping keyed by
// environment, or null.
func (v *Value[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch {
	case node.Kind == yaml.MappingNode:
		m := make(map[string]T)
		if err := node.Decode(&m); err != nil {
			return err
		}
		*v = PerEnvironment(m)
	case node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		*v = Value[T]{}
	default:
		var e T
		if err := node.Decode(&e); err != nil {
			return err
		}
		*v = Scalar(e)
	}
	return nil
}
