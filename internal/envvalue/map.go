package envvalue

import "sort"

// Map is a set of named values, such as the envs block of a workload.
type Map[T any] map[string]Value[T]

// Resolve flattens the map for env. Entries with no value for env and no
// default are left out rather than bound to an empty value.
func (m Map[T]) Resolve(env string) map[string]T {
	out := make(map[string]T, len(m))
	for name, v := range m {
		if e, ok := v.Resolve(env); ok {
			out[name] = e
		}
	}
	return out
}

// Names returns the sorted entry names.
func (m Map[T]) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
