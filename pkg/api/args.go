package api

import (
	"maps"
	"slices"
)

type (
	// Args represents a map of raw named values, such as user inputs or the
	// values returned by an operation's action
	Args map[Name]any

	// Name is a string identifier for inputs, outputs, tasks, results and
	// executables
	Name string
)

// Set creates a new Args with the specified name-value pair added
func (a Args) Set(name Name, value any) Args {
	if a == nil {
		return Args{name: value}
	}
	res := maps.Clone(a)
	res[name] = value
	return res
}

// GetString retrieves a string value from args, returning defaultValue if not
// found or wrong type
func (a Args) GetString(name Name, defaultValue string) string {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetInt retrieves an integer value from args, returning defaultValue if not
// found or wrong type. Supports int, int64 and float64 (JSON numbers)
func (a Args) GetInt(name Name, defaultValue int) int {
	switch v := a[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// SortedNames returns the argument names in lexical order
func (a Args) SortedNames() []Name {
	return slices.Sorted(maps.Keys(a))
}
