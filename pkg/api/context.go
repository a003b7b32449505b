package api

import (
	"maps"
	"slices"
)

// Context is a set of named runtime values. Binding and stepping code treats
// a Context as an immutable snapshot: every modification produces a new map
type Context map[Name]*Value

// ContextFromArgs wraps each raw argument as a non-sensitive Value
func ContextFromArgs(args Args) Context {
	res := make(Context, len(args))
	for k, v := range args {
		res[k] = NewValue(v)
	}
	return res
}

// Clone returns a shallow copy of the context
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	return maps.Clone(c)
}

// With returns a new context with the named value added or replaced
func (c Context) With(name Name, value *Value) Context {
	res := c.Clone()
	res[name] = value
	return res
}

// Merge returns a new context holding this context's values overlaid with
// those of delta
func (c Context) Merge(delta Context) Context {
	res := make(Context, len(c)+len(delta))
	maps.Copy(res, c)
	maps.Copy(res, delta)
	return res
}

// Names returns the context's names in lexical order
func (c Context) Names() []Name {
	return slices.Sorted(maps.Keys(c))
}

// Raw strips sensitivity flags, exposing unmasked values
func (c Context) Raw() Args {
	res := make(Args, len(c))
	for k, v := range c {
		res[k] = v.Raw()
	}
	return res
}

// Masked returns the raw values with sensitive entries masked
func (c Context) Masked() Args {
	res := make(Args, len(c))
	for k, v := range c {
		res[k] = v.Masked()
	}
	return res
}

// AnySensitive reports whether any of the named values is sensitive
func (c Context) AnySensitive(names ...Name) bool {
	for _, n := range names {
		if c[n].IsSensitive() {
			return true
		}
	}
	return false
}
