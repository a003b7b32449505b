package api

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/bilalinamdar/cloud-slang/pkg/util"
)

// SystemProperties maps fully-qualified dotted names to values. A run
// resolves them once and shares them read-only
type SystemProperties map[string]*Value

var (
	ErrInvalidSystemProperties = errors.New("invalid system properties")
)

// ParseSystemProperties flattens a JSON object into dotted fully-qualified
// names. Nested objects contribute their keys as path segments; arrays and
// scalars become values. Names listed in sensitive are marked sensitive
func ParseSystemProperties(
	data []byte, sensitive ...string,
) (SystemProperties, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidSystemProperties)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object",
			ErrInvalidSystemProperties)
	}
	masked := util.SetOf(sensitive...)
	res := SystemProperties{}
	flattenProperties(res, "", root, masked)
	return res, nil
}

func flattenProperties(
	res SystemProperties, prefix string, obj gjson.Result,
	masked util.Set[string],
) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if value.IsObject() {
			flattenProperties(res, name, value, masked)
			return true
		}
		res[name] = MakeValue(jsonScalar(value), masked.Contains(name))
		return true
	})
}

func jsonScalar(v gjson.Result) any {
	if v.Type == gjson.Number {
		f := v.Float()
		if f == float64(int64(f)) {
			return v.Int()
		}
		return f
	}
	return v.Value()
}

// Get returns a named property. Nil properties hold nothing
func (p SystemProperties) Get(name string) (*Value, bool) {
	v, ok := p[name]
	return v, ok
}

// Names returns the property names in lexical order
func (p SystemProperties) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

// Raw exposes the unmasked property values
func (p SystemProperties) Raw() map[string]any {
	res := make(map[string]any, len(p))
	for k, v := range p {
		res[k] = v.Raw()
	}
	return res
}

// AnySensitive reports whether any of the named properties is sensitive
func (p SystemProperties) AnySensitive(names ...string) bool {
	for _, n := range names {
		if p[n].IsSensitive() {
			return true
		}
	}
	return false
}
