package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Value is an immutable runtime value paired with a sensitivity flag.
// Sensitive values are masked whenever they are rendered for display,
// logging or serialization
type Value struct {
	raw       any
	sensitive bool
}

// SensitiveMask replaces the rendering of any sensitive value
const SensitiveMask = "********"

// NewValue wraps a raw value that is not sensitive
func NewValue(raw any) *Value {
	return &Value{raw: raw}
}

// NewSensitiveValue wraps a raw value that must be masked
func NewSensitiveValue(raw any) *Value {
	return &Value{raw: raw, sensitive: true}
}

// MakeValue wraps a raw value with the given sensitivity
func MakeValue(raw any, sensitive bool) *Value {
	return &Value{raw: raw, sensitive: sensitive}
}

// Raw returns the unmasked underlying value. A nil Value yields nil
func (v *Value) Raw() any {
	if v == nil {
		return nil
	}
	return v.raw
}

// IsSensitive reports whether the value must be masked
func (v *Value) IsSensitive() bool {
	return v != nil && v.sensitive
}

// IsNil reports whether the value is absent or wraps nil
func (v *Value) IsNil() bool {
	return v == nil || v.raw == nil
}

// WithSensitivity returns a value that is sensitive if either this value
// already is or sensitive is true. Sensitivity is never cleared
func (v *Value) WithSensitivity(sensitive bool) *Value {
	if v == nil {
		return MakeValue(nil, sensitive)
	}
	if !sensitive || v.sensitive {
		return v
	}
	return &Value{raw: v.raw, sensitive: true}
}

// Masked returns the raw value, or SensitiveMask when the value is sensitive
func (v *Value) Masked() any {
	if v.IsSensitive() {
		return SensitiveMask
	}
	return v.Raw()
}

// String renders the value for display, masking sensitive content
func (v *Value) String() string {
	if v.IsSensitive() {
		return SensitiveMask
	}
	if v.IsNil() {
		return ""
	}
	if s, ok := v.raw.(string); ok {
		return s
	}
	return fmt.Sprint(v.raw)
}

// LogValue implements slog.LogValuer so sensitive content never reaches a
// log record
func (v *Value) LogValue() slog.Value {
	if v.IsSensitive() {
		return slog.StringValue(SensitiveMask)
	}
	return slog.AnyValue(v.Raw())
}

// MarshalJSON renders the masked form of the value
func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Masked())
}
