package api

import (
	"regexp"
	"strings"
)

// ScriptFunction names a helper function an expression is permitted to call
type ScriptFunction string

const (
	// FunctionGetSystemProperty exposes get_sp(fqn, default) and the
	// sys_prop table of system properties
	FunctionGetSystemProperty ScriptFunction = "get_sp"

	// FunctionCheckEmpty exposes check_empty(value, default)
	FunctionCheckEmpty ScriptFunction = "check_empty"
)

var (
	expressionPattern = regexp.MustCompile(`(?s)^\s*\$\{(.*)\}\s*$`)
	getSPPattern      = regexp.MustCompile(
		`get_sp\(\s*['"]([^'"]+)['"]`,
	)
)

// ExtractExpression returns the expression text embedded in a raw value of
// the form ${ expression }. The second return value is false when the raw
// value is not expression-shaped
func ExtractExpression(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	m := expressionPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	expr := strings.TrimSpace(m[1])
	if expr == "" {
		return "", false
	}
	return expr, true
}

// IsExpression reports whether a raw value is expression-shaped
func IsExpression(raw any) bool {
	_, ok := ExtractExpression(raw)
	return ok
}

// ReferencedSystemProperties returns the fully-qualified names passed as
// string literals to get_sp within an expression
func ReferencedSystemProperties(expr string) []string {
	var res []string
	for _, m := range getSPPattern.FindAllStringSubmatch(expr, -1) {
		res = append(res, m[1])
	}
	return res
}
