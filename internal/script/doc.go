// Package script evaluates binding expressions and operation action scripts
//
// Two backends are available, Lua and Ale, selected through configuration.
// Each evaluation reports the context variables and system properties it
// actually read, and the resulting value is marked sensitive when any of
// them was
package script
