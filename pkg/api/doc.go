// Package api defines the core data types shared by the compiler and the
// execution engine
//
// This package contains the flow/task/operation model, runtime values and
// their sensitivity flags, compiled execution plans, system properties, run
// events, and the typed errors surfaced to callers
package api
