// Package builder provides fluent, copy-on-write builders for flows, tasks,
// operations and their arguments
//
// Every With-style method returns a new builder, so a partially configured
// builder can be shared and extended without affecting its other users
package builder
