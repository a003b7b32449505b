// Package binding computes runtime values for declared inputs, task
// arguments, published outputs, operation results and loop collections
//
// Every binding call reads an immutable snapshot of its source context and
// returns an explicit delta; callers decide how to merge it
package binding
