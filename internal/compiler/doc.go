// Package compiler flattens flows and operations into execution plans. Each
// executable reachable from the entry point is compiled into its own plan;
// sub-flows are referenced by name rather than inlined
package compiler
