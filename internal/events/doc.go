// Package events carries run events from the engine to observers. The Hub
// fans events out to in-process consumers; a Queue drains a consumer in
// batches into delivery sinks such as a Redis stream or a blob archive
package events
