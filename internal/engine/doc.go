// Package engine interprets compiled execution plans. A run steps through
// the plan of its entry executable, pushing a frame for every task that
// invokes a sub-flow or operation, and publishes its progress as events
package engine
