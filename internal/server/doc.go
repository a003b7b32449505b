// Package server implements the HTTP API of the engine
//
// This package provides REST endpoints for compiling executables, starting
// and observing runs, health and metrics, and a WebSocket event stream
package server
