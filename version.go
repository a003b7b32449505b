// Package cloudslang holds the identity of the CloudSlang engine service
package cloudslang

const (
	Name    = "cloudslang"
	Version = "0.1.0"
)
