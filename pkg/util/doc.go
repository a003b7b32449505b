// Package util provides small generic data structures shared by the public
// packages
package util
