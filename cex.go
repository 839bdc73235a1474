package cex

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath          = errors.New("empty path")
	ErrPathLengthMismatch = errors.New("path length mismatch")
	ErrEdgeMismatch       = errors.New("path edge mismatch")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
