//go:build cgo

// Package entry exports the C function installed over the hooked setter.
package entry

import "C"

import "github.com/pboyd/timepin"

//export timepinReplacement
func timepinReplacement(requested C.float) {
	timepin.Default().Intercept(float32(requested))
}
