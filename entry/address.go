//go:build cgo

package entry

/*
#include <stdint.h>

extern void timepinReplacement(float);

static uintptr_t timepin_replacement_addr(void) {
	return (uintptr_t)timepinReplacement;
}
*/
import "C"

// Replacement returns the address of timepinReplacement, a void (*)(float)
// that forwards to timepin.Default().Intercept.
func Replacement() uintptr {
	return uintptr(C.timepin_replacement_addr())
}
