//go:build arm64 && cgo

package timepin

/*
#include <stdint.h>

static void timepin_sync_icache(uintptr_t start, uintptr_t n) {
	__builtin___clear_cache((char *)start, (char *)(start + n));
}
*/
import "C"

import "unsafe"

// syncICache discards stale instruction cache lines for code that was just
// written.
func syncICache(code []byte) error {
	if len(code) == 0 {
		return nil
	}
	start := uintptr(unsafe.Pointer(unsafe.SliceData(code)))
	C.timepin_sync_icache(C.uintptr_t(start), C.uintptr_t(len(code)))
	return nil
}
