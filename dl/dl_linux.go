//go:build linux && cgo

package dl

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef void *(*timepin_resolve_fn)(const char *);
typedef void (*timepin_float_fn)(float);

static uintptr_t timepin_call_resolve(uintptr_t fn, const char *name) {
	return (uintptr_t)((timepin_resolve_fn)fn)(name);
}

static void timepin_call_float(uintptr_t fn, float v) {
	((timepin_float_fn)fn)(v);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

func dlopen(name string) (unsafe.Pointer, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	// clear stale dlerror
	C.dlerror()
	handle := C.dlopen(cName, C.RTLD_NOW)
	if handle == nil {
		return nil, fmt.Errorf("dlopen(%s): %w", name, lastError())
	}
	return handle, nil
}

// dlopenNoLoad returns a handle for a module that is already mapped, or nil.
func dlopenNoLoad(path string) unsafe.Pointer {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	return C.dlopen(cPath, C.RTLD_NOW|C.RTLD_NOLOAD)
}

func dlsym(handle unsafe.Pointer, symbol string) uintptr {
	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	C.dlerror()
	return uintptr(C.dlsym(handle, cSymbol))
}

func lastError() error {
	msg := C.dlerror()
	if msg == nil {
		return errors.New("unknown dlopen error")
	}
	return errors.New(C.GoString(msg))
}

// CallString calls fn as void *(*)(const char *) and returns the result.
func CallString(fn uintptr, s string) uintptr {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))

	return uintptr(C.timepin_call_resolve(C.uintptr_t(fn), cs))
}

// CallFloat32 calls fn as void (*)(float).
func CallFloat32(fn uintptr, v float32) {
	C.timepin_call_float(C.uintptr_t(fn), C.float(v))
}
