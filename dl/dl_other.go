//go:build !linux || !cgo

package dl

import "unsafe"

func dlopen(name string) (unsafe.Pointer, error) {
	return nil, ErrUnsupported
}

func dlopenNoLoad(path string) unsafe.Pointer {
	return nil
}

func dlsym(handle unsafe.Pointer, symbol string) uintptr {
	return 0
}

// CallString always returns 0 on this platform.
func CallString(fn uintptr, s string) uintptr {
	return 0
}

// CallFloat32 does nothing on this platform.
func CallFloat32(fn uintptr, v float32) {}
