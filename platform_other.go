//go:build !linux || !cgo

package timepin

import "fmt"

// NativePlatform returns a platform whose module table always fails. The
// attach sequence ends in StatusModuleMissing.
func NativePlatform(replacement uintptr) Platform {
	return Platform{
		Modules:     unsupportedTable{},
		Hooker:      NewInlineHooker(),
		Caller:      unsupportedCaller{},
		Replacement: replacement,
	}
}

type unsupportedTable struct{}

func (unsupportedTable) FindOrLoad(name string, force bool) (Module, error) {
	return nil, fmt.Errorf("%w: loading %s", ErrUnsupported, name)
}

type unsupportedCaller struct{}

func (unsupportedCaller) Resolve(capability uintptr, name string) uintptr {
	return 0
}

func (unsupportedCaller) CallFloat32(fn uintptr, v float32) {}
