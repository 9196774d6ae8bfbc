//go:build linux && cgo

package timepin

import "github.com/pboyd/timepin/dl"

// NativePlatform binds the attach sequence to the process's own loader and
// an InlineHooker. replacement is the C address installed over the target.
func NativePlatform(replacement uintptr) Platform {
	return Platform{
		Modules:     loaderTable{},
		Hooker:      NewInlineHooker(),
		Caller:      cCaller{},
		Replacement: replacement,
	}
}

type loaderTable struct{}

func (loaderTable) FindOrLoad(name string, force bool) (Module, error) {
	lib, err := dl.Open(name, force)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

type cCaller struct{}

func (cCaller) Resolve(capability uintptr, name string) uintptr {
	return dl.CallString(capability, name)
}

func (cCaller) CallFloat32(fn uintptr, v float32) {
	dl.CallFloat32(fn, v)
}
