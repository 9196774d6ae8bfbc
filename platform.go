package timepin

import "sync/atomic"

// ModuleTable finds modules mapped into the process.
type ModuleTable interface {
	// FindOrLoad returns the named module. When the module isn't mapped
	// yet and force is set, it asks the loader to map it from the search
	// path.
	FindOrLoad(name string, force bool) (Module, error)
}

// Module is a mapped module owned by the platform loader.
type Module interface {
	Name() string
	// Lookup returns the address of an exported symbol.
	Lookup(symbol string) (uintptr, error)
}

// Hooker redirects a native function entry.
type Hooker interface {
	// Install patches target so it jumps to replacement. The address of a
	// trampoline that still runs the original body is stored in origin
	// before the patch is written.
	Install(target, replacement uintptr, origin *atomic.Uintptr) error
}

// Caller invokes native function pointers with the C calling convention.
type Caller interface {
	// Resolve calls a name resolution callback of type
	// void *(*)(const char *).
	Resolve(capability uintptr, name string) uintptr

	// CallFloat32 calls a function of type void (*)(float).
	CallFloat32(fn uintptr, v float32)
}

// Platform bundles the collaborators the attach sequence consumes.
type Platform struct {
	Modules ModuleTable
	Hooker  Hooker
	Caller  Caller

	// Replacement is the native address installed in place of the target.
	Replacement uintptr
}
