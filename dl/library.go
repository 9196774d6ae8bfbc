// Package dl finds modules mapped into the current process and calls into
// them.
package dl

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/tliron/commonlog"
)

// logger is looked up on each use: the commonlog backend registers in the
// binary's init, which may run after this package's.
func logger() commonlog.Logger {
	return commonlog.GetLogger("timepin.dl")
}

var (
	// ErrNotLoaded means the module isn't mapped and loading wasn't
	// requested.
	ErrNotLoaded = errors.New("module not loaded")
	// ErrSymbolNotFound means neither the loader nor the module file know
	// the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUnsupported means the platform has no dynamic loader bridge.
	ErrUnsupported = errors.New("dl is only supported on linux with cgo")
)

// Library is a module mapped into the process. It is never closed: the
// loader owns it.
type Library struct {
	name string
	// path and start are empty when the mapping couldn't be found in
	// /proc/self/maps.
	path  string
	start uintptr
	// handle is nil when the loader refused to hand one out, e.g. across
	// Android linker namespaces.
	handle unsafe.Pointer
}

func (l *Library) Name() string {
	return l.name
}

// Path is the file the module was mapped from.
func (l *Library) Path() string {
	return l.path
}

// Start is the address of the module's first mapped page.
func (l *Library) Start() uintptr {
	return l.start
}

// Lookup returns the run-time address of symbol. It asks the loader first
// and falls back to the module's symbol tables on disk.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, errors.New("symbol name cannot be empty")
	}

	if l.handle != nil {
		if addr := dlsym(l.handle, symbol); addr != 0 {
			return addr, nil
		}
	}

	if l.path == "" {
		return 0, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, symbol, l.name)
	}

	value, err := symbolValue(l.path, symbol)
	if err != nil {
		return 0, err
	}
	bias, err := loadBias(l.path, l.start)
	if err != nil {
		return 0, err
	}
	logger().Debug("symbol from file", "symbol", symbol, "path", l.path, "value", value, "bias", bias)
	return bias + value, nil
}

// Open returns the module called name, a file name or an absolute path. A
// module that is already mapped is found through /proc/self/maps. Otherwise,
// when force is set, the loader is asked to map it from its search path.
func Open(name string, force bool) (*Library, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("module name cannot be empty")
	}

	entries, err := readMaps()
	if err != nil {
		return nil, err
	}

	if m, ok := findMapping(entries, name); ok {
		lib := &Library{
			name:   name,
			path:   m.path,
			start:  m.start,
			handle: dlopenNoLoad(m.path),
		}
		logger().Debug("module mapped", "name", name, "path", m.path, "start", m.start, "handle", lib.handle != nil)
		return lib, nil
	}

	if !force {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}

	handle, err := dlopen(name)
	if err != nil {
		return nil, err
	}
	lib := &Library{name: name, handle: handle}

	if entries, err := readMaps(); err == nil {
		if m, ok := findMapping(entries, name); ok {
			lib.path, lib.start = m.path, m.start
		}
	}
	logger().Debug("module loaded", "name", name, "path", lib.path)
	return lib, nil
}
