package timepin

import "fmt"

// Resolver maps a fully qualified method name to its address. It returns 0
// when the name is unknown.
type Resolver interface {
	Resolve(name string) uintptr
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(name string) uintptr

func (f ResolverFunc) Resolve(name string) uintptr {
	return f(name)
}

// nativeResolver calls a resolution callback living in the host process.
type nativeResolver struct {
	caller Caller
	fn     uintptr
}

func (r nativeResolver) Resolve(name string) uintptr {
	return r.caller.Resolve(r.fn, name)
}

// ResolveCapability looks up the name resolution callback in the module's
// export table.
func ResolveCapability(m Module, symbol string) (uintptr, error) {
	addr, err := m.Lookup(symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s in %s: %w", ErrCapabilityAbsent, symbol, m.Name(), err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrCapabilityAbsent, symbol, m.Name())
	}
	return addr, nil
}

// ResolveByName tries each candidate in order and returns the first one
// that resolves. The same method is often exposed under several spellings
// (with signature, fully qualified, unqualified) so the order matters. The
// first hit is trusted as is.
func ResolveByName(r Resolver, candidates []string) (uintptr, string, error) {
	for _, name := range candidates {
		if addr := r.Resolve(name); addr != 0 {
			return addr, name, nil
		}
	}
	return 0, "", fmt.Errorf("%w: tried %q", ErrTargetAbsent, candidates)
}
