package timepin

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// InlineHooker patches native function entries with an absolute jump and
// keeps the displaced instructions in a trampoline.
type InlineHooker struct {
	isa         *isa
	trampolines *trampolines
	protect     func(buf []byte, flags int) error

	mu sync.Mutex
	// original prologue bytes, by target address
	hooked map[uintptr][]byte
}

// NewInlineHooker returns a hooker for the running architecture.
func NewInlineHooker() *InlineHooker {
	return newInlineHooker(hostISA)
}

func newInlineHooker(a *isa) *InlineHooker {
	return &InlineHooker{
		isa:         a,
		trampolines: &trampolines{},
		protect:     mprotect,
		hooked:      make(map[uintptr][]byte),
	}
}

// Install redirects target to replacement. The trampoline address is stored
// in origin before the target is patched, so a call that races the patch
// already has somewhere to go. Errors wrap ErrInstallFailed. A failed
// target must not be installed again.
func (h *InlineHooker) Install(target, replacement uintptr, origin *atomic.Uintptr) error {
	if h.isa == nil {
		return fmt.Errorf("%w: %w: %s/%s", ErrInstallFailed, ErrUnsupported, runtime.GOOS, runtime.GOARCH)
	}
	if target == 0 || replacement == 0 {
		return fmt.Errorf("%w: nil address", ErrInstallFailed)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.hooked[target]; ok {
		return fmt.Errorf("%w: %w: %#x", ErrInstallFailed, ErrDoubleHook, target)
	}

	prologue := unsafe.Slice((*byte)(unsafe.Pointer(target)), h.isa.window)
	if h.isa.patched(prologue) {
		return fmt.Errorf("%w: %w: %#x starts with a redirect", ErrInstallFailed, ErrDoubleHook, target)
	}

	tramp, n, err := h.buildTrampoline(prologue, target)
	if err != nil {
		return fmt.Errorf("%w: %#x: %w", ErrInstallFailed, target, err)
	}
	trampAddr := uintptr(unsafe.Pointer(unsafe.SliceData(tramp)))
	logger().Debug("trampoline", "arch", h.isa.name, "address", hexAddr(trampAddr), "code", h.isa.disassemble(tramp, trampAddr))

	saved := make([]byte, n)
	copy(saved, prologue[:n])

	origin.Store(trampAddr)

	code := prologue[:n]
	if err := h.protect(code, mprotectRWX); err != nil {
		origin.Store(0)
		if relErr := h.trampolines.release(tramp); relErr != nil {
			logger().Warning("release trampoline", "address", hexAddr(trampAddr), "error", relErr)
		}
		return fmt.Errorf("%w: make %#x writable: %w", ErrInstallFailed, target, err)
	}
	copy(code, h.isa.patch(replacement, n))
	if err := syncICache(code); err != nil {
		logger().Warning("sync instruction cache", "target", hexAddr(target), "error", err)
	}
	if err := h.protect(code, mprotectRX); err != nil {
		logger().Warning("restore protection", "target", hexAddr(target), "error", err)
	}

	h.hooked[target] = saved
	return nil
}

func (h *InlineHooker) buildTrampoline(prologue []byte, target uintptr) ([]byte, int, error) {
	var n int
	tramp, err := h.trampolines.build(func(dest uintptr) ([]byte, error) {
		code, covered, err := h.isa.trampoline(prologue, target, dest)
		n = covered
		return code, err
	})
	if err != nil {
		return nil, 0, err
	}
	return tramp, n, nil
}
