package timepin

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/pboyd/malloc"
)

// Upper bound for a trampoline: relocated prologue plus the jump back.
const maxTrampolineSize = 128

// trampolineSlab is the initial arena size, enough for a handful of hooks.
// The arena grows through the backend if it runs out.
const trampolineSlab = 16 * maxTrampolineSize

// trampolines hands out fixed-size slots of executable memory. The pages
// are read+exec except while a slot is being written or released; the
// arena's own block headers live in the same pages.
type trampolines struct {
	mu      sync.Mutex
	arena   *malloc.Arena
	backend malloc.ProtectedArenaBackend
}

// writable opens the arena pages for writing, mapping them on first use.
// The caller holds mu and must call sealed afterwards.
func (t *trampolines) writable() error {
	if t.arena == nil {
		// Mapped read+write+exec.
		be := malloc.MmapBackend(malloc.MmapProt(mprotectExec))
		protBE, ok := be.(malloc.ProtectedArenaBackend)
		if !ok {
			return errors.New("mmap backend can't change protections")
		}
		arena := malloc.NewArena(trampolineSlab, malloc.Backend(be))
		if arena == nil {
			return errors.New("unable to map trampoline arena")
		}
		t.arena, t.backend = arena, protBE
		return nil
	}
	return t.backend.Protect(mprotectRWX)
}

func (t *trampolines) sealed() error {
	if err := t.backend.Protect(mprotectRX); err != nil {
		return fmt.Errorf("protect trampolines: %w", err)
	}
	return nil
}

// build reserves a slot and fills it with the code returned by gen, which
// is given the slot's address. It returns the slot trimmed to the code.
func (t *trampolines) build(gen func(dest uintptr) ([]byte, error)) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writable(); err != nil {
		return nil, err
	}

	slot, err := malloc.MallocSlice[byte](t.arena, maxTrampolineSize)
	if err != nil {
		return nil, errors.Join(err, t.sealed())
	}

	code, err := gen(uintptr(unsafe.Pointer(unsafe.SliceData(slot))))
	if err == nil && len(code) > len(slot) {
		err = fmt.Errorf("trampoline needs %d bytes, slot has %d", len(code), len(slot))
	}
	if err == nil {
		copy(slot, code)
		err = syncICache(slot[:len(code)])
	}
	if err != nil {
		malloc.FreeSlice(t.arena, slot)
		return nil, errors.Join(err, t.sealed())
	}

	if err := t.sealed(); err != nil {
		return nil, err
	}
	return slot[:len(code)], nil
}

// release returns a slot from build that was never published.
func (t *trampolines) release(code []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.arena == nil {
		return nil
	}
	if err := t.writable(); err != nil {
		return err
	}
	malloc.FreeSlice(t.arena, code)
	return t.sealed()
}

// live reports how many bytes of the arena are handed out.
func (t *trampolines) live() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.arena == nil {
		return 0
	}
	return t.arena.Size() - t.arena.FreeBytes()
}
