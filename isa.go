package timepin

import "bytes"

// isa describes how to redirect a function entry on one architecture.
type isa struct {
	name string

	// window is how many bytes of the target prologue are read.
	window int

	// jumpSize is the length of an absolute jump. The trailing 8 bytes of
	// the jump hold the destination.
	jumpSize int

	// pad fills the patched area after the jump.
	pad byte

	jump func(dest uintptr) []byte

	// relocate copies whole instructions from code (which executes at
	// src) until at least jumpSize bytes are covered, rewriting
	// PC-relative ones so they work at dest. It returns the new code and
	// the number of bytes of code it covered.
	relocate func(code []byte, src, dest uintptr) ([]byte, int, error)

	disassemble func(code []byte, pc uintptr) string
}

// patched reports whether the prologue already starts with our jump.
func (a *isa) patched(prologue []byte) bool {
	return bytes.HasPrefix(prologue, a.jump(0)[:a.jumpSize-8])
}

// trampoline returns the code that runs the original body: the relocated
// prologue followed by a jump back to the first untouched instruction.
func (a *isa) trampoline(code []byte, src, dest uintptr) ([]byte, int, error) {
	body, n, err := a.relocate(code, src, dest)
	if err != nil {
		return nil, 0, err
	}
	return append(body, a.jump(src+uintptr(n))...), n, nil
}

// patch returns the bytes written over the first n bytes of the target.
func (a *isa) patch(replacement uintptr, n int) []byte {
	buf := a.jump(replacement)
	for len(buf) < n {
		buf = append(buf, a.pad)
	}
	return buf
}
