package timepin

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeINT3   = 0xcc
	opcodeMOVabs = 0xb8 // MOV r64, imm64 (plus register)
	prefixREXW   = 0x48
	prefixREXB   = 0x01
)

var x86ISA = isa{
	name:        "amd64",
	window:      32,
	jumpSize:    14,
	pad:         opcodeINT3,
	jump:        x86Jump,
	relocate:    x86Relocate,
	disassemble: x86Disassemble,
}

// x86Jump returns:
//
//	JMP [RIP+0]
//	.quad dest
func x86Jump(dest uintptr) []byte {
	buf := []byte{0xff, 0x25, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(buf[6:], uint64(dest))
	return buf
}

// x86Call returns:
//
//	CALL [RIP+2]
//	JMP +8
//	.quad dest
func x86Call(dest uintptr) []byte {
	buf := []byte{0xff, 0x15, 0x02, 0, 0, 0, 0xeb, 0x08, 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(buf[8:], uint64(dest))
	return buf
}

// x86MovAbs returns MOVABS reg, value. reg is 0 (RAX) to 15 (R15).
func x86MovAbs(reg int, value uintptr) []byte {
	rex := byte(prefixREXW)
	if reg >= 8 {
		rex |= prefixREXB
	}
	buf := []byte{rex, opcodeMOVabs + byte(reg&7), 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(buf[2:], uint64(value))
	return buf
}

func x86Relocate(code []byte, src, dest uintptr) ([]byte, int, error) {
	const need = 14

	var out []byte
	i := 0
	for i < need {
		if i >= len(code) {
			return nil, 0, fmt.Errorf("%w: prologue ends at offset %d", ErrTooShort, i)
		}
		if code[i] == opcodeINT3 {
			return nil, 0, fmt.Errorf("%w: padding at offset %d", ErrTooShort, i)
		}

		inst, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: decode error at offset %d: %w", ErrUnpatchable, i, err)
		}
		raw := code[i : i+inst.Len]

		// Address following the instruction at its original and new
		// location.
		srcNext := src + uintptr(i+inst.Len)
		destNext := dest + uintptr(len(out)+inst.Len)

		rel, isRel := inst.Args[0].(x86asm.Rel)

		switch inst.Op {
		case x86asm.RET, x86asm.LRET, x86asm.UD2, x86asm.HLT:
			return nil, 0, fmt.Errorf("%w: %v at offset %d", ErrTooShort, inst.Op, i)
		case x86asm.JMP, x86asm.LJMP:
			// Direct or indirect, the bytes after it belong to someone
			// else.
			if i+inst.Len < need {
				return nil, 0, fmt.Errorf("%w: jump at offset %d", ErrTooShort, i)
			}
		}

		if isRel {
			abs := uintptr(int64(srcNext) + int64(rel))
			switch inst.Op {
			case x86asm.CALL:
				out = append(out, x86Call(abs)...)
			case x86asm.JMP:
				out = append(out, x86Jump(abs)...)
			default:
				return nil, 0, fmt.Errorf("%w: %v at offset %d", ErrUnpatchable, inst.Op, i)
			}
			i += inst.Len
			continue
		}

		mem, ok := ripOperand(inst)
		if !ok {
			out = append(out, raw...)
			i += inst.Len
			continue
		}

		if hasImmediate(inst) {
			return nil, 0, fmt.Errorf("%w: RIP-relative %v with immediate at offset %d", ErrUnpatchable, inst.Op, i)
		}

		abs := int64(srcNext) + mem.Disp
		newDisp := abs - int64(destNext)
		switch {
		case newDisp >= math.MinInt32 && newDisp <= math.MaxInt32:
			// Without an immediate the displacement is the last 4 bytes.
			start := len(out)
			out = append(out, raw...)
			binary.LittleEndian.PutUint32(out[start+inst.Len-4:], uint32(int32(newDisp)))
		case inst.Op == x86asm.LEA:
			reg, ok := gpr64(inst.Args[0])
			if !ok {
				return nil, 0, fmt.Errorf("%w: LEA into %v at offset %d", ErrUnpatchable, inst.Args[0], i)
			}
			out = append(out, x86MovAbs(reg, uintptr(abs))...)
		default:
			return nil, 0, fmt.Errorf("%w: %v at offset %d is out of range of the trampoline", ErrUnpatchable, inst.Op, i)
		}
		i += inst.Len
	}

	return out, i, nil
}

func ripOperand(inst x86asm.Inst) (x86asm.Mem, bool) {
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if mem, ok := arg.(x86asm.Mem); ok && mem.Base == x86asm.RIP {
			return mem, true
		}
	}
	return x86asm.Mem{}, false
}

func hasImmediate(inst x86asm.Inst) bool {
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if _, ok := arg.(x86asm.Imm); ok {
			return true
		}
	}
	return false
}

func gpr64(arg x86asm.Arg) (int, bool) {
	reg, ok := arg.(x86asm.Reg)
	if !ok || reg < x86asm.RAX || reg > x86asm.R15 {
		return 0, false
	}
	return int(reg - x86asm.RAX), true
}

func x86Disassemble(code []byte, pc uintptr) string {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			fmt.Fprintf(&buf, "0x%08x\t%-20s\t?\n", pc+uintptr(i), hex.EncodeToString(code[i:]))
			break
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String()
}
