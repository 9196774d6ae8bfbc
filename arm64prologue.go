package timepin

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

const (
	// LDR X17, #8
	_LDR_X17_8 = uint32(0x58000051)
	// LDR X17, #12
	_LDR_X17_12 = uint32(0x58000071)
	// LDR Xd, #8 without the register
	_LDR_8 = uint32(0x58000040)
	// BR X17
	_BR_X17 = uint32(0xd61f0220)
	// BLR X17
	_BLR_X17 = uint32(0xd63f0220)
	// B #12
	_B_12 = uint32(0x14000003)

	pageMask = ^uintptr(0xfff)
)

var arm64ISA = isa{
	name:        "arm64",
	window:      16,
	jumpSize:    16,
	pad:         0,
	jump:        arm64Jump,
	relocate:    arm64Relocate,
	disassemble: arm64Disassemble,
}

func putInsts(insts ...uint32) []byte {
	buf := make([]byte, 4*len(insts), 4*len(insts)+8)
	for i, inst := range insts {
		binary.LittleEndian.PutUint32(buf[4*i:], inst)
	}
	return buf
}

func appendQuad(buf []byte, v uintptr) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

// arm64Jump returns:
//
//	LDR X17, #8
//	BR X17
//	.quad dest
//
// X17 is the intra-procedure-call scratch register, free at a call
// boundary.
func arm64Jump(dest uintptr) []byte {
	return appendQuad(putInsts(_LDR_X17_8, _BR_X17), dest)
}

// arm64Call returns:
//
//	LDR X17, #12
//	BLR X17
//	B #12
//	.quad dest
func arm64Call(dest uintptr) []byte {
	return appendQuad(putInsts(_LDR_X17_12, _BLR_X17, _B_12), dest)
}

// arm64LoadAddr returns:
//
//	LDR Xd, #8
//	B #12
//	.quad value
func arm64LoadAddr(reg uint32, value uintptr) []byte {
	return appendQuad(putInsts(_LDR_8|reg&0x1f, _B_12), value)
}

func arm64Relocate(code []byte, src, dest uintptr) ([]byte, int, error) {
	const need = 16

	if len(code) < need {
		return nil, 0, fmt.Errorf("%w: prologue is %d bytes", ErrTooShort, len(code))
	}

	var out []byte
	for i := 0; i < need; i += 4 {
		raw := code[i : i+4]
		pc := src + uintptr(i)
		last := i+4 == need

		inst, err := arm64asm.Decode(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: decode error at offset %d %v: %w", ErrUnpatchable, i, raw, err)
		}

		switch inst.Op {
		case arm64asm.RET, arm64asm.BR:
			if !last {
				return nil, 0, fmt.Errorf("%w: %v at offset %d", ErrTooShort, inst.Op, i)
			}
			out = append(out, raw...)

		case arm64asm.B:
			rel, ok := inst.Args[0].(arm64asm.PCRel)
			if !ok {
				// B.cond
				return nil, 0, fmt.Errorf("%w: conditional branch at offset %d", ErrUnpatchable, i)
			}
			if !last {
				return nil, 0, fmt.Errorf("%w: branch at offset %d", ErrTooShort, i)
			}
			out = append(out, arm64Jump(uintptr(int64(pc)+int64(rel)))...)

		case arm64asm.BL:
			rel := inst.Args[0].(arm64asm.PCRel)
			out = append(out, arm64Call(uintptr(int64(pc)+int64(rel)))...)

		case arm64asm.ADR:
			rel := inst.Args[1].(arm64asm.PCRel)
			reg := binary.LittleEndian.Uint32(raw) & 0x1f
			out = append(out, arm64LoadAddr(reg, uintptr(int64(pc)+int64(rel)))...)

		case arm64asm.ADRP:
			// arm64asm reports the offset in bytes from the page of pc.
			rel := inst.Args[1].(arm64asm.PCRel)
			reg := binary.LittleEndian.Uint32(raw) & 0x1f
			out = append(out, arm64LoadAddr(reg, uintptr(int64(pc&pageMask)+int64(rel)))...)

		default:
			for _, arg := range inst.Args {
				if _, ok := arg.(arm64asm.PCRel); ok {
					// CBZ, TBZ, LDR (literal) and friends.
					return nil, 0, fmt.Errorf("%w: %v at offset %d", ErrUnpatchable, inst.Op, i)
				}
			}
			out = append(out, raw...)
		}
	}

	return out, need, nil
}

func arm64Disassemble(code []byte, pc uintptr) string {
	var buf bytes.Buffer

	for i := 0; i < len(code)&^3; i += 4 {
		var asm string
		instruction, err := arm64asm.Decode(code[i:])
		if err == nil {
			asm = instruction.String()
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uintptr(i), hex.EncodeToString(code[i:i+4]), asm)
	}

	return buf.String()
}
