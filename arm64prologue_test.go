package timepin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	armNOP     = uint32(0xd503201f)
	armSTP     = uint32(0xa9bf7bfd) // STP X29, X30, [SP,#-16]!
	armMOV     = uint32(0x910003fd) // MOV X29, SP
	armRET     = uint32(0xd65f03c0)
	armB       = uint32(0x14000040) // B #0x100
	armBL      = uint32(0x94000040) // BL #0x100
	armADRP    = uint32(0xb0000000) // ADRP X0, #0x1000
	armADR     = uint32(0x10000041) // ADR X1, #8
	armCBZ     = uint32(0xb4000040) // CBZ X0, #8
	armBEQ     = uint32(0x54000040) // B.EQ #8
	armLDRLit  = uint32(0x58000040) // LDR X0, #8
	armBRX16   = uint32(0xd61f0200) // BR X16
	armAddSub1 = uint32(0xd1000400) // SUB X0, X0, #1
)

func TestARM64Relocate(t *testing.T) {
	const src = uintptr(0x400120)

	tests := []struct {
		name string
		code []uint32
		want []byte
	}{
		{
			name: "plain prologue",
			code: []uint32{armSTP, armMOV, armAddSub1, armNOP},
			want: putInsts(armSTP, armMOV, armAddSub1, armNOP),
		},
		{
			name: "tail branch",
			code: []uint32{armNOP, armNOP, armNOP, armB},
			want: concat(putInsts(armNOP, armNOP, armNOP), arm64Jump(src+0x10c)),
		},
		{
			name: "call",
			code: []uint32{armSTP, armBL, armNOP, armNOP},
			want: concat(putInsts(armSTP), arm64Call(src+0x104), putInsts(armNOP, armNOP)),
		},
		{
			name: "ADRP",
			code: []uint32{armADRP, armNOP, armNOP, armNOP},
			want: concat(arm64LoadAddr(0, 0x401000), putInsts(armNOP, armNOP, armNOP)),
		},
		{
			name: "ADR",
			code: []uint32{armADR, armNOP, armNOP, armNOP},
			want: concat(arm64LoadAddr(1, src+8), putInsts(armNOP, armNOP, armNOP)),
		},
		{
			name: "tail return",
			code: []uint32{armNOP, armNOP, armNOP, armRET},
			want: putInsts(armNOP, armNOP, armNOP, armRET),
		},
		{
			name: "tail indirect branch",
			code: []uint32{armNOP, armNOP, armNOP, armBRX16},
			want: putInsts(armNOP, armNOP, armNOP, armBRX16),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := arm64Relocate(putInsts(tt.code...), src, 0x7f0000000000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 16, n)
		})
	}
}

func TestARM64Relocate_Errors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"short", putInsts(armNOP, armNOP, armNOP), ErrTooShort},
		{"early return", putInsts(armRET, armNOP, armNOP, armNOP), ErrTooShort},
		{"early branch", putInsts(armB, armNOP, armNOP, armNOP), ErrTooShort},
		{"CBZ", putInsts(armNOP, armCBZ, armNOP, armNOP), ErrUnpatchable},
		{"B.cond", putInsts(armNOP, armNOP, armBEQ, armNOP), ErrUnpatchable},
		{"literal load", putInsts(armLDRLit, armNOP, armNOP, armNOP), ErrUnpatchable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := arm64Relocate(tt.code, 0x400120, 0x7f0000000000)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestARM64Encodings(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]byte{
		0x51, 0x00, 0x00, 0x58,
		0x20, 0x02, 0x1f, 0xd6,
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
	}, arm64Jump(0x1122334455667788))

	assert.Len(arm64Call(0x1000), 20)
	assert.Equal(putInsts(0x58000053, _B_12), arm64LoadAddr(19, 0x1000)[:8])
}

func TestARM64Trampoline(t *testing.T) {
	const src = uintptr(0x400120)
	code := putInsts(armSTP, armMOV, armNOP, armNOP, armRET)

	got, n, err := arm64ISA.trampoline(code, src, 0x7f0000000000)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, concat(code[:16], arm64Jump(src+16)), got)
}

func TestARM64Patch(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(arm64Jump(0x1234), arm64ISA.patch(0x1234, 16))
	assert.True(arm64ISA.patched(arm64ISA.patch(0x1234, 16)))
	assert.False(arm64ISA.patched(putInsts(armSTP, armMOV, armNOP, armNOP)))
}

func TestARM64Disassemble(t *testing.T) {
	out := arm64Disassemble(putInsts(armNOP, armRET), 0x1000)
	assert.Contains(t, out, "0x00001004")
	assert.Contains(t, out, "NOP")
	assert.Contains(t, out, "RET")
}
