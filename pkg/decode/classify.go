// Package decode implements the opcode classifier, the field-displacement
// table, and the instruction decoder: components 4.1 through 4.3 of the
// system design.
package decode

import "github.com/oisee/asm8086/pkg/inst"

// 8-bit opcode patterns (no shift).
const (
	pat8MovRegOrMemToSegReg = 0b10001110
	pat8MovSegRegToRegOrMem = 0b10001100
	pat8JE                  = 0x74
	pat8JL                  = 0x7C
	pat8JLE                 = 0x7E
	pat8JB                  = 0x72
	pat8JBE                 = 0x76
	pat8JP                  = 0x7A
	pat8JO                  = 0x70
	pat8JS                  = 0x78
	pat8JNE                 = 0x75
	pat8JNL                 = 0x7D
	pat8JNLE                = 0x7F
	pat8JNB                 = 0x73
	pat8JNBE                = 0x77
	pat8JNP                 = 0x7B
	pat8JNO                 = 0x71
	pat8JNS                 = 0x79
	pat8Loop                = 0xE2
	pat8LoopZ               = 0xE1
	pat8LoopNZ              = 0xE0
	pat8JCXZ                = 0xE3
)

// 7-bit opcode patterns (byte >> 1).
const (
	pat7MovImmToRegOrMem = 0b1100011
	pat7MovMemToAcc      = 0b1010000
	pat7MovAccToMem      = 0b1010001
	pat7AddImmToAcc      = 0b0000010
	pat7SubImmFromAcc    = 0b0010110
	pat7CmpImmWithAcc    = 0b0011110
)

// 6-bit opcode patterns (byte >> 2, after the 7-bit shift).
const (
	pat6MovRegOrMemToFromReg = 0b100010
	pat6AddRegOrMemWithReg   = 0b000000
	pat6ImmToFromRegOrMem    = 0b100000
	pat6SubRegOrMemWithReg   = 0b001010
	pat6CmpRegOrMemWithReg   = 0b001110
)

// 4-bit opcode pattern (byte >> 4, after the prior two shifts).
const pat4MovImmToReg = 0b1011

// Classify maps the first byte of an instruction to an opcode tag by
// testing the 8-, 7-, 6-, and 4-bit prefixes in that mandatory order:
// shorter prefixes must never be consulted before longer ones, since a
// longer prefix identifies a narrower opcode that a shorter prefix would
// otherwise misclassify as an arithmetic form with extraneous operands.
func Classify(b byte) (inst.OpCode, error) {
	switch b {
	case pat8MovRegOrMemToSegReg:
		return inst.OpMovRegOrMemToSegReg, nil
	case pat8MovSegRegToRegOrMem:
		return inst.OpMovSegRegToRegOrMem, nil
	case pat8JE:
		return inst.OpJE, nil
	case pat8JL:
		return inst.OpJL, nil
	case pat8JLE:
		return inst.OpJLE, nil
	case pat8JB:
		return inst.OpJB, nil
	case pat8JBE:
		return inst.OpJBE, nil
	case pat8JP:
		return inst.OpJP, nil
	case pat8JO:
		return inst.OpJO, nil
	case pat8JS:
		return inst.OpJS, nil
	case pat8JNE:
		return inst.OpJNE, nil
	case pat8JNL:
		return inst.OpJNL, nil
	case pat8JNLE:
		return inst.OpJNLE, nil
	case pat8JNB:
		return inst.OpJNB, nil
	case pat8JNBE:
		return inst.OpJNBE, nil
	case pat8JNP:
		return inst.OpJNP, nil
	case pat8JNO:
		return inst.OpJNO, nil
	case pat8JNS:
		return inst.OpJNS, nil
	case pat8Loop:
		return inst.OpLoop, nil
	case pat8LoopZ:
		return inst.OpLoopZ, nil
	case pat8LoopNZ:
		return inst.OpLoopNZ, nil
	case pat8JCXZ:
		return inst.OpJCXZ, nil
	}

	b7 := b >> 1
	switch b7 {
	case pat7MovImmToRegOrMem:
		return inst.OpMovImmToRegOrMem, nil
	case pat7MovMemToAcc:
		return inst.OpMovMemToAcc, nil
	case pat7MovAccToMem:
		return inst.OpMovAccToMem, nil
	case pat7AddImmToAcc:
		return inst.OpAddImmToAcc, nil
	case pat7SubImmFromAcc:
		return inst.OpSubImmFromAcc, nil
	case pat7CmpImmWithAcc:
		return inst.OpCmpImmWithAcc, nil
	}

	b6 := b7 >> 1
	switch b6 {
	case pat6MovRegOrMemToFromReg:
		return inst.OpMovRegOrMemToFromReg, nil
	case pat6AddRegOrMemWithReg:
		return inst.OpAddRegOrMemWithReg, nil
	case pat6ImmToFromRegOrMem:
		return inst.OpImmToFromRegOrMem, nil
	case pat6SubRegOrMemWithReg:
		return inst.OpSubRegOrMemWithReg, nil
	case pat6CmpRegOrMemWithReg:
		return inst.OpCmpRegOrMemWithReg, nil
	}

	// 5-bit prefix: no opcode in this system's supported set uses it.
	b5 := b6 >> 1
	_ = b5

	b4 := b5 >> 1
	if b4 == pat4MovImmToReg {
		return inst.OpMovImmToReg, nil
	}

	return inst.OpUnknown, &Error{Kind: UnsupportedOpcode, Offset: 0, Detail: "no classifier prefix matched"}
}
