// Package inst holds the data model shared by the decoder, the re-encoder,
// and the interpreter: the opcode tag enumeration, the decoded instruction
// record, and the small tagged enums (Mod, Type, Operands) the rest of the
// system dispatches on.
package inst

// OpCode identifies the instruction family a byte stream was classified
// into by the opcode classifier. Values are grouped by the bit-prefix width
// that distinguishes them (8, 7, 6, or 4 bits); the grouping has no meaning
// at runtime beyond documentation, dispatch is by value.
type OpCode uint8

const (
	OpUnknown OpCode = iota

	// 8-bit prefixes.
	OpMovRegOrMemToSegReg
	OpMovSegRegToRegOrMem
	OpJE
	OpJL
	OpJLE
	OpJB
	OpJBE
	OpJP
	OpJO
	OpJS
	OpJNE
	OpJNL
	OpJNLE
	OpJNB
	OpJNBE
	OpJNP
	OpJNO
	OpJNS
	OpLoop
	OpLoopZ
	OpLoopNZ
	OpJCXZ

	// 7-bit prefixes.
	OpMovImmToRegOrMem
	OpMovMemToAcc
	OpMovAccToMem
	OpAddImmToAcc
	OpSubImmFromAcc
	OpCmpImmWithAcc

	// 6-bit prefixes.
	OpMovRegOrMemToFromReg
	OpAddRegOrMemWithReg
	OpImmToFromRegOrMem // shared ADD/SUB/CMP immediate-to-r/m, split by the reg subfield
	OpSubRegOrMemWithReg
	OpCmpRegOrMemWithReg

	// 4-bit prefix.
	OpMovImmToReg
)

// Mod is the addressing-mode subfield of the second instruction byte.
type Mod uint8

const (
	ModMemoryNoDisp Mod = iota
	ModMemory8BitDisp
	ModMemory16BitDisp
	ModRegisterToRegister
	ModNone // not applicable to this opcode tag
)

// Bit is a tri-state flag bit: 0, 1, or not-applicable to this instruction.
type Bit int8

const (
	BitNA   Bit = -1
	BitZero Bit = 0
	BitOne  Bit = 1
)

// Set reports whether the bit is present and equal to 1.
func (b Bit) Set() bool { return b == BitOne }

// Type is the decoded instruction type.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeMov
	TypeAdd
	TypeSub
	TypeCmp
	TypeJE
	TypeJL
	TypeJLE
	TypeJB
	TypeJBE
	TypeJP
	TypeJO
	TypeJS
	TypeJNE
	TypeJNL
	TypeJNLE
	TypeJNB
	TypeJNBE
	TypeJNP
	TypeJNO
	TypeJNS
	TypeLoop
	TypeLoopZ
	TypeLoopNZ
	TypeJCXZ
)

// Mnemonic returns the lowercase NASM mnemonic for t.
func (t Type) Mnemonic() string {
	switch t {
	case TypeMov:
		return "mov"
	case TypeAdd:
		return "add"
	case TypeSub:
		return "sub"
	case TypeCmp:
		return "cmp"
	case TypeJE:
		return "je"
	case TypeJL:
		return "jl"
	case TypeJLE:
		return "jle"
	case TypeJB:
		return "jb"
	case TypeJBE:
		return "jbe"
	case TypeJP:
		return "jp"
	case TypeJO:
		return "jo"
	case TypeJS:
		return "js"
	case TypeJNE:
		return "jne"
	case TypeJNL:
		return "jnl"
	case TypeJNLE:
		return "jnle"
	case TypeJNB:
		return "jnb"
	case TypeJNBE:
		return "jnbe"
	case TypeJNP:
		return "jnp"
	case TypeJNO:
		return "jno"
	case TypeJNS:
		return "jns"
	case TypeLoop:
		return "loop"
	case TypeLoopZ:
		return "loope"
	case TypeLoopNZ:
		return "loopne"
	case TypeJCXZ:
		return "jcxz"
	default:
		return "unknown"
	}
}

// IsJump reports whether t is any of the short conditional jumps or loop
// instructions (the operand flavor is always OperandsShortLabel for these).
func (t Type) IsJump() bool {
	switch t {
	case TypeJE, TypeJL, TypeJLE, TypeJB, TypeJBE, TypeJP, TypeJO, TypeJS,
		TypeJNE, TypeJNL, TypeJNLE, TypeJNB, TypeJNBE, TypeJNP, TypeJNO, TypeJNS,
		TypeLoop, TypeLoopZ, TypeLoopNZ, TypeJCXZ:
		return true
	default:
		return false
	}
}

// Operands is the operand-flavor tag: the single axis the re-encoder and
// the interpreter dispatch on.
type Operands uint8

const (
	OperandsNone Operands = iota
	OperandsMemoryAccumulator
	OperandsAccumulatorMemory
	OperandsMemoryRegister
	OperandsRegisterMemory
	OperandsMemoryImmediate
	OperandsRegisterRegister
	OperandsRegisterImmediate
	OperandsAccumulatorImmediate
	OperandsShortLabel
	OperandsSegRegRegister16
	OperandsSegRegMemory16
	OperandsRegister16SegReg
	OperandsMemorySegReg
)

// Instruction is the stable record produced by the decoder and consumed by
// the re-encoder and the interpreter.
type Instruction struct {
	Opcode OpCode

	D, S, W Bit
	Mod     Mod
	Reg, Rm uint8

	Disp [2]uint8
	Data [2]uint8

	Type      Type
	Operands  Operands
	ByteCount int

	// Offset is the absolute byte offset of this instruction's first byte
	// within the decoded stream. Set by the decoder; used by the
	// interpreter's fetch map and by the re-encoder's label placement.
	Offset int
}

// Disp16 combines the two displacement bytes into an unsigned 16-bit value.
func (i Instruction) Disp16() uint16 {
	return uint16(i.Disp[0]) | uint16(i.Disp[1])<<8
}

// DispSigned8 reinterprets Disp[0] as a signed 8-bit displacement.
func (i Instruction) DispSigned8() int8 { return int8(i.Disp[0]) }

// Data16 combines the two data bytes into an unsigned 16-bit value.
func (i Instruction) Data16() uint16 {
	return uint16(i.Data[0]) | uint16(i.Data[1])<<8
}

// DataSigned8 reinterprets Data[0] as a signed 8-bit value (used for short
// jump/loop displacements, where Data[0] is the only data byte).
func (i Instruction) DataSigned8() int8 { return int8(i.Data[0]) }

// WordWidth reports whether the operation should run at 16-bit width,
// resolving the fixedWord/runtime-width ambiguity documented for the
// field-displacement table: word iff s=0 and w=1, when s is applicable;
// otherwise word iff w=1.
func (i Instruction) WordWidth() bool {
	if i.S == BitOne {
		return false
	}
	return i.W == BitOne
}
