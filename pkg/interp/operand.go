package interp

import (
	"github.com/oisee/asm8086/pkg/cpu"
	"github.com/oisee/asm8086/pkg/inst"
)

// operand is a resolved read/write handle on a register or memory location,
// bound to a fixed width (8 or 16). It stands in for the reference
// implementation's destination/source structs: instead of tagging a value
// with "is this a register, a memory cell, a high byte" and branching on
// the tag everywhere, resolution produces a closure pair once and the
// execution step never branches on operand shape again.
type operand struct {
	width int
	get   func() uint32
	set   func(uint32)
}

func maskWidth(v uint32, width int) uint32 {
	if width == 16 {
		return v & 0xFFFF
	}
	return v & 0xFF
}

func operandWidth(ii inst.Instruction) int {
	if ii.W == inst.BitOne {
		return 16
	}
	return 8
}

// immValue computes the operand-width immediate value from an instruction's
// data bytes. When s selects sign-extension (one byte read, word-wide
// operand) the single byte is sign-extended; otherwise the data bytes are
// read at their natural width.
func immValue(ii inst.Instruction, width int) uint16 {
	if width == 8 {
		return uint16(ii.Data[0])
	}
	if ii.S == inst.BitOne {
		return uint16(int16(int8(ii.Data[0])))
	}
	return ii.Data16()
}

func regOperand(s *cpu.State, idx uint8, width int) operand {
	if width == 16 {
		r := cpu.RegWord16(idx)
		return operand{
			width: 16,
			get:   func() uint32 { return uint32(s.Reg16(r)) },
			set:   func(v uint32) { s.SetReg16(r, uint16(v)) },
		}
	}
	return operand{
		width: 8,
		get:   func() uint32 { return uint32(s.RegByte(idx)) },
		set:   func(v uint32) { s.SetRegByte(idx, uint8(v)) },
	}
}

func readRegOperand(s *cpu.State, idx uint8, width int) uint16 {
	if width == 16 {
		return s.Reg16(cpu.RegWord16(idx))
	}
	return uint16(s.RegByte(idx))
}

func segRegOperand(s *cpu.State, idx uint8) operand {
	r := cpu.SegReg(idx)
	return operand{
		width: 16,
		get:   func() uint32 { return uint32(s.Reg16(r)) },
		set:   func(v uint32) { s.SetReg16(r, uint16(v)) },
	}
}

func memOperand(s *cpu.State, addr int, width int) operand {
	if width == 16 {
		return operand{
			width: 16,
			get:   func() uint32 { return uint32(s.ReadMemWord(addr)) },
			set:   func(v uint32) { s.WriteMemWord(addr, uint16(v)) },
		}
	}
	return operand{
		width: 8,
		get:   func() uint32 { return uint32(s.Memory[addr]) },
		set:   func(v uint32) { s.Memory[addr] = uint8(v) },
	}
}

func readMem(s *cpu.State, addr int, width int) uint16 {
	if width == 16 {
		return s.ReadMemWord(addr)
	}
	return uint16(s.Memory[addr])
}

// accOperand is the accumulator: register index 0, i.e. AL when width is 8
// or AX when width is 16.
func accOperand(s *cpu.State, width int) operand {
	return regOperand(s, 0, width)
}

// effectiveAddress computes the memory address a mod/rm pair selects,
// including the mod=00,rm=110 direct-address special case, and checks it
// against the usable memory range.
func effectiveAddress(s *cpu.State, ii inst.Instruction) (int, error) {
	isDirect := ii.Mod == inst.ModMemoryNoDisp && ii.Rm == 0b110

	var base int
	if !isDirect {
		switch ii.Rm {
		case 0b000:
			base = int(int16(s.Reg16(cpu.BX))) + int(int16(s.Reg16(cpu.SI)))
		case 0b001:
			base = int(int16(s.Reg16(cpu.BX))) + int(int16(s.Reg16(cpu.DI)))
		case 0b010:
			base = int(int16(s.Reg16(cpu.BP))) + int(int16(s.Reg16(cpu.SI)))
		case 0b011:
			base = int(int16(s.Reg16(cpu.BP))) + int(int16(s.Reg16(cpu.DI)))
		case 0b100:
			base = int(int16(s.Reg16(cpu.SI)))
		case 0b101:
			base = int(int16(s.Reg16(cpu.DI)))
		case 0b110:
			base = int(int16(s.Reg16(cpu.BP)))
		case 0b111:
			base = int(int16(s.Reg16(cpu.BX)))
		}
	}

	addr := base
	switch {
	case isDirect:
		addr += int(ii.Disp16())
	case ii.Mod == inst.ModMemory8BitDisp:
		addr += int(ii.DispSigned8())
	case ii.Mod == inst.ModMemory16BitDisp:
		addr += int(ii.Disp16())
	}

	return checkAddr(ii, addr)
}

func checkAddr(ii inst.Instruction, addr int) (int, error) {
	if addr < 0 || addr >= cpu.MemorySize-1 {
		return 0, &Error{Kind: MemoryOutOfRange, Offset: ii.Offset, Detail: "effective address out of range"}
	}
	return addr, nil
}

// resolveOperands is a pure function from an instruction's operand flavor
// and the current CPU state to a (destination, source value, width) triple.
// Jump/loop instructions have no operand flavor requiring this and are
// handled directly in step.
func resolveOperands(s *cpu.State, ii inst.Instruction) (dst operand, src uint32, width int, err error) {
	width = operandWidth(ii)

	switch ii.Operands {
	case inst.OperandsRegisterImmediate, inst.OperandsMemoryImmediate, inst.OperandsAccumulatorImmediate:
		src = uint32(immValue(ii, width))
		switch ii.Operands {
		case inst.OperandsRegisterImmediate:
			dst = regOperand(s, ii.Rm, width)
		case inst.OperandsAccumulatorImmediate:
			dst = accOperand(s, width)
		default: // OperandsMemoryImmediate
			addr, e := effectiveAddress(s, ii)
			if e != nil {
				return operand{}, 0, 0, e
			}
			dst = memOperand(s, addr, width)
		}

	case inst.OperandsRegisterRegister:
		// mod=11 still obeys d: d=1 means reg is the destination, d=0 means rm is,
		// the same rule the memory-register/register-memory split uses.
		if ii.D.Set() {
			dst = regOperand(s, ii.Reg, width)
			src = uint32(readRegOperand(s, ii.Rm, width))
		} else {
			dst = regOperand(s, ii.Rm, width)
			src = uint32(readRegOperand(s, ii.Reg, width))
		}

	case inst.OperandsMemoryRegister:
		addr, e := effectiveAddress(s, ii)
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = regOperand(s, ii.Reg, width)
		src = uint32(readMem(s, addr, width))

	case inst.OperandsRegisterMemory:
		addr, e := effectiveAddress(s, ii)
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = memOperand(s, addr, width)
		src = uint32(readRegOperand(s, ii.Reg, width))

	case inst.OperandsMemoryAccumulator:
		width = operandWidth(ii)
		addr, e := checkAddr(ii, int(ii.Data16()))
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = accOperand(s, width)
		src = uint32(readMem(s, addr, width))

	case inst.OperandsAccumulatorMemory:
		width = operandWidth(ii)
		addr, e := checkAddr(ii, int(ii.Data16()))
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = memOperand(s, addr, width)
		src = uint32(readRegOperand(s, 0, width))

	case inst.OperandsRegister16SegReg:
		width = 16
		dst = regOperand(s, ii.Rm, 16)
		src = uint32(s.Reg16(cpu.SegReg(ii.Reg)))

	case inst.OperandsSegRegRegister16:
		width = 16
		dst = segRegOperand(s, ii.Reg)
		src = uint32(readRegOperand(s, ii.Rm, 16))

	case inst.OperandsSegRegMemory16:
		width = 16
		addr, e := effectiveAddress(s, ii)
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = segRegOperand(s, ii.Reg)
		src = uint32(readMem(s, addr, 16))

	case inst.OperandsMemorySegReg:
		width = 16
		addr, e := effectiveAddress(s, ii)
		if e != nil {
			return operand{}, 0, 0, e
		}
		dst = memOperand(s, addr, 16)
		src = uint32(s.Reg16(cpu.SegReg(ii.Reg)))

	default:
		err = &Error{Kind: UnsupportedAtRuntime, Offset: ii.Offset, Detail: "no operand resolution for this operand flavor"}
	}
	return
}
