package interp

import (
	"github.com/oisee/asm8086/pkg/cpu"
	"github.com/oisee/asm8086/pkg/inst"
)

func setFlags(s *cpu.State, sf, zf, cf, of, af, pf bool) {
	s.SetFlag(cpu.FlagSign, sf)
	s.SetFlag(cpu.FlagZero, zf)
	s.SetFlag(cpu.FlagCarry, cf)
	s.SetFlag(cpu.FlagOverflow, of)
	s.SetFlag(cpu.FlagAuxCarry, af)
	s.SetFlag(cpu.FlagParity, pf)
}

// step executes one instruction against s and reports the signed byte
// delta the caller should add to ByteCount when advancing IP: zero for
// anything that falls through, or a taken jump/loop displacement.
func step(s *cpu.State, ii inst.Instruction) (jumpDelta int, err error) {
	switch ii.Type {
	case inst.TypeMov:
		dst, src, width, e := resolveOperands(s, ii)
		if e != nil {
			return 0, e
		}
		dst.set(maskWidth(src, width))

	case inst.TypeAdd:
		dst, src, width, e := resolveOperands(s, ii)
		if e != nil {
			return 0, e
		}
		result, sf, zf, cf, of, af, pf := cpu.AddResult(width, dst.get(), src)
		dst.set(result)
		setFlags(s, sf, zf, cf, of, af, pf)

	case inst.TypeSub:
		dst, src, width, e := resolveOperands(s, ii)
		if e != nil {
			return 0, e
		}
		result, sf, zf, cf, of, af, pf := cpu.SubResult(width, dst.get(), src)
		dst.set(result)
		setFlags(s, sf, zf, cf, of, af, pf)

	case inst.TypeCmp:
		dst, src, width, e := resolveOperands(s, ii)
		if e != nil {
			return 0, e
		}
		_, sf, zf, cf, of, af, pf := cpu.SubResult(width, dst.get(), src)
		setFlags(s, sf, zf, cf, of, af, pf)

	case inst.TypeJNE:
		if !s.GetFlag(cpu.FlagZero) {
			jumpDelta = int(ii.DataSigned8())
		}
	case inst.TypeJE:
		if s.GetFlag(cpu.FlagZero) {
			jumpDelta = int(ii.DataSigned8())
		}
	case inst.TypeJP:
		if s.GetFlag(cpu.FlagParity) {
			jumpDelta = int(ii.DataSigned8())
		}
	case inst.TypeJB:
		if s.GetFlag(cpu.FlagCarry) {
			jumpDelta = int(ii.DataSigned8())
		}

	case inst.TypeLoop:
		cx := s.Reg16(cpu.CX) - 1
		s.SetReg16(cpu.CX, cx)
		if cx != 0 {
			jumpDelta = int(ii.DataSigned8())
		}

	case inst.TypeLoopNZ:
		cx := s.Reg16(cpu.CX) - 1
		s.SetReg16(cpu.CX, cx)
		if cx != 0 && !s.GetFlag(cpu.FlagZero) {
			jumpDelta = int(ii.DataSigned8())
		}

	default:
		return 0, &Error{
			Kind:   UnsupportedAtRuntime,
			Offset: ii.Offset,
			Detail: ii.Type.Mnemonic() + " is not implemented by the interpreter",
		}
	}
	return jumpDelta, nil
}
