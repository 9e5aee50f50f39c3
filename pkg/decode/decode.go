package decode

import "github.com/oisee/asm8086/pkg/inst"

func modFromRaw(raw uint8) inst.Mod {
	switch raw {
	case 0b00:
		return inst.ModMemoryNoDisp
	case 0b01:
		return inst.ModMemory8BitDisp
	case 0b10:
		return inst.ModMemory16BitDisp
	default:
		return inst.ModRegisterToRegister
	}
}

func bitFrom(v uint8) inst.Bit {
	if v != 0 {
		return inst.BitOne
	}
	return inst.BitZero
}

func truncated(offset int, detail string) error {
	return &Error{Kind: TruncatedInstruction, Offset: offset, Detail: detail}
}

// DecodeOne decodes a single instruction starting at offset within buf. It
// does not touch the label table; callers that need jump-label synthesis
// should go through Decode.
func DecodeOne(buf []byte, offset int) (inst.Instruction, error) {
	var ii inst.Instruction
	ii.Offset = offset

	if offset >= len(buf) {
		return ii, truncated(offset, "no opcode byte available")
	}

	op, err := Classify(buf[offset])
	if err != nil {
		if derr, ok := err.(*Error); ok {
			derr.Offset = offset
		}
		return ii, err
	}
	ii.Opcode = op

	ft, ok := fieldsFor(op)
	if !ok {
		return ii, &Error{Kind: UnsupportedOpcode, Offset: offset, Detail: "opcode classified but has no field table entry"}
	}

	// ibc tracks the highest byte index (relative to offset) consumed so
	// far, matching the "instruction byte count" bookkeeping the field
	// table model is built around.
	ibc := 0
	for _, fs := range []fieldSpec{ft.d, ft.s, ft.w, ft.mod, ft.reg, ft.rm} {
		if fs.present() && fs.byteIdx > ibc {
			ibc = fs.byteIdx
		}
	}

	readBit := func(fs fieldSpec) (inst.Bit, error) {
		if !fs.present() {
			return inst.BitNA, nil
		}
		v, ok := fs.extractAt(buf, offset)
		if !ok {
			return inst.BitNA, truncated(offset, "d/s/w field byte missing")
		}
		return bitFrom(v), nil
	}
	readRaw := func(fs fieldSpec) (uint8, error) {
		if !fs.present() {
			return 0, nil
		}
		v, ok := fs.extractAt(buf, offset)
		if !ok {
			return 0, truncated(offset, "mod/reg/rm field byte missing")
		}
		return v, nil
	}

	if ii.D, err = readBit(ft.d); err != nil {
		return ii, err
	}
	if ii.S, err = readBit(ft.s); err != nil {
		return ii, err
	}
	if ii.W, err = readBit(ft.w); err != nil {
		return ii, err
	}
	if ft.wordAlways {
		ii.W = inst.BitOne
	}

	var modRaw, regRaw, rmRaw uint8
	if modRaw, err = readRaw(ft.mod); err != nil {
		return ii, err
	}
	if regRaw, err = readRaw(ft.reg); err != nil {
		return ii, err
	}
	if rmRaw, err = readRaw(ft.rm); err != nil {
		return ii, err
	}
	ii.Reg = regRaw
	ii.Rm = rmRaw
	if ft.mod.present() {
		ii.Mod = modFromRaw(modRaw)
	} else {
		ii.Mod = inst.ModNone
	}

	need := func(idx int) error {
		if offset+idx >= len(buf) {
			return truncated(offset, "displacement or data byte missing")
		}
		return nil
	}

	// Conditionally append displacement bytes, per 4.2: the direct-address
	// special case (mod=00, rm=110) reads a 16-bit displacement even though
	// mod itself signals "no displacement".
	isDirect := ft.mod.present() && ii.Mod == inst.ModMemoryNoDisp && rmRaw == 0b110
	if ft.mod.present() {
		switch {
		case isDirect:
			if err := need(ibc + 1); err != nil {
				return ii, err
			}
			if err := need(ibc + 2); err != nil {
				return ii, err
			}
			ii.Disp[0] = buf[offset+ibc+1]
			ii.Disp[1] = buf[offset+ibc+2]
			ibc += 2
		case ii.Mod == inst.ModMemory8BitDisp:
			if err := need(ibc + 1); err != nil {
				return ii, err
			}
			ii.Disp[0] = buf[offset+ibc+1]
			ibc++
		case ii.Mod == inst.ModMemory16BitDisp:
			if err := need(ibc + 1); err != nil {
				return ii, err
			}
			if err := need(ibc + 2); err != nil {
				return ii, err
			}
			ii.Disp[0] = buf[offset+ibc+1]
			ii.Disp[1] = buf[offset+ibc+2]
			ibc += 2
		}
	}

	// Conditionally append data bytes, per the fixedWord policy.
	switch ft.fixedWord {
	case fixedWordNone:
		// no data field for this opcode tag
	case fixedWordByte:
		if err := need(ibc + 1); err != nil {
			return ii, err
		}
		ii.Data[0] = buf[offset+ibc+1]
		ibc++
	case fixedWordWord:
		if err := need(ibc + 1); err != nil {
			return ii, err
		}
		if err := need(ibc + 2); err != nil {
			return ii, err
		}
		ii.Data[0] = buf[offset+ibc+1]
		ii.Data[1] = buf[offset+ibc+2]
		ibc += 2
	case fixedWordRuntime:
		if ii.WordWidth() {
			if err := need(ibc + 1); err != nil {
				return ii, err
			}
			if err := need(ibc + 2); err != nil {
				return ii, err
			}
			ii.Data[0] = buf[offset+ibc+1]
			ii.Data[1] = buf[offset+ibc+2]
			ibc += 2
		} else {
			if err := need(ibc + 1); err != nil {
				return ii, err
			}
			ii.Data[0] = buf[offset+ibc+1]
			ibc++
		}
	}

	ii.ByteCount = ibc + 1

	if err := assignTypeAndOperands(&ii); err != nil {
		return ii, err
	}

	return ii, nil
}

// assignTypeAndOperands sets Type and Operands by inspecting the opcode tag
// and, for the shared immediate-to-r/m group, the inner reg field. It also
// performs the immediate-to-register reg->rm copy the re-encoder and
// interpreter rely on.
func assignTypeAndOperands(ii *inst.Instruction) error {
	switch ii.Opcode {
	case inst.OpMovRegOrMemToFromReg:
		ii.Type = inst.TypeMov
		ii.Operands = regMemOperands(ii)
	case inst.OpAddRegOrMemWithReg:
		ii.Type = inst.TypeAdd
		ii.Operands = regMemOperands(ii)
	case inst.OpSubRegOrMemWithReg:
		ii.Type = inst.TypeSub
		ii.Operands = regMemOperands(ii)
	case inst.OpCmpRegOrMemWithReg:
		ii.Type = inst.TypeCmp
		ii.Operands = regMemOperands(ii)

	case inst.OpImmToFromRegOrMem:
		switch ii.Reg {
		case 0b000:
			ii.Type = inst.TypeAdd
		case 0b101:
			ii.Type = inst.TypeSub
		case 0b111:
			ii.Type = inst.TypeCmp
		default:
			return &Error{Kind: BadArithmeticSubopcode, Offset: ii.Offset, Detail: "reg field not in {000,101,111}"}
		}
		if ii.Mod == inst.ModRegisterToRegister {
			ii.Operands = inst.OperandsRegisterImmediate
		} else {
			ii.Operands = inst.OperandsMemoryImmediate
		}

	case inst.OpMovImmToRegOrMem:
		ii.Type = inst.TypeMov
		if ii.Mod == inst.ModRegisterToRegister {
			ii.Operands = inst.OperandsRegisterImmediate
		} else {
			ii.Operands = inst.OperandsMemoryImmediate
		}

	case inst.OpMovImmToReg:
		ii.Type = inst.TypeMov
		ii.Operands = inst.OperandsRegisterImmediate
		ii.Mod = inst.ModRegisterToRegister
		ii.Rm = ii.Reg // immediate-to-register: reg names the destination; copy to rm for uniform rendering/execution.

	case inst.OpMovMemToAcc:
		ii.Type = inst.TypeMov
		ii.Operands = inst.OperandsMemoryAccumulator
		ii.D = inst.BitZero // memory is the source
	case inst.OpMovAccToMem:
		ii.Type = inst.TypeMov
		ii.Operands = inst.OperandsAccumulatorMemory
		ii.D = inst.BitOne // memory is the destination

	case inst.OpAddImmToAcc:
		ii.Type = inst.TypeAdd
		ii.Operands = inst.OperandsAccumulatorImmediate
	case inst.OpSubImmFromAcc:
		ii.Type = inst.TypeSub
		ii.Operands = inst.OperandsAccumulatorImmediate
	case inst.OpCmpImmWithAcc:
		ii.Type = inst.TypeCmp
		ii.Operands = inst.OperandsAccumulatorImmediate

	case inst.OpMovRegOrMemToSegReg:
		ii.Type = inst.TypeMov
		if ii.Mod == inst.ModRegisterToRegister {
			ii.Operands = inst.OperandsSegRegRegister16
		} else {
			ii.Operands = inst.OperandsSegRegMemory16
		}
	case inst.OpMovSegRegToRegOrMem:
		ii.Type = inst.TypeMov
		if ii.Mod == inst.ModRegisterToRegister {
			ii.Operands = inst.OperandsRegister16SegReg
		} else {
			ii.Operands = inst.OperandsMemorySegReg
		}

	case inst.OpJE:
		ii.Type = inst.TypeJE
	case inst.OpJL:
		ii.Type = inst.TypeJL
	case inst.OpJLE:
		ii.Type = inst.TypeJLE
	case inst.OpJB:
		ii.Type = inst.TypeJB
	case inst.OpJBE:
		ii.Type = inst.TypeJBE
	case inst.OpJP:
		ii.Type = inst.TypeJP
	case inst.OpJO:
		ii.Type = inst.TypeJO
	case inst.OpJS:
		ii.Type = inst.TypeJS
	case inst.OpJNE:
		ii.Type = inst.TypeJNE
	case inst.OpJNL:
		ii.Type = inst.TypeJNL
	case inst.OpJNLE:
		ii.Type = inst.TypeJNLE
	case inst.OpJNB:
		ii.Type = inst.TypeJNB
	case inst.OpJNBE:
		ii.Type = inst.TypeJNBE
	case inst.OpJNP:
		ii.Type = inst.TypeJNP
	case inst.OpJNO:
		ii.Type = inst.TypeJNO
	case inst.OpJNS:
		ii.Type = inst.TypeJNS
	case inst.OpLoop:
		ii.Type = inst.TypeLoop
	case inst.OpLoopZ:
		ii.Type = inst.TypeLoopZ
	case inst.OpLoopNZ:
		ii.Type = inst.TypeLoopNZ
	case inst.OpJCXZ:
		ii.Type = inst.TypeJCXZ

	default:
		return &Error{Kind: UnsupportedOpcode, Offset: ii.Offset, Detail: "opcode tag has no type assignment"}
	}

	if ii.Type.IsJump() {
		ii.Operands = inst.OperandsShortLabel
	}

	return nil
}

func regMemOperands(ii *inst.Instruction) inst.Operands {
	if ii.Mod == inst.ModRegisterToRegister {
		return inst.OperandsRegisterRegister
	}
	if ii.D.Set() {
		return inst.OperandsMemoryRegister
	}
	return inst.OperandsRegisterMemory
}

// Decode runs the decoder over the full byte stream, appending every
// instruction to ctx.Instructions and every short-jump target to
// ctx.Labels, until the cursor reaches the end of buf or a decode error
// occurs. It stops at the first error (the decoder never recovers and
// resynchronizes).
func Decode(buf []byte, ctx *inst.DecodingContext) error {
	for ctx.Cursor < len(buf) {
		start := ctx.Cursor
		ii, err := DecodeOne(buf, start)
		if err != nil {
			return err
		}

		if ii.Operands == inst.OperandsShortLabel {
			target := start + ii.ByteCount + int(ii.DataSigned8())
			ctx.Labels.Add(target)
		}

		ctx.Instructions = append(ctx.Instructions, ii)
		ctx.Cursor += ii.ByteCount
	}
	return nil
}
