package decode

import "github.com/oisee/asm8086/pkg/inst"

// fieldSpec locates a logical field inside the first few bytes of an
// instruction: which byte it lives in, which bits, and at what offset.
// A byteIdx < 0 marks the field absent for this opcode tag.
type fieldSpec struct {
	byteIdx   int
	mask      uint8
	bitOffset uint
}

var absent = fieldSpec{byteIdx: -1}

func (f fieldSpec) present() bool { return f.byteIdx >= 0 }

// extractAt reads the field from buf, where offset is the instruction's
// start byte and f.byteIdx is relative to it. ok is false if the field is
// absent for this opcode tag or would read past the end of buf.
func (f fieldSpec) extractAt(buf []byte, offset int) (value uint8, ok bool) {
	if !f.present() {
		return 0, false
	}
	idx := offset + f.byteIdx
	if idx >= len(buf) {
		return 0, false
	}
	return (buf[idx] & f.mask) >> f.bitOffset, true
}

// fixedWord policy values: how many data bytes follow, independent of any
// runtime s/w computation.
const (
	fixedWordNone    = -2 // this opcode tag has no data field at all
	fixedWordRuntime = -1 // size determined at runtime from s/w
	fixedWordByte    = 0  // always one data byte
	fixedWordWord    = 1  // always two data bytes
)

// fieldTable is the per-opcode-tag record described in component 4.2: where
// each logical field lives, and how many data bytes to append.
type fieldTable struct {
	d, s, w, mod, reg, rm fieldSpec
	fixedWord             int
	// wordAlways, when true, means this opcode tag's operand width is
	// always 16-bit even though it has no literal w bit to extract (e.g.
	// the segment-register MOV forms).
	wordAlways bool
}

var (
	regMemCommon = fieldTable{
		d:   fieldSpec{0, 0b00000010, 1},
		s:   absent,
		w:   fieldSpec{0, 0b00000001, 0},
		mod: fieldSpec{1, 0b11000000, 6},
		reg: fieldSpec{1, 0b00111000, 3},
		rm:  fieldSpec{1, 0b00000111, 0},
		fixedWord: fixedWordNone,
	}

	fieldTables = map[inst.OpCode]fieldTable{
		inst.OpMovRegOrMemToFromReg: regMemCommon,
		inst.OpAddRegOrMemWithReg:   regMemCommon,
		inst.OpSubRegOrMemWithReg:   regMemCommon,
		inst.OpCmpRegOrMemWithReg:   regMemCommon,

		inst.OpImmToFromRegOrMem: {
			d:         absent,
			s:         fieldSpec{0, 0b00000010, 1},
			w:         fieldSpec{0, 0b00000001, 0},
			mod:       fieldSpec{1, 0b11000000, 6},
			reg:       fieldSpec{1, 0b00111000, 3},
			rm:        fieldSpec{1, 0b00000111, 0},
			fixedWord: fixedWordRuntime,
		},

		inst.OpMovImmToRegOrMem: {
			d:         absent,
			s:         absent,
			w:         fieldSpec{0, 0b00000001, 0},
			mod:       fieldSpec{1, 0b11000000, 6},
			reg:       absent,
			rm:        fieldSpec{1, 0b00000111, 0},
			fixedWord: fixedWordRuntime,
		},

		inst.OpMovImmToReg: {
			d:         absent,
			s:         absent,
			w:         fieldSpec{0, 0b00001000, 3},
			mod:       absent,
			reg:       fieldSpec{0, 0b00000111, 0},
			rm:        absent,
			fixedWord: fixedWordRuntime,
		},

		inst.OpMovMemToAcc: {
			d: absent, s: absent, w: fieldSpec{0, 0b00000001, 0},
			mod: absent, reg: absent, rm: absent,
			fixedWord: fixedWordWord,
		},
		inst.OpMovAccToMem: {
			d: absent, s: absent, w: fieldSpec{0, 0b00000001, 0},
			mod: absent, reg: absent, rm: absent,
			fixedWord: fixedWordWord,
		},

		inst.OpAddImmToAcc: {
			d: absent, s: absent, w: fieldSpec{0, 0b00000001, 0},
			mod: absent, reg: absent, rm: absent,
			fixedWord: fixedWordRuntime,
		},
		inst.OpSubImmFromAcc: {
			d: absent, s: absent, w: fieldSpec{0, 0b00000001, 0},
			mod: absent, reg: absent, rm: absent,
			fixedWord: fixedWordRuntime,
		},
		inst.OpCmpImmWithAcc: {
			d: absent, s: absent, w: fieldSpec{0, 0b00000001, 0},
			mod: absent, reg: absent, rm: absent,
			fixedWord: fixedWordRuntime,
		},

		inst.OpMovRegOrMemToSegReg: {
			d: absent, s: absent, w: absent,
			mod:        fieldSpec{1, 0b11000000, 6},
			reg:        fieldSpec{1, 0b00111000, 3},
			rm:         fieldSpec{1, 0b00000111, 0},
			fixedWord:  fixedWordNone,
			wordAlways: true,
		},
		inst.OpMovSegRegToRegOrMem: {
			d: absent, s: absent, w: absent,
			mod:        fieldSpec{1, 0b11000000, 6},
			reg:        fieldSpec{1, 0b00111000, 3},
			rm:         fieldSpec{1, 0b00000111, 0},
			fixedWord:  fixedWordNone,
			wordAlways: true,
		},
	}

	// jumpFields covers all 20 short-jump / loop opcode tags: one data
	// byte (the signed relative displacement) at byte index 1, no mod/reg/rm.
	jumpFields = fieldTable{
		d: absent, s: absent, w: absent,
		mod: absent, reg: absent, rm: absent,
		fixedWord: fixedWordByte,
	}
)

func isJumpOpcode(op inst.OpCode) bool {
	switch op {
	case inst.OpJE, inst.OpJL, inst.OpJLE, inst.OpJB, inst.OpJBE, inst.OpJP, inst.OpJO, inst.OpJS,
		inst.OpJNE, inst.OpJNL, inst.OpJNLE, inst.OpJNB, inst.OpJNBE, inst.OpJNP, inst.OpJNO, inst.OpJNS,
		inst.OpLoop, inst.OpLoopZ, inst.OpLoopNZ, inst.OpJCXZ:
		return true
	default:
		return false
	}
}

func fieldsFor(op inst.OpCode) (fieldTable, bool) {
	if isJumpOpcode(op) {
		return jumpFields, true
	}
	ft, ok := fieldTables[op]
	return ft, ok
}
