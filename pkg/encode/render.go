// Package encode walks a decoded instruction list and renders it back as
// NASM-compatible assembly text, reconstructing jump labels from the
// recorded short-jump targets and formatting immediates per the decoding
// context's chosen policy.
package encode

import (
	"fmt"
	"strings"

	"github.com/oisee/asm8086/pkg/inst"
)

// Encode renders the full instruction list in ctx as NASM source text,
// including the "bits 16" header and any labels the decode run recorded.
func Encode(ctx *inst.DecodingContext) string {
	var b strings.Builder
	b.WriteString("bits 16\n\n")

	for _, ii := range ctx.Instructions {
		writeLabelAt(&b, ctx.Labels, ii.Offset)
		b.WriteString(renderInstruction(ii, ctx))
		b.WriteByte('\n')
	}

	var end int
	if n := len(ctx.Instructions); n > 0 {
		last := ctx.Instructions[n-1]
		end = last.Offset + last.ByteCount
	}
	writeLabelAt(&b, ctx.Labels, end)

	return b.String()
}

func writeLabelAt(b *strings.Builder, labels *inst.LabelTable, offset int) {
	if idx, ok := labels.Lookup(offset); ok {
		fmt.Fprintf(b, "label_%d:\n", idx)
	}
}

func renderInstruction(ii inst.Instruction, ctx *inst.DecodingContext) string {
	mnemonic := ii.Type.Mnemonic()
	operands := renderOperands(ii, ctx)
	if operands == "" {
		return mnemonic
	}
	return mnemonic + " " + operands
}

func renderOperands(ii inst.Instruction, ctx *inst.DecodingContext) string {
	word := ii.W == inst.BitOne

	switch ii.Operands {
	case inst.OperandsShortLabel:
		return renderLabelOperand(ii, ctx)

	case inst.OperandsRegisterRegister:
		// d still picks the destination at mod=11, same as the memory forms.
		if ii.D.Set() {
			return registerName(ii.Reg, word) + ", " + registerName(ii.Rm, word)
		}
		return registerName(ii.Rm, word) + ", " + registerName(ii.Reg, word)

	case inst.OperandsRegisterImmediate:
		return registerName(ii.Rm, word) + ", " + formatNumeric(ii.Data, ctx.Format)

	case inst.OperandsAccumulatorImmediate:
		return registerName(0, word) + ", " + formatNumeric(ii.Data, ctx.Format)

	case inst.OperandsMemoryRegister:
		return registerName(ii.Reg, word) + ", " + renderMemoryOperand(ii, ctx.Format)

	case inst.OperandsRegisterMemory:
		return renderMemoryOperand(ii, ctx.Format) + ", " + registerName(ii.Reg, word)

	case inst.OperandsMemoryImmediate:
		prefix := "byte "
		if word {
			prefix = "word "
		}
		return prefix + renderMemoryOperand(ii, ctx.Format) + ", " + formatNumeric(ii.Data, ctx.Format)

	case inst.OperandsMemoryAccumulator:
		return registerName(0, word) + ", " + renderAccMemAddress(ii, ctx.Format)

	case inst.OperandsAccumulatorMemory:
		return renderAccMemAddress(ii, ctx.Format) + ", " + registerName(0, word)

	case inst.OperandsSegRegRegister16:
		return segRegName(ii.Reg) + ", " + registerName(ii.Rm, true)

	case inst.OperandsRegister16SegReg:
		return registerName(ii.Rm, true) + ", " + segRegName(ii.Reg)

	case inst.OperandsSegRegMemory16:
		return segRegName(ii.Reg) + ", " + renderMemoryOperand(ii, ctx.Format)

	case inst.OperandsMemorySegReg:
		return renderMemoryOperand(ii, ctx.Format) + ", " + segRegName(ii.Reg)

	default:
		return ""
	}
}

func renderLabelOperand(ii inst.Instruction, ctx *inst.DecodingContext) string {
	target := ii.Offset + ii.ByteCount + int(ii.DataSigned8())
	idx, ok := ctx.Labels.Lookup(target)
	if !ok {
		return "(failed to decode label)"
	}
	return fmt.Sprintf("label_%d", idx)
}

func renderMemoryOperand(ii inst.Instruction, format inst.ImmFormat) string {
	if ii.Mod == inst.ModMemoryNoDisp && ii.Rm == 0b110 {
		return "[" + formatNumeric(ii.Disp, format) + "]"
	}
	base := eaBases[ii.Rm&0b111]
	var dispText string
	switch ii.Mod {
	case inst.ModMemory8BitDisp:
		if d := int(ii.DispSigned8()); d != 0 {
			dispText = signedOffsetText(d)
		}
	case inst.ModMemory16BitDisp:
		if d := int(int16(ii.Disp16())); d != 0 {
			dispText = signedOffsetText(d)
		}
	}
	return "[" + base + dispText + "]"
}

// renderAccMemAddress renders the absolute address a MOV memory↔accumulator
// instruction carries in its data bytes (these opcodes have no mod/rm field
// at all; the address is a 16-bit literal the decoder reads as the data
// field).
func renderAccMemAddress(ii inst.Instruction, format inst.ImmFormat) string {
	return "[" + formatNumeric(ii.Data, format) + "]"
}

func signedOffsetText(v int) string {
	if v < 0 {
		return fmt.Sprintf(" - %d", -v)
	}
	return fmt.Sprintf(" + %d", v)
}

// formatNumeric renders a little-endian byte pair per the immediate-format
// policy: unsigned and hex always combine both bytes; default/signed reads
// the pair as a signed 8-bit value when the high byte is zero, otherwise as
// a signed 16-bit value.
func formatNumeric(b [2]uint8, format inst.ImmFormat) string {
	combined := uint16(b[0]) | uint16(b[1])<<8
	switch format {
	case inst.ImmUnsigned:
		return fmt.Sprintf("%d", combined)
	case inst.ImmHex:
		return fmt.Sprintf("0x%04X", combined)
	default:
		if b[1] == 0 {
			return fmt.Sprintf("%d", int8(b[0]))
		}
		return fmt.Sprintf("%d", int16(combined))
	}
}
