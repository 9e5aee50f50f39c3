package decode

import (
	"testing"

	"github.com/oisee/asm8086/pkg/inst"
)

func TestDecodeMovCxBx(t *testing.T) {
	buf := []byte{0x89, 0xD9}
	ii, err := DecodeOne(buf, 0)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if ii.Opcode != inst.OpMovRegOrMemToFromReg {
		t.Errorf("Opcode = %v, want OpMovRegOrMemToFromReg", ii.Opcode)
	}
	if ii.D != inst.BitZero {
		t.Errorf("D = %v, want 0", ii.D)
	}
	if ii.W != inst.BitOne {
		t.Errorf("W = %v, want 1", ii.W)
	}
	if ii.Mod != inst.ModRegisterToRegister {
		t.Errorf("Mod = %v, want register-to-register", ii.Mod)
	}
	if ii.Reg != 0b011 {
		t.Errorf("Reg = %03b, want 011", ii.Reg)
	}
	if ii.Rm != 0b001 {
		t.Errorf("Rm = %03b, want 001", ii.Rm)
	}
	if ii.Type != inst.TypeMov {
		t.Errorf("Type = %v, want Mov", ii.Type)
	}
	if ii.Operands != inst.OperandsRegisterRegister {
		t.Errorf("Operands = %v, want RegisterRegister", ii.Operands)
	}
	if ii.ByteCount != 2 {
		t.Errorf("ByteCount = %d, want 2", ii.ByteCount)
	}
}

func TestDecodeEightImmediateLoads(t *testing.T) {
	buf := []byte{
		0xb8, 0x01, 0x00, 0xbb, 0x02, 0x00, 0xb9, 0x03, 0x00, 0xba, 0x04, 0x00,
		0xbc, 0x05, 0x00, 0xbd, 0x06, 0x00, 0xbe, 0x07, 0x00, 0xbf, 0x08, 0x00,
	}
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ctx.Instructions) != 8 {
		t.Fatalf("got %d instructions, want 8", len(ctx.Instructions))
	}
	total := 0
	for _, ii := range ctx.Instructions {
		if ii.Type != inst.TypeMov || ii.Operands != inst.OperandsRegisterImmediate {
			t.Errorf("instruction at %d: Type=%v Operands=%v", ii.Offset, ii.Type, ii.Operands)
		}
		total += ii.ByteCount
	}
	if total != len(buf) {
		t.Errorf("sum of byteCount = %d, want %d", total, len(buf))
	}
}

func TestClassifyUnsupportedOpcode(t *testing.T) {
	_, err := DecodeOne([]byte{0xF4}, 0) // HLT, not in the supported set
	if err == nil {
		t.Fatal("expected an error for an unsupported opcode byte")
	}
	derr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *decode.Error", err)
	}
	if derr.Kind != UnsupportedOpcode {
		t.Errorf("Kind = %v, want UnsupportedOpcode", derr.Kind)
	}
}

func TestBadArithmeticSubopcode(t *testing.T) {
	// 0x83 = IMM_TO_FROM_REG_OR_MEM, s=1 w=1; mod=11 reg=010 (not 000/101/111) rm=000.
	buf := []byte{0x83, 0b11010000, 0x01}
	_, err := DecodeOne(buf, 0)
	if err == nil {
		t.Fatal("expected BadArithmeticSubopcode")
	}
	derr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *decode.Error", err)
	}
	if derr.Kind != BadArithmeticSubopcode {
		t.Errorf("Kind = %v, want BadArithmeticSubopcode", derr.Kind)
	}
}

func TestTruncatedInstruction(t *testing.T) {
	// MOV reg/mem to/from reg, but the second byte is missing entirely.
	_, err := DecodeOne([]byte{0x89}, 0)
	if err == nil {
		t.Fatal("expected TruncatedInstruction")
	}
	derr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *decode.Error", err)
	}
	if derr.Kind != TruncatedInstruction {
		t.Errorf("Kind = %v, want TruncatedInstruction", derr.Kind)
	}
}

func TestDecodeDirectAddressOperand(t *testing.T) {
	// mov word [1000], ax (d=0, dest=memory) ; mov cx, [1000] (d=1, dest=reg).
	// mod=00, rm=110 is the direct-address special case: it reads a 16-bit
	// displacement even though mod itself signals "no displacement".
	buf := []byte{
		0x89, 0x06, 0xe8, 0x03,
		0x8b, 0x0e, 0xe8, 0x03,
	}
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ctx.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(ctx.Instructions))
	}

	storeIns := ctx.Instructions[0]
	if storeIns.Mod != inst.ModMemoryNoDisp || storeIns.Rm != 0b110 {
		t.Errorf("store: Mod=%v Rm=%03b, want ModMemoryNoDisp/110", storeIns.Mod, storeIns.Rm)
	}
	if storeIns.Disp != [2]uint8{0xe8, 0x03} {
		t.Errorf("store: Disp = %v, want [0xe8 0x03]", storeIns.Disp)
	}
	if storeIns.Operands != inst.OperandsRegisterMemory {
		t.Errorf("store: Operands = %v, want RegisterMemory (d=0, dest=memory)", storeIns.Operands)
	}
	if storeIns.ByteCount != 4 {
		t.Errorf("store: ByteCount = %d, want 4", storeIns.ByteCount)
	}

	loadIns := ctx.Instructions[1]
	if loadIns.Mod != inst.ModMemoryNoDisp || loadIns.Rm != 0b110 {
		t.Errorf("load: Mod=%v Rm=%03b, want ModMemoryNoDisp/110", loadIns.Mod, loadIns.Rm)
	}
	if loadIns.Disp != [2]uint8{0xe8, 0x03} {
		t.Errorf("load: Disp = %v, want [0xe8 0x03]", loadIns.Disp)
	}
	if loadIns.Operands != inst.OperandsMemoryRegister {
		t.Errorf("load: Operands = %v, want MemoryRegister (d=1, dest=register)", loadIns.Operands)
	}
	if loadIns.ByteCount != 4 {
		t.Errorf("load: ByteCount = %d, want 4", loadIns.ByteCount)
	}
}

func TestJumpLabelSynthesis(t *testing.T) {
	// b9 03 00 (mov cx,3) ; bb e8 03 (mov bx,0x03e8) ; 83 c3 0a (add bx,10)
	// 83 e9 01 (sub cx,1) ; 75 f8 (jnz back to the add)
	buf := []byte{
		0xb9, 0x03, 0x00,
		0xbb, 0xe8, 0x03,
		0x83, 0xc3, 0x0a,
		0x83, 0xe9, 0x01,
		0x75, 0xf8,
	}
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ctx.Labels.Len() != 1 {
		t.Fatalf("Labels.Len() = %d, want 1", ctx.Labels.Len())
	}
	idx, ok := ctx.Labels.Lookup(6) // offset of the "add bx,10" instruction
	if !ok || idx != 0 {
		t.Errorf("Lookup(6) = (%d,%v), want (0,true)", idx, ok)
	}
}
