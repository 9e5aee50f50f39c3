package interp

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oisee/asm8086/pkg/cpu"
	"github.com/oisee/asm8086/pkg/decode"
	"github.com/oisee/asm8086/pkg/inst"
)

func runProgram(t *testing.T, buf []byte) *cpu.State {
	t.Helper()
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := decode.Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := NewProgram(ctx.Instructions)
	s := cpu.NewState()
	if err := Run(s, p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return s
}

func TestRunEightImmediateLoads(t *testing.T) {
	buf := []byte{
		0xb8, 0x01, 0x00, 0xbb, 0x02, 0x00, 0xb9, 0x03, 0x00, 0xba, 0x04, 0x00,
		0xbc, 0x05, 0x00, 0xbd, 0x06, 0x00, 0xbe, 0x07, 0x00, 0xbf, 0x08, 0x00,
	}
	s := runProgram(t, buf)
	want := map[cpu.Reg]uint16{
		cpu.AX: 1, cpu.BX: 2, cpu.CX: 3, cpu.DX: 4,
		cpu.SP: 5, cpu.BP: 6, cpu.SI: 7, cpu.DI: 8,
	}
	for r, v := range want {
		if got := s.Reg16(r); got != v {
			t.Errorf("reg %v = %d, want %d", r, got, v)
		}
	}
	if int(s.Reg16(cpu.IP)) != len(buf) {
		t.Errorf("IP = %d, want %d", s.Reg16(cpu.IP), len(buf))
	}
}

func TestRunCarryAndSign(t *testing.T) {
	// mov al,0xff ; add al,1 -> carry + zero, no sign.
	buf := []byte{0xb0, 0xff, 0x04, 0x01}
	s := runProgram(t, buf)
	if s.RegByte(0) != 0 {
		t.Errorf("AL = %#x, want 0", s.RegByte(0))
	}
	if !s.GetFlag(cpu.FlagCarry) {
		t.Error("expected carry set")
	}
	if !s.GetFlag(cpu.FlagZero) {
		t.Error("expected zero set")
	}
	if s.GetFlag(cpu.FlagSign) {
		t.Error("expected sign clear")
	}
}

func TestRunJnzLoop(t *testing.T) {
	// mov cx,3 ; mov bx,1000 ; add bx,10 ; sub cx,1 ; jnz back-to-add
	buf := []byte{
		0xb9, 0x03, 0x00,
		0xbb, 0xe8, 0x03,
		0x83, 0xc3, 0x0a,
		0x83, 0xe9, 0x01,
		0x75, 0xf8,
	}
	s := runProgram(t, buf)
	if s.Reg16(cpu.CX) != 0 {
		t.Errorf("CX = %d, want 0", s.Reg16(cpu.CX))
	}
	if s.Reg16(cpu.BX) != 1000+30 {
		t.Errorf("BX = %d, want %d", s.Reg16(cpu.BX), 1030)
	}
}

func TestRunMemoryRoundTrip(t *testing.T) {
	// mov bx,100 ; mov word [bx+4],999 ; mov cx,[bx+4] ; add cx,1
	buf := []byte{
		0xbb, 0x64, 0x00,
		0xc7, 0x47, 0x04, 0xe7, 0x03,
		0x8b, 0x4f, 0x04,
		0x83, 0xc1, 0x01,
	}
	s := runProgram(t, buf)
	if s.ReadMemWord(104) != 999 {
		t.Errorf("mem[104] = %d, want 999", s.ReadMemWord(104))
	}
	if s.Reg16(cpu.CX) != 1000 {
		t.Errorf("CX = %d, want 1000", s.Reg16(cpu.CX))
	}
}

func TestUnsupportedAtRuntimeLeavesStateIntact(t *testing.T) {
	// mov ax,5 ; jl +2 (unimplemented at runtime)
	buf := []byte{0xb8, 0x05, 0x00, 0x7c, 0x02}
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := decode.Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := NewProgram(ctx.Instructions)
	s := cpu.NewState()
	err := Run(s, p)
	if err == nil {
		t.Fatal("expected UnsupportedAtRuntime")
	}
	ierr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *interp.Error", err)
	}
	if ierr.Kind != UnsupportedAtRuntime {
		t.Errorf("Kind = %v, want UnsupportedAtRuntime", ierr.Kind)
	}
	if s.Reg16(cpu.AX) != 5 {
		t.Errorf("AX = %d, want 5 (the mov before the failing jump must still have applied)", s.Reg16(cpu.AX))
	}
}

func TestRunCarrySignScenario(t *testing.T) {
	// bb 03 f0 b9 01 0f 29 cb bc e6 03 bd e7 03 39 e5 81 c5 03 04 81 ed ea 07
	buf := []byte{
		0xbb, 0x03, 0xf0,
		0xb9, 0x01, 0x0f,
		0x29, 0xcb,
		0xbc, 0xe6, 0x03,
		0xbd, 0xe7, 0x03,
		0x39, 0xe5,
		0x81, 0xc5, 0x03, 0x04,
		0x81, 0xed, 0xea, 0x07,
	}
	s := runProgram(t, buf)
	want := map[cpu.Reg]uint16{cpu.BX: 0xE102, cpu.CX: 0x0F01, cpu.SP: 0x03E6, cpu.BP: 0}
	got := map[cpu.Reg]uint16{cpu.BX: s.Reg16(cpu.BX), cpu.CX: s.Reg16(cpu.CX), cpu.SP: s.Reg16(cpu.SP), cpu.BP: s.Reg16(cpu.BP)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("registers after carry/sign scenario (-want +got):\n%s", diff)
	}
	if wantFlags := cpu.FlagParity | cpu.FlagZero; s.Reg16(cpu.FLAGS) != wantFlags {
		t.Errorf("FLAGS = %#04x, want %#04x", s.Reg16(cpu.FLAGS), wantFlags)
	}
}

func TestRunMemoryRoundTripScenario(t *testing.T) {
	// Writes words 1,2,3,4 at [1000],[1002],[1004],[1006], overwrites [1004]
	// via [bx+4] with bx=1000, then loads all four back into BX, CX, DX, BP.
	buf := []byte{
		0xc7, 0x06, 0xe8, 0x03, 0x01, 0x00, // mov word [1000], 1
		0xc7, 0x06, 0xea, 0x03, 0x02, 0x00, // mov word [1002], 2
		0xc7, 0x06, 0xec, 0x03, 0x03, 0x00, // mov word [1004], 3
		0xc7, 0x06, 0xee, 0x03, 0x04, 0x00, // mov word [1006], 4
		0xbb, 0xe8, 0x03, // mov bx, 1000
		0xc7, 0x47, 0x04, 0x0a, 0x00, // mov word [bx+4], 10
		0x8b, 0x1e, 0xe8, 0x03, // mov bx, [1000]
		0x8b, 0x0e, 0xea, 0x03, // mov cx, [1002]
		0x8b, 0x16, 0xec, 0x03, // mov dx, [1004]
		0x8b, 0x2e, 0xee, 0x03, // mov bp, [1006]
	}
	s := runProgram(t, buf)
	want := map[cpu.Reg]uint16{cpu.BX: 1, cpu.CX: 2, cpu.DX: 10, cpu.BP: 4}
	got := map[cpu.Reg]uint16{cpu.BX: s.Reg16(cpu.BX), cpu.CX: s.Reg16(cpu.CX), cpu.DX: s.Reg16(cpu.DX), cpu.BP: s.Reg16(cpu.BP)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("registers after memory round-trip scenario (-want +got):\n%s", diff)
	}
}

func TestRunComplicatedBranchesScenario(t *testing.T) {
	// mov ax,10 ; mov bx,10 ; mov cx,10
	// label_0: cmp bx,cx ; je label_1
	// add ax,1 ; jp label_2
	// label_1: sub bx,5 ; jb label_3
	// label_2: sub cx,2
	// label_3: loopnz label_0
	buf := []byte{
		0xb8, 0x0a, 0x00,
		0xbb, 0x0a, 0x00,
		0xb9, 0x0a, 0x00,
		0x39, 0xcb,
		0x74, 0x05,
		0x83, 0xc0, 0x01,
		0x7a, 0x05,
		0x83, 0xeb, 0x05,
		0x72, 0x03,
		0x83, 0xe9, 0x02,
		0xe0, 0xed,
	}
	s := runProgram(t, buf)
	want := map[cpu.Reg]uint16{cpu.AX: 0x000D, cpu.BX: 0xFFFB, cpu.CX: 0}
	got := map[cpu.Reg]uint16{cpu.AX: s.Reg16(cpu.AX), cpu.BX: s.Reg16(cpu.BX), cpu.CX: s.Reg16(cpu.CX)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("registers after complicated-branches scenario (-want +got):\n%s", diff)
	}
	if wantFlags := cpu.FlagCarry | cpu.FlagAuxCarry | cpu.FlagSign; s.Reg16(cpu.FLAGS) != wantFlags {
		t.Errorf("FLAGS = %#04x, want %#04x", s.Reg16(cpu.FLAGS), wantFlags)
	}
	if int(s.Reg16(cpu.IP)) != len(buf) {
		t.Errorf("IP = %d, want %d", s.Reg16(cpu.IP), len(buf))
	}
}

func TestRunDirectAddressMemoryOperand(t *testing.T) {
	// mov ax,1234 ; mov word [1000], ax ; mov cx, [1000] -- mod=00, rm=110,
	// the direct-address special case named in the glossary.
	buf := []byte{
		0xb8, 0xd2, 0x04,
		0x89, 0x06, 0xe8, 0x03,
		0x8b, 0x0e, 0xe8, 0x03,
	}
	s := runProgram(t, buf)
	if s.Reg16(cpu.CX) != 1234 {
		t.Errorf("CX = %d, want 1234", s.Reg16(cpu.CX))
	}
	if s.ReadMemWord(1000) != 1234 {
		t.Errorf("mem[1000] = %d, want 1234", s.ReadMemWord(1000))
	}
}

func TestMemoryOutOfRangeRejectsBadAddress(t *testing.T) {
	// mov bx,0 ; mov byte [bx-5],1 -- effective address is negative.
	buf := []byte{0xbb, 0x00, 0x00, 0xc6, 0x47, 0xfb, 0x01}
	ctx := inst.NewDecodingContext(inst.ImmDefault)
	if err := decode.Decode(buf, ctx); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := NewProgram(ctx.Instructions)
	s := cpu.NewState()
	err := Run(s, p)
	ierr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *interp.Error", err)
	}
	if ierr.Kind != MemoryOutOfRange {
		t.Errorf("Kind = %v, want MemoryOutOfRange", ierr.Kind)
	}
}
