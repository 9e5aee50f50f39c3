package interp

import "github.com/oisee/asm8086/pkg/inst"

// Program is a decoded instruction stream plus the fetch map the
// interpreter's loop uses to turn IP into an instruction. The map is built
// once, up front, from the decoded list's cumulative byte lengths, rather
// than scanning the list on every fetch.
type Program struct {
	Instructions []inst.Instruction
	Length       int

	byOffset map[int]int
}

// NewProgram builds the offset→index fetch map for a decoded instruction
// list. The instructions must carry accurate Offset and ByteCount fields,
// as produced by pkg/decode.
func NewProgram(instructions []inst.Instruction) *Program {
	p := &Program{
		Instructions: instructions,
		byOffset:     make(map[int]int, len(instructions)),
	}
	for i, ii := range instructions {
		p.byOffset[ii.Offset] = i
		if end := ii.Offset + ii.ByteCount; end > p.Length {
			p.Length = end
		}
	}
	return p
}

// Fetch returns the instruction starting at byte offset ip, if any. Fetch
// fails (ok == false) once ip runs past the end of the decoded stream,
// which is how Run recognizes normal program termination.
func (p *Program) Fetch(ip uint16) (inst.Instruction, bool) {
	idx, ok := p.byOffset[int(ip)]
	if !ok {
		return inst.Instruction{}, false
	}
	return p.Instructions[idx], true
}
