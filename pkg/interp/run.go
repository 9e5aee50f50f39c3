package interp

import "github.com/oisee/asm8086/pkg/cpu"

// Run drives s through p starting at the current IP, one instruction at a
// time, until Fetch can no longer resolve IP to an instruction (normal
// termination, which happens once IP reaches the end of the decoded
// stream) or an instruction reports an error. On error, every side effect
// of instructions executed before the failing one remains applied.
func Run(s *cpu.State, p *Program) error {
	for {
		ii, ok := p.Fetch(s.Reg16(cpu.IP))
		if !ok {
			return nil
		}
		delta, err := step(s, ii)
		if err != nil {
			return err
		}
		s.SetReg16(cpu.IP, uint16(int(s.Reg16(cpu.IP))+ii.ByteCount+delta))
	}
}

// Step executes exactly one instruction at the current IP and advances it,
// for callers that want single-stepping (e.g. a verbose trace) rather than
// running to completion. It reports ok=false at normal termination, the
// same condition Run treats as a clean stop.
func Step(s *cpu.State, p *Program) (ok bool, err error) {
	ii, found := p.Fetch(s.Reg16(cpu.IP))
	if !found {
		return false, nil
	}
	delta, err := step(s, ii)
	if err != nil {
		return false, err
	}
	s.SetReg16(cpu.IP, uint16(int(s.Reg16(cpu.IP))+ii.ByteCount+delta))
	return true, nil
}
