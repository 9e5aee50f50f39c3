// Package interp implements the fetch/dispatch interpreter: component 4.5
// of the system design. It fetches instructions from a precomputed
// byte-offset→index map (replacing the reference implementation's
// documented linear scan — a performance change, not a semantic one),
// resolves operands per the instruction's operand flavor, and executes
// MOV/ADD/SUB/CMP and the six implemented jump/loop conditions.
package interp

import "fmt"

// Kind identifies which of the interpreter's error conditions occurred.
type Kind uint8

const (
	MemoryOutOfRange Kind = iota
	UnsupportedAtRuntime
)

func (k Kind) String() string {
	switch k {
	case MemoryOutOfRange:
		return "MemoryOutOfRange"
	case UnsupportedAtRuntime:
		return "UnsupportedAtRuntime"
	default:
		return "UnknownInterpError"
	}
}

// Error reports an interpreter failure: the instruction's start offset
// (which doubles as the IP at the time of failure) and a human-readable
// detail. All side effects already applied before the failing instruction
// remain valid for inspection; the interpreter does not roll them back.
type Error struct {
	Kind   Kind
	Offset int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("interp: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}
