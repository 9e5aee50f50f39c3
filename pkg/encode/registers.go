package encode

var byteRegNames = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var wordRegNames = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var segRegNames = [4]string{"es", "cs", "ss", "ds"}

// eaBases are the rm-indexed effective-address base expressions for the
// eight memory-mode rm encodings, in order.
var eaBases = [8]string{"bx + si", "bx + di", "bp + si", "bp + di", "si", "di", "bp", "bx"}

func registerName(idx uint8, word bool) string {
	if word {
		return wordRegNames[idx&0b111]
	}
	return byteRegNames[idx&0b111]
}

func segRegName(idx uint8) string {
	return segRegNames[idx&0b011]
}
