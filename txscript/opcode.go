package txscript

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies a single script operation byte. Named constants follow
// the historical Bitcoin Script mnemonic set; unnamed/reserved bytes still
// get a symbolic name (OP_UNKNOWNxx) purely for disassembly.
type Opcode = byte

// Push opcodes. 0x01..0x4b push that many literal bytes; the PUSHDATAn
// family carries an explicit length prefix instead of encoding the length
// in the opcode value itself.
const (
	OP_0         Opcode = 0x00
	OP_FALSE     Opcode = 0x00
	OP_DATA_1    Opcode = 0x01
	OP_DATA_75   Opcode = 0x4b
	OP_PUSHDATA1 Opcode = 0x4c
	OP_PUSHDATA2 Opcode = 0x4d
	OP_PUSHDATA4 Opcode = 0x4e
	OP_1NEGATE   Opcode = 0x4f
	OP_RESERVED  Opcode = 0x50
	OP_1         Opcode = 0x51
	OP_TRUE      Opcode = 0x51
	OP_16        Opcode = 0x60
)

// Control-flow, stack, splice, bitwise, arithmetic, crypto and locktime
// opcodes, per spec.md §3's ScriptOperation taxonomy.
const (
	OP_NOP         Opcode = 0x61
	OP_VER         Opcode = 0x62
	OP_IF          Opcode = 0x63
	OP_NOTIF       Opcode = 0x64
	OP_VERIF       Opcode = 0x65
	OP_VERNOTIF    Opcode = 0x66
	OP_ELSE        Opcode = 0x67
	OP_ENDIF       Opcode = 0x68
	OP_VERIFY      Opcode = 0x69
	OP_RETURN      Opcode = 0x6a
	OP_TOALTSTACK   Opcode = 0x6b
	OP_FROMALTSTACK Opcode = 0x6c
	OP_2DROP        Opcode = 0x6d
	OP_2DUP         Opcode = 0x6e
	OP_3DUP         Opcode = 0x6f
	OP_2OVER        Opcode = 0x70
	OP_2ROT         Opcode = 0x71
	OP_2SWAP        Opcode = 0x72
	OP_IFDUP        Opcode = 0x73
	OP_DEPTH        Opcode = 0x74
	OP_DROP         Opcode = 0x75
	OP_DUP          Opcode = 0x76
	OP_NIP          Opcode = 0x77
	OP_OVER         Opcode = 0x78
	OP_PICK         Opcode = 0x79
	OP_ROLL         Opcode = 0x7a
	OP_ROT          Opcode = 0x7b
	OP_SWAP         Opcode = 0x7c
	OP_TUCK         Opcode = 0x7d
	OP_CAT          Opcode = 0x7e
	OP_SUBSTR       Opcode = 0x7f
	OP_LEFT         Opcode = 0x80
	OP_RIGHT        Opcode = 0x81
	OP_SIZE         Opcode = 0x82
	OP_INVERT       Opcode = 0x83
	OP_AND          Opcode = 0x84
	OP_OR           Opcode = 0x85
	OP_XOR          Opcode = 0x86
	OP_EQUAL        Opcode = 0x87
	OP_EQUALVERIFY  Opcode = 0x88
	OP_RESERVED1    Opcode = 0x89
	OP_RESERVED2    Opcode = 0x8a
	OP_1ADD         Opcode = 0x8b
	OP_1SUB         Opcode = 0x8c
	OP_2MUL         Opcode = 0x8d
	OP_2DIV         Opcode = 0x8e
	OP_NEGATE       Opcode = 0x8f
	OP_ABS          Opcode = 0x90
	OP_NOT          Opcode = 0x91
	OP_0NOTEQUAL    Opcode = 0x92
	OP_ADD          Opcode = 0x93
	OP_SUB          Opcode = 0x94
	OP_MUL          Opcode = 0x95
	OP_DIV          Opcode = 0x96
	OP_MOD          Opcode = 0x97
	OP_LSHIFT       Opcode = 0x98
	OP_RSHIFT       Opcode = 0x99
	OP_BOOLAND      Opcode = 0x9a
	OP_BOOLOR       Opcode = 0x9b
	OP_NUMEQUAL     Opcode = 0x9c
	OP_NUMEQUALVERIFY    Opcode = 0x9d
	OP_NUMNOTEQUAL       Opcode = 0x9e
	OP_LESSTHAN          Opcode = 0x9f
	OP_GREATERTHAN       Opcode = 0xa0
	OP_LESSTHANOREQUAL   Opcode = 0xa1
	OP_GREATERTHANOREQUAL Opcode = 0xa2
	OP_MIN               Opcode = 0xa3
	OP_MAX               Opcode = 0xa4
	OP_WITHIN            Opcode = 0xa5
	OP_RIPEMD160         Opcode = 0xa6
	OP_SHA1              Opcode = 0xa7
	OP_SHA256            Opcode = 0xa8
	OP_HASH160           Opcode = 0xa9
	OP_HASH256           Opcode = 0xaa
	OP_CODESEPARATOR     Opcode = 0xab
	OP_CHECKSIG          Opcode = 0xac
	OP_CHECKSIGVERIFY    Opcode = 0xad
	OP_CHECKMULTISIG     Opcode = 0xae
	OP_CHECKMULTISIGVERIFY Opcode = 0xaf
	OP_NOP1              Opcode = 0xb0
	OP_CHECKLOCKTIMEVERIFY Opcode = 0xb1
	OP_NOP2                Opcode = 0xb1
	OP_CHECKSEQUENCEVERIFY Opcode = 0xb2
	OP_NOP3                Opcode = 0xb2
	OP_NOP4                Opcode = 0xb3
	OP_NOP5                Opcode = 0xb4
	OP_NOP6                Opcode = 0xb5
	OP_NOP7                Opcode = 0xb6
	OP_NOP8                Opcode = 0xb7
	OP_NOP9                Opcode = 0xb8
	OP_NOP10               Opcode = 0xb9
	OP_CHECKSIGADD          Opcode = 0xba
	OP_INVALIDOPCODE        Opcode = 0xff
)

// opcodeInfo is a static, immutable description of one opcode: its byte
// value, disassembly name, and its push-length descriptor. length has the
// btcd-style meaning: 1 means "no payload" (a bare opcode); a positive N>1
// means "N-1 literal payload bytes follow"; -1/-2/-4 mean "the next 1, 2 or
// 4 little-endian bytes are the payload length" (PUSHDATA1/2/4).
type opcodeInfo struct {
	value  Opcode
	name   string
	length int
}

var opcodeArray [256]opcodeInfo

func init() {
	for i := 0; i < 256; i++ {
		opcodeArray[i] = opcodeInfo{value: Opcode(i), name: fmt.Sprintf("OP_UNKNOWN%d", i), length: 1}
	}

	// Direct-push opcodes 0x01..0x4b: length = value + 1 (opcode byte +
	// that many payload bytes).
	for i := OP_DATA_1; i <= OP_DATA_75; i++ {
		opcodeArray[i] = opcodeInfo{value: i, name: fmt.Sprintf("OP_DATA_%d", i), length: int(i) + 1}
	}

	set := func(op Opcode, name string, length int) {
		opcodeArray[op] = opcodeInfo{value: op, name: name, length: length}
	}

	set(OP_0, "OP_0", 1)
	set(OP_PUSHDATA1, "OP_PUSHDATA1", -1)
	set(OP_PUSHDATA2, "OP_PUSHDATA2", -2)
	set(OP_PUSHDATA4, "OP_PUSHDATA4", -4)
	set(OP_1NEGATE, "OP_1NEGATE", 1)
	set(OP_RESERVED, "OP_RESERVED", 1)
	for i := 0; i <= 16; i++ {
		set(Opcode(int(OP_1)+i), fmt.Sprintf("OP_%d", i+1), 1)
	}

	set(OP_NOP, "OP_NOP", 1)
	set(OP_VER, "OP_VER", 1)
	set(OP_IF, "OP_IF", 1)
	set(OP_NOTIF, "OP_NOTIF", 1)
	set(OP_VERIF, "OP_VERIF", 1)
	set(OP_VERNOTIF, "OP_VERNOTIF", 1)
	set(OP_ELSE, "OP_ELSE", 1)
	set(OP_ENDIF, "OP_ENDIF", 1)
	set(OP_VERIFY, "OP_VERIFY", 1)
	set(OP_RETURN, "OP_RETURN", 1)
	set(OP_TOALTSTACK, "OP_TOALTSTACK", 1)
	set(OP_FROMALTSTACK, "OP_FROMALTSTACK", 1)
	set(OP_2DROP, "OP_2DROP", 1)
	set(OP_2DUP, "OP_2DUP", 1)
	set(OP_3DUP, "OP_3DUP", 1)
	set(OP_2OVER, "OP_2OVER", 1)
	set(OP_2ROT, "OP_2ROT", 1)
	set(OP_2SWAP, "OP_2SWAP", 1)
	set(OP_IFDUP, "OP_IFDUP", 1)
	set(OP_DEPTH, "OP_DEPTH", 1)
	set(OP_DROP, "OP_DROP", 1)
	set(OP_DUP, "OP_DUP", 1)
	set(OP_NIP, "OP_NIP", 1)
	set(OP_OVER, "OP_OVER", 1)
	set(OP_PICK, "OP_PICK", 1)
	set(OP_ROLL, "OP_ROLL", 1)
	set(OP_ROT, "OP_ROT", 1)
	set(OP_SWAP, "OP_SWAP", 1)
	set(OP_TUCK, "OP_TUCK", 1)
	set(OP_CAT, "OP_CAT", 1)
	set(OP_SUBSTR, "OP_SUBSTR", 1)
	set(OP_LEFT, "OP_LEFT", 1)
	set(OP_RIGHT, "OP_RIGHT", 1)
	set(OP_SIZE, "OP_SIZE", 1)
	set(OP_INVERT, "OP_INVERT", 1)
	set(OP_AND, "OP_AND", 1)
	set(OP_OR, "OP_OR", 1)
	set(OP_XOR, "OP_XOR", 1)
	set(OP_EQUAL, "OP_EQUAL", 1)
	set(OP_EQUALVERIFY, "OP_EQUALVERIFY", 1)
	set(OP_RESERVED1, "OP_RESERVED1", 1)
	set(OP_RESERVED2, "OP_RESERVED2", 1)
	set(OP_1ADD, "OP_1ADD", 1)
	set(OP_1SUB, "OP_1SUB", 1)
	set(OP_2MUL, "OP_2MUL", 1)
	set(OP_2DIV, "OP_2DIV", 1)
	set(OP_NEGATE, "OP_NEGATE", 1)
	set(OP_ABS, "OP_ABS", 1)
	set(OP_NOT, "OP_NOT", 1)
	set(OP_0NOTEQUAL, "OP_0NOTEQUAL", 1)
	set(OP_ADD, "OP_ADD", 1)
	set(OP_SUB, "OP_SUB", 1)
	set(OP_MUL, "OP_MUL", 1)
	set(OP_DIV, "OP_DIV", 1)
	set(OP_MOD, "OP_MOD", 1)
	set(OP_LSHIFT, "OP_LSHIFT", 1)
	set(OP_RSHIFT, "OP_RSHIFT", 1)
	set(OP_BOOLAND, "OP_BOOLAND", 1)
	set(OP_BOOLOR, "OP_BOOLOR", 1)
	set(OP_NUMEQUAL, "OP_NUMEQUAL", 1)
	set(OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 1)
	set(OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 1)
	set(OP_LESSTHAN, "OP_LESSTHAN", 1)
	set(OP_GREATERTHAN, "OP_GREATERTHAN", 1)
	set(OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 1)
	set(OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 1)
	set(OP_MIN, "OP_MIN", 1)
	set(OP_MAX, "OP_MAX", 1)
	set(OP_WITHIN, "OP_WITHIN", 1)
	set(OP_RIPEMD160, "OP_RIPEMD160", 1)
	set(OP_SHA1, "OP_SHA1", 1)
	set(OP_SHA256, "OP_SHA256", 1)
	set(OP_HASH160, "OP_HASH160", 1)
	set(OP_HASH256, "OP_HASH256", 1)
	set(OP_CODESEPARATOR, "OP_CODESEPARATOR", 1)
	set(OP_CHECKSIG, "OP_CHECKSIG", 1)
	set(OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 1)
	set(OP_CHECKMULTISIG, "OP_CHECKMULTISIG", 1)
	set(OP_CHECKMULTISIGVERIFY, "OP_CHECKMULTISIGVERIFY", 1)
	set(OP_NOP1, "OP_NOP1", 1)
	set(OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY", 1)
	set(OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY", 1)
	set(OP_NOP4, "OP_NOP4", 1)
	set(OP_NOP5, "OP_NOP5", 1)
	set(OP_NOP6, "OP_NOP6", 1)
	set(OP_NOP7, "OP_NOP7", 1)
	set(OP_NOP8, "OP_NOP8", 1)
	set(OP_NOP9, "OP_NOP9", 1)
	set(OP_NOP10, "OP_NOP10", 1)
	set(OP_CHECKSIGADD, "OP_CHECKSIGADD", 1)
}

// ParsedOpcode is the decoded ScriptOperation of spec.md §3: an opcode
// descriptor paired with its literal payload, if any.
type ParsedOpcode struct {
	info opcodeInfo
	Data []byte
}

// Opcode returns the raw opcode byte.
func (p ParsedOpcode) Opcode() Opcode { return p.info.value }

// Name returns the disassembly mnemonic for this opcode.
func (p ParsedOpcode) Name() string { return p.info.name }

// isPush reports whether this operation is a push-constant or push-bytes
// operation, per spec.md §3's ScriptOperation taxonomy.
func (p ParsedOpcode) isPush() bool {
	return p.info.value <= OP_16 && p.info.value != OP_RESERVED
}

// bytes returns the exact byte-for-byte encoding of a decoded operation,
// re-emitting its original opcode (not necessarily the smallest one), as
// needed for FindAndDelete's exact-match comparison (spec.md §9).
func (p ParsedOpcode) bytes() ([]byte, error) {
	var retbytes []byte
	if p.info.length > 0 {
		retbytes = make([]byte, 1, p.info.length)
	} else {
		retbytes = make([]byte, 1, 1+len(p.Data)+
			-p.info.length)
	}

	retbytes[0] = p.info.value
	if p.info.length == 1 {
		if len(p.Data) != 0 {
			return nil, scriptErrorf(ErrInvalidOperation,
				"internal consistency error: opcode %s has data %x", p.info.name, p.Data)
		}
		return retbytes, nil
	}
	nbytes := p.info.length
	if p.info.length < 0 {
		l := len(p.Data)
		switch p.info.length {
		case -1:
			retbytes = append(retbytes, byte(l))
			nbytes = int(l) + 1
		case -2:
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], uint16(l))
			retbytes = append(retbytes, buf[:]...)
			nbytes = int(l) + 2
		case -4:
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(l))
			retbytes = append(retbytes, buf[:]...)
			nbytes = int(l) + 4
		}
	}

	retbytes = append(retbytes, p.Data...)

	if len(retbytes) != nbytes {
		return nil, scriptErrorf(ErrInvalidOperation,
			"internal consistency error - parsed opcode %s has "+
				"length %d but should have %d", p.info.name, len(retbytes), nbytes)
	}

	return retbytes, nil
}

// parseScript decodes raw into its operation list. It fails with
// ErrInvalidOperation ("badOpcode") if a push's payload is truncated, or
// ErrPushSizeExceeded if a push exceeds MaxScriptElementSize under a
// non-legacy version. For legacy scripts, no per-push size cap is applied
// here (spec.md §4.1); MaxScriptSize still bounds the whole script.
func parseScript(raw []byte, version ScriptVersion) ([]ParsedOpcode, error) {
	if version != ScriptVersionTapscript && len(raw) > MaxScriptSize {
		return nil, scriptErrorf(ErrScriptSizeExceeded,
			"script size %d exceeds max allowed %d", len(raw), MaxScriptSize)
	}

	var ops []ParsedOpcode
	for i := 0; i < len(raw); {
		info := opcodeArray[raw[i]]
		op := ParsedOpcode{info: info}

		switch {
		case info.length == 1:
			i++

		case info.length > 1:
			if i+info.length > len(raw) {
				return nil, scriptErrorf(ErrInvalidOperation,
					"opcode %s requires %d bytes, only %d remain",
					info.name, info.length, len(raw)-i)
			}
			op.Data = raw[i+1 : i+info.length]
			i += info.length

		case info.length < 0:
			off := i + 1
			var l int
			switch info.length {
			case -1:
				if off+1 > len(raw) {
					return nil, scriptErrorf(ErrInvalidOperation,
						"opcode %s requires 1 byte length prefix", info.name)
				}
				l = int(raw[off])
				off++
			case -2:
				if off+2 > len(raw) {
					return nil, scriptErrorf(ErrInvalidOperation,
						"opcode %s requires 2 byte length prefix", info.name)
				}
				l = int(binary.LittleEndian.Uint16(raw[off : off+2]))
				off += 2
			case -4:
				if off+4 > len(raw) {
					return nil, scriptErrorf(ErrInvalidOperation,
						"opcode %s requires 4 byte length prefix", info.name)
				}
				l = int(binary.LittleEndian.Uint32(raw[off : off+4]))
				off += 4
			}

			if version != ScriptVersionBase && l > MaxScriptElementSize {
				return nil, scriptErrorf(ErrPushSizeExceeded,
					"push of %d bytes exceeds max allowed %d", l, MaxScriptElementSize)
			}
			if off+l > len(raw) {
				return nil, scriptErrorf(ErrInvalidOperation,
					"opcode %s payload of %d bytes truncated", info.name, l)
			}
			op.Data = raw[off : off+l]
			i = off + l
		}

		ops = append(ops, op)
	}

	return ops, nil
}

// unparseScript is the inverse of parseScript: it re-serializes a decoded
// operation list back into raw bytes, used both to validate the
// decode/encode round-trip property (spec.md §8) and to reconstruct a
// scriptCode after FindAndDelete.
func unparseScript(ops []ParsedOpcode) ([]byte, error) {
	var script []byte
	for _, op := range ops {
		b, err := op.bytes()
		if err != nil {
			return nil, err
		}
		script = append(script, b...)
	}
	return script, nil
}

// canonicalPush reports whether op uses the smallest possible encoding for
// its payload, the requirement ScriptVerifyMinimalData enforces (spec.md
// §4.1).
func canonicalPush(op ParsedOpcode) bool {
	opcode := op.info.value
	data := op.Data

	if opcode > OP_16 {
		return true
	}

	switch {
	case opcode == OP_0 && len(data) != 0:
		return false
	case opcode < OP_DATA_1 && opcode != OP_0:
		return true
	case opcode >= OP_DATA_1 && opcode <= OP_DATA_75:
		return int(opcode) == len(data)+0 && dataMatchesDirectPush(opcode, data)
	case opcode == OP_PUSHDATA1:
		return len(data) >= OP_PUSHDATA1AsInt
	case opcode == OP_PUSHDATA2:
		return len(data) > 0xff
	case opcode == OP_PUSHDATA4:
		return len(data) > 0xffff
	}
	return true
}

// OP_PUSHDATA1AsInt is the smallest length for which OP_PUSHDATA1 is the
// minimal encoding (76 bytes; below that a direct push suffices).
const OP_PUSHDATA1AsInt = 76

func dataMatchesDirectPush(opcode Opcode, data []byte) bool {
	// A direct-push opcode OP_DATA_N always declares exactly N payload
	// bytes; parseScript guarantees len(data) == N already, so this is a
	// minimality check against the *smaller* encodings: OP_0, the small
	// integers, and OP_1NEGATE.
	if len(data) == 0 {
		return false // should have used OP_0
	}
	if len(data) == 1 {
		if data[0] >= 1 && data[0] <= 16 {
			return false // should have used OP_1..OP_16
		}
		if data[0] == 0x81 {
			return false // should have used OP_1NEGATE
		}
	}
	return int(opcode) == len(data)
}

// minimalDataPush builds the canonical, smallest encoding for pushing
// data, per spec.md §4.1's exact rule set.
func minimalDataPush(data []byte) []byte {
	switch {
	case len(data) == 0:
		return []byte{OP_0}
	case len(data) == 1 && data[0] >= 1 && data[0] <= 16:
		return []byte{OP_1 + data[0] - 1}
	case len(data) == 1 && data[0] == 0x81:
		return []byte{OP_1NEGATE}
	case len(data) <= int(OP_DATA_75):
		return append([]byte{byte(len(data))}, data...)
	case len(data) < OP_PUSHDATA1AsInt:
		return append([]byte{byte(len(data))}, data...)
	case len(data) <= 0xff:
		return append([]byte{OP_PUSHDATA1, byte(len(data))}, data...)
	case len(data) <= 0xffff:
		buf := make([]byte, 3, 3+len(data))
		buf[0] = OP_PUSHDATA2
		binary.LittleEndian.PutUint16(buf[1:], uint16(len(data)))
		return append(buf, data...)
	default:
		buf := make([]byte, 5, 5+len(data))
		buf[0] = OP_PUSHDATA4
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(data)))
		return append(buf, data...)
	}
}
