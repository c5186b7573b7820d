package txscript

// defaultScriptNumLen is the maximum encoded length, in bytes, of a
// script number used by ordinary arithmetic opcodes. CHECKLOCKTIMEVERIFY
// and CHECKSEQUENCEVERIFY widen this to 5 (spec.md §4.2), since Unix
// timestamps and block heights can exceed the 4-byte signed range that
// covers every other opcode's operands.
const defaultScriptNumLen = 4

// scriptNum is a decoded script-encoded integer: sign-magnitude,
// little-endian, minimally sized. Zero is represented by the empty byte
// string (spec.md §6).
type scriptNum int64

// makeScriptNum decodes b into a scriptNum. numLen bounds the maximum
// encoded length in bytes (4 for ordinary opcodes, 5 for
// CLTV/CSV comparisons). If requireMinimal is true, encodings using more
// bytes than necessary, or a redundant sign byte, are rejected with
// ErrMinimalDataRequired — this is spec.md §6's "decode rejects
// non-minimal encodings when minimalPush is active".
func makeScriptNum(b []byte, requireMinimal bool, numLen int) (scriptNum, error) {
	if len(b) > numLen {
		return 0, scriptErrorf(ErrNumericOverflow,
			"numeric value encoded as %d bytes exceeds max of %d bytes", len(b), numLen)
	}

	if requireMinimal && len(b) > 0 {
		// The most significant byte, ignoring the sign bit, must be
		// nonzero unless a second byte is needed purely to hold the
		// sign bit (i.e. the top bit of the second-to-top byte is
		// already set).
		if b[len(b)-1]&0x7f == 0 {
			if len(b) == 1 || b[len(b)-2]&0x80 == 0 {
				return 0, scriptError(ErrMinimalDataRequired,
					"numeric value is not minimally encoded")
			}
		}
	}

	if len(b) == 0 {
		return 0, nil
	}

	var result int64
	for i, bt := range b {
		result |= int64(bt) << uint8(8*i)
	}

	// The top bit of the most significant byte is the sign bit.
	if b[len(b)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(b)-1)))
		return scriptNum(-result), nil
	}

	return scriptNum(result), nil
}

// Bytes encodes n back into sign-magnitude little-endian form, the
// inverse of makeScriptNum; zero encodes as the empty slice.
func (n scriptNum) Bytes() []byte {
	return scriptNumBytes(int64(n))
}

func scriptNumBytes(n int64) []byte {
	if n == 0 {
		return nil
	}

	negative := n < 0
	absoluteVal := n
	if negative {
		absoluteVal = -n
	}

	var result []byte
	for absoluteVal > 0 {
		result = append(result, byte(absoluteVal&0xff))
		absoluteVal >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// Int32 clamps n to the int32 range, matching consensus's treatment of
// out-of-range comparisons as simply "very large" rather than an error at
// this layer (the 4/5-byte length check in makeScriptNum is what actually
// enforces the numeric range).
func (n scriptNum) Int32() int32 {
	if n > scriptNum(1<<31-1) {
		return 1<<31 - 1
	}
	if n < scriptNum(-int64(1<<31)) {
		return -(1 << 31)
	}
	return int32(n)
}

func (n scriptNum) Int64() int64 { return int64(n) }

func (n scriptNum) Bool() bool {
	if n == 0 {
		return false
	}
	// Negative zero (any all-zero-but-sign-bit encoding) also evaluates
	// false; makeScriptNum already folds that into n == 0, so a
	// zero-valued scriptNum can never be "negative zero" here. This
	// mirrors consensus: only the raw stack-element check needs the
	// negative-zero special case (see asBool in stack.go), because a
	// scriptNum has already normalized it away.
	return true
}
