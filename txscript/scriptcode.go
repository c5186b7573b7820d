package txscript

import "bytes"

// parsePartial decodes as much of raw as it validly can and returns the
// decoded prefix plus whatever undecodable suffix remains, instead of
// failing outright. It exists solely for legacy scriptCode construction
// (spec.md §9's open question): consensus's historical FindAndDelete
// operates on a script that may not be fully decodable (e.g. a dangling
// PUSHDATA with a truncated payload declared inside a P2SH redeem script
// nobody ever intended to execute that far), and the documented, tested
// behavior is to leave that suffix untouched rather than reject or guess.
func parsePartial(raw []byte, version ScriptVersion) (ops []ParsedOpcode, tail []byte) {
	i := 0
	for i < len(raw) {
		info := opcodeArray[raw[i]]
		op := ParsedOpcode{info: info}

		switch {
		case info.length == 1:
			ops = append(ops, op)
			i++
			continue

		case info.length > 1:
			if i+info.length > len(raw) {
				return ops, raw[i:]
			}
			op.Data = raw[i+1 : i+info.length]
			ops = append(ops, op)
			i += info.length
			continue

		case info.length < 0:
			off := i + 1
			var l int
			switch info.length {
			case -1:
				if off+1 > len(raw) {
					return ops, raw[i:]
				}
				l = int(raw[off])
				off++
			case -2:
				if off+2 > len(raw) {
					return ops, raw[i:]
				}
				l = int(raw[off]) | int(raw[off+1])<<8
				off += 2
			case -4:
				if off+4 > len(raw) {
					return ops, raw[i:]
				}
				l = int(raw[off]) | int(raw[off+1])<<8 | int(raw[off+2])<<16 | int(raw[off+3])<<24
				off += 4
			}
			if version != ScriptVersionBase && l > MaxScriptElementSize {
				return ops, raw[i:]
			}
			if off+l > len(raw) {
				return ops, raw[i:]
			}
			op.Data = raw[off : off+l]
			ops = append(ops, op)
			i = off + l
		}
	}
	return ops, nil
}

// findAndDeleteSig removes every push in ops whose payload is an exact
// byte-for-byte match for sig. Exact-match on decoded push payloads, not a
// substring search over raw bytes, per spec.md §9 (a substring match is
// both wrong and was historically exploitable).
func findAndDeleteSig(ops []ParsedOpcode, sig []byte) []ParsedOpcode {
	if len(sig) == 0 {
		return ops
	}
	out := make([]ParsedOpcode, 0, len(ops))
	for _, op := range ops {
		if op.isPush() && bytes.Equal(op.Data, sig) {
			continue
		}
		out = append(out, op)
	}
	return out
}

// containsSig reports whether any push in ops exactly matches sig, used to
// enforce ScriptVerifyConstantScriptCode (spec.md §4.2: "if a signature is
// ever found in the scriptCode the script fails instead of silently
// removing").
func containsSig(ops []ParsedOpcode, sig []byte) bool {
	if len(sig) == 0 {
		return false
	}
	for _, op := range ops {
		if op.isPush() && bytes.Equal(op.Data, sig) {
			return true
		}
	}
	return false
}

// buildScriptCode constructs the scriptCode a CHECKSIG/CHECKMULTISIG in a
// legacy or witness-v0 script signs over: the current script's bytes from
// one past the last executed OP_CODESEPARATOR onward (codeSepOffset == 0
// if none was executed), with sig's occurrences removed unless
// constantScriptCode is active, in which case any occurrence is a hard
// failure (spec.md §4.2).
func buildScriptCode(fullScript []byte, codeSepOffset int, sig []byte, version ScriptVersion, constantScriptCode bool) ([]byte, error) {
	if codeSepOffset > len(fullScript) {
		codeSepOffset = len(fullScript)
	}
	sub := fullScript[codeSepOffset:]

	ops, tail := parsePartial(sub, version)

	if constantScriptCode {
		if containsSig(ops, sig) {
			return nil, scriptError(ErrNonConstantScript,
				"signature found in constant scriptCode")
		}
		out, err := unparseScript(ops)
		if err != nil {
			return nil, err
		}
		return append(out, tail...), nil
	}

	filtered := findAndDeleteSig(ops, sig)
	out, err := unparseScript(filtered)
	if err != nil {
		return nil, err
	}
	// The undecodable tail, if any, is appended verbatim: it was never a
	// candidate for FindAndDelete since it never decoded into a
	// comparable push in the first place (spec.md §9).
	return append(out, tail...), nil
}
