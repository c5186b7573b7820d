package txscript

// ScriptBuilder assembles raw script bytes op-by-op, always emitting the
// minimal-push encoding for data (spec.md §4.1). It is used by the signer
// and by tests to construct locking/unlocking scripts and witness scripts.
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns an empty builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{}
}

// AddOp appends a single, payload-less opcode.
func (b *ScriptBuilder) AddOp(op Opcode) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, op)
	return b
}

// AddData appends the minimal-encoding push of data.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, minimalDataPush(data)...)
	return b
}

// AddInt64 appends the minimal-encoding push of the script-number
// representation of n.
func (b *ScriptBuilder) AddInt64(n int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case n == 0:
		b.script = append(b.script, OP_0)
	case n == -1:
		b.script = append(b.script, OP_1NEGATE)
	case n >= 1 && n <= 16:
		b.script = append(b.script, OP_1+byte(n)-1)
	default:
		b.script = append(b.script, minimalDataPush(scriptNumBytes(n))...)
	}
	return b
}

// Script returns the assembled script, or any error recorded during
// construction (none of the current builder methods can fail, but the
// field exists for parity with the teacher's own builder idiom and future
// bounds-checked additions).
func (b *ScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
