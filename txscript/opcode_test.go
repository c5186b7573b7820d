package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnparseScriptRoundTrip(t *testing.T) {
	script, err := NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(make([]byte, 20)).
		AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	ops, err := parseScript(script, ScriptVersionBase)
	require.NoError(t, err)
	require.Len(t, ops, 5)

	back, err := unparseScript(ops)
	require.NoError(t, err)
	require.Equal(t, script, back)
}

func TestParseScriptTruncatedPush(t *testing.T) {
	_, err := parseScript([]byte{OP_PUSHDATA1, 0x05, 0x01}, ScriptVersionBase)
	require.Error(t, err)
	var scriptErr Error
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, ErrInvalidOperation, scriptErr.Code)
}

func TestMinimalDataPush(t *testing.T) {
	require.Equal(t, []byte{OP_0}, minimalDataPush(nil))
	require.Equal(t, []byte{OP_1}, minimalDataPush([]byte{1}))
	require.Equal(t, []byte{OP_1NEGATE}, minimalDataPush([]byte{0x81}))
	require.Equal(t, []byte{0x02, 0xAB, 0xCD}, minimalDataPush([]byte{0xAB, 0xCD}))
}

func TestCanonicalPushRejectsNonMinimal(t *testing.T) {
	// A single byte value of 0x42 pushed via OP_PUSHDATA1 instead of
	// OP_DATA_1 is non-minimal. (Values 1..16 are minimal only as OP_1..OP_16.)
	nonMinimal := ParsedOpcode{info: opcodeArray[OP_PUSHDATA1], Data: []byte{0x42}}
	require.False(t, canonicalPush(nonMinimal))

	minimal := ParsedOpcode{info: opcodeArray[OP_DATA_1], Data: []byte{0x42}}
	require.True(t, canonicalPush(minimal))
}

func TestScriptNumRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, 128, -128, 32767, 32768, 1 << 30, -(1 << 30)}
	for _, n := range cases {
		enc := scriptNumBytes(n)
		dec, err := makeScriptNum(enc, true, 5)
		require.NoError(t, err)
		require.Equal(t, n, dec.Int64(), "round trip of %d", n)
	}
}

func TestScriptNumRejectsNonMinimal(t *testing.T) {
	// Bytes 01 00 (little-endian) encode 1 with a redundant zero byte.
	_, err := makeScriptNum([]byte{0x01, 0x00}, true, 4)
	require.Error(t, err)

	_, err = makeScriptNum([]byte{0x01, 0x00}, false, 4)
	require.NoError(t, err)
}

func TestScriptNumOverflow(t *testing.T) {
	_, err := makeScriptNum([]byte{1, 2, 3, 4, 5}, false, 4)
	require.Error(t, err)
	var scriptErr Error
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, ErrNumericOverflow, scriptErr.Code)
}

func TestCondStackNestedSkip(t *testing.T) {
	var c condStack
	c.pushIf(false) // outer branch not taken
	require.False(t, c.executing())

	c.pushIf(true) // nested marker forced to skip regardless of value
	require.False(t, c.executing())

	require.NoError(t, c.toggleElse())
	require.False(t, c.executing())

	require.NoError(t, c.popEndif())
	require.NoError(t, c.toggleElse())
	require.True(t, c.executing())

	require.NoError(t, c.popEndif())
	require.Equal(t, 0, c.depth())
}

func TestStackPushPopBool(t *testing.T) {
	var s stack
	s.PushBool(true)
	s.PushBool(false)

	v, err := s.PopBool()
	require.NoError(t, err)
	require.False(t, v)

	v, err = s.PopBool()
	require.NoError(t, err)
	require.True(t, v)

	_, err = s.PopBool()
	require.Error(t, err)
}

func TestAsBoolNegativeZero(t *testing.T) {
	require.False(t, asBool([]byte{0x00}))
	require.False(t, asBool([]byte{0x00, 0x80}))
	require.True(t, asBool([]byte{0x01, 0x80}))
	require.True(t, asBool([]byte{0x01}))
}

func TestFindAndDeleteExactMatchOnly(t *testing.T) {
	sig := []byte{0xde, 0xad, 0xbe, 0xef}
	script, err := NewScriptBuilder().AddData(sig).AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)

	out, err := buildScriptCode(script, 0, sig, ScriptVersionBase, false)
	require.NoError(t, err)

	expected, err := NewScriptBuilder().AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)
	require.Equal(t, expected, out)
}

func TestFindAndDeleteLeavesUndecodableTailVerbatim(t *testing.T) {
	sig := []byte{0x01, 0x02}
	// A truncated OP_PUSHDATA1 declaring 5 bytes but supplying only 2.
	tail := []byte{OP_PUSHDATA1, 0x05, 0x01, 0x02}
	script := append(append([]byte{byte(len(sig))}, sig...), tail...)

	out, err := buildScriptCode(script, 0, sig, ScriptVersionBase, false)
	require.NoError(t, err)
	require.Equal(t, tail, out)
}

func TestConstantScriptCodeRejectsEmbeddedSignature(t *testing.T) {
	sig := []byte{0x01, 0x02, 0x03}
	script, err := NewScriptBuilder().AddData(sig).AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)

	_, err = buildScriptCode(script, 0, sig, ScriptVersionWitnessV0, true)
	require.Error(t, err)
	var scriptErr Error
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, ErrNonConstantScript, scriptErr.Code)
}
