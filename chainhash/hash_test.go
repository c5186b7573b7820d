package chainhash

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStringReversesDisplayOrder(t *testing.T) {
	raw := make([]byte, HashSize)
	for i := range raw {
		raw[i] = byte(i)
	}
	h, err := NewHash(raw)
	require.NoError(t, err)

	want := make([]byte, HashSize)
	for i := 0; i < HashSize; i++ {
		want[i] = raw[HashSize-1-i]
	}
	require.Equal(t, hex.EncodeToString(want), h.String())
}

func TestDoubleHashMatchesTwoRoundsOfSha256(t *testing.T) {
	msg := []byte("swift-bitcoin")
	first := HashB(msg)
	second := HashB(first)
	require.Equal(t, second, DoubleHashB(msg))
}

func TestHash160IsRipemdOverSha256(t *testing.T) {
	msg := []byte("hash160 test vector")
	got := Hash160(msg)
	want := Ripemd160(HashB(msg))
	require.Equal(t, want, got)
	require.Len(t, got, 20)
}

func TestTaggedHashIsDeterministicAndTagSensitive(t *testing.T) {
	msg := []byte("message")
	a := TaggedHash("TapSighash", msg)
	b := TaggedHash("TapSighash", msg)
	require.Equal(t, a, b)

	c := TaggedHash("TapLeaf", msg)
	require.NotEqual(t, a, c)
}

func TestHashIsEqualHandlesNil(t *testing.T) {
	var a, b *Hash
	require.True(t, a.IsEqual(b))

	h := HashH([]byte("x"))
	require.False(t, h.IsEqual(nil))
}
