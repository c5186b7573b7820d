package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func legacyTx() *MsgTx {
	tx := NewMsgTx(1)
	tx.AddTxIn(NewTxIn(&OutPoint{Index: 0}, []byte{0x51}, nil))
	tx.AddTxOut(NewTxOut(50000, []byte{0x51}))
	return tx
}

func segwitTx() *MsgTx {
	tx := NewMsgTx(2)
	tx.AddTxIn(NewTxIn(&OutPoint{Index: 0}, nil, TxWitness{
		{0x30, 0x44},
		{0x02, 0x11},
	}))
	tx.AddTxOut(NewTxOut(100000, []byte{0x00, 0x14}))
	return tx
}

func TestRoundTripLegacy(t *testing.T) {
	tx := legacyTx()
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	got, err := NewMsgTxFromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), got.TxHash())
	require.False(t, got.HasWitness())

	var reEncoded bytes.Buffer
	require.NoError(t, got.Serialize(&reEncoded))
	require.Equal(t, buf.Bytes(), reEncoded.Bytes())
}

func TestRoundTripSegwit(t *testing.T) {
	tx := segwitTx()
	require.True(t, tx.HasWitness())

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	got, err := NewMsgTxFromBytes(buf.Bytes())
	require.NoError(t, err)
	require.True(t, got.HasWitness())
	require.Equal(t, tx.WitnessHash(), got.WitnessHash())
	require.Equal(t, tx.TxHash(), got.TxHash())

	var reEncoded bytes.Buffer
	require.NoError(t, got.Serialize(&reEncoded))
	require.Equal(t, buf.Bytes(), reEncoded.Bytes())
}

func TestTxidStableUnderWitnessMutation(t *testing.T) {
	tx := segwitTx()
	before := tx.TxHash()

	tx.TxIn[0].Witness[0] = []byte{0xde, 0xad, 0xbe, 0xef}
	after := tx.TxHash()

	require.Equal(t, before, after, "txid must not change when only the witness mutates")
	require.NotEqual(t, tx.WitnessHash(), before, "wtxid should change when the witness changes")
}

func TestTxidChangesOnConsensusFieldMutation(t *testing.T) {
	tx := legacyTx()
	before := tx.TxHash()

	tx.LockTime = 500
	require.NotEqual(t, before, tx.TxHash())
}

func TestNoWitnessTxWtxidEqualsTxid(t *testing.T) {
	tx := legacyTx()
	require.Equal(t, tx.TxHash(), tx.WitnessHash())
}

func TestCompactSizeRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000}
	for _, n := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteCompactSize(&buf, n))
		require.Equal(t, CompactSizeLen(n), buf.Len())

		got, err := ReadCompactSize(&buf)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestCompactSizeRejectsNonMinimal(t *testing.T) {
	// 0xfd followed by a value that fits in a single byte.
	_, err := ReadCompactSize(bytes.NewReader([]byte{0xfd, 0x0a, 0x00}))
	require.Error(t, err)
}

func TestSerializeSizeMatchesActualOutput(t *testing.T) {
	for _, tx := range []*MsgTx{legacyTx(), segwitTx()} {
		var buf bytes.Buffer
		require.NoError(t, tx.Serialize(&buf))
		require.Equal(t, buf.Len(), tx.SerializeSize())
	}
}

func TestCopyIsIndependent(t *testing.T) {
	tx := segwitTx()
	clone := tx.Copy()

	clone.TxIn[0].Witness[0][0] = 0xff
	clone.TxOut[0].Value = 1

	require.NotEqual(t, tx.TxIn[0].Witness[0][0], clone.TxIn[0].Witness[0][0])
	require.NotEqual(t, tx.TxOut[0].Value, clone.TxOut[0].Value)
}
