package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

func newRawSigTx(prevScript []byte, amount int64) (*wire.MsgTx, *wire.TxOut) {
	prevOut := &wire.TxOut{Value: amount, PkScript: prevScript}
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(amount-1000, prevScript))
	return tx, prevOut
}

func TestRawTxInSignatureVerifies(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := chainhash.Hash160(priv.PubKey().SerializeCompressed())
	pkScript, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	tx, _ := newRawSigTx(pkScript, 50000)

	sigBytes, err := RawTxInSignature(tx, 0, pkScript, SigHashAll, priv)
	require.NoError(t, err)

	hash, err := calcSignatureHash(pkScript, SigHashAll, tx, 0)
	require.NoError(t, err)

	sig, err := btcecdsa.ParseDERSignature(sigBytes[:len(sigBytes)-1])
	require.NoError(t, err)
	require.True(t, sig.Verify(hash[:], priv.PubKey()))
}

func TestRawTxInWitnessSignatureVerifies(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := chainhash.Hash160(priv.PubKey().SerializeCompressed())
	witnessScript, err := PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)
	scriptCode, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	const amount = int64(90000)
	tx, prevOut := newRawSigTx(witnessScript, amount)
	sigHashes := NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	sigBytes, err := RawTxInWitnessSignature(
		tx, sigHashes, 0, amount, scriptCode, SigHashAll, priv,
	)
	require.NoError(t, err)

	hash, err := calcWitnessSignatureHash(scriptCode, sigHashes, SigHashAll, tx, 0, amount)
	require.NoError(t, err)

	sig, err := btcecdsa.ParseDERSignature(sigBytes[:len(sigBytes)-1])
	require.NoError(t, err)
	require.True(t, sig.Verify(hash[:], priv.PubKey()))
}

func TestRawTxInTaprootSignatureOmitsDefaultHashTypeByte(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(priv.PubKey()))

	outputKey, parity, err := TweakTaprootPubKey(internalKey, nil)
	require.NoError(t, err)
	pkScript, err := PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(150000)
	tx, prevOut := newRawSigTx(pkScript, amount)
	sigHashes := NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	tweaked := TweakTaprootPrivKey(priv, nil)
	_ = parity

	sig, err := RawTxInTaprootSignature(
		tx, sigHashes, 0, []*wire.TxOut{prevOut}, nil,
		&TaprootSigHashExtra{}, SigHashDefault, tweaked,
	)
	require.NoError(t, err)
	require.Len(t, sig, schnorr.SignatureSize)

	withType, err := RawTxInTaprootSignature(
		tx, sigHashes, 0, []*wire.TxOut{prevOut}, nil,
		&TaprootSigHashExtra{}, SigHashAll, tweaked,
	)
	require.NoError(t, err)
	require.Len(t, withType, schnorr.SignatureSize+1)
}
