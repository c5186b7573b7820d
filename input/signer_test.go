package input

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/txscript"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

func newSpendTx(prevScript []byte, amount int64) (*wire.MsgTx, *wire.TxOut) {
	prevOut := &wire.TxOut{Value: amount, PkScript: prevScript}
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(amount-1000, prevScript))
	return tx, prevOut
}

func executeSpend(t *testing.T, prevOut *wire.TxOut, tx *wire.MsgTx, sc *Script) {
	t.Helper()
	tx.TxIn[0].SignatureScript = sc.SigScript
	tx.TxIn[0].Witness = sc.Witness

	ctx := &txscript.ScriptContext{Tx: tx, TxIdx: 0, PrevOuts: []*wire.TxOut{prevOut}}
	vm, err := txscript.NewEngine(ctx, sc.SigScript, prevOut.PkScript, txscript.StandardVerifyFlags)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestBasicSignerPubKeyHashRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := chainhash.Hash160(priv.PubKey().SerializeCompressed())

	pkScript, err := txscript.PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	tx, prevOut := newSpendTx(pkScript, 50000)

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{priv}}
	signDesc := &SignDescriptor{
		KeyDesc:    KeyDescriptor{PubKey: priv.PubKey(), PrivKey: priv},
		Output:     prevOut,
		HashType:   txscript.SigHashAll,
		InputIndex: 0,
	}

	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}

func TestBasicSignerWitnessKeyHashRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := chainhash.Hash160(priv.PubKey().SerializeCompressed())

	pkScript, err := txscript.PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)

	const amount = int64(90000)
	tx, prevOut := newSpendTx(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{priv}}
	signDesc := &SignDescriptor{
		KeyDesc:    KeyDescriptor{PubKey: priv.PubKey(), PrivKey: priv},
		Output:     prevOut,
		HashType:   txscript.SigHashAll,
		SigHashes:  sigHashes,
		InputIndex: 0,
	}

	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}

func TestBasicSignerNestedWitnessKeyHashRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := chainhash.Hash160(priv.PubKey().SerializeCompressed())

	witnessProgram, err := txscript.PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)
	scriptHash := chainhash.Hash160(witnessProgram)
	pkScript, err := txscript.PayToScriptHashScript(scriptHash)
	require.NoError(t, err)

	const amount = int64(70000)
	tx, prevOut := newSpendTx(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{priv}}
	signDesc := &SignDescriptor{
		KeyDesc:    KeyDescriptor{PubKey: priv.PubKey(), PrivKey: priv},
		Output:     prevOut,
		HashType:   txscript.SigHashAll,
		SigHashes:  sigHashes,
		InputIndex: 0,
	}
	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}

func TestBasicSignerTaprootKeySpendRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(priv.PubKey()))

	outputKey, _, err := txscript.TweakTaprootPubKey(internalKey, nil)
	require.NoError(t, err)

	pkScript, err := txscript.PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(150000)
	tx, prevOut := newSpendTx(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{priv}}
	signDesc := &SignDescriptor{
		KeyDesc:    KeyDescriptor{PubKey: priv.PubKey(), PrivKey: priv},
		Output:     prevOut,
		HashType:   txscript.SigHashDefault,
		SigHashes:  sigHashes,
		InputIndex: 0,
	}

	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}

func TestBasicSignerTwoOfThreeBareMultiSigRoundTrip(t *testing.T) {
	var privs []*btcec.PrivateKey
	var pubKeys [][]byte
	for i := 0; i < 3; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		privs = append(privs, priv)
		pubKeys = append(pubKeys, priv.PubKey().SerializeCompressed())
	}

	pkScript, err := txscript.MultiSigScript(pubKeys, 2)
	require.NoError(t, err)

	const amount = int64(60000)
	tx, prevOut := newSpendTx(pkScript, amount)

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{privs[0], privs[2]}}
	signDesc := &SignDescriptor{
		WitnessScript: pkScript,
		Output:        prevOut,
		HashType:      txscript.SigHashAll,
		InputIndex:    0,
	}

	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}

func TestBasicSignerTwoOfThreeWitnessScriptHashRoundTrip(t *testing.T) {
	var privs []*btcec.PrivateKey
	var pubKeys [][]byte
	for i := 0; i < 3; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		privs = append(privs, priv)
		pubKeys = append(pubKeys, priv.PubKey().SerializeCompressed())
	}

	witnessScript, err := txscript.MultiSigScript(pubKeys, 2)
	require.NoError(t, err)
	scriptHash := chainhash.Sum256(witnessScript)
	pkScript, err := txscript.PayToWitnessScriptHashScript(scriptHash[:])
	require.NoError(t, err)

	const amount = int64(200000)
	tx, prevOut := newSpendTx(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, []*wire.TxOut{prevOut})

	signer := &BasicSigner{Keys: []*btcec.PrivateKey{privs[0], privs[2]}}
	signDesc := &SignDescriptor{
		WitnessScript: witnessScript,
		Output:        prevOut,
		HashType:      txscript.SigHashAll,
		SigHashes:     sigHashes,
		InputIndex:    0,
	}

	sc, err := signer.ComputeInputScript(tx, signDesc)
	require.NoError(t, err)
	executeSpend(t, prevOut, tx, sc)
}
