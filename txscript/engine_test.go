package txscript

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

func newTestPrevOutTx(pkScript []byte, value int64) (*wire.MsgTx, *wire.OutPoint) {
	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, []byte{OP_1}, nil))
	prevTx.AddTxOut(wire.NewTxOut(value, pkScript))
	hash := prevTx.TxHash()
	return prevTx, wire.NewOutPoint(&hash, 0)
}

func TestEngineP2PKHSignVerify(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pkHash := chainhash.Hash160(pubKeyBytes)

	pkScript, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	_, prevOut := newTestPrevOutTx(pkScript, 50000)

	spendTx := wire.NewMsgTx(1)
	spendTx.AddTxIn(wire.NewTxIn(prevOut, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(49000, pkScript))

	sigHash, err := calcSignatureHash(pkScript, SigHashAll, spendTx, 0)
	require.NoError(t, err)

	sig := btcecdsa.Sign(priv, sigHash[:])
	sigBytes := append(sig.Serialize(), byte(SigHashAll))

	sigScript, err := NewScriptBuilder().AddData(sigBytes).AddData(pubKeyBytes).Script()
	require.NoError(t, err)
	spendTx.TxIn[0].SignatureScript = sigScript

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: []*wire.TxOut{{Value: 50000, PkScript: pkScript}}}
	vm, err := NewEngine(ctx, sigScript, pkScript, StandardVerifyFlags&^ScriptVerifyWitness&^ScriptVerifyTaproot)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestEngineP2WPKHSignVerify(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pkHash := chainhash.Hash160(pubKeyBytes)

	pkScript, err := PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)

	const amount = int64(100000)
	spendTx := wire.NewMsgTx(2)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(90000, pkScript))

	scriptCode, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	sigHashes := NewTxSigHashes(spendTx, []*wire.TxOut{{Value: amount, PkScript: pkScript}})
	sigHash, err := calcWitnessSignatureHash(scriptCode, sigHashes, SigHashAll, spendTx, 0, amount)
	require.NoError(t, err)

	sig := btcecdsa.Sign(priv, sigHash[:])
	sigBytes := append(sig.Serialize(), byte(SigHashAll))
	spendTx.TxIn[0].Witness = wire.TxWitness{sigBytes, pubKeyBytes}

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: []*wire.TxOut{{Value: amount, PkScript: pkScript}}}
	vm, err := NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestEngineTaprootKeyPathSignVerify(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(priv.PubKey()))

	outputKey, _, err := TweakTaprootPubKey(internalKey, nil)
	require.NoError(t, err)
	tweakedPriv := TweakTaprootPrivKey(priv, nil)

	pkScript, err := PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(100000)
	spendTx := wire.NewMsgTx(2)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(90000, pkScript))

	prevOuts := []*wire.TxOut{{Value: amount, PkScript: pkScript}}
	sigHashes := NewTxSigHashes(spendTx, prevOuts)
	sigHash, err := calcTaprootSignatureHash(sigHashes, SigHashDefault, spendTx, 0, prevOuts, nil, &TaprootSigHashExtra{})
	require.NoError(t, err)

	sig, err := schnorr.Sign(tweakedPriv, sigHash[:])
	require.NoError(t, err)
	spendTx.TxIn[0].Witness = wire.TxWitness{sig.Serialize()}

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: prevOuts}
	vm, err := NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestEngineTaprootKeyPathExplicitSigHashAllRequiresTrailingByte(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(priv.PubKey()))

	outputKey, _, err := TweakTaprootPubKey(internalKey, nil)
	require.NoError(t, err)
	tweakedPriv := TweakTaprootPrivKey(priv, nil)

	pkScript, err := PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(100000)
	spendTx := wire.NewMsgTx(2)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(90000, pkScript))

	prevOuts := []*wire.TxOut{{Value: amount, PkScript: pkScript}}
	sigHashes := NewTxSigHashes(spendTx, prevOuts)
	sigHash, err := calcTaprootSignatureHash(sigHashes, SigHashAll, spendTx, 0, prevOuts, nil, &TaprootSigHashExtra{})
	require.NoError(t, err)

	sig, err := schnorr.Sign(tweakedPriv, sigHash[:])
	require.NoError(t, err)

	// A signature explicitly over SigHashAll must carry the trailing type
	// byte; presenting it bare (implying SigHashDefault) must not verify,
	// since the two hash types embed a different byte into the signed
	// message and so produce different signatures.
	spendTx.TxIn[0].Witness = wire.TxWitness{sig.Serialize()}

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: prevOuts}
	vm, err := NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)
	require.Error(t, vm.Execute())

	spendTx.TxIn[0].Witness = wire.TxWitness{append(sig.Serialize(), byte(SigHashAll))}
	vm, err = NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestEngineTwoOfThreeMultiSig(t *testing.T) {
	var pubKeys [][]byte
	var privs []*btcec.PrivateKey
	for i := 0; i < 3; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		privs = append(privs, priv)
		pubKeys = append(pubKeys, priv.PubKey().SerializeCompressed())
	}

	pkScript, err := MultiSigScript(pubKeys, 2)
	require.NoError(t, err)

	spendTx := wire.NewMsgTx(1)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(1000, pkScript))

	sigHash, err := calcSignatureHash(pkScript, SigHashAll, spendTx, 0)
	require.NoError(t, err)

	sig1 := append(btcecdsa.Sign(privs[0], sigHash[:]).Serialize(), byte(SigHashAll))
	sig2 := append(btcecdsa.Sign(privs[1], sigHash[:]).Serialize(), byte(SigHashAll))

	sigScript, err := NewScriptBuilder().
		AddOp(OP_0).AddData(sig1).AddData(sig2).Script()
	require.NoError(t, err)
	spendTx.TxIn[0].SignatureScript = sigScript

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: []*wire.TxOut{{Value: 1000, PkScript: pkScript}}}
	vm, err := NewEngine(ctx, sigScript, pkScript, StandardVerifyFlags&^ScriptVerifyWitness&^ScriptVerifyTaproot)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

func TestEngineRejectsNonMinimalPush(t *testing.T) {
	// Push the single byte 0x01 via OP_PUSHDATA1 instead of OP_1: not
	// minimal, must fail under ScriptVerifyMinimalData.
	sigScript := []byte{OP_PUSHDATA1, 0x01, 0x01}

	lockScript, err := NewScriptBuilder().AddInt64(1).AddOp(OP_EQUAL).Script()
	require.NoError(t, err)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, lockScript))

	ctx := &ScriptContext{Tx: tx, TxIdx: 0, PrevOuts: []*wire.TxOut{{Value: 1000, PkScript: lockScript}}}
	vm, err := NewEngine(ctx, sigScript, lockScript, ScriptVerifyMinimalData)
	require.NoError(t, err)
	require.Error(t, vm.Execute())
}

func TestEngineTaprootScriptPathCheckSigCountsAgainstSigOpBudget(t *testing.T) {
	leafPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	leafPubKey := schnorr.SerializePubKey(leafPriv.PubKey())

	leafScript, err := NewScriptBuilder().AddData(leafPubKey).AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)

	internalPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(internalPriv.PubKey()))

	leafHash := TapLeafHash(TapLeafVersion, leafScript)
	outputKey, parity, err := TweakTaprootPubKey(internalKey, leafHash[:])
	require.NoError(t, err)

	pkScript, err := PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(100000)
	spendTx := wire.NewMsgTx(2)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(90000, pkScript))

	prevOuts := []*wire.TxOut{{Value: amount, PkScript: pkScript}}
	sigHashes := NewTxSigHashes(spendTx, prevOuts)
	extra := &TaprootSigHashExtra{
		IsScriptPath: true,
		TapLeafHash:  leafHash,
		CodeSepPos:   noCodeSepExecuted,
	}
	sigHash, err := calcTaprootSignatureHash(sigHashes, SigHashDefault, spendTx, 0, prevOuts, nil, extra)
	require.NoError(t, err)

	sig, err := schnorr.Sign(leafPriv, sigHash[:])
	require.NoError(t, err)

	parityByte := byte(0)
	if parity {
		parityByte = 1
	}
	controlBlock := append([]byte{TapLeafVersion | parityByte}, internalKey[:]...)

	spendTx.TxIn[0].Witness = wire.TxWitness{sig.Serialize(), leafScript, controlBlock}

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: prevOuts}
	vm, err := NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)

	budgetBefore := vm.sigOpBudget
	require.NoError(t, vm.Execute())
	require.Equal(t, budgetBefore-TapscriptSigOpCost, vm.sigOpBudget)
}

func TestEngineTaprootScriptPathCheckSigExhaustsSigOpBudget(t *testing.T) {
	leafPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	leafPubKey := schnorr.SerializePubKey(leafPriv.PubKey())

	// Reuse the same signature/pubkey pair across many OP_CHECKSIGVERIFY
	// calls (each preceded by OP_DUP so the lone witness signature is
	// never actually consumed) so the script's sigops cost grows much
	// faster than the witness-size-derived budget does.
	const iterations = 30
	builder := NewScriptBuilder()
	for i := 0; i < iterations; i++ {
		builder.AddOp(OP_DUP).AddData(leafPubKey).AddOp(OP_CHECKSIGVERIFY)
	}
	builder.AddData(leafPubKey).AddOp(OP_CHECKSIG)
	leafScript, err := builder.Script()
	require.NoError(t, err)

	internalPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(internalPriv.PubKey()))

	leafHash := TapLeafHash(TapLeafVersion, leafScript)
	outputKey, parity, err := TweakTaprootPubKey(internalKey, leafHash[:])
	require.NoError(t, err)

	pkScript, err := PayToTaprootScript(outputKey[:])
	require.NoError(t, err)

	const amount = int64(100000)
	spendTx := wire.NewMsgTx(2)
	spendTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	spendTx.AddTxOut(wire.NewTxOut(90000, pkScript))

	prevOuts := []*wire.TxOut{{Value: amount, PkScript: pkScript}}
	sigHashes := NewTxSigHashes(spendTx, prevOuts)
	extra := &TaprootSigHashExtra{
		IsScriptPath: true,
		TapLeafHash:  leafHash,
		CodeSepPos:   noCodeSepExecuted,
	}
	sigHash, err := calcTaprootSignatureHash(sigHashes, SigHashDefault, spendTx, 0, prevOuts, nil, extra)
	require.NoError(t, err)

	sig, err := schnorr.Sign(leafPriv, sigHash[:])
	require.NoError(t, err)

	parityByte := byte(0)
	if parity {
		parityByte = 1
	}
	controlBlock := append([]byte{TapLeafVersion | parityByte}, internalKey[:]...)

	spendTx.TxIn[0].Witness = wire.TxWitness{sig.Serialize(), leafScript, controlBlock}

	ctx := &ScriptContext{Tx: spendTx, TxIdx: 0, PrevOuts: prevOuts}
	vm, err := NewEngine(ctx, nil, pkScript, StandardVerifyFlags)
	require.NoError(t, err)

	err = vm.Execute()
	require.Error(t, err)
	require.True(t, errors.Is(err, Error{Code: ErrTapscriptSigOpsBudgetExceeded}))
}

func TestLegacySigHashSingleBugSentinel(t *testing.T) {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 1}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, nil)) // only one output, input index 1 has none

	hash, err := calcSignatureHash(nil, SigHashSingle, tx, 1)
	require.NoError(t, err)
	require.Equal(t, sigHashSingleBug, hash)
}
