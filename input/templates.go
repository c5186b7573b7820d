package input

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/txscript"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// PubKeySpend produces the sigScript for a bare P2PK output: a single
// signature, nothing else.
func PubKeySpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	sig, err := signer.SignOutputRaw(tx, signDesc)
	if err != nil {
		return nil, err
	}
	sigBytes := append(sig.Serialize(), byte(signDesc.HashType))

	sigScript, err := txscript.NewScriptBuilder().AddData(sigBytes).Script()
	if err != nil {
		return nil, err
	}
	return &Script{SigScript: sigScript}, nil
}

// PubKeyHashSpend produces the sigScript for a legacy P2PKH output: a
// signature followed by the full public key.
func PubKeyHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	sig, err := signer.SignOutputRaw(tx, signDesc)
	if err != nil {
		return nil, err
	}
	sigBytes := append(sig.Serialize(), byte(signDesc.HashType))

	sigScript, err := txscript.NewScriptBuilder().
		AddData(sigBytes).
		AddData(signDesc.KeyDesc.PubKey.SerializeCompressed()).
		Script()
	if err != nil {
		return nil, err
	}
	return &Script{SigScript: sigScript}, nil
}

// WitnessKeyHashSpend produces the witness for a native P2WPKH output: a
// signature followed by the full public key, no sigScript.
func WitnessKeyHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	sig, err := signer.SignOutputRaw(tx, signDesc)
	if err != nil {
		return nil, err
	}
	sigBytes := append(sig.Serialize(), byte(signDesc.HashType))

	return &Script{
		Witness: wire.TxWitness{
			sigBytes,
			signDesc.KeyDesc.PubKey.SerializeCompressed(),
		},
	}, nil
}

// NestedWitnessKeyHashSpend produces both the sigScript (pushing the
// P2WPKH witness program) and the witness (signature + public key) for a
// P2SH-wrapped P2WPKH output.
func NestedWitnessKeyHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	witnessScript, err := WitnessKeyHashSpend(signer, signDesc, tx)
	if err != nil {
		return nil, err
	}

	pkHash := chainhash.Hash160(signDesc.KeyDesc.PubKey.SerializeCompressed())
	witnessProgram, err := txscript.PayToWitnessPubKeyHashScript(pkHash)
	if err != nil {
		return nil, err
	}

	sigScript, err := txscript.NewScriptBuilder().AddData(witnessProgram).Script()
	if err != nil {
		return nil, err
	}

	witnessScript.SigScript = sigScript
	return witnessScript, nil
}

// multiSigWitnessStack builds the OP_0-prefixed signature stack shared by
// the three multisig templates (WitnessScriptHash, ScriptHash,
// NestedWitnessScriptHash), working around OP_CHECKMULTISIG's historical
// off-by-one bug (spec.md §5).
func multiSigWitnessStack(sigs [][]byte, witnessScript []byte) [][]byte {
	stack := make([][]byte, 0, len(sigs)+2)
	stack = append(stack, nil)
	stack = append(stack, sigs...)
	stack = append(stack, witnessScript)
	return stack
}

// signMultiSig signs signDesc's multisig witness/redeem script with every
// key in privKeys, in the same order the script requires them, using the
// BIP143 sighash algorithm when witness is true and the legacy one otherwise.
func signMultiSig(tx *wire.MsgTx, signDesc *SignDescriptor, privKeys []*btcec.PrivateKey, witness bool) ([][]byte, error) {
	sigs := make([][]byte, 0, len(privKeys))
	for _, priv := range privKeys {
		var (
			hash chainhash.Hash
			err  error
		)
		if witness {
			hash, err = txscript.CalcWitnessSignatureHash(
				signDesc.WitnessScript, signDesc.SigHashes,
				signDesc.HashType, tx, signDesc.InputIndex,
				signDesc.Output.Value,
			)
		} else {
			hash, err = txscript.CalcSignatureHash(
				signDesc.WitnessScript, signDesc.HashType, tx,
				signDesc.InputIndex,
			)
		}
		if err != nil {
			return nil, err
		}

		sig := btcecdsa.Sign(priv, hash[:])
		sigs = append(sigs, append(sig.Serialize(), byte(signDesc.HashType)))
	}
	return sigs, nil
}

// WitnessScriptHashSpend produces the witness for a native P2WSH multisig
// output: OP_0, the required signatures, and the witness script.
func WitnessScriptHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	ms, ok := signer.(MultiSigner)
	if !ok {
		return nil, fmt.Errorf("signer does not support multisig templates")
	}
	sigs, err := signMultiSig(tx, signDesc, ms.MultiSigKeys(signDesc), true)
	if err != nil {
		return nil, err
	}
	return &Script{Witness: multiSigWitnessStack(sigs, signDesc.WitnessScript)}, nil
}

// ScriptHashSpend produces the sigScript for a legacy P2SH multisig
// output: OP_0, the required signatures, and the redeem script.
func ScriptHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	ms, ok := signer.(MultiSigner)
	if !ok {
		return nil, fmt.Errorf("signer does not support multisig templates")
	}
	sigs, err := signMultiSig(tx, signDesc, ms.MultiSigKeys(signDesc), false)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_0)
	for _, sig := range sigs {
		builder.AddData(sig)
	}
	builder.AddData(signDesc.WitnessScript)

	sigScript, err := builder.Script()
	if err != nil {
		return nil, err
	}
	return &Script{SigScript: sigScript}, nil
}

// NestedWitnessScriptHashSpend produces both the sigScript (pushing the
// P2WSH witness program) and the witness (OP_0, signatures, witness
// script) for a P2SH-wrapped P2WSH multisig output.
func NestedWitnessScriptHashSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	inner, err := WitnessScriptHashSpend(signer, signDesc, tx)
	if err != nil {
		return nil, err
	}

	scriptHash := chainhash.Sum256(signDesc.WitnessScript)
	witnessProgram, err := txscript.PayToWitnessScriptHashScript(scriptHash[:])
	if err != nil {
		return nil, err
	}

	sigScript, err := txscript.NewScriptBuilder().AddData(witnessProgram).Script()
	if err != nil {
		return nil, err
	}

	inner.SigScript = sigScript
	return inner, nil
}

// MultiSigSpend produces the sigScript for a bare multisig output: OP_0
// followed by the required signatures, with no redeem/witness script push
// since the multisig script is the output's own pkScript.
func MultiSigSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	ms, ok := signer.(MultiSigner)
	if !ok {
		return nil, fmt.Errorf("signer does not support multisig templates")
	}
	sigs, err := signMultiSig(tx, signDesc, ms.MultiSigKeys(signDesc), false)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_0)
	for _, sig := range sigs {
		builder.AddData(sig)
	}

	sigScript, err := builder.Script()
	if err != nil {
		return nil, err
	}
	return &Script{SigScript: sigScript}, nil
}

// TaprootKeySpendSpend produces the witness for a P2TR output spent via
// the key path: a single BIP340 Schnorr signature over the tweaked output
// key, per spec.md §4.3/§4.4.
func TaprootKeySpendSpend(signer Signer, signDesc *SignDescriptor, tx *wire.MsgTx) (*Script, error) {
	sig, err := signer.SignOutputRaw(tx, signDesc)
	if err != nil {
		return nil, err
	}

	rawSig := sig.Serialize()
	if signDesc.HashType != txscript.SigHashDefault {
		rawSig = append(rawSig, byte(signDesc.HashType))
	}

	return &Script{Witness: wire.TxWitness{rawSig}}, nil
}
