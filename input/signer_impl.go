package input

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/txscript"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// MultiSigner is implemented by a Signer that also knows how to select the
// ordered set of private keys a bare/witness/nested multisig template
// needs to sign with, grounded on the same key-lookup role lnd's
// MockSigner.findKey plays for its single-key templates.
type MultiSigner interface {
	Signer

	// MultiSigKeys returns, in the order signDesc.WitnessScript's
	// pubkeys appear, every private key this signer holds a match for.
	MultiSigKeys(signDesc *SignDescriptor) []*btcec.PrivateKey
}

// BasicSigner is an in-memory implementation of Signer (and MultiSigner)
// backed by a flat list of private keys, looked up by the hash of their
// corresponding public key. It is the reference signer this package ships
// with; production callers wanting HSM- or hardware-wallet-backed signing
// implement Signer directly.
type BasicSigner struct {
	Keys []*btcec.PrivateKey
}

// findKey returns the private key in s.Keys whose public key hashes to
// pkHash, tweaked by tweak if non-nil, or nil if none match.
func (s *BasicSigner) findKey(pkHash []byte, tweak []byte) *btcec.PrivateKey {
	for _, priv := range s.Keys {
		candidate := priv
		if tweak != nil {
			candidate = tweakPrivKeyAdditive(priv, tweak)
		}
		hash := chainhash.Hash160(candidate.PubKey().SerializeCompressed())
		if bytes.Equal(hash, pkHash) {
			return candidate
		}
	}
	return nil
}

// SignOutputRaw generates a signature for tx's input identified by
// signDesc, applying whichever tweak (SingleTweak/TapTweak) signDesc
// specifies before signing.
func (s *BasicSigner) SignOutputRaw(tx *wire.MsgTx, signDesc *SignDescriptor) (Signature, error) {
	privKey := signDesc.KeyDesc.PrivKey
	if privKey == nil {
		pkHash := chainhash.Hash160(signDesc.KeyDesc.PubKey.SerializeCompressed())
		privKey = s.findKey(pkHash, nil)
	}
	if privKey == nil {
		return nil, fmt.Errorf("signer does not have the requested key")
	}

	switch {
	case signDesc.SingleTweak != nil:
		privKey = tweakPrivKeyAdditive(privKey, signDesc.SingleTweak)
	case signDesc.TapTweak != nil || isTapTweakedTemplate(signDesc):
		privKey = txscript.TweakTaprootPrivKey(privKey, signDesc.TapTweak)
	}

	switch nestedSpendClass(signDesc) {
	case txscript.WitnessV1TaprootTy:
		hash, err := txscript.CalcTaprootSignatureHash(
			signDesc.SigHashes, signDesc.HashType, tx, signDesc.InputIndex,
			[]*wire.TxOut{signDesc.Output}, nil, &txscript.TaprootSigHashExtra{},
		)
		if err != nil {
			return nil, err
		}
		return schnorr.Sign(privKey, hash[:])

	case txscript.WitnessV0PubKeyHashTy:
		scriptCode, err := txscript.PayToPubKeyHashScript(resolveKeyHash(signDesc))
		if err != nil {
			return nil, err
		}
		hash, err := txscript.CalcWitnessSignatureHash(
			scriptCode, signDesc.SigHashes, signDesc.HashType,
			tx, signDesc.InputIndex, signDesc.Output.Value,
		)
		if err != nil {
			return nil, err
		}
		return btcecdsa.Sign(privKey, hash[:]), nil

	case txscript.WitnessV0ScriptHashTy:
		hash, err := txscript.CalcWitnessSignatureHash(
			signDesc.WitnessScript, signDesc.SigHashes, signDesc.HashType,
			tx, signDesc.InputIndex, signDesc.Output.Value,
		)
		if err != nil {
			return nil, err
		}
		return btcecdsa.Sign(privKey, hash[:]), nil

	case txscript.PubKeyHashTy, txscript.PubKeyTy:
		hash, err := txscript.CalcSignatureHash(
			signDesc.Output.PkScript, signDesc.HashType, tx, signDesc.InputIndex,
		)
		if err != nil {
			return nil, err
		}
		return btcecdsa.Sign(privKey, hash[:]), nil

	default:
		hash, err := txscript.CalcSignatureHash(
			signDesc.WitnessScript, signDesc.HashType, tx, signDesc.InputIndex,
		)
		if err != nil {
			return nil, err
		}
		return btcecdsa.Sign(privKey, hash[:]), nil
	}
}

// nestedSpendClass returns the script class that actually governs how
// signDesc's input is signed: Output.PkScript's own class, unless that's
// a P2SH output wrapping a segwit program, in which case the wrapped
// program's class takes over (spec.md §4.4's P2SH-P2WPKH/P2SH-P2WSH
// nesting). The wrapped program isn't carried as its own field, so it's
// reconstructed from KeyDesc.PubKey (P2WPKH candidate) or WitnessScript
// (P2WSH candidate) and matched against Output's script hash.
func nestedSpendClass(signDesc *SignDescriptor) txscript.ScriptClass {
	class := txscript.GetScriptClass(signDesc.Output.PkScript)
	if class != txscript.ScriptHashTy {
		return class
	}
	scriptHash := txscript.ExtractScriptHash(signDesc.Output.PkScript)

	if signDesc.KeyDesc.PubKey != nil {
		pkHash := chainhash.Hash160(signDesc.KeyDesc.PubKey.SerializeCompressed())
		if program, err := txscript.PayToWitnessPubKeyHashScript(pkHash); err == nil &&
			bytes.Equal(chainhash.Hash160(program), scriptHash) {

			return txscript.WitnessV0PubKeyHashTy
		}
	}
	if len(signDesc.WitnessScript) > 0 {
		wsHash := chainhash.Sum256(signDesc.WitnessScript)
		if program, err := txscript.PayToWitnessScriptHashScript(wsHash[:]); err == nil &&
			bytes.Equal(chainhash.Hash160(program), scriptHash) {

			return txscript.WitnessV0ScriptHashTy
		}
	}
	return class
}

// resolveKeyHash returns the 20-byte public key hash a P2WPKH or
// P2SH-P2WPKH output commits to.
func resolveKeyHash(signDesc *SignDescriptor) []byte {
	if hash := txscript.ExtractPubKeyHash(signDesc.Output.PkScript); hash != nil {
		return hash
	}
	return chainhash.Hash160(signDesc.KeyDesc.PubKey.SerializeCompressed())
}

// ComputeInputScript generates the complete sigScript/witness pair for tx's
// input, dispatching on signDesc.Output's effective script class to the
// matching template in templates.go.
func (s *BasicSigner) ComputeInputScript(tx *wire.MsgTx, signDesc *SignDescriptor) (*Script, error) {
	class := txscript.GetScriptClass(signDesc.Output.PkScript)

	if class == txscript.ScriptHashTy {
		switch nestedSpendClass(signDesc) {
		case txscript.WitnessV0PubKeyHashTy:
			return NestedWitnessKeyHashSpend(s, signDesc, tx)
		case txscript.WitnessV0ScriptHashTy:
			return NestedWitnessScriptHashSpend(s, signDesc, tx)
		}
	}

	switch class {
	case txscript.PubKeyTy:
		return PubKeySpend(s, signDesc, tx)

	case txscript.PubKeyHashTy:
		return PubKeyHashSpend(s, signDesc, tx)

	case txscript.WitnessV0PubKeyHashTy:
		return WitnessKeyHashSpend(s, signDesc, tx)

	case txscript.WitnessV0ScriptHashTy:
		return WitnessScriptHashSpend(s, signDesc, tx)

	case txscript.ScriptHashTy:
		return ScriptHashSpend(s, signDesc, tx)

	case txscript.WitnessV1TaprootTy:
		return TaprootKeySpendSpend(s, signDesc, tx)

	case txscript.MultiSigTy:
		return MultiSigSpend(s, signDesc, tx)

	default:
		return nil, fmt.Errorf("unsupported script class for input script computation")
	}
}

// MultiSigKeys returns every private key s holds that matches one of
// signDesc.WitnessScript's embedded public keys, in script order.
func (s *BasicSigner) MultiSigKeys(signDesc *SignDescriptor) []*btcec.PrivateKey {
	pubKeys, _ := txscript.ExtractMultiSigPubKeys(signDesc.WitnessScript)

	var keys []*btcec.PrivateKey
	for _, pubKey := range pubKeys {
		pkHash := chainhash.Hash160(pubKey)
		if priv := s.findKey(pkHash, nil); priv != nil {
			keys = append(keys, priv)
		}
	}
	return keys
}
