package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// CalcSignatureHash exposes the legacy sighash algorithm (spec.md §4.3) to
// callers outside this package that need to sign a raw transaction input,
// e.g. the template-driven signer.
func CalcSignatureHash(scriptCode []byte, hashType SigHashType, tx *wire.MsgTx, idx int) (chainhash.Hash, error) {
	return calcSignatureHash(scriptCode, hashType, tx, idx)
}

// CalcWitnessSignatureHash exposes the BIP143 segwit v0 sighash algorithm.
func CalcWitnessSignatureHash(scriptCode []byte, sigHashes *TxSigHashes, hashType SigHashType, tx *wire.MsgTx, idx int, amount int64) (chainhash.Hash, error) {
	return calcWitnessSignatureHash(scriptCode, sigHashes, hashType, tx, idx, amount)
}

// CalcTaprootSignatureHash exposes the BIP341 taproot sighash algorithm.
// extra's IsScriptPath/TapLeafHash/CodeSepPos fields must be filled in for a script-path
// spend and left zero for a key-path spend.
func CalcTaprootSignatureHash(sigHashes *TxSigHashes, hashType SigHashType, tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, annex []byte, extra *TaprootSigHashExtra) (chainhash.Hash, error) {
	return calcTaprootSignatureHash(sigHashes, hashType, tx, idx, prevOuts, annex, extra)
}

// RawTxInSignature computes an ECDSA signature over tx's idx'th input
// using the legacy sighash algorithm and appends the sighash type byte,
// producing a signature ready to push directly into a sigScript.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte, hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {
	hash, err := calcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, err
	}
	sig := btcecdsa.Sign(key, hash[:])
	return append(sig.Serialize(), byte(hashType)), nil
}

// RawTxInWitnessSignature computes an ECDSA signature over tx's idx'th
// input using the BIP143 sighash algorithm and appends the sighash type
// byte, producing a signature ready to push into a witness stack.
func RawTxInWitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int, amount int64, subScript []byte, hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {
	hash, err := calcWitnessSignatureHash(subScript, sigHashes, hashType, tx, idx, amount)
	if err != nil {
		return nil, err
	}
	sig := btcecdsa.Sign(key, hash[:])
	return append(sig.Serialize(), byte(hashType)), nil
}

// RawTxInTaprootSignature computes a BIP340 Schnorr signature over tx's
// idx'th input using the BIP341 taproot sighash algorithm. The sighash
// type byte is appended only when hashType isn't the default ALL, per
// BIP341's signature-message-byte-omission rule.
func RawTxInTaprootSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int, prevOuts []*wire.TxOut, annex []byte, extra *TaprootSigHashExtra, hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {
	hash, err := calcTaprootSignatureHash(sigHashes, hashType, tx, idx, prevOuts, annex, extra)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(key, hash[:])
	if err != nil {
		return nil, err
	}
	rawSig := sig.Serialize()
	if hashType == SigHashDefault {
		return rawSig, nil
	}
	return append(rawSig, byte(hashType)), nil
}
