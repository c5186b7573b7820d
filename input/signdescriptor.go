package input

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/TokeoPay/swift-bitcoin/txscript"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// ErrTweakOverdose signals a SignDescriptor is invalid because both of its
// SingleTweak and TapTweak are non-nil; a given output is spent via at
// most one key-derivation scheme.
var ErrTweakOverdose = errors.New("sign descriptor should only have one tweak")

// KeyDescriptor identifies the key material a SignDescriptor is signed
// with. PrivKey is populated directly here rather than re-derived from a
// wallet keychain, since key derivation/storage is outside this signer's
// scope; PubKey alone is enough for ComputeInputScript's template
// classification even when PrivKey is absent (e.g. building an unsigned
// PSBT-style script skeleton).
type KeyDescriptor struct {
	PubKey  *btcec.PublicKey
	PrivKey *btcec.PrivateKey
}

// SignDescriptor houses the information required to sign a single input
// spending a known previous output, per spec.md §4.4.
type SignDescriptor struct {
	// KeyDesc identifies the key to sign with.
	KeyDesc KeyDescriptor

	// SingleTweak is added to KeyDesc's private key (mod N) before
	// signing, e.g. to derive a per-output key from a shared base key.
	// Mutually exclusive with TapTweak.
	SingleTweak []byte

	// TapTweak, when non-nil, is the BIP341 Merkle root to apply on top
	// of KeyDesc's key before signing a taproot output: nil/empty for a
	// key-path-only output, the tapscript Merkle root otherwise.
	// Mutually exclusive with SingleTweak.
	TapTweak []byte

	// WitnessScript is the full redeem/witness script for the three
	// multisig templates (P2WSH, P2SH, P2SH-P2WSH). Every other
	// template, including the P2SH-P2WPKH nested key-hash template,
	// derives its own scriptCode from Output and KeyDesc.PubKey and
	// leaves this field unset.
	WitnessScript []byte

	// Output is the previous output being spent.
	Output *wire.TxOut

	// HashType is the sighash type to sign with.
	HashType txscript.SigHashType

	// SigHashes is the precomputed BIP143/BIP341 digest cache for the
	// transaction being signed.
	SigHashes *txscript.TxSigHashes

	// InputIndex is the index of the input being signed.
	InputIndex int
}

// WriteSignDescriptor serializes a SignDescriptor, excluding the
// transaction-wide SigHashes/InputIndex fields a caller fills in just
// before signing (mirroring the teacher's own WriteSignDescriptor
// convention).
func WriteSignDescriptor(w io.Writer, sd *SignDescriptor) error {
	var hasKey byte
	if sd.KeyDesc.PubKey != nil {
		hasKey = 1
	}
	if _, err := w.Write([]byte{hasKey}); err != nil {
		return err
	}
	if sd.KeyDesc.PubKey != nil {
		if err := writeVarBytes(w, sd.KeyDesc.PubKey.SerializeCompressed()); err != nil {
			return err
		}
	}

	if err := writeVarBytes(w, sd.SingleTweak); err != nil {
		return err
	}
	if err := writeVarBytes(w, sd.TapTweak); err != nil {
		return err
	}
	if err := writeVarBytes(w, sd.WitnessScript); err != nil {
		return err
	}
	if err := writeTxOut(w, sd.Output); err != nil {
		return err
	}

	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(sd.HashType))
	_, err := w.Write(scratch[:])
	return err
}

// ReadSignDescriptor deserializes a SignDescriptor written by
// WriteSignDescriptor.
func ReadSignDescriptor(r io.Reader, sd *SignDescriptor) error {
	var hasKey [1]byte
	if _, err := io.ReadFull(r, hasKey[:]); err != nil {
		return err
	}
	if hasKey[0] == 1 {
		pubKeyBytes, err := readVarBytes(r, 65)
		if err != nil {
			return err
		}
		sd.KeyDesc.PubKey, err = btcec.ParsePubKey(pubKeyBytes)
		if err != nil {
			return err
		}
	}

	singleTweak, err := readVarBytes(r, 32)
	if err != nil {
		return err
	}
	sd.SingleTweak = singleTweak

	tapTweak, err := readVarBytes(r, 32)
	if err != nil {
		return err
	}
	sd.TapTweak = tapTweak

	if sd.SingleTweak != nil && sd.TapTweak != nil {
		return ErrTweakOverdose
	}

	witnessScript, err := readVarBytes(r, 10000)
	if err != nil {
		return err
	}
	sd.WitnessScript = witnessScript

	txOut := &wire.TxOut{}
	if err := readTxOut(r, txOut); err != nil {
		return err
	}
	sd.Output = txOut

	var hashType [4]byte
	if _, err := io.ReadFull(r, hashType[:]); err != nil {
		return err
	}
	sd.HashType = txscript.SigHashType(binary.BigEndian.Uint32(hashType[:]))

	return nil
}

// TweakedPrivKey returns the private key SignDescriptor.KeyDesc actually
// signs with, after applying whichever of SingleTweak/TapTweak is set.
func (sd *SignDescriptor) TweakedPrivKey() (*btcec.PrivateKey, error) {
	priv := sd.KeyDesc.PrivKey
	if priv == nil {
		return nil, ErrMissingPrivateKey
	}
	switch {
	case sd.SingleTweak != nil:
		return tweakPrivKeyAdditive(priv, sd.SingleTweak), nil
	case sd.TapTweak != nil || isTapTweakedTemplate(sd):
		return txscript.TweakTaprootPrivKey(priv, sd.TapTweak), nil
	default:
		return priv, nil
	}
}

// isTapTweakedTemplate reports whether sd's output is a taproot output
// with an empty (key-path-only) tweak, the common case where TapTweak is
// left nil but a tweak of the internal key by an empty Merkle root is
// still required (spec.md §4.4).
func isTapTweakedTemplate(sd *SignDescriptor) bool {
	return sd.Output != nil && txscript.ExtractTaprootOutputKey(sd.Output.PkScript) != nil
}

// ErrMissingPrivateKey is returned when a SignDescriptor's KeyDesc has no
// private key material to sign with.
var ErrMissingPrivateKey = errors.New("sign descriptor has no private key")

// tweakPrivKeyAdditive adds tweak (mod N) to privKey's scalar, returning
// the resulting derived private key.
func tweakPrivKeyAdditive(privKey *btcec.PrivateKey, tweak []byte) *btcec.PrivateKey {
	var tweakScalar secp.ModNScalar
	tweakScalar.SetByteSlice(tweak)

	privScalar := privKey.Key
	privScalar.Add(&tweakScalar)

	return secp.NewPrivateKey(&privScalar)
}
