package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/TokeoPay/swift-bitcoin/chainhash"
)

// splitSignatureAndHashType separates an ECDSA signature's trailing
// sighash-type byte from the DER-encoded body, per spec.md §6.
func splitSignatureAndHashType(sig []byte) (der []byte, hashType SigHashType, err error) {
	if len(sig) == 0 {
		return nil, 0, scriptError(ErrInvalidSignature, "empty signature")
	}
	return sig[:len(sig)-1], SigHashType(sig[len(sig)-1]), nil
}

// checkSignatureEncoding validates an ECDSA signature's DER encoding
// (ScriptVerifyStrictDER) and, if requested, that its S value is at most
// half the curve order (ScriptVerifyLowS / BIP62 rule 5). It does not
// verify the signature cryptographically; that happens against the
// computed sighash separately.
func checkSignatureEncoding(sig []byte, flags ScriptFlags) error {
	if len(sig) == 0 {
		return nil
	}
	if !flags.HasFlag(ScriptVerifyStrictDER) && !flags.HasFlag(ScriptVerifyLowS) {
		return nil
	}
	parsed, err := btcecdsa.ParseDERSignature(sig)
	if err != nil {
		return scriptErrorf(ErrInvalidSignature, "malformed DER signature: %v", err)
	}
	if flags.HasFlag(ScriptVerifyLowS) {
		// ParseDERSignature accepts any S below the group order, so the
		// low-S (canonical) rule is checked here.
		s := parsed.S()
		if s.IsOverHalfOrder() {
			return scriptError(ErrInvalidSignature, "signature S value is above half the group order")
		}
	}
	return nil
}

// checkPublicKeyEncoding validates that pubKey is a serialized compressed
// (33-byte) or uncompressed (65-byte) secp256k1 point, the two encodings
// legacy and witness-v0 signature checks accept.
func checkPublicKeyEncoding(pubKey []byte) error {
	switch len(pubKey) {
	case 33:
		if pubKey[0] != 0x02 && pubKey[0] != 0x03 {
			return scriptError(ErrInvalidPublicKey, "invalid compressed pubkey prefix")
		}
		return nil
	case 65:
		if pubKey[0] != 0x04 {
			return scriptError(ErrInvalidPublicKey, "invalid uncompressed pubkey prefix")
		}
		return nil
	default:
		return scriptErrorf(ErrInvalidPublicKey, "invalid pubkey length %d", len(pubKey))
	}
}

// verifyECDSASignature verifies an ECDSA signature (without its trailing
// sighash byte) over hash using pubKeyBytes.
func verifyECDSASignature(derSig []byte, hash chainhash.Hash, pubKeyBytes []byte) (bool, error) {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, scriptErrorf(ErrInvalidPublicKey, "invalid public key: %v", err)
	}
	sig, err := btcecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false, scriptErrorf(ErrInvalidSignature, "invalid signature: %v", err)
	}
	return sig.Verify(hash[:], pubKey), nil
}

// verifySchnorrSignature verifies a BIP340 Schnorr signature over hash
// using an X-only public key, the scheme taproot key-path and tapscript
// CHECKSIG family opcodes use.
func verifySchnorrSignature(sig []byte, hash chainhash.Hash, xOnlyPubKey []byte) (bool, error) {
	if len(xOnlyPubKey) != 32 {
		return false, scriptErrorf(ErrInvalidPublicKey,
			"invalid x-only public key length %d", len(xOnlyPubKey))
	}
	pubKey, err := schnorr.ParsePubKey(xOnlyPubKey)
	if err != nil {
		return false, scriptErrorf(ErrInvalidPublicKey, "invalid x-only public key: %v", err)
	}
	parsedSig, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false, scriptErrorf(ErrInvalidSignature, "invalid schnorr signature: %v", err)
	}
	return parsedSig.Verify(hash[:], pubKey), nil
}

// splitSchnorrSigAndHashType separates the optional trailing sighash-type
// byte from a taproot/tapscript signature. A 64-byte signature implies
// SIGHASH_DEFAULT (BIP341: omitting the byte does not mean ALL, it means
// the distinct default type, which calcTaprootSignatureHash embeds as a
// literal 0x00 byte in the signed message); a 65-byte signature carries an
// explicit type which must not itself be zero.
func splitSchnorrSigAndHashType(sig []byte) (rawSig []byte, hashType SigHashType, err error) {
	switch len(sig) {
	case 64:
		return sig, SigHashDefault, nil
	case 65:
		ht := SigHashType(sig[64])
		if ht == 0 {
			return nil, 0, scriptError(ErrSignatureHashTypeInvalid,
				"explicit taproot sighash byte must not be the default ALL (0)")
		}
		return sig[:64], ht, nil
	default:
		return nil, 0, scriptErrorf(ErrInvalidSignature,
			"invalid schnorr signature length %d", len(sig))
	}
}
