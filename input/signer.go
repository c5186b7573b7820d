package input

import (
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// Signature is a signature that can be serialized to its raw wire encoding,
// satisfied by both *ecdsa.Signature (DER) and *schnorr.Signature
// (BIP340 64-byte) from btcec/v2, the two signature schemes this signer
// produces.
type Signature interface {
	Serialize() []byte
}

// Signer represents an abstract object capable of generating raw signatures
// as well as full complete input scripts given a valid SignDescriptor and
// transaction. This interface fully abstracts away signing, paving the way
// for Signer implementations such as hardware wallets, hardware tokens,
// HSMs, or simply an in-memory key store.
type Signer interface {
	// SignOutputRaw generates a signature for the passed transaction
	// according to the data within the passed SignDescriptor.
	//
	// NOTE: The resulting signature should be void of a sighash byte.
	SignOutputRaw(tx *wire.MsgTx, signDesc *SignDescriptor) (Signature,
		error)

	// ComputeInputScript generates a complete InputIndex for the passed
	// transaction with the signature as defined within the passed
	// SignDescriptor. This method is capable of generating the proper
	// input script for all nine of the templates this package supports.
	ComputeInputScript(tx *wire.MsgTx, signDesc *SignDescriptor) (*Script,
		error)
}

// Script represents any script inputs required to redeem a previous
// output. This struct is used rather than just a witness or a sigScript in
// order to accommodate nested P2SH, which requires both.
type Script struct {
	// Witness is the full witness stack required to unlock this output.
	Witness wire.TxWitness

	// SigScript will only be populated if this is a legacy or nested
	// P2SH input script.
	SigScript []byte
}
