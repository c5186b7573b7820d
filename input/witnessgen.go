package input

import (
	"fmt"

	"github.com/TokeoPay/swift-bitcoin/txscript"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// WitnessType determines which of the standard script templates a
// SignDescriptor's output was locked with, and therefore how its spending
// scriptSig/witness must be constructed.
type WitnessType uint16

const (
	// PubKey spends a bare P2PK output: a single signature satisfies
	// OP_CHECKSIG directly against the output's own public key.
	PubKey WitnessType = 0

	// PubKeyHash spends a legacy P2PKH output: sigScript pushes a
	// signature and the full public key.
	PubKeyHash WitnessType = 1

	// WitnessKeyHash spends a native P2WPKH output: the witness stack
	// pushes a signature and the full public key, no sigScript.
	WitnessKeyHash WitnessType = 2

	// NestedWitnessKeyHash spends a P2SH-wrapped P2WPKH output: the
	// sigScript pushes the redeem (witness program) script, and the
	// witness carries the signature and public key exactly as
	// WitnessKeyHash does.
	NestedWitnessKeyHash WitnessType = 3

	// WitnessScriptHash spends a native P2WSH multisig output: the
	// witness stack pushes OP_0, the required signatures in order, and
	// the witness script.
	WitnessScriptHash WitnessType = 4

	// ScriptHash spends a legacy P2SH multisig output: the sigScript
	// pushes OP_0, the required signatures in order, and the redeem
	// script.
	ScriptHash WitnessType = 5

	// NestedWitnessScriptHash spends a P2SH-wrapped P2WSH multisig
	// output: the sigScript pushes the P2WSH witness program, and the
	// witness carries OP_0, the signatures, and the witness script.
	NestedWitnessScriptHash WitnessType = 6

	// TaprootKeySpend spends a P2TR output via the key path: the witness
	// stack carries a single BIP340 Schnorr signature over the tweaked
	// output key.
	TaprootKeySpend WitnessType = 7

	// MultiSig spends a bare multisig output (no P2SH/P2WSH wrapper): the
	// sigScript pushes OP_0 and the required signatures directly, with no
	// redeem/witness script push since the multisig script is already the
	// output's pkScript.
	MultiSig WitnessType = 8
)

// String returns a human readable version of the target WitnessType.
func (wt WitnessType) String() string {
	switch wt {
	case PubKey:
		return "PubKey"
	case PubKeyHash:
		return "PubKeyHash"
	case WitnessKeyHash:
		return "WitnessKeyHash"
	case NestedWitnessKeyHash:
		return "NestedWitnessKeyHash"
	case WitnessScriptHash:
		return "WitnessScriptHash"
	case ScriptHash:
		return "ScriptHash"
	case NestedWitnessScriptHash:
		return "NestedWitnessScriptHash"
	case TaprootKeySpend:
		return "TaprootKeySpend"
	case MultiSig:
		return "MultiSig"
	default:
		return fmt.Sprintf("Unknown WitnessType: %v", uint16(wt))
	}
}

// WitnessGenerator represents a function able to generate the final witness
// (and, for legacy/nested templates, sigScript) for a particular output.
// This function acts as an abstraction layer hiding the details of the
// underlying script template from callers assembling a transaction.
type WitnessGenerator func(tx *wire.MsgTx, hc *txscript.TxSigHashes,
	inputIndex int) (*Script, error)

// GenWitnessFunc returns a WitnessGenerator that a caller uses to produce
// the spending script for descriptor's output, dispatching on wt to the
// signing routine for the matching template.
func (wt WitnessType) GenWitnessFunc(signer Signer,
	descriptor *SignDescriptor) WitnessGenerator {

	return func(tx *wire.MsgTx, hc *txscript.TxSigHashes,
		inputIndex int) (*Script, error) {

		desc := *descriptor
		desc.SigHashes = hc
		desc.InputIndex = inputIndex

		switch wt {
		case PubKey:
			return PubKeySpend(signer, &desc, tx)

		case PubKeyHash:
			return PubKeyHashSpend(signer, &desc, tx)

		case WitnessKeyHash:
			return WitnessKeyHashSpend(signer, &desc, tx)

		case NestedWitnessKeyHash:
			return NestedWitnessKeyHashSpend(signer, &desc, tx)

		case WitnessScriptHash:
			return WitnessScriptHashSpend(signer, &desc, tx)

		case ScriptHash:
			return ScriptHashSpend(signer, &desc, tx)

		case NestedWitnessScriptHash:
			return NestedWitnessScriptHashSpend(signer, &desc, tx)

		case TaprootKeySpend:
			return TaprootKeySpendSpend(signer, &desc, tx)

		case MultiSig:
			return MultiSigSpend(signer, &desc, tx)

		default:
			return nil, fmt.Errorf("unknown witness type: %v", wt)
		}
	}
}
