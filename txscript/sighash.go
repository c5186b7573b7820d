package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// SigHashType is the low-level sighash type byte of spec.md §6: the low 5
// bits select ALL/NONE/SINGLE, and bit 0x80 (SigHashAnyOneCanPay) is an
// independent modifier.
type SigHashType uint32

const (
	// SigHashDefault is the taproot-only sighash type (BIP341): signing
	// with it omits the sighash type byte entirely, and it behaves as
	// SigHashAll for the purpose of which outputs get committed to.
	SigHashDefault SigHashType = 0

	SigHashAll          SigHashType = 1
	SigHashNone         SigHashType = 2
	SigHashSingle       SigHashType = 3
	SigHashAnyOneCanPay SigHashType = 0x80

	sigHashMask = 0x1f
)

func (t SigHashType) baseType() SigHashType {
	return t & sigHashMask
}

func (t SigHashType) anyOneCanPay() bool {
	return t&SigHashAnyOneCanPay != 0
}

// isDefined reports whether t is a recognized combination; legacy and
// witness-v0 evaluation reject anything else with
// ErrSignatureHashTypeInvalid (base must be ALL/NONE/SINGLE, other bits
// besides ANYONECANPAY are reserved per spec.md §6).
func (t SigHashType) isDefined() bool {
	base := t.baseType()
	return base >= SigHashAll && base <= SigHashSingle
}

// SigVersion names the three sighash algorithms: legacy
// (calcSignatureHash), BIP143 witness v0 (calcWitnessSignatureHash), and
// BIP341 witness v1 / tapscript (calcTaprootSignatureHash).
type SigVersion int

const (
	SigVersionBase SigVersion = iota
	SigVersionWitnessV0
	SigVersionTaproot
)

// sigHashSingleBug is the integer 1 as a 32-byte little-endian hash
// (displayed as 0x0000...0001), the sentinel legacy SIGHASH_SINGLE returns
// when the input index has no corresponding output (spec.md §4.3, §8
// scenario 6). It is used as is, not the result of hashing anything —
// matching the historical behavior every consensus implementation must
// reproduce exactly.
var sigHashSingleBug = chainhash.Hash{
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// calcSignatureHash implements the legacy sighash algorithm of spec.md
// §4.3: build a scratch transaction with every input's script blanked out
// except the one under test (which gets scriptCode), apply the sighash
// type's output/sequence transformations, then double-SHA256 the
// serialization with the sighash type appended as a little-endian uint32.
func calcSignatureHash(scriptCode []byte, hashType SigHashType, tx *wire.MsgTx, idx int) (chainhash.Hash, error) {
	if idx >= len(tx.TxIn) {
		return chainhash.Hash{}, scriptErrorf(ErrInvalidOperation,
			"input index %d out of range for tx with %d inputs", idx, len(tx.TxIn))
	}

	if hashType.baseType() == SigHashSingle && idx >= len(tx.TxOut) {
		return sigHashSingleBug, nil
	}

	scratch := tx.Copy()

	for i := range scratch.TxIn {
		if i == idx {
			scratch.TxIn[i].SignatureScript = scriptCode
		} else {
			scratch.TxIn[i].SignatureScript = nil
		}
		scratch.TxIn[i].Witness = nil
	}

	switch hashType.baseType() {
	case SigHashNone:
		scratch.TxOut = nil
		for i := range scratch.TxIn {
			if i != idx {
				scratch.TxIn[i].Sequence = 0
			}
		}
	case SigHashSingle:
		scratch.TxOut = scratch.TxOut[:idx+1]
		for i := 0; i < idx; i++ {
			scratch.TxOut[i] = &wire.TxOut{Value: -1}
		}
		for i := range scratch.TxIn {
			if i != idx {
				scratch.TxIn[i].Sequence = 0
			}
		}
	}

	if hashType.anyOneCanPay() {
		scratch.TxIn = []*wire.TxIn{scratch.TxIn[idx]}
	}

	var buf bytes.Buffer
	if err := scratch.SerializeNoWitness(&buf); err != nil {
		return chainhash.Hash{}, err
	}

	var hashTypeBuf [4]byte
	binary.LittleEndian.PutUint32(hashTypeBuf[:], uint32(hashType))
	buf.Write(hashTypeBuf[:])

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

// TxSigHashes caches the transaction-wide digests that BIP143 and BIP341
// both build on top of, since they depend only on the transaction and its
// previous outputs, not on the input under test (spec.md §4.3 "Caching").
type TxSigHashes struct {
	HashPrevOutsV0 chainhash.Hash
	HashSequenceV0 chainhash.Hash
	HashOutputsV0  chainhash.Hash

	HashPrevOuts      chainhash.Hash
	HashAmounts       chainhash.Hash
	HashScriptPubKeys chainhash.Hash
	HashSequences     chainhash.Hash
	HashOutputs       chainhash.Hash
}

// NewTxSigHashes precomputes every cached digest BIP143/BIP341 need. Per
// spec.md §9 ("recompute on every set(...)") a new instance should be
// built whenever the transaction's commitment-relevant fields change;
// TxSigHashes itself is immutable once constructed.
func NewTxSigHashes(tx *wire.MsgTx, prevOuts []*wire.TxOut) *TxSigHashes {
	sh := &TxSigHashes{}

	var prevOutsBuf, prevOutsBufTap, sequenceBuf, outputsBuf bytes.Buffer
	var amountsBuf, scriptPubKeysBuf bytes.Buffer

	for _, in := range tx.TxIn {
		prevOutsBuf.Write(in.PreviousOutPoint.Hash[:])
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], in.PreviousOutPoint.Index)
		prevOutsBuf.Write(idx[:])
		prevOutsBufTap.Write(in.PreviousOutPoint.Hash[:])
		prevOutsBufTap.Write(idx[:])

		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], in.Sequence)
		sequenceBuf.Write(seq[:])
	}

	for _, prevOut := range prevOuts {
		var amt [8]byte
		if prevOut != nil {
			binary.LittleEndian.PutUint64(amt[:], uint64(prevOut.Value))
		}
		amountsBuf.Write(amt[:])

		var script []byte
		if prevOut != nil {
			script = prevOut.PkScript
		}
		_ = wire.WriteCompactSize(&scriptPubKeysBuf, uint64(len(script)))
		scriptPubKeysBuf.Write(script)
	}

	for _, out := range tx.TxOut {
		var val [8]byte
		binary.LittleEndian.PutUint64(val[:], uint64(out.Value))
		outputsBuf.Write(val[:])
		_ = wire.WriteCompactSize(&outputsBuf, uint64(len(out.PkScript)))
		outputsBuf.Write(out.PkScript)
	}

	sh.HashPrevOutsV0 = chainhash.DoubleHashH(prevOutsBuf.Bytes())
	sh.HashSequenceV0 = chainhash.DoubleHashH(sequenceBuf.Bytes())
	sh.HashOutputsV0 = chainhash.DoubleHashH(outputsBuf.Bytes())

	sh.HashPrevOuts = chainhash.HashH(prevOutsBufTap.Bytes())
	sh.HashAmounts = chainhash.HashH(amountsBuf.Bytes())
	sh.HashScriptPubKeys = chainhash.HashH(scriptPubKeysBuf.Bytes())
	sh.HashSequences = chainhash.HashH(sequenceBuf.Bytes())
	sh.HashOutputs = chainhash.HashH(outputsBuf.Bytes())

	return sh
}

// calcWitnessSignatureHash implements BIP143 (spec.md §4.3): the message
// is version || hashPrevouts || hashSequence || outpoint ||
// compact-size(scriptCode) || scriptCode || amount || sequence ||
// hashOutputs || locktime || sighash type, double-SHA256'd. hashPrevouts/
// hashSequence/hashOutputs are zeroed per the active sighash type.
func calcWitnessSignatureHash(scriptCode []byte, sigHashes *TxSigHashes, hashType SigHashType, tx *wire.MsgTx, idx int, amount int64) (chainhash.Hash, error) {
	if idx >= len(tx.TxIn) {
		return chainhash.Hash{}, scriptErrorf(ErrInvalidOperation,
			"input index %d out of range for tx with %d inputs", idx, len(tx.TxIn))
	}

	var buf bytes.Buffer

	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], uint32(tx.Version))
	buf.Write(verBuf[:])

	zero := chainhash.Hash{}
	if !hashType.anyOneCanPay() {
		buf.Write(sigHashes.HashPrevOutsV0[:])
	} else {
		buf.Write(zero[:])
	}

	if !hashType.anyOneCanPay() && hashType.baseType() != SigHashSingle && hashType.baseType() != SigHashNone {
		buf.Write(sigHashes.HashSequenceV0[:])
	} else {
		buf.Write(zero[:])
	}

	in := tx.TxIn[idx]
	buf.Write(in.PreviousOutPoint.Hash[:])
	var outIdx [4]byte
	binary.LittleEndian.PutUint32(outIdx[:], in.PreviousOutPoint.Index)
	buf.Write(outIdx[:])

	_ = wire.WriteCompactSize(&buf, uint64(len(scriptCode)))
	buf.Write(scriptCode)

	var amtBuf [8]byte
	binary.LittleEndian.PutUint64(amtBuf[:], uint64(amount))
	buf.Write(amtBuf[:])

	var seqBuf [4]byte
	binary.LittleEndian.PutUint32(seqBuf[:], in.Sequence)
	buf.Write(seqBuf[:])

	if hashType.baseType() != SigHashSingle && hashType.baseType() != SigHashNone {
		buf.Write(sigHashes.HashOutputsV0[:])
	} else if hashType.baseType() == SigHashSingle && idx < len(tx.TxOut) {
		var outBuf bytes.Buffer
		out := tx.TxOut[idx]
		var val [8]byte
		binary.LittleEndian.PutUint64(val[:], uint64(out.Value))
		outBuf.Write(val[:])
		_ = wire.WriteCompactSize(&outBuf, uint64(len(out.PkScript)))
		outBuf.Write(out.PkScript)
		single := chainhash.DoubleHashH(outBuf.Bytes())
		buf.Write(single[:])
	} else {
		buf.Write(zero[:])
	}

	var lockBuf [4]byte
	binary.LittleEndian.PutUint32(lockBuf[:], tx.LockTime)
	buf.Write(lockBuf[:])

	var htBuf [4]byte
	binary.LittleEndian.PutUint32(htBuf[:], uint32(hashType))
	buf.Write(htBuf[:])

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

// TaprootSigHashExtra carries the script-path-specific inputs to
// calcTaprootSignatureHash: the tapleaf hash of the script being
// executed, the key version byte (always 0x00 today), and the byte offset
// of the last executed OP_CODESEPARATOR (spec.md §4.3).
type TaprootSigHashExtra struct {
	TapLeafHash    chainhash.Hash
	KeyVersion     byte
	CodeSepPos     uint32
	IsScriptPath   bool
}

const noCodeSepExecuted = 0xffffffff

// calcTaprootSignatureHash implements BIP341 (spec.md §4.3): a
// TaggedHash("TapSighash", ...) over an epoch byte, the sighash type, the
// transaction's version/locktime, the cached prevouts/amounts/scriptPubKeys
// /sequences/outputs digests filtered by sighash type, a spend-type byte,
// this input's data (or just its index for ANYONECANPAY), an optional
// annex hash, and — for script-path spends — the tapleaf hash, key
// version and code-separator position.
func calcTaprootSignatureHash(sigHashes *TxSigHashes, hashType SigHashType, tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, annex []byte, extra *TaprootSigHashExtra) (chainhash.Hash, error) {
	if idx >= len(tx.TxIn) || idx >= len(prevOuts) {
		return chainhash.Hash{}, scriptErrorf(ErrInvalidOperation,
			"input index %d out of range", idx)
	}
	if !hashType.isDefined() && hashType != 0 {
		return chainhash.Hash{}, scriptError(ErrSignatureHashTypeInvalid,
			"undefined taproot sighash type")
	}

	var msg bytes.Buffer

	msg.WriteByte(0x00) // epoch
	msg.WriteByte(byte(hashType))

	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], uint32(tx.Version))
	msg.Write(verBuf[:])

	var lockBuf [4]byte
	binary.LittleEndian.PutUint32(lockBuf[:], tx.LockTime)
	msg.Write(lockBuf[:])

	if !hashType.anyOneCanPay() {
		msg.Write(sigHashes.HashPrevOuts[:])
		msg.Write(sigHashes.HashAmounts[:])
		msg.Write(sigHashes.HashScriptPubKeys[:])
		msg.Write(sigHashes.HashSequences[:])
	}
	if hashType.baseType() != SigHashNone && hashType.baseType() != SigHashSingle {
		msg.Write(sigHashes.HashOutputs[:])
	}

	spendType := byte(0)
	if annex != nil {
		spendType |= 1
	}
	if extra != nil && extra.IsScriptPath {
		spendType |= 2
	}
	msg.WriteByte(spendType)

	if hashType.anyOneCanPay() {
		in := tx.TxIn[idx]
		msg.Write(in.PreviousOutPoint.Hash[:])
		var outIdx [4]byte
		binary.LittleEndian.PutUint32(outIdx[:], in.PreviousOutPoint.Index)
		msg.Write(outIdx[:])

		var amt [8]byte
		binary.LittleEndian.PutUint64(amt[:], uint64(prevOuts[idx].Value))
		msg.Write(amt[:])

		_ = wire.WriteCompactSize(&msg, uint64(len(prevOuts[idx].PkScript)))
		msg.Write(prevOuts[idx].PkScript)

		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], in.Sequence)
		msg.Write(seq[:])
	} else {
		var idxBuf [4]byte
		binary.LittleEndian.PutUint32(idxBuf[:], uint32(idx))
		msg.Write(idxBuf[:])
	}

	if annex != nil {
		var annexBuf bytes.Buffer
		_ = wire.WriteCompactSize(&annexBuf, uint64(len(annex)))
		annexBuf.Write(annex)
		annexHash := chainhash.HashH(annexBuf.Bytes())
		msg.Write(annexHash[:])
	}

	if hashType.baseType() == SigHashSingle {
		if idx >= len(tx.TxOut) {
			return chainhash.Hash{}, scriptError(ErrInvalidOperation,
				"SIGHASH_SINGLE with no corresponding output")
		}
		var outBuf bytes.Buffer
		out := tx.TxOut[idx]
		var val [8]byte
		binary.LittleEndian.PutUint64(val[:], uint64(out.Value))
		outBuf.Write(val[:])
		_ = wire.WriteCompactSize(&outBuf, uint64(len(out.PkScript)))
		outBuf.Write(out.PkScript)
		single := chainhash.HashH(outBuf.Bytes())
		msg.Write(single[:])
	}

	if extra != nil && extra.IsScriptPath {
		msg.Write(extra.TapLeafHash[:])
		msg.WriteByte(extra.KeyVersion)
		var cs [4]byte
		binary.LittleEndian.PutUint32(cs[:], extra.CodeSepPos)
		msg.Write(cs[:])
	}

	return chainhash.TaggedHash("TapSighash", msg.Bytes()), nil
}
