// Package wire implements the wire serialization of Bitcoin transactions:
// compact-size integers, the legacy transaction form, and the segwit
// marker/flag/witness form, per spec.md §3 and §6.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
)

// Protocol-level bounds. MaxTxInPerMessage/MaxTxOutPerMessage guard the
// decoder against unbounded allocation on adversarial input; they are far
// above anything a real transaction needs.
const (
	MaxTxInPerMessage    = 1_000_000
	MaxTxOutPerMessage   = 1_000_000
	MaxWitnessItemsPerTx = 1_000_000
	MaxWitnessItemSize   = 11_000_000

	// witSegwitMarker and witSegwitFlag mark the presence of a witness
	// section immediately following the input/output counts.
	witSegwitMarker = 0x00
	witSegwitFlag   = 0x01

	// SequenceLockTimeDisabled, when set on TxIn.Sequence, disables both
	// the relative-locktime and opt-in-RBF interpretations of the field.
	SequenceLockTimeDisabled = 1 << 31

	// The transaction version is not range-checked by this package; it is
	// treated as an opaque int32 the way the interpreter and signer need
	// it, matching upstream Bitcoin Core's own lack of a version cap for
	// pre-BIP standardness relay rules (out of scope here).
)

// OutPoint identifies a specific output of a specific previous transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new OutPoint for the given transaction hash/index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash.String(), o.Index)
}

// TxIn defines a transaction input: the outpoint it spends, its unlocking
// script, its sequence number, and (for segwit transactions) its witness.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
	Witness          TxWitness
}

// NewTxIn returns a new TxIn spending prevOut with the given sigScript and
// a default (final) sequence number.
func NewTxIn(prevOut *OutPoint, sigScript []byte, witness TxWitness) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  sigScript,
		Sequence:         MaxTxInSequenceNum,
		Witness:          witness,
	}
}

// MaxTxInSequenceNum is the default, "final" sequence number: it disables
// both absolute nLockTime enforcement (from the spender's perspective) and
// relative locktime/RBF signaling.
const MaxTxInSequenceNum uint32 = 0xffffffff

// TxWitness is the witness stack carried by a single input: an ordered
// list of byte strings not committed to by the legacy txid.
type TxWitness [][]byte

// SerializeSize returns the number of bytes the witness occupies in the
// segwit wire form, including its own item-count compact-size prefix.
func (w TxWitness) SerializeSize() int {
	n := CompactSizeLen(uint64(len(w)))
	for _, item := range w {
		n += CompactSizeLen(uint64(len(item))) + len(item)
	}
	return n
}

// SerializeSize returns the number of bytes this input occupies in the
// legacy (no witness) wire form.
func (t *TxIn) SerializeSize() int {
	// outpoint (32+4) + sequence (4) + script length prefix + script.
	return 40 + CompactSizeLen(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript)
}

// TxOut defines a transaction output: its value in satoshis and its
// locking script.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new TxOut.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// SerializeSize returns the number of bytes this output occupies in the
// wire form.
func (t *TxOut) SerializeSize() int {
	return 8 + CompactSizeLen(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx represents a Bitcoin transaction: a version, an ordered list of
// inputs and outputs, and a locktime.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns a new, empty MsgTx at the given version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn appends ti to the input list.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut appends to to the output list.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// HasWitness reports whether any input carries a non-empty witness. Per
// spec §3, an empty witness list is equivalent to "no witness", and the
// wire encoder only emits the segwit marker/flag form when this is true.
func (msg *MsgTx) HasWitness() bool {
	for _, txIn := range msg.TxIn {
		if len(txIn.Witness) > 0 {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of msg, safe to mutate independently.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := &MsgTx{
		Version:  msg.Version,
		TxIn:     make([]*TxIn, 0, len(msg.TxIn)),
		TxOut:    make([]*TxOut, 0, len(msg.TxOut)),
		LockTime: msg.LockTime,
	}

	for _, oldTxIn := range msg.TxIn {
		newTxIn := &TxIn{
			PreviousOutPoint: oldTxIn.PreviousOutPoint,
			Sequence:         oldTxIn.Sequence,
		}
		if oldTxIn.SignatureScript != nil {
			newTxIn.SignatureScript = append([]byte(nil), oldTxIn.SignatureScript...)
		}
		if oldTxIn.Witness != nil {
			newTxIn.Witness = make(TxWitness, len(oldTxIn.Witness))
			for i, item := range oldTxIn.Witness {
				newTxIn.Witness[i] = append([]byte(nil), item...)
			}
		}
		newTx.TxIn = append(newTx.TxIn, newTxIn)
	}

	for _, oldTxOut := range msg.TxOut {
		newTxOut := &TxOut{Value: oldTxOut.Value}
		if oldTxOut.PkScript != nil {
			newTxOut.PkScript = append([]byte(nil), oldTxOut.PkScript...)
		}
		newTx.TxOut = append(newTx.TxOut, newTxOut)
	}

	return newTx
}

// TxHash returns the double-SHA256 of the legacy (witness-stripped)
// serialization. This is the transaction ID and is stable under witness
// mutation, per spec §8's TXID-stability property.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.DoubleHashH(msg.legacyBytes())
}

// WitnessHash returns the double-SHA256 of the full segwit serialization
// when the transaction carries a witness, and falls back to TxHash
// otherwise (matching consensus: a transaction with no witnesses has
// wtxid == txid).
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	if !msg.HasWitness() {
		return msg.TxHash()
	}
	return chainhash.DoubleHashH(msg.witnessBytes())
}

func (msg *MsgTx) legacyBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(msg.legacySerializeSize())
	_ = msg.serialize(&buf, false)
	return buf.Bytes()
}

func (msg *MsgTx) witnessBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	_ = msg.serialize(&buf, true)
	return buf.Bytes()
}

// Serialize writes the transaction to w, using the segwit form when the
// transaction carries a witness and the legacy form otherwise.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, msg.HasWitness())
}

// SerializeNoWitness writes the legacy form unconditionally, used by the
// legacy sighash path which must never include witness data even for a
// segwit transaction.
func (msg *MsgTx) SerializeNoWitness(w io.Writer) error {
	return msg.serialize(w, false)
}

// Bytes returns the wire-serialized transaction (segwit form if
// applicable).
func (msg *MsgTx) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	_ = msg.Serialize(&buf)
	return buf.Bytes()
}

func (msg *MsgTx) serialize(w io.Writer, withWitness bool) error {
	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], uint32(msg.Version))
	if _, err := w.Write(verBuf[:]); err != nil {
		return err
	}

	if withWitness {
		if _, err := w.Write([]byte{witSegwitMarker, witSegwitFlag}); err != nil {
			return err
		}
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}

	if withWitness {
		for _, ti := range msg.TxIn {
			if err := writeTxWitness(w, ti.Witness); err != nil {
				return err
			}
		}
	}

	var lockBuf [4]byte
	binary.LittleEndian.PutUint32(lockBuf[:], msg.LockTime)
	_, err := w.Write(lockBuf[:])
	return err
}

func writeTxIn(w io.Writer, ti *TxIn) error {
	if _, err := w.Write(ti.PreviousOutPoint.Hash[:]); err != nil {
		return err
	}
	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], ti.PreviousOutPoint.Index)
	if _, err := w.Write(idxBuf[:]); err != nil {
		return err
	}
	if err := writeVarBytes(w, ti.SignatureScript); err != nil {
		return err
	}
	var seqBuf [4]byte
	binary.LittleEndian.PutUint32(seqBuf[:], ti.Sequence)
	_, err := w.Write(seqBuf[:])
	return err
}

func writeTxOut(w io.Writer, to *TxOut) error {
	var valBuf [8]byte
	binary.LittleEndian.PutUint64(valBuf[:], uint64(to.Value))
	if _, err := w.Write(valBuf[:]); err != nil {
		return err
	}
	return writeVarBytes(w, to.PkScript)
}

func writeTxWitness(w io.Writer, wit TxWitness) error {
	if err := WriteCompactSize(w, uint64(len(wit))); err != nil {
		return err
	}
	for _, item := range wit {
		if err := writeVarBytes(w, item); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a transaction from r, auto-detecting the legacy vs.
// segwit marker/flag form.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var verBuf [4]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return err
	}
	msg.Version = int32(binary.LittleEndian.Uint32(verBuf[:]))

	countOrMarker, err := ReadCompactSize(r)
	if err != nil {
		return err
	}

	segwit := false
	var inCount uint64
	if countOrMarker == witSegwitMarker {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witSegwitFlag {
			return fmt.Errorf("unsupported segwit flag byte 0x%02x", flag[0])
		}
		segwit = true
		inCount, err = ReadCompactSize(r)
		if err != nil {
			return err
		}
	} else {
		inCount = countOrMarker
	}

	if inCount > MaxTxInPerMessage {
		return fmt.Errorf("too many transaction inputs: %d", inCount)
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := readTxIn(r, ti); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerMessage {
		return fmt.Errorf("too many transaction outputs: %d", outCount)
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		if err := readTxOut(r, to); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if segwit {
		for _, ti := range msg.TxIn {
			wit, err := readTxWitness(r)
			if err != nil {
				return err
			}
			ti.Witness = wit
		}
	}

	var lockBuf [4]byte
	if _, err := io.ReadFull(r, lockBuf[:]); err != nil {
		return err
	}
	msg.LockTime = binary.LittleEndian.Uint32(lockBuf[:])

	return nil
}

func readTxIn(r io.Reader, ti *TxIn) error {
	if _, err := io.ReadFull(r, ti.PreviousOutPoint.Hash[:]); err != nil {
		return err
	}
	var idxBuf [4]byte
	if _, err := io.ReadFull(r, idxBuf[:]); err != nil {
		return err
	}
	ti.PreviousOutPoint.Index = binary.LittleEndian.Uint32(idxBuf[:])

	script, err := readVarBytes(r, 10_000_000, "signature script")
	if err != nil {
		return err
	}
	ti.SignatureScript = script

	var seqBuf [4]byte
	if _, err := io.ReadFull(r, seqBuf[:]); err != nil {
		return err
	}
	ti.Sequence = binary.LittleEndian.Uint32(seqBuf[:])
	return nil
}

func readTxOut(r io.Reader, to *TxOut) error {
	var valBuf [8]byte
	if _, err := io.ReadFull(r, valBuf[:]); err != nil {
		return err
	}
	to.Value = int64(binary.LittleEndian.Uint64(valBuf[:]))

	script, err := readVarBytes(r, 10_000_000, "pk script")
	if err != nil {
		return err
	}
	to.PkScript = script
	return nil
}

func readTxWitness(r io.Reader) (TxWitness, error) {
	count, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if count > MaxWitnessItemsPerTx {
		return nil, fmt.Errorf("too many witness items: %d", count)
	}
	wit := make(TxWitness, count)
	for i := range wit {
		item, err := readVarBytes(r, MaxWitnessItemSize, "witness item")
		if err != nil {
			return nil, err
		}
		wit[i] = item
	}
	return wit, nil
}

// SerializeSize returns the number of bytes this transaction occupies on
// the wire, in whichever form (legacy/segwit) it would actually serialize
// to.
func (msg *MsgTx) SerializeSize() int {
	if msg.HasWitness() {
		return msg.witnessSerializeSize()
	}
	return msg.legacySerializeSize()
}

func (msg *MsgTx) legacySerializeSize() int {
	n := 4 + 4 // version + locktime
	n += CompactSizeLen(uint64(len(msg.TxIn)))
	for _, ti := range msg.TxIn {
		n += ti.SerializeSize()
	}
	n += CompactSizeLen(uint64(len(msg.TxOut)))
	for _, to := range msg.TxOut {
		n += to.SerializeSize()
	}
	return n
}

func (msg *MsgTx) witnessSerializeSize() int {
	n := msg.legacySerializeSize() + 2 // marker + flag
	for _, ti := range msg.TxIn {
		n += ti.Witness.SerializeSize()
	}
	return n
}

// NewMsgTxFromBytes decodes a transaction from its wire form.
func NewMsgTxFromBytes(b []byte) (*MsgTx, error) {
	tx := &MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return tx, nil
}
