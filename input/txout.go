// Package input implements the template-driven transaction signer: given a
// SignDescriptor identifying a previous output and the key material needed
// to spend it, it produces the exact scriptSig/witness pair for each of the
// nine standard script templates this module supports.
package input

import (
	"encoding/binary"
	"io"

	"github.com/TokeoPay/swift-bitcoin/wire"
)

// writeTxOut serializes a wire.TxOut struct into the passed io.Writer stream.
func writeTxOut(w io.Writer, txo *wire.TxOut) error {
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], uint64(txo.Value))
	if _, err := w.Write(scratch[:]); err != nil {
		return err
	}

	return writeVarBytes(w, txo.PkScript)
}

// readTxOut deserializes a wire.TxOut struct from the passed io.Reader stream.
func readTxOut(r io.Reader, txo *wire.TxOut) error {
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return err
	}
	value := int64(binary.BigEndian.Uint64(scratch[:]))

	pkScript, err := readVarBytes(r, 10000)
	if err != nil {
		return err
	}

	*txo = wire.TxOut{
		Value:    value,
		PkScript: pkScript,
	}

	return nil
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := wire.WriteCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readVarBytes(r io.Reader, maxLen uint64) ([]byte, error) {
	n, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, io.ErrShortBuffer
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
