package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// TapLeafVersion is the leaf-version byte of a tapscript leaf; 0xc0 is the
// only version defined by BIP342 today.
const TapLeafVersion byte = 0xc0

const (
	controlBlockBaseSize  = 33
	controlBlockNodeSize  = 32
	maxTaprootPathLen     = 128
)

// TapLeafHash computes TaggedHash("TapLeaf", leafVersion || compactsize
// (len(script)) || script), the commitment to a single tapscript leaf
// (spec.md §4.2 "recompute the Merkle root from ... the tapscript").
func TapLeafHash(leafVersion byte, script []byte) chainhash.Hash {
	var buf []byte
	buf = append(buf, leafVersion)
	var sizeBuf countingWriter
	_ = writeCompactSizeToSlice(&sizeBuf, uint64(len(script)))
	buf = append(buf, sizeBuf.bytes...)
	buf = append(buf, script...)
	return chainhash.TaggedHash("TapLeaf", buf)
}

// countingWriter is a minimal io.Writer over a byte slice, used to reuse
// wire.WriteCompactSize's encoding logic without pulling in bytes.Buffer
// for this one call site.
type countingWriter struct {
	bytes []byte
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.bytes = append(w.bytes, p...)
	return len(p), nil
}

func writeCompactSizeToSlice(w *countingWriter, n uint64) error {
	return wire.WriteCompactSize(w, n)
}

// tapBranchHash combines two Merkle tree nodes per BIP341: the pair is
// sorted lexicographically before hashing so the tree commitment doesn't
// depend on sibling order.
func tapBranchHash(a, b chainhash.Hash) chainhash.Hash {
	if lessHash(b, a) {
		a, b = b, a
	}
	return chainhash.TaggedHash("TapBranch", a[:], b[:])
}

func lessHash(a, b chainhash.Hash) bool {
	for i := 0; i < chainhash.HashSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ControlBlock is the parsed form of a taproot script-path spend's control
// block: the tapscript's leaf version and the internal key's parity, the
// internal public key itself, and the Merkle inclusion path to the output
// key (spec.md §4.2).
type ControlBlock struct {
	LeafVersion byte
	Parity      bool
	InternalKey [32]byte
	Path        [][32]byte
}

// ParseControlBlock validates and decodes a raw control block. Length must
// be 33 + 32*m for some 0 <= m <= 128 (spec.md's practical bound on script
// depth); anything else is ErrTaprootControlBlockInvalid.
func ParseControlBlock(raw []byte) (*ControlBlock, error) {
	if len(raw) < controlBlockBaseSize {
		return nil, scriptError(ErrTaprootControlBlockInvalid, "control block too short")
	}
	extra := len(raw) - controlBlockBaseSize
	if extra%controlBlockNodeSize != 0 {
		return nil, scriptError(ErrTaprootControlBlockInvalid,
			"control block length is not 33 + 32*m")
	}
	depth := extra / controlBlockNodeSize
	if depth > maxTaprootPathLen {
		return nil, scriptError(ErrTaprootControlBlockInvalid, "control block path too deep")
	}

	cb := &ControlBlock{
		LeafVersion: raw[0] & 0xfe,
		Parity:      raw[0]&0x01 == 1,
	}
	copy(cb.InternalKey[:], raw[1:33])

	cb.Path = make([][32]byte, depth)
	for i := 0; i < depth; i++ {
		off := controlBlockBaseSize + i*controlBlockNodeSize
		copy(cb.Path[i][:], raw[off:off+controlBlockNodeSize])
	}
	return cb, nil
}

// MerkleRoot recomputes the Merkle root committing to leafHash by folding
// the control block's inclusion path, one sibling at a time.
func (cb *ControlBlock) MerkleRoot(leafHash chainhash.Hash) chainhash.Hash {
	node := leafHash
	for _, sibling := range cb.Path {
		node = tapBranchHash(node, chainhash.Hash(sibling))
	}
	return node
}

// TapTweakHash computes TaggedHash("TapTweak", internalKey || merkleRoot),
// the scalar (as a hash) added to the internal key to derive the output
// key. merkleRoot is empty for a key-path-only output (spec.md §4.4's
// taproot key-path signer branch).
func TapTweakHash(internalKey [32]byte, merkleRoot []byte) chainhash.Hash {
	return chainhash.TaggedHash("TapTweak", internalKey[:], merkleRoot)
}

// TweakTaprootPubKey applies the BIP341 output-key tweak to an X-only
// internal key and returns the resulting X-only output key together with
// its Y-coordinate parity (needed by callers constructing the scriptPubKey
// or verifying a control block's parity bit).
func TweakTaprootPubKey(internalKey [32]byte, merkleRoot []byte) (outputKey [32]byte, parity bool, err error) {
	tweak := TapTweakHash(internalKey, merkleRoot)

	pub, err := schnorr.ParsePubKey(internalKey[:])
	if err != nil {
		return outputKey, false, scriptErrorf(ErrInvalidPublicKey,
			"invalid internal key: %v", err)
	}

	var tweakScalar secp.ModNScalar
	tweakScalar.SetBytes((*[32]byte)(tweak[:]))

	var tweakPoint secp.JacobianPoint
	secp.ScalarBaseMultNonConst(&tweakScalar, &tweakPoint)

	var internalPoint secp.JacobianPoint
	pub.AsJacobian(&internalPoint)

	var outPoint secp.JacobianPoint
	secp.AddNonConst(&internalPoint, &tweakPoint, &outPoint)
	outPoint.ToAffine()

	outPub := secp.NewPublicKey(&outPoint.X, &outPoint.Y)
	compressed := outPub.SerializeCompressed()
	copy(outputKey[:], compressed[1:])
	parity = compressed[0] == secp.PubKeyFormatCompressedOdd

	return outputKey, parity, nil
}

// TweakTaprootPrivKey derives the tweaked private key for the key-path
// spend of a taproot output whose internal key is derived from privKey,
// negating privKey first if its public key's Y coordinate is odd (BIP341
// requires the internal key be "even"). merkleRoot is nil/empty for a
// key-path-only (script-less) output.
func TweakTaprootPrivKey(privKey *btcec.PrivateKey, merkleRoot []byte) *btcec.PrivateKey {
	pub := privKey.PubKey()
	var internalKey [32]byte
	copy(internalKey[:], schnorr.SerializePubKey(pub))

	privScalar := privKey.Key
	if pub.SerializeCompressed()[0] == secp.PubKeyFormatCompressedOdd {
		privScalar.Negate()
	}

	tweak := TapTweakHash(internalKey, merkleRoot)
	var tweakScalar secp.ModNScalar
	tweakScalar.SetBytes((*[32]byte)(tweak[:]))

	privScalar.Add(&tweakScalar)

	return secp.NewPrivateKey(&privScalar)
}
