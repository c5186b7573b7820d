package txscript

// ScriptClass identifies the standard locking-script template a
// scriptPubKey matches, per spec.md §4.5's classifier. NonStandardTy
// covers everything else; the interpreter itself never depends on this
// classification, only the signer does (spec.md §4.4 dispatches by
// template).
type ScriptClass int

const (
	NonStandardTy ScriptClass = iota
	PubKeyTy
	PubKeyHashTy
	ScriptHashTy
	MultiSigTy
	NullDataTy
	WitnessV0PubKeyHashTy
	WitnessV0ScriptHashTy
	WitnessV1TaprootTy
)

func (c ScriptClass) String() string {
	switch c {
	case PubKeyTy:
		return "pubkey"
	case PubKeyHashTy:
		return "pubkeyhash"
	case ScriptHashTy:
		return "scripthash"
	case MultiSigTy:
		return "multisig"
	case NullDataTy:
		return "nulldata"
	case WitnessV0PubKeyHashTy:
		return "witness_v0_keyhash"
	case WitnessV0ScriptHashTy:
		return "witness_v0_scripthash"
	case WitnessV1TaprootTy:
		return "witness_v1_taproot"
	default:
		return "nonstandard"
	}
}

// GetScriptClass classifies pkScript against the fixed set of templates
// spec.md §4.5 names, grounded on other_examples/btcsuite-btcd__standard.go's
// isPubKeyHash/isScriptHash/isMultisig/isNullData pattern matchers, adapted
// to this package's ParsedOpcode/Script types and narrowed to exactly the
// eight standard templates ScriptClass lists.
func GetScriptClass(pkScript []byte) ScriptClass {
	if progVersion, program, ok := extractWitnessProgram(pkScript); ok {
		switch {
		case progVersion == 0 && len(program) == 20:
			return WitnessV0PubKeyHashTy
		case progVersion == 0 && len(program) == 32:
			return WitnessV0ScriptHashTy
		case progVersion == 1 && len(program) == 32:
			return WitnessV1TaprootTy
		}
		return NonStandardTy
	}

	ops, err := parseScript(pkScript, ScriptVersionBase)
	if err != nil {
		return NonStandardTy
	}

	if isPubKeyScript(ops) {
		return PubKeyTy
	}
	if isPubKeyHashScript(ops) {
		return PubKeyHashTy
	}
	if isScriptHashScript(ops) {
		return ScriptHashTy
	}
	if isMultiSigScript(ops) {
		return MultiSigTy
	}
	if isNullDataScript(ops) {
		return NullDataTy
	}
	return NonStandardTy
}

// isPubKeyScript reports whether ops is <pubkey> OP_CHECKSIG.
func isPubKeyScript(ops []ParsedOpcode) bool {
	return len(ops) == 2 &&
		ops[0].isPush() && isValidPubKeyLen(len(ops[0].Data)) &&
		ops[1].Opcode() == OP_CHECKSIG
}

func isValidPubKeyLen(n int) bool { return n == 33 || n == 65 }

// isPubKeyHashScript reports whether ops is the P2PKH template
// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG.
func isPubKeyHashScript(ops []ParsedOpcode) bool {
	return len(ops) == 5 &&
		ops[0].Opcode() == OP_DUP &&
		ops[1].Opcode() == OP_HASH160 &&
		ops[2].isPush() && len(ops[2].Data) == 20 &&
		ops[3].Opcode() == OP_EQUALVERIFY &&
		ops[4].Opcode() == OP_CHECKSIG
}

// isScriptHashScript reports whether ops is the P2SH template
// OP_HASH160 <20 bytes> OP_EQUAL (BIP16).
func isScriptHashScript(ops []ParsedOpcode) bool {
	return len(ops) == 3 &&
		ops[0].Opcode() == OP_HASH160 &&
		ops[1].isPush() && len(ops[1].Data) == 20 &&
		ops[2].Opcode() == OP_EQUAL
}

// isMultiSigScript reports whether ops is <m> <pubkey>... <n>
// OP_CHECKMULTISIG with 1 <= m <= n <= MaxPubKeysPerMultiSig.
func isMultiSigScript(ops []ParsedOpcode) bool {
	if len(ops) < 4 {
		return false
	}
	if ops[len(ops)-1].Opcode() != OP_CHECKMULTISIG {
		return false
	}
	m, ok := smallInt(ops[0])
	if !ok {
		return false
	}
	n, ok := smallInt(ops[len(ops)-2])
	if !ok {
		return false
	}
	if n != len(ops)-3 || m < 1 || m > n || n > MaxPubKeysPerMultiSig {
		return false
	}
	for _, op := range ops[1 : len(ops)-2] {
		if !op.isPush() || !isValidPubKeyLen(len(op.Data)) {
			return false
		}
	}
	return true
}

func smallInt(op ParsedOpcode) (int, bool) {
	switch {
	case op.Opcode() == OP_0:
		return 0, true
	case op.Opcode() >= OP_1 && op.Opcode() <= OP_16:
		return int(op.Opcode()-OP_1) + 1, true
	default:
		return 0, false
	}
}

// isNullDataScript reports whether ops is OP_RETURN optionally followed by
// a single data push, the provably-unspendable data-carrier template.
func isNullDataScript(ops []ParsedOpcode) bool {
	if len(ops) == 1 {
		return ops[0].Opcode() == OP_RETURN
	}
	return len(ops) == 2 && ops[0].Opcode() == OP_RETURN && ops[1].isPush()
}

// ExtractPubKeyHash returns the 20-byte hash committed to by a P2PKH or
// witness-v0-keyhash scriptPubKey, or nil if pkScript is neither.
func ExtractPubKeyHash(pkScript []byte) []byte {
	if _, program, ok := extractWitnessProgram(pkScript); ok && len(program) == 20 {
		return program
	}
	ops, err := parseScript(pkScript, ScriptVersionBase)
	if err != nil || !isPubKeyHashScript(ops) {
		return nil
	}
	return ops[2].Data
}

// ExtractScriptHash returns the 20-byte hash committed to by a P2SH
// scriptPubKey, or nil otherwise.
func ExtractScriptHash(pkScript []byte) []byte {
	ops, err := parseScript(pkScript, ScriptVersionBase)
	if err != nil || !isScriptHashScript(ops) {
		return nil
	}
	return ops[1].Data
}

// ExtractWitnessScriptHash returns the 32-byte hash committed to by a
// witness-v0-scripthash scriptPubKey, or nil otherwise.
func ExtractWitnessScriptHash(pkScript []byte) []byte {
	if _, program, ok := extractWitnessProgram(pkScript); ok && len(program) == 32 {
		return program
	}
	return nil
}

// ExtractTaprootOutputKey returns the 32-byte X-only output key committed
// to by a witness-v1-taproot scriptPubKey, or nil otherwise.
func ExtractTaprootOutputKey(pkScript []byte) []byte {
	if version, program, ok := extractWitnessProgram(pkScript); ok && version == 1 && len(program) == 32 {
		return program
	}
	return nil
}

// ExtractWitnessProgram returns the version and payload of pkScript's
// witness program, or ok=false if pkScript isn't one.
func ExtractWitnessProgram(pkScript []byte) (version int, program []byte, ok bool) {
	return extractWitnessProgram(pkScript)
}

// ExtractMultiSigPubKeys returns the ordered public keys and the required
// signature count m committed to by a bare multisig scriptPubKey or
// witness/redeem script, or (nil, 0) if script isn't of that form.
func ExtractMultiSigPubKeys(script []byte) (pubKeys [][]byte, m int) {
	ops, err := parseScript(script, ScriptVersionBase)
	if err != nil || !isMultiSigScript(ops) {
		return nil, 0
	}
	m, _ = smallInt(ops[0])
	for _, op := range ops[1 : len(ops)-2] {
		pubKeys = append(pubKeys, op.Data)
	}
	return pubKeys, m
}

// PayToPubKeyHashScript builds a standard P2PKH scriptPubKey for pubKeyHash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).AddData(pubKeyHash).
		AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).Script()
}

// PayToScriptHashScript builds a standard P2SH scriptPubKey for scriptHash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().
		AddOp(OP_HASH160).AddData(scriptHash).AddOp(OP_EQUAL).Script()
}

// PayToWitnessPubKeyHashScript builds a P2WPKH scriptPubKey for pubKeyHash.
func PayToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(pubKeyHash).Script()
}

// PayToWitnessScriptHashScript builds a P2WSH scriptPubKey for
// sha256(witnessScript).
func PayToWitnessScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(scriptHash).Script()
}

// PayToTaprootScript builds a P2TR scriptPubKey for a 32-byte X-only
// output key.
func PayToTaprootScript(outputKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_1).AddData(outputKey).Script()
}

// MultiSigScript builds an m-of-n bare multisig locking script from an
// ordered public key list.
func MultiSigScript(pubKeys [][]byte, m int) ([]byte, error) {
	if m < 1 || m > len(pubKeys) || len(pubKeys) > MaxPubKeysPerMultiSig {
		return nil, scriptErrorf(ErrUnsupportedScriptTemplate,
			"invalid multisig parameters: %d-of-%d", m, len(pubKeys))
	}
	builder := NewScriptBuilder().AddInt64(int64(m))
	for _, pk := range pubKeys {
		builder.AddData(pk)
	}
	builder.AddInt64(int64(len(pubKeys))).AddOp(OP_CHECKMULTISIG)
	return builder.Script()
}
