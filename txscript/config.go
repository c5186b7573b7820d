package txscript

// ScriptVersion tags a Script with which of the four consensus-defined
// dialects it must be interpreted under. It drives push-size limits,
// opcode-count enforcement, minimal-if, and which signature scheme
// CHECKSIG family opcodes expect.
type ScriptVersion uint8

const (
	// ScriptVersionBase is the original, legacy scripting dialect: no
	// segwit stack-size discount, ECDSA-only signatures, and the classic
	// 201 non-push-opcode limit.
	ScriptVersionBase ScriptVersion = iota

	// ScriptVersionWitnessV0 is BIP141/BIP143 segwit v0: adds
	// constant-scriptCode signing, minimal-if, and the 520-byte /
	// 100-item witness stack limits.
	ScriptVersionWitnessV0

	// ScriptVersionTaproot is BIP341 witness v1 key-path spending; a
	// taproot output is either spent via a single Schnorr signature
	// under this version, or via ScriptVersionTapscript.
	ScriptVersionTaproot

	// ScriptVersionTapscript is BIP342 tapscript: the opcode-count limit
	// is removed, CHECKMULTISIG is disabled in favor of CHECKSIGADD, and
	// signature checks draw from a sigops budget instead.
	ScriptVersionTapscript
)

// ScriptFlags is a bitmask of soft-fork and policy behaviors, the
// Configuration record of spec.md §3. Each flag corresponds to one
// deployed BIP; the absence of a flag means "inactive" (pre-fork
// behavior), matching btcd's own ScriptFlags bitmask shape
// (see other_examples/btcsuite-btcd__engine.go).
type ScriptFlags uint32

const (
	// ScriptBip16 enables BIP16 pay-to-script-hash evaluation.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptVerifyStrictDER requires DER-encoded ECDSA signatures
	// (BIP66).
	ScriptVerifyStrictDER

	// ScriptVerifyLowS requires the ECDSA signature's S value to be at
	// most half the curve order (BIP62 rule 5).
	ScriptVerifyLowS

	// ScriptVerifyNullDummy requires CHECKMULTISIG's leading dummy
	// element to be exactly empty (BIP147).
	ScriptVerifyNullDummy

	// ScriptVerifyMinimalData requires all data pushes to use the
	// smallest possible opcode (BIP62 rules 3/4), and requires script
	// numbers to be minimally encoded.
	ScriptVerifyMinimalData

	// ScriptVerifyMinimalIf requires the value popped by IF/NOTIF to be
	// exactly empty or 0x01 (BIP141 for witness v0, BIP342 for
	// tapscript).
	ScriptVerifyMinimalIf

	// ScriptVerifyCleanStack requires exactly one element remain on the
	// stack after a successful evaluation (BIP62 rule 6). Must not be
	// used without ScriptBip16/ScriptVerifyWitness, matching upstream.
	ScriptVerifyCleanStack

	// ScriptVerifyDiscourageUpgradableNops flags OP_NOP1..OP_NOP10 as
	// invalid (a non-consensus policy rule, BIP-reserved opcodes).
	ScriptVerifyDiscourageUpgradableNops

	// ScriptVerifyDiscourageUpgradableWitnessProgram flags witness
	// program versions above 1 as invalid (a non-consensus policy rule
	// pending future soft-forks).
	ScriptVerifyDiscourageUpgradableWitnessProgram

	// ScriptVerifyCheckLockTimeVerify enables OP_CHECKLOCKTIMEVERIFY
	// (BIP65); without it, the opcode behaves as OP_NOP2.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify enables OP_CHECKSEQUENCEVERIFY
	// (BIP112); without it, the opcode behaves as OP_NOP3.
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyWitness enables segwit v0 evaluation (BIP141/BIP143).
	ScriptVerifyWitness

	// ScriptVerifyTaproot enables witness v1 evaluation, both key-path
	// and script-path (BIP341).
	ScriptVerifyTaproot

	// ScriptVerifyTapscript enables tapscript opcode semantics
	// (BIP342): CHECKSIGADD, the sigops budget, and disabled
	// CHECKMULTISIG.
	ScriptVerifyTapscript

	// ScriptVerifyConstantScriptCode requires FindAndDelete to be a
	// no-op; if a signature ever appears in the scriptCode, the script
	// must fail rather than silently strip it (segwit v0 and later).
	ScriptVerifyConstantScriptCode
)

// HasFlag reports whether f contains flag.
func (f ScriptFlags) HasFlag(flag ScriptFlags) bool {
	return f&flag == flag
}

// StandardVerifyFlags mirrors every deployed soft-fork plus the policy-only
// discourage-upgradable flags; it is a convenience constant for callers
// (tests, an eventual mempool policy layer) and is never assumed by the
// interpreter itself.
const StandardVerifyFlags = ScriptBip16 |
	ScriptVerifyStrictDER |
	ScriptVerifyLowS |
	ScriptVerifyNullDummy |
	ScriptVerifyMinimalData |
	ScriptVerifyMinimalIf |
	ScriptVerifyCleanStack |
	ScriptVerifyDiscourageUpgradableNops |
	ScriptVerifyDiscourageUpgradableWitnessProgram |
	ScriptVerifyCheckLockTimeVerify |
	ScriptVerifyCheckSequenceVerify |
	ScriptVerifyWitness |
	ScriptVerifyTaproot |
	ScriptVerifyTapscript |
	ScriptVerifyConstantScriptCode

// Resource limits from spec.md §3 and §4.2.
const (
	// MaxScriptSize is the maximum length, in bytes, of a legacy or
	// witness-v0 script. Tapscript has no equivalent cap; it is instead
	// bounded indirectly by the witness stack size limit.
	MaxScriptSize = 10000

	// MaxScriptElementSize is the maximum size, in bytes, of a single
	// stack element for witness v0 and later. Legacy scripts have no
	// per-element cap beyond MaxScriptSize itself.
	MaxScriptElementSize = 520

	// MaxStackSize is the maximum combined element count of the data
	// stack and the alt stack at any point during execution.
	MaxStackSize = 1000

	// MaxOpsPerScript is the maximum number of non-push opcodes across
	// both the unlocking and locking scripts, for legacy and witness v0.
	// Tapscript removes this limit (spec.md §4.2).
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultiSig bounds CHECKMULTISIG's declared key count.
	MaxPubKeysPerMultiSig = 20

	// MaxWitnessStackItems bounds the number of witness elements handed
	// to a witness-v0 program evaluation.
	MaxWitnessStackItems = 100

	// TapscriptSigOpBudgetBase is the fixed part of a tapscript
	// evaluation's initial sigops budget: 50 plus one per byte of the
	// serialized witness stack (spec.md §4.2). TapscriptSigOpCost is what
	// each signature check with a non-empty signature deducts from it.
	TapscriptSigOpBudgetBase           = 50
	TapscriptSigOpCost                 = 50
)

// Script is an immutable byte string plus the consensus dialect it must be
// interpreted under. It is retained in both forms: raw bytes (what
// sighashes commit to and what round-trips through the wire) and, lazily,
// a decoded operation list (spec.md §3, §9 "Script as both byte string and
// operation list").
type Script struct {
	rawScript []byte
	version   ScriptVersion

	decoded    []ParsedOpcode
	decodeErr  error
	decodeOnce bool
}

// NewScript wraps raw bytes with the dialect they must be evaluated under.
// Decoding is deferred until Ops is first called.
func NewScript(raw []byte, version ScriptVersion) *Script {
	return &Script{rawScript: raw, version: version}
}

// Bytes returns the raw, undecoded script bytes.
func (s *Script) Bytes() []byte {
	return s.rawScript
}

// Version returns the script's consensus dialect.
func (s *Script) Version() ScriptVersion {
	return s.version
}

// Ops decodes the script into its operation list, memoizing the result
// (and any decode failure) on first use.
func (s *Script) Ops() ([]ParsedOpcode, error) {
	if !s.decodeOnce {
		s.decoded, s.decodeErr = parseScript(s.rawScript, s.version)
		s.decodeOnce = true
	}
	return s.decoded, s.decodeErr
}
