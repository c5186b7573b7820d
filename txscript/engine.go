package txscript

import (
	"fmt"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
	"github.com/TokeoPay/swift-bitcoin/wire"
)

// ScriptContext bundles everything an Engine needs to know about the
// transaction it is validating an input for (spec.md §3's ScriptContext):
// the transaction itself, the index of the input under test, and every
// previous output being spent (needed for BIP143/BIP341 amount/scriptPubKey
// commitments and P2WSH/P2TR program derivation).
type ScriptContext struct {
	Tx       *wire.MsgTx
	TxIdx    int
	PrevOuts []*wire.TxOut
}

// prevOut returns the previous output the input under test spends.
func (c *ScriptContext) prevOut() *wire.TxOut {
	return c.PrevOuts[c.TxIdx]
}

// Engine is the stack machine that evaluates one input's unlocking and
// locking scripts, per spec.md §3. One Engine evaluates exactly one input;
// callers construct a fresh Engine per input (see other_examples
// btcsuite-btcd__engine.go, whose scripts/scriptIdx/scriptOff/condStack
// shape this type follows).
type Engine struct {
	scripts   [][]ParsedOpcode
	scriptIdx int
	scriptOff int

	lastCodeSep int

	dstack stack
	astack stack

	condStack condStack

	numOps int

	ctx   *ScriptContext
	flags ScriptFlags

	version ScriptVersion

	sigCache  *TxSigHashes
	witnessed bool // this input is being evaluated as a witness program

	// taproot-specific evaluation state, set up by NewEngine for a witness
	// v1 input and consulted by opCheckSig/opCheckSigAdd.
	taprootInternalKey [32]byte
	tapLeafHash        chainhash.Hash
	isScriptPath       bool
	annex              []byte
	sigOpBudget        int

	savedFirstStack [][]byte // dstack after the sigScript, for P2SH re-execution
}

// NewEngine constructs an Engine ready to validate ctx.Tx's input at
// ctx.TxIdx against sigScript (from the TxIn) and pkScript (the previous
// output's locking script), applying flags. The engine starts in the legacy
// dialect; NewEngine itself detects P2SH and segwit programs and drives the
// two-stage / handoff evaluation spec.md §4.4 describes.
func NewEngine(ctx *ScriptContext, sigScript, pkScript []byte, flags ScriptFlags) (*Engine, error) {
	vm := &Engine{ctx: ctx, flags: flags, version: ScriptVersionBase}

	if flags.HasFlag(ScriptVerifyWitness) {
		if progVersion, program, ok := extractWitnessProgram(pkScript); ok {
			return newWitnessEngine(vm, ctx, sigScript, progVersion, program)
		}
	}

	sigOps, err := parseScript(sigScript, ScriptVersionBase)
	if err != nil {
		return nil, err
	}
	lockOps, err := parseScript(pkScript, ScriptVersionBase)
	if err != nil {
		return nil, err
	}

	if len(sigOps) > 0 && !allPushes(sigOps) {
		// Not consensus-fatal by itself pre-segwit, but every push-only
		// requirement in spec.md §4.2 (ScriptVerifySigPushOnly-equivalent
		// behavior lives in policy, not here) leaves this unenforced at
		// the interpreter layer; retained here only as a hook point.
		_ = sigOps
	}

	vm.scripts = [][]ParsedOpcode{sigOps, lockOps}
	return vm, nil
}

func allPushes(ops []ParsedOpcode) bool {
	for _, op := range ops {
		if !op.isPush() {
			return false
		}
	}
	return true
}

// extractWitnessProgram reports whether pkScript is a witness program: a
// single small-int version push followed by a single 2..40 byte data push,
// and nothing else.
func extractWitnessProgram(pkScript []byte) (version int, program []byte, ok bool) {
	if len(pkScript) < 4 || len(pkScript) > 42 {
		return 0, nil, false
	}
	ops, err := parseScript(pkScript, ScriptVersionBase)
	if err != nil || len(ops) != 2 {
		return 0, nil, false
	}
	verOp, dataOp := ops[0], ops[1]
	switch {
	case verOp.Opcode() == OP_0:
		version = 0
	case verOp.Opcode() >= OP_1 && verOp.Opcode() <= OP_16:
		version = int(verOp.Opcode()-OP_1) + 1
	default:
		return 0, nil, false
	}
	if !dataOp.isPush() || len(dataOp.Data) < 2 || len(dataOp.Data) > 40 {
		return 0, nil, false
	}
	return version, dataOp.Data, true
}

// newWitnessEngine sets up vm to evaluate a segwit input: v0 P2WPKH/P2WSH
// via a synthesized scriptCode pushed onto a fresh Engine, or v1 taproot
// key-path/script-path per BIP341's control-block dispatch (spec.md §4.4).
func newWitnessEngine(vm *Engine, ctx *ScriptContext, sigScript []byte, progVersion int, program []byte) (*Engine, error) {
	if len(sigScript) != 0 {
		return nil, scriptError(ErrWitnessMalleated,
			"non-empty signature script for witness-program output")
	}
	witness := ctx.Tx.TxIn[ctx.TxIdx].Witness
	vm.witnessed = true

	switch progVersion {
	case 0:
		return newWitnessV0Engine(vm, ctx, witness, program)
	case 1:
		if !flagsHasTaproot(vm.flags) {
			return trivialTrueEngine(vm), nil
		}
		return newTaprootEngine(vm, ctx, witness, program)
	default:
		if vm.flags.HasFlag(ScriptVerifyDiscourageUpgradableWitnessProgram) {
			return nil, scriptErrorf(ErrDiscourageUpgradable,
				"witness program version %d discouraged", progVersion)
		}
		return trivialTrueEngine(vm), nil
	}
}

func flagsHasTaproot(f ScriptFlags) bool { return f.HasFlag(ScriptVerifyTaproot) }

// trivialTrueEngine returns an Engine whose Execute trivially succeeds,
// used for unknown/future witness versions that consensus must accept
// without interpretation (BIP141's upgrade path).
func trivialTrueEngine(vm *Engine) *Engine {
	return trivialResultEngine(vm, true)
}

// trivialResultEngine returns an Engine whose Execute deterministically
// succeeds or fails, used when the actual check (a taproot key-path
// signature, an unknown leaf version) happens outside the opcode
// interpreter itself but the result still needs to flow through Execute's
// stack-based success test.
func trivialResultEngine(vm *Engine, ok bool) *Engine {
	op := OP_1
	if !ok {
		op = OP_0
	}
	vm.scripts = [][]ParsedOpcode{{{info: opcodeArray[op]}}}
	vm.scriptIdx = 0
	return vm
}

func newWitnessV0Engine(vm *Engine, ctx *ScriptContext, witness wire.TxWitness, program []byte) (*Engine, error) {
	vm.version = ScriptVersionWitnessV0

	switch len(program) {
	case 20: // P2WPKH: program is the pubkey hash.
		if len(witness) != 2 {
			return nil, scriptErrorf(ErrWitnessProgramMismatch,
				"P2WPKH witness must have 2 items, got %d", len(witness))
		}
		pkScript, err := NewScriptBuilder().
			AddOp(OP_DUP).AddOp(OP_HASH160).AddData(program).
			AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).Script()
		if err != nil {
			return nil, err
		}
		ops, err := parseScript(pkScript, ScriptVersionWitnessV0)
		if err != nil {
			return nil, err
		}
		vm.scripts = [][]ParsedOpcode{witnessToOps(witness), ops}
		return vm, nil

	case 32: // P2WSH: program is sha256(witnessScript).
		if len(witness) == 0 {
			return nil, scriptError(ErrWitnessProgramMismatch, "empty P2WSH witness")
		}
		if len(witness) > MaxWitnessStackItems {
			return nil, scriptErrorf(ErrWitnessProgramMismatch,
				"witness stack of %d elements exceeds the %d element limit",
				len(witness), MaxWitnessStackItems)
		}
		witnessScript := witness[len(witness)-1]
		got := chainhash.Sum256(witnessScript)
		if !equalBytes(got[:], program) {
			return nil, scriptError(ErrWitnessProgramMismatch,
				"witnessScript does not match P2WSH program")
		}
		lockOps, err := parseScript(witnessScript, ScriptVersionWitnessV0)
		if err != nil {
			return nil, err
		}
		vm.scripts = [][]ParsedOpcode{witnessToOps(witness[:len(witness)-1]), lockOps}
		return vm, nil

	default:
		return nil, scriptErrorf(ErrWitnessProgramMismatch,
			"witness v0 program must be 20 or 32 bytes, got %d", len(program))
	}
}

func witnessToOps(items [][]byte) []ParsedOpcode {
	ops := make([]ParsedOpcode, len(items))
	for i, item := range items {
		ops[i] = ParsedOpcode{info: opcodeInfoForPush(item), Data: item}
	}
	return ops
}

// opcodeInfoForPush synthesizes the opcodeInfo a witness item would have if
// it had been decoded from a minimally-encoded push, so the engine's normal
// push-execution path (execPush) can run it unmodified.
func opcodeInfoForPush(data []byte) opcodeInfo {
	enc := minimalDataPush(data)
	return opcodeArray[enc[0]]
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// newTaprootEngine dispatches a witness v1 spend to key-path or
// script-path evaluation per BIP341, stripping an optional annex first
// (spec.md §4.4's taproot branch).
func newTaprootEngine(vm *Engine, ctx *ScriptContext, witness wire.TxWitness, program []byte) (*Engine, error) {
	vm.version = ScriptVersionTaproot
	copy(vm.taprootInternalKey[:], program)

	items := []([]byte)(witness)
	if len(items) > 0 && len(items[len(items)-1]) > 0 && items[len(items)-1][0] == 0x50 {
		vm.annex = items[len(items)-1]
		items = items[:len(items)-1]
	}

	if len(items) == 1 {
		// Key-path spend: there is no script to interpret at all, so the
		// signature is checked directly here and the result is fed to
		// Execute as a synthetic OP_1/OP_0 program (spec.md §4.4).
		vm.isScriptPath = false
		rawSig, hashType, err := splitSchnorrSigAndHashType(items[0])
		if err != nil {
			return nil, err
		}
		hash, err := calcTaprootSignatureHash(NewTxSigHashes(ctx.Tx, ctx.PrevOuts), hashType, ctx.Tx, ctx.TxIdx, ctx.PrevOuts, vm.annex, &TaprootSigHashExtra{})
		if err != nil {
			return nil, err
		}
		ok, err := verifySchnorrSignature(rawSig, hash, program)
		if err != nil {
			return nil, err
		}
		return trivialResultEngine(vm, ok), nil
	}

	if len(items) < 2 {
		return nil, scriptError(ErrTaprootControlBlockInvalid, "missing control block")
	}

	controlRaw := items[len(items)-1]
	script := items[len(items)-2]
	stackItems := items[:len(items)-2]

	cb, err := ParseControlBlock(controlRaw)
	if err != nil {
		return nil, err
	}

	leafHash := TapLeafHash(cb.LeafVersion, script)
	root := cb.MerkleRoot(leafHash)

	outputKey, parity, err := TweakTaprootPubKey(cb.InternalKey, root[:])
	if err != nil {
		return nil, err
	}
	if !equalBytes(outputKey[:], program) || parity != cb.Parity {
		return nil, scriptError(ErrTaprootControlBlockInvalid,
			"control block does not commit to output key")
	}

	if cb.LeafVersion != TapLeafVersion {
		// Unknown leaf version: consensus treats the spend as
		// automatically valid, matching taproot's upgrade path.
		return trivialTrueEngine(vm), nil
	}

	vm.version = ScriptVersionTapscript
	vm.isScriptPath = true
	vm.tapLeafHash = leafHash
	vm.lastCodeSep = noCodeSepExecuted

	lockOps, err := parseScript(script, ScriptVersionTapscript)
	if err != nil {
		return nil, err
	}

	vm.sigOpBudget = TapscriptSigOpBudgetBase + witness.SerializeSize()

	vm.scripts = [][]ParsedOpcode{witnessToOps(stackItems), lockOps}
	return vm, nil
}

// Execute runs every remaining script to completion. A nil return means
// the input's unlocking conditions were satisfied; any non-nil error,
// including a final false top-of-stack element, means they were not.
func (vm *Engine) Execute() error {
	for {
		done, err := vm.Step()
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	if vm.condStack.depth() != 0 {
		return scriptError(ErrUnbalancedConditional, "unbalanced conditional at end of script")
	}
	if vm.dstack.Depth() == 0 {
		return scriptError(ErrVerifyFailed, "empty stack at end of script execution")
	}
	final, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	if !asBool(final) {
		return scriptError(ErrVerifyFailed, "false top of stack at end of script execution")
	}
	cleanStackRequired := vm.witnessed || vm.flags.HasFlag(ScriptVerifyCleanStack)
	if cleanStackRequired && vm.dstack.Depth() != 1 {
		return scriptError(ErrCleanStackRequired, "stack contains additional elements")
	}
	return nil
}

// Step executes the single next operation. done is true once every script
// (including a synthesized P2SH redeem script, if any) has run.
func (vm *Engine) Step() (done bool, err error) {
	if vm.scriptIdx >= len(vm.scripts) {
		return true, nil
	}
	script := vm.scripts[vm.scriptIdx]
	if vm.scriptOff >= len(script) {
		return vm.advanceScript()
	}

	op := script[vm.scriptOff]
	vm.scriptOff++

	if err := vm.checkOpcodeCount(op); err != nil {
		return false, err
	}

	if !vm.condStack.executing() && !isBranchOpcode(op.Opcode()) {
		return false, nil
	}

	if err := vm.execOpcode(op); err != nil {
		return false, err
	}

	if vm.dstack.Depth()+vm.astack.Depth() > MaxStackSize {
		return false, scriptError(ErrStackMaxElementSizeExceeded, "combined stack size exceeds limit")
	}

	if vm.scriptOff >= len(script) {
		return vm.advanceScript()
	}
	return false, nil
}

func isBranchOpcode(op Opcode) bool {
	switch op {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	}
	return false
}

// checkOpcodeCount enforces MaxOpsPerScript for legacy and witness v0
// (tapscript has no such limit, spec.md §4.2).
func (vm *Engine) checkOpcodeCount(op ParsedOpcode) error {
	if vm.version == ScriptVersionTapscript {
		return nil
	}
	if op.Opcode() > OP_16 {
		vm.numOps++
		if vm.numOps > MaxOpsPerScript {
			return scriptError(ErrOpCountExceeded, "exceeded max operation limit")
		}
	}
	return nil
}

// advanceScript moves to the next script in the sequence, handing off
// P2SH's saved stack when transitioning from the sigScript into a
// redeem-script re-evaluation.
func (vm *Engine) advanceScript() (bool, error) {
	if vm.scriptIdx == 0 && !vm.witnessed && vm.flags.HasFlag(ScriptBip16) {
		lockScript, err := unparseScript(vm.scripts[1])
		if err != nil {
			return false, err
		}
		if isPayToScriptHash(lockScript) {
			vm.savedFirstStack = append([][]byte(nil), vm.dstack.items...)
		}
	}

	vm.scriptIdx++
	vm.scriptOff = 0
	vm.lastCodeSep = 0
	vm.condStack = condStack{}

	if vm.scriptIdx == 2 && vm.savedFirstStack != nil {
		// The locking script (HASH160 <hash> EQUAL) must have succeeded
		// before the redeem script is run.
		top, err := vm.dstack.PeekByteArray(0)
		if err != nil || !asBool(top) {
			return false, scriptError(ErrVerifyFailed, "P2SH redeem script does not match script hash")
		}
		if len(vm.savedFirstStack) == 0 {
			return false, scriptError(ErrInvalidOperation, "P2SH signature script must push the redeem script")
		}
		redeemScript := vm.savedFirstStack[len(vm.savedFirstStack)-1]

		if flagsHasWitness(vm.flags) {
			if progVersion, program, ok := extractWitnessProgram(redeemScript); ok {
				sub, err := newWitnessEngine(&Engine{ctx: vm.ctx, flags: vm.flags}, vm.ctx, nil, progVersion, program)
				if err != nil {
					return false, err
				}
				vm.scripts = append(vm.scripts, sub.scripts...)
				vm.taprootInternalKey = sub.taprootInternalKey
				vm.tapLeafHash = sub.tapLeafHash
				vm.isScriptPath = sub.isScriptPath
				vm.version = sub.version
				vm.sigOpBudget = sub.sigOpBudget
				vm.witnessed = true
				vm.dstack.items = append([][]byte(nil), vm.savedFirstStack[:len(vm.savedFirstStack)-1]...)
				return false, nil
			}
		}

		ops, err := parseScript(redeemScript, ScriptVersionBase)
		if err != nil {
			return false, err
		}
		vm.scripts = append(vm.scripts, ops)
		vm.dstack.items = append([][]byte(nil), vm.savedFirstStack...)
	}

	if vm.scriptIdx >= len(vm.scripts) {
		return true, nil
	}
	return false, nil
}

func flagsHasWitness(f ScriptFlags) bool { return f.HasFlag(ScriptVerifyWitness) }

// isPayToScriptHash reports whether script is exactly OP_HASH160 <20 bytes>
// OP_EQUAL, the BIP16 template.
func isPayToScriptHash(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == 0x14 &&
		script[22] == OP_EQUAL
}

// DisasmPC returns a disassembly of the operation about to execute, for
// debugging and trace logging (spec.md §6.1).
func (vm *Engine) DisasmPC() (string, error) {
	if vm.scriptIdx >= len(vm.scripts) {
		return "", scriptError(ErrInvalidOperation, "past end of script")
	}
	script := vm.scripts[vm.scriptIdx]
	if vm.scriptOff >= len(script) {
		return "", scriptError(ErrInvalidOperation, "past end of script")
	}
	return fmt.Sprintf("%02x:%04x: %s", vm.scriptIdx, vm.scriptOff, script[vm.scriptOff].Name()), nil
}

// DisasmScript returns a full disassembly of the idx'th script, matching
// the teacher's own DisasmScript convention for debugging tools.
func (vm *Engine) DisasmScript(idx int) (string, error) {
	if idx >= len(vm.scripts) {
		return "", scriptError(ErrInvalidOperation, "script index out of range")
	}
	out := ""
	for i, op := range vm.scripts[idx] {
		out += fmt.Sprintf("%04x: %s\n", i, op.Name())
	}
	return out, nil
}
