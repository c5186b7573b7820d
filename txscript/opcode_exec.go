package txscript

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/TokeoPay/swift-bitcoin/chainhash"
)

// execOpcode dispatches a single decoded operation to its handler. Push
// opcodes are handled inline; everything else is table-driven the way
// other_examples/btcsuite-btcd__opcode.go structures its opfunc table,
// adapted here into a plain switch since this interpreter's opcode set is
// fixed rather than pluggable per network.
func (vm *Engine) execOpcode(op ParsedOpcode) error {
	opcode := op.Opcode()

	if op.isPush() {
		return vm.execPush(op)
	}

	switch opcode {
	case OP_NOP:
		return nil

	case OP_IF, OP_NOTIF:
		return vm.opIf(op)
	case OP_ELSE:
		return vm.condStack.toggleElse()
	case OP_ENDIF:
		return vm.condStack.popEndif()
	case OP_VERIFY:
		return vm.opVerify()
	case OP_RETURN:
		return scriptError(ErrInvalidOperation, "OP_RETURN encountered")

	case OP_TOALTSTACK:
		v, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		vm.astack.PushByteArray(v)
		return nil
	case OP_FROMALTSTACK:
		v, err := vm.astack.PopByteArray()
		if err != nil {
			return err
		}
		vm.dstack.PushByteArray(v)
		return nil

	case OP_2DROP:
		return vm.dstack.DropN(2)
	case OP_2DUP:
		return vm.dstack.DupN(2)
	case OP_3DUP:
		return vm.dstack.DupN(3)
	case OP_2OVER:
		return vm.dstack.OverN(2)
	case OP_2ROT:
		return vm.dstack.RotN(2)
	case OP_2SWAP:
		return vm.dstack.SwapN(2)
	case OP_IFDUP:
		v, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return err
		}
		if asBool(v) {
			vm.dstack.PushByteArray(v)
		}
		return nil
	case OP_DEPTH:
		vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
		return nil
	case OP_DROP:
		return vm.dstack.DropN(1)
	case OP_DUP:
		return vm.dstack.DupN(1)
	case OP_NIP:
		_, err := vm.dstack.nipN(1)
		return err
	case OP_OVER:
		return vm.dstack.OverN(1)
	case OP_PICK, OP_ROLL:
		n, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
		if err != nil {
			return err
		}
		idx := int(n.Int32())
		if idx < 0 {
			return scriptError(ErrInvalidOperation, "negative index for OP_PICK/OP_ROLL")
		}
		if opcode == OP_PICK {
			v, err := vm.dstack.PeekByteArray(idx)
			if err != nil {
				return err
			}
			vm.dstack.PushByteArray(v)
			return nil
		}
		v, err := vm.dstack.nipN(idx)
		if err != nil {
			return err
		}
		vm.dstack.PushByteArray(v)
		return nil
	case OP_ROT:
		return vm.dstack.RotN(1)
	case OP_SWAP:
		return vm.dstack.SwapN(1)
	case OP_TUCK:
		return vm.opTuck()

	case OP_SIZE:
		v, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return err
		}
		vm.dstack.PushInt(scriptNum(len(v)))
		return nil

	case OP_EQUAL:
		return vm.opEqual(false)
	case OP_EQUALVERIFY:
		return vm.opEqual(true)

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		return vm.opUnaryNum(opcode)
	case OP_ADD, OP_SUB, OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMEQUALVERIFY,
		OP_NUMNOTEQUAL, OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL,
		OP_GREATERTHANOREQUAL, OP_MIN, OP_MAX:
		return vm.opBinaryNum(opcode)
	case OP_WITHIN:
		return vm.opWithin()

	case OP_RIPEMD160:
		return vm.opHash(chainhash.Ripemd160)
	case OP_SHA1:
		return vm.opHash(func(b []byte) []byte { h := sha1.Sum(b); return h[:] })
	case OP_SHA256:
		return vm.opHash(func(b []byte) []byte { h := sha256.Sum256(b); return h[:] })
	case OP_HASH160:
		return vm.opHash(chainhash.Hash160)
	case OP_HASH256:
		return vm.opHash(func(b []byte) []byte { h := chainhash.DoubleHashB(b); return h })

	case OP_CODESEPARATOR:
		vm.lastCodeSep = vm.scriptOff
		return nil

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return vm.opCheckSig(opcode == OP_CHECKSIGVERIFY)
	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return vm.opCheckMultiSig(opcode == OP_CHECKMULTISIGVERIFY)
	case OP_CHECKSIGADD:
		return vm.opCheckSigAdd()

	case OP_CHECKLOCKTIMEVERIFY:
		return vm.opCheckLockTimeVerify()
	case OP_CHECKSEQUENCEVERIFY:
		return vm.opCheckSequenceVerify()

	case OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10:
		if vm.flags.HasFlag(ScriptVerifyDiscourageUpgradableNops) {
			return scriptErrorf(ErrDiscourageUpgradable, "%s reserved for upgrades", op.Name())
		}
		return nil

	case OP_1NEGATE:
		vm.dstack.PushInt(scriptNum(-1))
		return nil

	case OP_RESERVED, OP_VER, OP_VERIF, OP_VERNOTIF, OP_RESERVED1, OP_RESERVED2:
		return scriptErrorf(ErrReservedOpcode, "%s is a reserved opcode", op.Name())

	case OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT, OP_INVERT, OP_AND, OP_OR, OP_XOR,
		OP_2MUL, OP_2DIV, OP_MUL, OP_DIV, OP_MOD, OP_LSHIFT, OP_RSHIFT:
		return scriptErrorf(ErrDisabledOperation, "%s is disabled", op.Name())

	default:
		return scriptErrorf(ErrInvalidOperation, "unhandled opcode %s", op.Name())
	}
}

// execPush handles every push-class opcode: OP_0/OP_1NEGATE/OP_1..OP_16 as
// scriptNum literals, and everything else (OP_DATA_1..75, PUSHDATA1/2/4) as
// a raw byte push, enforcing ScriptVerifyMinimalData when active.
func (vm *Engine) execPush(op ParsedOpcode) error {
	if vm.requireMinimal() && !canonicalPush(op) {
		return scriptErrorf(ErrMinimalDataRequired,
			"%s is not a minimally-encoded push", op.Name())
	}

	switch {
	case op.Opcode() == OP_0:
		vm.dstack.PushByteArray(nil)
	case op.Opcode() == OP_1NEGATE:
		vm.dstack.PushInt(scriptNum(-1))
	case op.Opcode() >= OP_1 && op.Opcode() <= OP_16:
		vm.dstack.PushInt(scriptNum(op.Opcode() - OP_1 + 1))
	default:
		if len(op.Data) > MaxScriptElementSize && vm.version != ScriptVersionBase {
			return scriptErrorf(ErrPushSizeExceeded,
				"pushed data of %d bytes exceeds max %d", len(op.Data), MaxScriptElementSize)
		}
		vm.dstack.PushByteArray(op.Data)
	}
	return nil
}

func (vm *Engine) requireMinimal() bool {
	return vm.flags.HasFlag(ScriptVerifyMinimalData)
}

// opIf implements OP_IF/OP_NOTIF, including BIP141/BIP342's minimal-if
// requirement that the popped condition be exactly empty or exactly 0x01
// once a segwit or later dialect is active.
func (vm *Engine) opIf(op ParsedOpcode) error {
	var cond bool
	if vm.condStack.executing() {
		v, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		if vm.version != ScriptVersionBase && vm.flags.HasFlag(ScriptVerifyMinimalIf) {
			if len(v) > 1 || (len(v) == 1 && v[0] != 1) {
				return scriptError(ErrMinimalIfRequired, "conditional value must be minimal")
			}
		}
		cond = asBool(v)
		if op.Opcode() == OP_NOTIF {
			cond = !cond
		}
	}
	vm.condStack.pushIf(cond)
	return nil
}

func (vm *Engine) opVerify() error {
	v, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !v {
		return scriptError(ErrVerifyFailed, "OP_VERIFY failed")
	}
	return nil
}

func (vm *Engine) opTuck() error {
	top, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	under, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushByteArray(top)
	vm.dstack.PushByteArray(under)
	vm.dstack.PushByteArray(top)
	return nil
}

func (vm *Engine) opEqual(verify bool) error {
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	eq := bytes.Equal(a, b)
	if verify {
		if !eq {
			return scriptError(ErrVerifyFailed, "OP_EQUALVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(eq)
	return nil
}

func (vm *Engine) opUnaryNum(opcode Opcode) error {
	n, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	var result scriptNum
	switch opcode {
	case OP_1ADD:
		result = n + 1
	case OP_1SUB:
		result = n - 1
	case OP_NEGATE:
		result = -n
	case OP_ABS:
		if n < 0 {
			result = -n
		} else {
			result = n
		}
	case OP_NOT:
		result = boolScriptNum(n == 0)
	case OP_0NOTEQUAL:
		result = boolScriptNum(n != 0)
	}
	vm.dstack.PushInt(result)
	return nil
}

func boolScriptNum(b bool) scriptNum {
	if b {
		return 1
	}
	return 0
}

func (vm *Engine) opBinaryNum(opcode Opcode) error {
	b, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	var result scriptNum
	switch opcode {
	case OP_ADD:
		result = a + b
	case OP_SUB:
		result = a - b
	case OP_BOOLAND:
		result = boolScriptNum(a != 0 && b != 0)
	case OP_BOOLOR:
		result = boolScriptNum(a != 0 || b != 0)
	case OP_NUMEQUAL:
		result = boolScriptNum(a == b)
	case OP_NUMEQUALVERIFY:
		if a != b {
			return scriptError(ErrVerifyFailed, "OP_NUMEQUALVERIFY failed")
		}
		return nil
	case OP_NUMNOTEQUAL:
		result = boolScriptNum(a != b)
	case OP_LESSTHAN:
		result = boolScriptNum(a < b)
	case OP_GREATERTHAN:
		result = boolScriptNum(a > b)
	case OP_LESSTHANOREQUAL:
		result = boolScriptNum(a <= b)
	case OP_GREATERTHANOREQUAL:
		result = boolScriptNum(a >= b)
	case OP_MIN:
		if a < b {
			result = a
		} else {
			result = b
		}
	case OP_MAX:
		if a > b {
			result = a
		} else {
			result = b
		}
	}
	vm.dstack.PushInt(result)
	return nil
}

func (vm *Engine) opWithin() error {
	max, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	min, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	x, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= min && x < max)
	return nil
}

func (vm *Engine) opHash(f func([]byte) []byte) error {
	v, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushByteArray(f(v))
	return nil
}

// scriptCodeForSig builds the scriptCode a legacy or witness-v0 CHECKSIG
// commits to: the currently executing script from its last OP_CODESEPARATOR
// onward, with sig's occurrences removed (spec.md §4.2/§4.3).
func (vm *Engine) scriptCodeForSig(sig []byte) ([]byte, error) {
	ops := vm.scripts[vm.scriptIdx]
	full, err := unparseScript(ops)
	if err != nil {
		return nil, err
	}
	// lastCodeSep counts operations; buildScriptCode takes a byte offset.
	prefix, err := unparseScript(ops[:vm.lastCodeSep])
	if err != nil {
		return nil, err
	}
	constant := vm.version != ScriptVersionBase && vm.flags.HasFlag(ScriptVerifyConstantScriptCode)
	return buildScriptCode(full, len(prefix), sig, vm.version, constant)
}

func (vm *Engine) opCheckSig(verify bool) error {
	pubKeyBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	if vm.version == ScriptVersionTapscript && len(sigBytes) != 0 {
		vm.sigOpBudget -= TapscriptSigOpCost
		if vm.sigOpBudget < 0 {
			return scriptError(ErrTapscriptSigOpsBudgetExceeded, "sigops budget exceeded")
		}
	}

	ok, err := vm.checkSig(sigBytes, pubKeyBytes)
	if err != nil {
		return err
	}
	if verify {
		if !ok {
			return scriptError(ErrVerifyFailed, "OP_CHECKSIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(ok)
	return nil
}

// checkSig verifies a single signature against pubKeyBytes, choosing the
// ECDSA/BIP143 path or the Schnorr/BIP341 path by the engine's active
// version, per spec.md §4.3's SignatureScheme selection.
func (vm *Engine) checkSig(sigBytes, pubKeyBytes []byte) (bool, error) {
	if len(sigBytes) == 0 {
		return false, nil
	}

	switch vm.version {
	case ScriptVersionTaproot, ScriptVersionTapscript:
		return vm.checkSchnorrSig(sigBytes, pubKeyBytes)
	default:
		return vm.checkECDSASig(sigBytes, pubKeyBytes)
	}
}

func (vm *Engine) checkECDSASig(sigBytes, pubKeyBytes []byte) (bool, error) {
	if err := checkPublicKeyEncoding(pubKeyBytes); err != nil {
		if vm.version == ScriptVersionBase {
			return false, nil
		}
		return false, err
	}
	if err := checkSignatureEncoding(sigBytes, vm.flags); err != nil {
		return false, err
	}

	der, hashType, err := splitSignatureAndHashType(sigBytes)
	if err != nil {
		return false, err
	}
	if !hashType.isDefined() {
		return false, scriptError(ErrSignatureHashTypeInvalid, "undefined sighash type")
	}

	scriptCode, err := vm.scriptCodeForSig(sigBytes)
	if err != nil {
		return false, err
	}

	var hash chainhash.Hash
	switch vm.version {
	case ScriptVersionWitnessV0:
		hash, err = calcWitnessSignatureHash(scriptCode, vm.sigHashes(), hashType, vm.ctx.Tx, vm.ctx.TxIdx, vm.ctx.prevOut().Value)
	default:
		hash, err = calcSignatureHash(scriptCode, hashType, vm.ctx.Tx, vm.ctx.TxIdx)
	}
	if err != nil {
		return false, err
	}

	ok, err := verifyECDSASignature(der, hash, pubKeyBytes)
	if err != nil {
		if vm.flags.HasFlag(ScriptVerifyStrictDER) {
			return false, err
		}
		return false, nil
	}
	return ok, nil
}

func (vm *Engine) checkSchnorrSig(sigBytes, pubKeyBytes []byte) (bool, error) {
	if len(pubKeyBytes) != 32 {
		return false, scriptErrorf(ErrInvalidPublicKey,
			"taproot public key must be 32 bytes, got %d", len(pubKeyBytes))
	}

	rawSig, hashType, err := splitSchnorrSigAndHashType(sigBytes)
	if err != nil {
		return false, err
	}

	extra := &TaprootSigHashExtra{IsScriptPath: vm.isScriptPath}
	if vm.isScriptPath {
		extra.TapLeafHash = vm.tapLeafHash
		cs := uint32(noCodeSepExecuted)
		if vm.lastCodeSep != noCodeSepExecuted && vm.lastCodeSep != 0 {
			cs = uint32(vm.lastCodeSep)
		}
		extra.CodeSepPos = cs
	}

	hash, err := calcTaprootSignatureHash(vm.sigHashes(), hashType, vm.ctx.Tx, vm.ctx.TxIdx, vm.ctx.PrevOuts, vm.annex, extra)
	if err != nil {
		return false, err
	}

	return verifySchnorrSignature(rawSig, hash, pubKeyBytes)
}

func (vm *Engine) sigHashes() *TxSigHashes {
	if vm.sigCache == nil {
		vm.sigCache = NewTxSigHashes(vm.ctx.Tx, vm.ctx.PrevOuts)
	}
	return vm.sigCache
}

// opCheckMultiSig implements legacy/witness-v0 CHECKMULTISIG: pop the key
// count and keys, the signature count and signatures (plus the historical
// off-by-one extra pop and its BIP147 null-dummy enforcement), then check
// each signature against the key list in order without reuse (spec.md
// §4.2). Tapscript disables this opcode entirely (BIP342).
func (vm *Engine) opCheckMultiSig(verify bool) error {
	if vm.version == ScriptVersionTapscript {
		return scriptError(ErrDisabledOperation, "OP_CHECKMULTISIG is disabled in tapscript")
	}

	keyCountNum, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	keyCount := int(keyCountNum.Int32())
	if keyCount < 0 || keyCount > MaxPubKeysPerMultiSig {
		return scriptErrorf(ErrInvalidOperation, "invalid key count %d", keyCount)
	}
	if vm.version != ScriptVersionTapscript {
		vm.numOps += keyCount
		if vm.numOps > MaxOpsPerScript {
			return scriptError(ErrOpCountExceeded, "exceeded max operation limit")
		}
	}

	pubKeys := make([][]byte, keyCount)
	for i := keyCount - 1; i >= 0; i-- {
		pubKeys[i], err = vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
	}

	sigCountNum, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	sigCount := int(sigCountNum.Int32())
	if sigCount < 0 || sigCount > keyCount {
		return scriptErrorf(ErrInvalidOperation, "invalid signature count %d", sigCount)
	}

	sigs := make([][]byte, sigCount)
	for i := sigCount - 1; i >= 0; i-- {
		sigs[i], err = vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
	}

	// The historical extra-pop bug: one more item than needed is popped,
	// which BIP147 (ScriptVerifyNullDummy) requires be exactly empty.
	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if vm.flags.HasFlag(ScriptVerifyNullDummy) && len(dummy) != 0 {
		return scriptError(ErrNullDummyRequired, "CHECKMULTISIG dummy element must be empty")
	}

	success := true
	sigIdx, keyIdx := 0, 0
	for sigIdx < sigCount {
		if keyIdx >= keyCount {
			success = false
			break
		}
		ok, err := vm.checkSig(sigs[sigIdx], pubKeys[keyIdx])
		if err != nil {
			if vm.flags.HasFlag(ScriptVerifyStrictDER) {
				return err
			}
			ok = false
		}
		if ok {
			sigIdx++
		}
		keyIdx++
	}
	if sigIdx != sigCount {
		success = false
	}

	if verify {
		if !success {
			return scriptError(ErrVerifyFailed, "OP_CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(success)
	return nil
}

// opCheckSigAdd implements BIP342's OP_CHECKSIGADD, tapscript's
// CHECKMULTISIG replacement: pop pubkey, n, sig; push n+1 if the signature
// verifies and n otherwise (an empty signature, used to skip an optional
// key, pushes n). Every non-empty signature deducts TapscriptSigOpCost from
// the sigops budget.
func (vm *Engine) opCheckSigAdd() error {
	if vm.version != ScriptVersionTapscript {
		return scriptError(ErrDisabledOperation, "OP_CHECKSIGADD is only valid in tapscript")
	}
	pubKeyBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	nNum, err := vm.dstack.PopInt(vm.requireMinimal(), defaultScriptNumLen)
	if err != nil {
		return err
	}
	sigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	if len(sigBytes) != 0 {
		vm.sigOpBudget -= TapscriptSigOpCost
		if vm.sigOpBudget < 0 {
			return scriptError(ErrTapscriptSigOpsBudgetExceeded, "sigops budget exceeded")
		}
	}

	ok, err := vm.checkSig(sigBytes, pubKeyBytes)
	if err != nil {
		return err
	}
	if ok {
		vm.dstack.PushInt(nNum + 1)
	} else {
		vm.dstack.PushInt(nNum)
	}
	return nil
}

// opCheckLockTimeVerify implements BIP65: without ScriptVerifyCheckLockTimeVerify
// the opcode behaves as OP_NOP2. Otherwise it peeks (does not pop) a
// 5-byte-max scriptNum and fails unless it is non-negative, the same
// "domain" (block height vs. Unix time) as tx.LockTime, at most
// tx.LockTime, and the spending input's sequence is not final.
func (vm *Engine) opCheckLockTimeVerify() error {
	if !vm.flags.HasFlag(ScriptVerifyCheckLockTimeVerify) {
		if vm.flags.HasFlag(ScriptVerifyDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradable, "OP_NOP2 reserved for upgrades")
		}
		return nil
	}
	lockTimeNum, err := vm.dstack.PopInt(vm.requireMinimal(), 5)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(lockTimeNum) // CLTV does not consume the stack item.

	lockTime := lockTimeNum.Int64()
	if lockTime < 0 {
		return scriptError(ErrNumericOverflow, "negative locktime")
	}

	const lockTimeThreshold = 500000000
	txLockTime := int64(vm.ctx.Tx.LockTime)
	if !((lockTime < lockTimeThreshold && txLockTime < lockTimeThreshold) ||
		(lockTime >= lockTimeThreshold && txLockTime >= lockTimeThreshold)) {
		return scriptError(ErrVerifyFailed, "locktime domain mismatch")
	}
	if lockTime > txLockTime {
		return scriptError(ErrVerifyFailed, "locktime requirement not satisfied")
	}
	if vm.ctx.Tx.TxIn[vm.ctx.TxIdx].Sequence == 0xffffffff {
		return scriptError(ErrVerifyFailed, "CHECKLOCKTIMEVERIFY with final sequence")
	}
	return nil
}

// opCheckSequenceVerify implements BIP112 similarly: relative locktime
// via the spending input's own Sequence field, gated on
// SequenceLockTimeDisabled and comparing only the type+value bits.
func (vm *Engine) opCheckSequenceVerify() error {
	if !vm.flags.HasFlag(ScriptVerifyCheckSequenceVerify) {
		if vm.flags.HasFlag(ScriptVerifyDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradable, "OP_NOP3 reserved for upgrades")
		}
		return nil
	}
	seqNum, err := vm.dstack.PopInt(vm.requireMinimal(), 5)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(seqNum)

	sequence := seqNum.Int64()
	if sequence < 0 {
		return scriptError(ErrNumericOverflow, "negative sequence")
	}
	if sequence&(1<<31) != 0 {
		return nil // disabled per this operand: always succeeds
	}

	if vm.ctx.Tx.Version < 2 {
		return scriptError(ErrVerifyFailed, "CHECKSEQUENCEVERIFY requires tx version >= 2")
	}
	txSeq := int64(vm.ctx.Tx.TxIn[vm.ctx.TxIdx].Sequence)
	if txSeq&(1<<31) != 0 {
		return scriptError(ErrVerifyFailed, "input sequence disables relative locktime")
	}

	const typeMask = 1 << 22
	const valueMask = 0x0000ffff
	if sequence&typeMask != txSeq&typeMask {
		return scriptError(ErrVerifyFailed, "sequence relative-locktime type mismatch")
	}
	if sequence&valueMask > txSeq&valueMask {
		return scriptError(ErrVerifyFailed, "relative locktime requirement not satisfied")
	}
	return nil
}
