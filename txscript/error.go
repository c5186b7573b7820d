package txscript

import "fmt"

// ErrorCode identifies the specific way a script evaluation, sighash
// computation, or signing attempt failed. The interpreter never panics on
// adversarial input (spec.md §7): every failure path returns one of these,
// carried in an Error value.
type ErrorCode int

// The interpreter error taxonomy of spec.md §4.2, plus signer-specific
// conditions from spec.md §7.
const (
	ErrStackUnderflow ErrorCode = iota
	ErrInvalidOperation
	ErrDisabledOperation
	ErrReservedOpcode
	ErrUnbalancedConditional
	ErrPushSizeExceeded
	ErrStackMaxElementSizeExceeded
	ErrOpCountExceeded
	ErrScriptSizeExceeded
	ErrNumericOverflow
	ErrMinimalDataRequired
	ErrMinimalIfRequired
	ErrNullDummyRequired
	ErrCleanStackRequired
	ErrDiscourageUpgradable
	ErrNonConstantScript
	ErrInvalidSignature
	ErrInvalidPublicKey
	ErrSignatureHashTypeInvalid
	ErrWitnessProgramMismatch
	ErrWitnessMalleated
	ErrTaprootControlBlockInvalid
	ErrTapscriptSigOpsBudgetExceeded
	ErrVerifyFailed

	// Signer-specific conditions (spec.md §4.4, §7).
	ErrUnsupportedScriptTemplate
	ErrMissingPreviousOutput
)

var errorCodeNames = map[ErrorCode]string{
	ErrStackUnderflow:                "ErrStackUnderflow",
	ErrInvalidOperation:              "ErrInvalidOperation",
	ErrDisabledOperation:             "ErrDisabledOperation",
	ErrReservedOpcode:                "ErrReservedOpcode",
	ErrUnbalancedConditional:         "ErrUnbalancedConditional",
	ErrPushSizeExceeded:              "ErrPushSizeExceeded",
	ErrStackMaxElementSizeExceeded:   "ErrStackMaxElementSizeExceeded",
	ErrOpCountExceeded:               "ErrOpCountExceeded",
	ErrScriptSizeExceeded:            "ErrScriptSizeExceeded",
	ErrNumericOverflow:               "ErrNumericOverflow",
	ErrMinimalDataRequired:           "ErrMinimalDataRequired",
	ErrMinimalIfRequired:             "ErrMinimalIfRequired",
	ErrNullDummyRequired:             "ErrNullDummyRequired",
	ErrCleanStackRequired:            "ErrCleanStackRequired",
	ErrDiscourageUpgradable:          "ErrDiscourageUpgradable",
	ErrNonConstantScript:             "ErrNonConstantScript",
	ErrInvalidSignature:              "ErrInvalidSignature",
	ErrInvalidPublicKey:              "ErrInvalidPublicKey",
	ErrSignatureHashTypeInvalid:      "ErrSignatureHashTypeInvalid",
	ErrWitnessProgramMismatch:        "ErrWitnessProgramMismatch",
	ErrWitnessMalleated:              "ErrWitnessMalleated",
	ErrTaprootControlBlockInvalid:    "ErrTaprootControlBlockInvalid",
	ErrTapscriptSigOpsBudgetExceeded: "ErrTapscriptSigOpsBudgetExceeded",
	ErrVerifyFailed:                  "ErrVerifyFailed",
	ErrUnsupportedScriptTemplate:     "ErrUnsupportedScriptTemplate",
	ErrMissingPreviousOutput:         "ErrMissingPreviousOutput",
}

func (e ErrorCode) String() string {
	if name, ok := errorCodeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error is the typed failure value returned by every fallible operation in
// this package. Callers compare against ErrorCode via Is, not string
// matching, mirroring the teacher pack's own txscript.Error (see
// other_examples/btcsuite-btcd__opcode.go's scriptError helper).
type Error struct {
	Code        ErrorCode
	Description string
}

func (e Error) Error() string {
	return e.Description
}

// Is reports whether target is an *Error (or Error) with the same Code,
// enabling errors.Is(err, txscript.Error{Code: txscript.ErrStackUnderflow}).
func (e Error) Is(target error) bool {
	var other Error
	switch t := target.(type) {
	case Error:
		other = t
	case *Error:
		if t == nil {
			return false
		}
		other = *t
	default:
		return false
	}
	return e.Code == other.Code
}

func scriptError(code ErrorCode, desc string) Error {
	return Error{Code: code, Description: desc}
}

func scriptErrorf(code ErrorCode, format string, args ...interface{}) Error {
	return Error{Code: code, Description: fmt.Sprintf(format, args...)}
}
