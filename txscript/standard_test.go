package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestGetScriptClassStandardTemplates(t *testing.T) {
	priv1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	priv2, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := make([]byte, 20)
	scriptHash := make([]byte, 20)
	witnessScriptHash := make([]byte, 32)
	taprootKey := make([]byte, 32)

	pubKeyScript, err := NewScriptBuilder().
		AddData(priv1.PubKey().SerializeCompressed()).AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)
	pubKeyHashScript, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)
	scriptHashScript, err := PayToScriptHashScript(scriptHash)
	require.NoError(t, err)
	witnessKeyHashScript, err := PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)
	witnessScriptHashScript, err := PayToWitnessScriptHashScript(witnessScriptHash)
	require.NoError(t, err)
	taprootScript, err := PayToTaprootScript(taprootKey)
	require.NoError(t, err)
	multiSigScript, err := MultiSigScript(
		[][]byte{priv1.PubKey().SerializeCompressed(), priv2.PubKey().SerializeCompressed()}, 2,
	)
	require.NoError(t, err)
	nullDataScript, err := NewScriptBuilder().AddOp(OP_RETURN).AddData([]byte("hello")).Script()
	require.NoError(t, err)

	tests := []struct {
		name   string
		script []byte
		class  ScriptClass
	}{
		{"pubkey", pubKeyScript, PubKeyTy},
		{"pubkeyhash", pubKeyHashScript, PubKeyHashTy},
		{"scripthash", scriptHashScript, ScriptHashTy},
		{"witness_v0_keyhash", witnessKeyHashScript, WitnessV0PubKeyHashTy},
		{"witness_v0_scripthash", witnessScriptHashScript, WitnessV0ScriptHashTy},
		{"witness_v1_taproot", taprootScript, WitnessV1TaprootTy},
		{"multisig", multiSigScript, MultiSigTy},
		{"nulldata", nullDataScript, NullDataTy},
		{"nonstandard", []byte{OP_CHECKSIG, OP_CHECKSIG}, NonStandardTy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.class, GetScriptClass(tc.script))
		})
	}
}

func TestExtractPubKeyHashLegacyAndWitness(t *testing.T) {
	pkHash := make([]byte, 20)
	for i := range pkHash {
		pkHash[i] = byte(i)
	}

	legacyScript, err := PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)
	require.Equal(t, pkHash, ExtractPubKeyHash(legacyScript))

	witnessScript, err := PayToWitnessPubKeyHashScript(pkHash)
	require.NoError(t, err)
	require.Equal(t, pkHash, ExtractPubKeyHash(witnessScript))

	require.Nil(t, ExtractPubKeyHash([]byte{OP_CHECKSIG}))
}

func TestExtractScriptHashAndWitnessScriptHash(t *testing.T) {
	scriptHash := make([]byte, 20)
	witnessHash := make([]byte, 32)

	p2sh, err := PayToScriptHashScript(scriptHash)
	require.NoError(t, err)
	require.Equal(t, scriptHash, ExtractScriptHash(p2sh))

	p2wsh, err := PayToWitnessScriptHashScript(witnessHash)
	require.NoError(t, err)
	require.Equal(t, witnessHash, ExtractWitnessScriptHash(p2wsh))

	require.Nil(t, ExtractScriptHash(p2wsh))
	require.Nil(t, ExtractWitnessScriptHash(p2sh))
}

func TestExtractTaprootOutputKey(t *testing.T) {
	outputKey := make([]byte, 32)
	for i := range outputKey {
		outputKey[i] = byte(i + 1)
	}
	pkScript, err := PayToTaprootScript(outputKey)
	require.NoError(t, err)

	require.Equal(t, outputKey, ExtractTaprootOutputKey(pkScript))

	p2wpkh, err := PayToWitnessPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)
	require.Nil(t, ExtractTaprootOutputKey(p2wpkh))
}

func TestExtractWitnessProgramRoundTrip(t *testing.T) {
	program := make([]byte, 32)
	pkScript, err := PayToWitnessScriptHashScript(program)
	require.NoError(t, err)

	version, extracted, ok := ExtractWitnessProgram(pkScript)
	require.True(t, ok)
	require.Equal(t, 0, version)
	require.Equal(t, program, extracted)

	_, _, ok = ExtractWitnessProgram([]byte{OP_CHECKSIG})
	require.False(t, ok)
}

func TestExtractMultiSigPubKeys(t *testing.T) {
	priv1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	priv2, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	priv3, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKeys := [][]byte{
		priv1.PubKey().SerializeCompressed(),
		priv2.PubKey().SerializeCompressed(),
		priv3.PubKey().SerializeCompressed(),
	}

	script, err := MultiSigScript(pubKeys, 2)
	require.NoError(t, err)

	extracted, m := ExtractMultiSigPubKeys(script)
	require.Equal(t, 2, m)
	require.Equal(t, pubKeys, extracted)

	nilPubKeys, m := ExtractMultiSigPubKeys([]byte{OP_CHECKSIG})
	require.Nil(t, nilPubKeys)
	require.Zero(t, m)
}

func TestMultiSigScriptRejectsInvalidParameters(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKeys := [][]byte{priv.PubKey().SerializeCompressed()}

	_, err = MultiSigScript(pubKeys, 0)
	require.Error(t, err)

	_, err = MultiSigScript(pubKeys, 2)
	require.Error(t, err)
}
