package txcodec_test

import (
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func TestCoinEncoding(t *testing.T) {
	// denom "a" amount "1": 0a 01 61 12 01 31
	got := MarshalCoin(models.Coin{Denom: "a", Amount: "1"})
	require.Equal(t, got, []byte{0x0a, 0x01, 'a', 0x12, 0x01, '1'})
}

func TestZeroFieldsOmitted(t *testing.T) {
	assert.Equal(t, len(TxBody{}.Marshal()), 0)
	assert.Equal(t, len(SignDoc{}.Marshal()), 0)
	// AuthInfo always carries the fee message, even when empty
	require.Equal(t, AuthInfo{}.Marshal(), []byte{0x12, 0x00})
}

func TestTxRoundTrip(t *testing.T) {
	pk := PubKey(TypeSecp256k1PubKey, []byte{0x02, 0x01, 0x02})
	body := TxBody{
		Messages: []Any{
			MsgSend("/cosmos.bank.v1beta1.MsgSend", "neutron1a", "neutron1b", []models.Coin{{Denom: "untrn", Amount: "10"}}),
		},
		Memo:             "hello",
		TimeoutHeight:    1234,
		ExtensionOptions: []Any{ExtensionOptionsWeb3Tx(1, "", nil)},
	}
	auth := AuthInfo{
		SignerInfos: []SignerInfo{{PublicKey: &pk, Mode: SignModeLegacyAminoJSON, Sequence: 7}},
		Fee:         Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "25000"}}, GasLimit: 200000},
	}
	raw := TxRaw{
		BodyBytes:     body.Marshal(),
		AuthInfoBytes: auth.Marshal(),
		Signatures:    [][]byte{{0xaa, 0xbb}},
	}

	decoded, err := UnmarshalTxRaw(raw.Marshal())
	assert.NoError(t, err)
	require.Equal(t, decoded.Signatures, [][]byte{{0xaa, 0xbb}})

	gotBody, err := UnmarshalTxBody(decoded.BodyBytes)
	assert.NoError(t, err)
	assert.Equal(t, gotBody.Memo, "hello")
	assert.Equal(t, gotBody.TimeoutHeight, uint64(1234))
	assert.Equal(t, len(gotBody.Messages), 1)
	assert.Equal(t, gotBody.Messages[0].TypeURL, "/cosmos.bank.v1beta1.MsgSend")
	assert.Equal(t, len(gotBody.ExtensionOptions), 1)
	assert.Equal(t, gotBody.ExtensionOptions[0].TypeURL, TypeExtensionOptionsWeb3Tx)

	gotAuth, err := UnmarshalAuthInfo(decoded.AuthInfoBytes)
	assert.NoError(t, err)
	assert.Equal(t, len(gotAuth.SignerInfos), 1)
	assert.Equal(t, gotAuth.SignerInfos[0].Sequence, uint64(7))
	assert.Equal(t, gotAuth.SignerInfos[0].Mode, SignModeLegacyAminoJSON)
	assert.Equal(t, gotAuth.SignerInfos[0].PublicKey.TypeURL, TypeSecp256k1PubKey)
	assert.Equal(t, gotAuth.Fee.GasLimit, uint64(200000))
	require.Equal(t, gotAuth.Fee.Amount, []models.Coin{{Denom: "untrn", Amount: "25000"}})
}

func TestEmptySignatureKeepsSlot(t *testing.T) {
	raw := TxRaw{BodyBytes: []byte{0x12, 0x00}, Signatures: [][]byte{{}}}
	decoded, err := UnmarshalTxRaw(raw.Marshal())
	assert.NoError(t, err)
	assert.Equal(t, len(decoded.Signatures), 1)
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := UnmarshalTxRaw([]byte{0x0a, 0x05, 0x01})
	assert.Error(t, err)
}
