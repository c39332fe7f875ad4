package messages_test

import (
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func TestDecodeAll(t *testing.T) {
	raw := `[
		{"type_url": "/cosmos.bank.v1beta1.MsgSend", "value": {"from_address": "neutron1a", "to_address": "neutron1b", "amount": [{"denom": "untrn", "amount": "10"}]}},
		{"type_url": "/cosmos.staking.v1beta1.MsgDelegate", "value": {"delegator_address": "neutron1a"}},
		{"type_url": "/ibc.applications.transfer.v1.MsgTransfer", "value": {"source_port": "transfer", "source_channel": "channel-0", "token": {"denom": "untrn", "amount": "5"}, "sender": "neutron1a", "receiver": "cosmos1b", "timeout_height": {"revision_number": "1", "revision_height": "100"}}},
		{"type_url": "/cosmwasm.wasm.v1.MsgInstantiateContract", "value": {"sender": "neutron1a", "code_id": "42", "label": "x", "msg": {"init": {}}}}
	]`

	msgs, err := DecodeAll([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, len(msgs), 4)

	send, ok := msgs[0].(MsgSend)
	assert.True(t, ok)
	assert.Equal(t, send.ToAddress, "neutron1b")
	assert.Equal(t, send.Amount[0].Amount, "10")

	unknown, ok := msgs[1].(Unknown)
	assert.True(t, ok)
	assert.Equal(t, unknown.TypeURL(), "/cosmos.staking.v1beta1.MsgDelegate")

	transfer, ok := msgs[2].(MsgTransfer)
	assert.True(t, ok)
	assert.NotNil(t, transfer.TimeoutHeight)
	assert.Equal(t, transfer.TimeoutHeight.RevisionHeight, uint64(100))

	inst, ok := msgs[3].(MsgInstantiateContract)
	assert.True(t, ok)
	assert.Equal(t, inst.CodeID, uint64(42))
	assert.Equal(t, string(inst.Msg), `{"init": {}}`)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"empty type url", Envelope{Value: []byte(`{}`)}},
		{"empty value", Envelope{TypeURL: TypeMsgSend}},
		{"bad value", Envelope{TypeURL: TypeMsgSend, Value: []byte(`{"amount": "nope"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.env)
			assert.Error(t, err)
		})
	}
}

func TestEncodeDecodeCancelOrder(t *testing.T) {
	msg := MsgCancelSpotOrder{Sender: "inj1a", MarketID: "0xabc", SubaccountID: "0x01", OrderHash: "0xdead"}
	env, err := Encode(msg)
	assert.NoError(t, err)
	assert.Equal(t, env.TypeURL, TypeMsgCancelSpotOrder)

	back, err := Decode(env)
	assert.NoError(t, err)
	require.Equal(t, back, TransactionMsg(msg))
}
