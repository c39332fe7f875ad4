package txcodec

import (
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// Type URLs used on the wire that differ from the chain-agnostic ones.
const (
	TypeInjectiveMsgExecuteContractCompat = "/injective.wasmx.v1.MsgExecuteContractCompat"
	TypeSecp256k1PubKey                   = "/cosmos.crypto.secp256k1.PubKey"
	TypeEthSecp256k1PubKey                = "/injective.crypto.v1beta1.ethsecp256k1.PubKey"
	TypeExtensionOptionsWeb3Tx            = "/injective.types.v1beta1.ExtensionOptionsWeb3Tx"
)

// PubKey wraps a compressed secp256k1 key in the Any of the given type.
func PubKey(typeURL string, key []byte) Any {
	return Any{TypeURL: typeURL, Value: appendBytes(nil, 1, key)}
}

// MsgSend encodes cosmos.bank.v1beta1.MsgSend.
func MsgSend(typeURL, from, to string, amount []models.Coin) Any {
	var b []byte
	b = appendString(b, 1, from)
	b = appendString(b, 2, to)
	b = appendCoins(b, 3, amount)
	return Any{TypeURL: typeURL, Value: b}
}

// MsgExecuteContract encodes cosmwasm.wasm.v1.MsgExecuteContract.
func MsgExecuteContract(typeURL, sender, contract string, msg []byte, funds []models.Coin) Any {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, contract)
	b = appendBytes(b, 3, msg)
	b = appendCoins(b, 5, funds)
	return Any{TypeURL: typeURL, Value: b}
}

// MsgExecuteContractCompat encodes injective.wasmx.v1.MsgExecuteContractCompat,
// which carries the contract msg and funds as strings.
func MsgExecuteContractCompat(sender, contract, msg, funds string) Any {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, contract)
	b = appendString(b, 3, msg)
	b = appendString(b, 4, funds)
	return Any{TypeURL: TypeInjectiveMsgExecuteContractCompat, Value: b}
}

// MsgInstantiateContract encodes cosmwasm.wasm.v1.MsgInstantiateContract.
func MsgInstantiateContract(typeURL, sender, admin string, codeID uint64, label string, msg []byte, funds []models.Coin) Any {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, admin)
	b = appendVarint(b, 3, codeID)
	b = appendString(b, 4, label)
	b = appendBytes(b, 5, msg)
	b = appendCoins(b, 6, funds)
	return Any{TypeURL: typeURL, Value: b}
}

// MsgMigrateContract encodes cosmwasm.wasm.v1.MsgMigrateContract.
func MsgMigrateContract(typeURL, sender, contract string, codeID uint64, msg []byte) Any {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, contract)
	b = appendVarint(b, 3, codeID)
	b = appendBytes(b, 4, msg)
	return Any{TypeURL: typeURL, Value: b}
}

// Transfer holds the fields of ibc.applications.transfer.v1.MsgTransfer.
type Transfer struct {
	SourcePort       string
	SourceChannel    string
	Token            models.Coin
	Sender           string
	Receiver         string
	RevisionNumber   uint64
	RevisionHeight   uint64
	TimeoutTimestamp uint64
	Memo             string
}

// MsgTransfer encodes ibc.applications.transfer.v1.MsgTransfer.
func MsgTransfer(typeURL string, t Transfer) Any {
	var b []byte
	b = appendString(b, 1, t.SourcePort)
	b = appendString(b, 2, t.SourceChannel)
	b = appendMessage(b, 3, MarshalCoin(t.Token))
	b = appendString(b, 4, t.Sender)
	b = appendString(b, 5, t.Receiver)
	var height []byte
	height = appendVarint(height, 1, t.RevisionNumber)
	height = appendVarint(height, 2, t.RevisionHeight)
	b = appendMessage(b, 6, height)
	b = appendVarint(b, 7, t.TimeoutTimestamp)
	b = appendString(b, 8, t.Memo)
	return Any{TypeURL: typeURL, Value: b}
}

// SpotLimitOrder holds the fields of an injective spot order.
type SpotLimitOrder struct {
	MarketID     string
	SubaccountID string
	FeeRecipient string
	Price        string
	Quantity     string
	Cid          string
	OrderType    int32
	TriggerPrice string
}

// MsgCreateSpotLimitOrder encodes injective.exchange.v1beta1.MsgCreateSpotLimitOrder.
func MsgCreateSpotLimitOrder(typeURL, sender string, o SpotLimitOrder) Any {
	var info []byte
	info = appendString(info, 1, o.SubaccountID)
	info = appendString(info, 2, o.FeeRecipient)
	info = appendString(info, 3, o.Price)
	info = appendString(info, 4, o.Quantity)
	info = appendString(info, 5, o.Cid)

	var order []byte
	order = appendString(order, 1, o.MarketID)
	order = appendMessage(order, 2, info)
	order = appendVarint(order, 3, uint64(o.OrderType))
	order = appendString(order, 4, o.TriggerPrice)

	var b []byte
	b = appendString(b, 1, sender)
	b = appendMessage(b, 2, order)
	return Any{TypeURL: typeURL, Value: b}
}

// MsgCancelSpotOrder encodes injective.exchange.v1beta1.MsgCancelSpotOrder.
func MsgCancelSpotOrder(typeURL, sender, marketID, subaccountID, orderHash, cid string) Any {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, marketID)
	b = appendString(b, 3, subaccountID)
	b = appendString(b, 4, orderHash)
	b = appendString(b, 5, cid)
	return Any{TypeURL: typeURL, Value: b}
}

// ExtensionOptionsWeb3Tx encodes injective.types.v1beta1.ExtensionOptionsWeb3Tx.
func ExtensionOptionsWeb3Tx(typedDataChainID uint64, feePayer string, feePayerSig []byte) Any {
	var b []byte
	b = appendVarint(b, 1, typedDataChainID)
	b = appendString(b, 2, feePayer)
	b = appendBytes(b, 3, feePayerSig)
	return Any{TypeURL: TypeExtensionOptionsWeb3Tx, Value: b}
}

func appendCoins(b []byte, num protowire.Number, coins []models.Coin) []byte {
	for _, c := range coins {
		b = appendMessage(b, num, MarshalCoin(c))
	}
	return b
}
