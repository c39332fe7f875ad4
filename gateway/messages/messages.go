package messages

import (
	"encoding/json"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Type URLs of the message kinds the gateway understands.
const (
	TypeMsgSend                 = "/cosmos.bank.v1beta1.MsgSend"
	TypeMsgExecuteContract      = "/cosmwasm.wasm.v1.MsgExecuteContract"
	TypeMsgInstantiateContract  = "/cosmwasm.wasm.v1.MsgInstantiateContract"
	TypeMsgMigrateContract      = "/cosmwasm.wasm.v1.MsgMigrateContract"
	TypeMsgTransfer             = "/ibc.applications.transfer.v1.MsgTransfer"
	TypeMsgCreateSpotLimitOrder = "/injective.exchange.v1beta1.MsgCreateSpotLimitOrder"
	TypeMsgCancelSpotOrder      = "/injective.exchange.v1beta1.MsgCancelSpotOrder"
)

// TransactionMsg is a chain-agnostic message. The set of implementations is closed;
// normalizers switch on the concrete type.
type TransactionMsg interface {
	TypeURL() string
	isTransactionMsg()
}

// MsgSend moves coins between two accounts.
type MsgSend struct {
	FromAddress string        `json:"from_address"`
	ToAddress   string        `json:"to_address"`
	Amount      []models.Coin `json:"amount"`
}

// MsgExecuteContract calls a CosmWasm contract. Msg is the raw JSON execute message.
type MsgExecuteContract struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    []models.Coin   `json:"funds,omitempty"`
}

// MsgInstantiateContract creates a contract from stored code.
type MsgInstantiateContract struct {
	Sender string          `json:"sender"`
	Admin  string          `json:"admin,omitempty"`
	CodeID uint64          `json:"code_id,string"`
	Label  string          `json:"label"`
	Msg    json.RawMessage `json:"msg"`
	Funds  []models.Coin   `json:"funds,omitempty"`
}

// MsgMigrateContract moves a contract to new code.
type MsgMigrateContract struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	CodeID   uint64          `json:"code_id,string"`
	Msg      json.RawMessage `json:"msg"`
}

// Height is an IBC client height.
type Height struct {
	RevisionNumber uint64 `json:"revision_number,string"`
	RevisionHeight uint64 `json:"revision_height,string"`
}

// MsgTransfer is an ICS-20 token transfer. TimeoutHeight is optional for cosmos chains.
type MsgTransfer struct {
	SourcePort       string      `json:"source_port"`
	SourceChannel    string      `json:"source_channel"`
	Token            models.Coin `json:"token"`
	Sender           string      `json:"sender"`
	Receiver         string      `json:"receiver"`
	TimeoutHeight    *Height     `json:"timeout_height,omitempty"`
	TimeoutTimestamp uint64      `json:"timeout_timestamp,string,omitempty"`
	Memo             string      `json:"memo,omitempty"`
}

// OrderInfo is the shared part of an exchange order.
type OrderInfo struct {
	SubaccountID string `json:"subaccount_id"`
	FeeRecipient string `json:"fee_recipient"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	Cid          string `json:"cid,omitempty"`
}

// SpotOrder is a spot market order.
type SpotOrder struct {
	MarketID     string    `json:"market_id"`
	OrderInfo    OrderInfo `json:"order_info"`
	OrderType    int32     `json:"order_type"` // 1 buy, 2 sell, see exchange OrderType
	TriggerPrice string    `json:"trigger_price,omitempty"`
}

// MsgCreateSpotLimitOrder places a spot limit order.
type MsgCreateSpotLimitOrder struct {
	Sender string    `json:"sender"`
	Order  SpotOrder `json:"order"`
}

// MsgCancelSpotOrder cancels a resting spot order.
type MsgCancelSpotOrder struct {
	Sender       string `json:"sender"`
	MarketID     string `json:"market_id"`
	SubaccountID string `json:"subaccount_id"`
	OrderHash    string `json:"order_hash"`
	Cid          string `json:"cid,omitempty"`
}

// Unknown carries a message kind the gateway cannot encode. Normalizers drop it.
type Unknown struct {
	Type  string
	Value json.RawMessage
}

func (MsgSend) TypeURL() string                 { return TypeMsgSend }
func (MsgExecuteContract) TypeURL() string      { return TypeMsgExecuteContract }
func (MsgInstantiateContract) TypeURL() string  { return TypeMsgInstantiateContract }
func (MsgMigrateContract) TypeURL() string      { return TypeMsgMigrateContract }
func (MsgTransfer) TypeURL() string             { return TypeMsgTransfer }
func (MsgCreateSpotLimitOrder) TypeURL() string { return TypeMsgCreateSpotLimitOrder }
func (MsgCancelSpotOrder) TypeURL() string      { return TypeMsgCancelSpotOrder }
func (u Unknown) TypeURL() string               { return u.Type }

func (MsgSend) isTransactionMsg()                 {}
func (MsgExecuteContract) isTransactionMsg()      {}
func (MsgInstantiateContract) isTransactionMsg()  {}
func (MsgMigrateContract) isTransactionMsg()      {}
func (MsgTransfer) isTransactionMsg()             {}
func (MsgCreateSpotLimitOrder) isTransactionMsg() {}
func (MsgCancelSpotOrder) isTransactionMsg()      {}
func (Unknown) isTransactionMsg()                 {}
