package injective

import (
	"strconv"
	"strings"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// DefaultTransferMemo is used for IBC transfers sent without a memo.
const DefaultTransferMemo = "IBC Transfer"

// Normalizer encodes messages in the form the injective chain and its EIP-712 signer expect.
type Normalizer struct{}

var _ signing.Normalizer = Normalizer{}

func (Normalizer) Normalize(msgs []messages.TransactionMsg) ([]signing.NormalizedMsg, error) {
	out := make([]signing.NormalizedMsg, 0, len(msgs))
	for _, msg := range msgs {
		normalized, ok, err := normalize(msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug().Str("type_url", msg.TypeURL()).Msg("dropping unsupported message")
			continue
		}
		out = append(out, normalized)
	}
	return out, nil
}

func normalize(msg messages.TransactionMsg) (signing.NormalizedMsg, bool, error) {
	switch m := msg.(type) {
	case messages.MsgSend:
		return signing.NormalizedMsg{
			Proto: txcodec.MsgSend(m.TypeURL(), m.FromAddress, m.ToAddress, m.Amount),
			Amino: signing.AminoMsg{
				Type: "cosmos-sdk/MsgSend",
				Value: map[string]any{
					"from_address": m.FromAddress,
					"to_address":   m.ToAddress,
					"amount":       signing.CoinsValue(m.Amount),
				},
			},
		}, true, nil

	case messages.MsgExecuteContract:
		// the compat message carries msg and funds as plain strings
		raw, _, err := signing.ContractMsg(m.TypeURL(), m.Msg)
		if err != nil {
			return signing.NormalizedMsg{}, false, err
		}
		funds := compatFunds(m.Funds)
		value := map[string]any{
			"sender":   m.Sender,
			"contract": m.Contract,
			"msg":      string(raw),
		}
		if funds != "" {
			value["funds"] = funds
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgExecuteContractCompat(m.Sender, m.Contract, string(raw), funds),
			Amino: signing.AminoMsg{Type: "wasmx/MsgExecuteContractCompat", Value: value},
		}, true, nil

	case messages.MsgInstantiateContract:
		raw, decoded, err := signing.ContractMsg(m.TypeURL(), m.Msg)
		if err != nil {
			return signing.NormalizedMsg{}, false, err
		}
		// only the first coin is forwarded
		var funds []models.Coin
		if len(m.Funds) > 0 {
			funds = m.Funds[:1]
		}
		value := map[string]any{
			"sender":  m.Sender,
			"admin":   m.Admin,
			"code_id": strconv.FormatUint(m.CodeID, 10),
			"label":   m.Label,
			"msg":     decoded,
		}
		if len(funds) > 0 {
			value["funds"] = signing.CoinsValue(funds)
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgInstantiateContract(m.TypeURL(), m.Sender, m.Admin, m.CodeID, m.Label, raw, funds),
			Amino: signing.AminoMsg{Type: "wasm/MsgInstantiateContract", Value: value},
		}, true, nil

	case messages.MsgMigrateContract:
		raw, decoded, err := signing.ContractMsg(m.TypeURL(), m.Msg)
		if err != nil {
			return signing.NormalizedMsg{}, false, err
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgMigrateContract(m.TypeURL(), m.Sender, m.Contract, m.CodeID, raw),
			Amino: signing.AminoMsg{
				Type: "wasm/MsgMigrateContract",
				Value: map[string]any{
					"sender":   m.Sender,
					"contract": m.Contract,
					"code_id":  strconv.FormatUint(m.CodeID, 10),
					"msg":      decoded,
				},
			},
		}, true, nil

	case messages.MsgTransfer:
		if m.TimeoutHeight == nil {
			return signing.NormalizedMsg{}, false, &models.InvalidMessageError{
				TypeURL: m.TypeURL(),
				Reason:  "injective IBC transfer requires timeout height",
			}
		}
		memo := m.Memo
		if memo == "" {
			memo = DefaultTransferMemo
		}
		transfer := txcodec.Transfer{
			SourcePort:       m.SourcePort,
			SourceChannel:    m.SourceChannel,
			Token:            m.Token,
			Sender:           m.Sender,
			Receiver:         m.Receiver,
			RevisionNumber:   m.TimeoutHeight.RevisionNumber,
			RevisionHeight:   m.TimeoutHeight.RevisionHeight,
			TimeoutTimestamp: m.TimeoutTimestamp,
			Memo:             memo,
		}
		value := map[string]any{
			"source_port":    m.SourcePort,
			"source_channel": m.SourceChannel,
			"token":          map[string]any{"denom": m.Token.Denom, "amount": m.Token.Amount},
			"sender":         m.Sender,
			"receiver":       m.Receiver,
			"timeout_height": map[string]any{
				"revision_number": strconv.FormatUint(m.TimeoutHeight.RevisionNumber, 10),
				"revision_height": strconv.FormatUint(m.TimeoutHeight.RevisionHeight, 10),
			},
			"timeout_timestamp": strconv.FormatUint(m.TimeoutTimestamp, 10),
			"memo":              memo,
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgTransfer(m.TypeURL(), transfer),
			Amino: signing.AminoMsg{Type: "cosmos-sdk/MsgTransfer", Value: value},
		}, true, nil

	case messages.MsgCreateSpotLimitOrder:
		o := m.Order
		order := txcodec.SpotLimitOrder{
			MarketID:     o.MarketID,
			SubaccountID: o.OrderInfo.SubaccountID,
			FeeRecipient: o.OrderInfo.FeeRecipient,
			Price:        o.OrderInfo.Price,
			Quantity:     o.OrderInfo.Quantity,
			Cid:          o.OrderInfo.Cid,
			OrderType:    o.OrderType,
			TriggerPrice: o.TriggerPrice,
		}
		info := map[string]any{
			"subaccount_id": o.OrderInfo.SubaccountID,
			"fee_recipient": o.OrderInfo.FeeRecipient,
			"price":         o.OrderInfo.Price,
			"quantity":      o.OrderInfo.Quantity,
		}
		if o.OrderInfo.Cid != "" {
			info["cid"] = o.OrderInfo.Cid
		}
		orderValue := map[string]any{
			"market_id":  o.MarketID,
			"order_info": info,
			"order_type": o.OrderType,
		}
		if o.TriggerPrice != "" {
			orderValue["trigger_price"] = o.TriggerPrice
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgCreateSpotLimitOrder(m.TypeURL(), m.Sender, order),
			Amino: signing.AminoMsg{
				Type:  "exchange/MsgCreateSpotLimitOrder",
				Value: map[string]any{"sender": m.Sender, "order": orderValue},
			},
		}, true, nil

	case messages.MsgCancelSpotOrder:
		value := map[string]any{
			"sender":        m.Sender,
			"market_id":     m.MarketID,
			"subaccount_id": m.SubaccountID,
			"order_hash":    m.OrderHash,
		}
		if m.Cid != "" {
			value["cid"] = m.Cid
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgCancelSpotOrder(m.TypeURL(), m.Sender, m.MarketID, m.SubaccountID, m.OrderHash, m.Cid),
			Amino: signing.AminoMsg{Type: "exchange/MsgCancelSpotOrder", Value: value},
		}, true, nil
	}

	return signing.NormalizedMsg{}, false, nil
}

// compatFunds renders coins as "100inj,5peggy0x..." the way wasmx expects.
func compatFunds(coins []models.Coin) string {
	parts := make([]string, 0, len(coins))
	for _, c := range coins {
		parts = append(parts, c.Amount+c.Denom)
	}
	return strings.Join(parts, ",")
}
