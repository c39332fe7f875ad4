package cosmos

import (
	"strconv"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Normalizer encodes messages for Cosmos SDK chains with CosmWasm.
// Exchange orders have no meaning here and are dropped with the unknown kinds.
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
		raw, decoded, err := signing.ContractMsg(m.TypeURL(), m.Msg)
		if err != nil {
			return signing.NormalizedMsg{}, false, err
		}
		value := map[string]any{"sender": m.Sender, "contract": m.Contract, "msg": decoded}
		if len(m.Funds) > 0 {
			value["funds"] = signing.CoinsValue(m.Funds)
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgExecuteContract(m.TypeURL(), m.Sender, m.Contract, raw, m.Funds),
			Amino: signing.AminoMsg{Type: "wasm/MsgExecuteContract", Value: value},
		}, true, nil

	case messages.MsgInstantiateContract:
		raw, decoded, err := signing.ContractMsg(m.TypeURL(), m.Msg)
		if err != nil {
			return signing.NormalizedMsg{}, false, err
		}
		value := map[string]any{
			"sender":  m.Sender,
			"code_id": strconv.FormatUint(m.CodeID, 10),
			"label":   m.Label,
			"msg":     decoded,
		}
		if m.Admin != "" {
			value["admin"] = m.Admin
		}
		if len(m.Funds) > 0 {
			value["funds"] = signing.CoinsValue(m.Funds)
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgInstantiateContract(m.TypeURL(), m.Sender, m.Admin, m.CodeID, m.Label, raw, m.Funds),
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
		if m.TimeoutHeight == nil && m.TimeoutTimestamp == 0 {
			return signing.NormalizedMsg{}, false, &models.InvalidMessageError{
				TypeURL: m.TypeURL(),
				Reason:  "IBC transfer requires a timeout height or a timeout timestamp",
			}
		}
		transfer := txcodec.Transfer{
			SourcePort:       m.SourcePort,
			SourceChannel:    m.SourceChannel,
			Token:            m.Token,
			Sender:           m.Sender,
			Receiver:         m.Receiver,
			TimeoutTimestamp: m.TimeoutTimestamp,
			Memo:             m.Memo,
		}
		height := map[string]any{}
		if m.TimeoutHeight != nil {
			transfer.RevisionNumber = m.TimeoutHeight.RevisionNumber
			transfer.RevisionHeight = m.TimeoutHeight.RevisionHeight
			height["revision_number"] = strconv.FormatUint(m.TimeoutHeight.RevisionNumber, 10)
			height["revision_height"] = strconv.FormatUint(m.TimeoutHeight.RevisionHeight, 10)
		}
		value := map[string]any{
			"source_port":    m.SourcePort,
			"source_channel": m.SourceChannel,
			"token":          map[string]any{"denom": m.Token.Denom, "amount": m.Token.Amount},
			"sender":         m.Sender,
			"receiver":       m.Receiver,
			"timeout_height": height,
		}
		if m.TimeoutTimestamp != 0 {
			value["timeout_timestamp"] = strconv.FormatUint(m.TimeoutTimestamp, 10)
		}
		if m.Memo != "" {
			value["memo"] = m.Memo
		}
		return signing.NormalizedMsg{
			Proto: txcodec.MsgTransfer(m.TypeURL(), transfer),
			Amino: signing.AminoMsg{Type: "cosmos-sdk/MsgTransfer", Value: value},
		}, true, nil
	}

	return signing.NormalizedMsg{}, false, nil
}
