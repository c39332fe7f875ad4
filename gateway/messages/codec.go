package messages

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON form of a message: {"type_url": "...", "value": {...}}.
type Envelope struct {
	TypeURL string          `json:"type_url"`
	Value   json.RawMessage `json:"value"`
}

// Decode turns an envelope into a typed message. Unrecognised type URLs
// decode to Unknown so that the normalizer can decide to drop them.
func Decode(env Envelope) (TransactionMsg, error) {
	var (
		msg TransactionMsg
		err error
	)
	switch env.TypeURL {
	case TypeMsgSend:
		msg, err = decodeInto[MsgSend](env.Value)
	case TypeMsgExecuteContract:
		msg, err = decodeInto[MsgExecuteContract](env.Value)
	case TypeMsgInstantiateContract:
		msg, err = decodeInto[MsgInstantiateContract](env.Value)
	case TypeMsgMigrateContract:
		msg, err = decodeInto[MsgMigrateContract](env.Value)
	case TypeMsgTransfer:
		msg, err = decodeInto[MsgTransfer](env.Value)
	case TypeMsgCreateSpotLimitOrder:
		msg, err = decodeInto[MsgCreateSpotLimitOrder](env.Value)
	case TypeMsgCancelSpotOrder:
		msg, err = decodeInto[MsgCancelSpotOrder](env.Value)
	case "":
		return nil, fmt.Errorf("message type_url is empty")
	default:
		return Unknown{Type: env.TypeURL, Value: env.Value}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.TypeURL, err)
	}
	return msg, nil
}

// DecodeAll decodes a JSON array of envelopes.
func DecodeAll(data []byte) ([]TransactionMsg, error) {
	var envs []Envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	msgs := make([]TransactionMsg, 0, len(envs))
	for i, env := range envs {
		msg, err := Decode(env)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Encode is the inverse of Decode.
func Encode(msg TransactionMsg) (Envelope, error) {
	if u, ok := msg.(Unknown); ok {
		return Envelope{TypeURL: u.Type, Value: u.Value}, nil
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s: %w", msg.TypeURL(), err)
	}
	return Envelope{TypeURL: msg.TypeURL(), Value: value}, nil
}

func decodeInto[T TransactionMsg](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("empty value")
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}
