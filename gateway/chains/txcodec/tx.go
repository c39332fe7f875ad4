// Package txcodec encodes the Cosmos SDK transaction types the gateway signs and
// broadcasts. Only the fields the gateway populates are modelled; zero values are
// omitted as proto3 requires so the bytes match what the chain re-encodes.
package txcodec

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// SignMode mirrors cosmos.tx.signing.v1beta1.SignMode.
type SignMode int32

const (
	SignModeDirect          SignMode = 1
	SignModeLegacyAminoJSON SignMode = 127
)

// Any is google.protobuf.Any.
type Any struct {
	TypeURL string
	Value   []byte
}

func (a Any) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.TypeURL)
	b = appendBytes(b, 2, a.Value)
	return b
}

// TxBody is cosmos.tx.v1beta1.TxBody.
type TxBody struct {
	Messages         []Any
	Memo             string
	TimeoutHeight    uint64
	ExtensionOptions []Any
}

func (t TxBody) Marshal() []byte {
	var b []byte
	for _, m := range t.Messages {
		b = appendMessage(b, 1, m.Marshal())
	}
	b = appendString(b, 2, t.Memo)
	b = appendVarint(b, 3, t.TimeoutHeight)
	for _, ext := range t.ExtensionOptions {
		b = appendMessage(b, 1023, ext.Marshal())
	}
	return b
}

// Fee is cosmos.tx.v1beta1.Fee.
type Fee struct {
	Amount   []models.Coin
	GasLimit uint64
	Payer    string
	Granter  string
}

func (f Fee) Marshal() []byte {
	var b []byte
	for _, c := range f.Amount {
		b = appendMessage(b, 1, MarshalCoin(c))
	}
	b = appendVarint(b, 2, f.GasLimit)
	b = appendString(b, 3, f.Payer)
	b = appendString(b, 4, f.Granter)
	return b
}

// SignerInfo is cosmos.tx.v1beta1.SignerInfo with a single-signer mode info.
type SignerInfo struct {
	PublicKey *Any
	Mode      SignMode
	Sequence  uint64
}

func (s SignerInfo) Marshal() []byte {
	var b []byte
	if s.PublicKey != nil {
		b = appendMessage(b, 1, s.PublicKey.Marshal())
	}
	// ModeInfo{single: Single{mode}}
	single := appendVarint(nil, 1, uint64(s.Mode))
	b = appendMessage(b, 2, appendMessage(nil, 1, single))
	b = appendVarint(b, 3, s.Sequence)
	return b
}

// AuthInfo is cosmos.tx.v1beta1.AuthInfo.
type AuthInfo struct {
	SignerInfos []SignerInfo
	Fee         Fee
}

func (a AuthInfo) Marshal() []byte {
	var b []byte
	for _, si := range a.SignerInfos {
		b = appendMessage(b, 1, si.Marshal())
	}
	b = appendMessage(b, 2, a.Fee.Marshal())
	return b
}

// SignDoc is cosmos.tx.v1beta1.SignDoc, the payload signed in direct mode.
type SignDoc struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	ChainID       string
	AccountNumber uint64
}

func (s SignDoc) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, s.BodyBytes)
	b = appendBytes(b, 2, s.AuthInfoBytes)
	b = appendString(b, 3, s.ChainID)
	b = appendVarint(b, 4, s.AccountNumber)
	return b
}

// TxRaw is cosmos.tx.v1beta1.TxRaw, the broadcastable form of a transaction.
type TxRaw struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

func (t TxRaw) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, t.BodyBytes)
	b = appendBytes(b, 2, t.AuthInfoBytes)
	for _, sig := range t.Signatures {
		// signatures are repeated bytes, empty entries still occupy a slot
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}
	return b
}

// UnmarshalTxRaw decodes TxRaw bytes.
func UnmarshalTxRaw(data []byte) (TxRaw, error) {
	var tx TxRaw
	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) {
		switch num {
		case 1:
			tx.BodyBytes = v
		case 2:
			tx.AuthInfoBytes = v
		case 3:
			tx.Signatures = append(tx.Signatures, v)
		}
	})
	if err != nil {
		return TxRaw{}, fmt.Errorf("failed to decode tx raw: %w", err)
	}
	return tx, nil
}

// UnmarshalTxBody decodes the memo, timeout height and raw messages of a body.
func UnmarshalTxBody(data []byte) (TxBody, error) {
	var body TxBody
	var inner error
	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) {
		switch num {
		case 1, 1023:
			a, err := unmarshalAny(v)
			if err != nil {
				inner = err
				return
			}
			if num == 1 {
				body.Messages = append(body.Messages, a)
			} else {
				body.ExtensionOptions = append(body.ExtensionOptions, a)
			}
		case 2:
			body.Memo = string(v)
		case 3:
			body.TimeoutHeight = n
		}
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return TxBody{}, fmt.Errorf("failed to decode tx body: %w", err)
	}
	return body, nil
}

// UnmarshalAuthInfo decodes signer sequences, sign modes and the fee.
func UnmarshalAuthInfo(data []byte) (AuthInfo, error) {
	var info AuthInfo
	var inner error
	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) {
		switch num {
		case 1:
			si, err := unmarshalSignerInfo(v)
			if err != nil {
				inner = err
				return
			}
			info.SignerInfos = append(info.SignerInfos, si)
		case 2:
			fee, err := unmarshalFee(v)
			if err != nil {
				inner = err
				return
			}
			info.Fee = fee
		}
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return AuthInfo{}, fmt.Errorf("failed to decode auth info: %w", err)
	}
	return info, nil
}

func unmarshalAny(data []byte) (Any, error) {
	var a Any
	err := walk(data, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) {
		switch num {
		case 1:
			a.TypeURL = string(v)
		case 2:
			a.Value = v
		}
	})
	return a, err
}

func unmarshalSignerInfo(data []byte) (SignerInfo, error) {
	var si SignerInfo
	var inner error
	err := walk(data, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) {
		switch num {
		case 1:
			pk, err := unmarshalAny(v)
			if err != nil {
				inner = err
				return
			}
			si.PublicKey = &pk
		case 2:
			// ModeInfo.single.mode
			err := walk(v, func(num protowire.Number, _ protowire.Type, single []byte, _ uint64) {
				if num != 1 {
					return
				}
				err := walk(single, func(num protowire.Number, _ protowire.Type, _ []byte, mode uint64) {
					if num == 1 {
						si.Mode = SignMode(mode)
					}
				})
				if err != nil {
					inner = err
				}
			})
			if err != nil {
				inner = err
			}
		case 3:
			si.Sequence = n
		}
	})
	if err == nil {
		err = inner
	}
	return si, err
}

func unmarshalFee(data []byte) (Fee, error) {
	var fee Fee
	var inner error
	err := walk(data, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) {
		switch num {
		case 1:
			var c models.Coin
			inner = walk(v, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) {
				switch num {
				case 1:
					c.Denom = string(v)
				case 2:
					c.Amount = string(v)
				}
			})
			fee.Amount = append(fee.Amount, c)
		case 2:
			fee.GasLimit = n
		case 3:
			fee.Payer = string(v)
		case 4:
			fee.Granter = string(v)
		}
	})
	if err == nil {
		err = inner
	}
	return fee, err
}
