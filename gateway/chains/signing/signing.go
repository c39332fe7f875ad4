// Package signing holds the two-phase signing protocol shared by every chain family.
//
// Prepare does everything that needs the network (account, latest block) and
// returns an unsigned document plus the payload the wallet signs. Finish is a pure
// function of that document, the public key and the signature, so the external
// signing step can take as long as it needs.
package signing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// TimeoutBlocks is added to the latest height to bound transaction validity.
const TimeoutBlocks = 120

// AminoMsg is the JSON form of a normalized message, {"type": ..., "value": {...}}.
type AminoMsg struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// NormalizedMsg is a message in the wire format of one chain family.
type NormalizedMsg struct {
	Proto txcodec.Any
	Amino AminoMsg
}

// Normalizer converts chain-agnostic messages into one family's wire format.
// Unsupported kinds are dropped, order of the survivors is preserved.
type Normalizer interface {
	Normalize(msgs []messages.TransactionMsg) ([]NormalizedMsg, error)
}

// UnsignedDoc captures every field finish needs to rebuild the transaction.
// Numbers are strings so the doc round-trips through JSON unchanged.
type UnsignedDoc struct {
	ChainID       string     `json:"chain_id"`
	AccountNumber string     `json:"account_number"`
	Sequence      string     `json:"sequence"`
	TimeoutHeight string     `json:"timeout_height,omitempty"`
	Fee           models.Fee `json:"fee"`
	Msgs          []AminoMsg `json:"msgs"`
	Memo          string     `json:"memo"`
}

// PrepareRequest is the input of Prepare.
type PrepareRequest struct {
	Network    models.Network
	Wallet     models.WalletConnection
	Messages   []messages.TransactionMsg
	FeeOptions models.FeeOptions
	Memo       string
	// RESTOverride replaces the network REST endpoint for the chain queries.
	RESTOverride string
}

// Prepared is the output of Prepare.
type Prepared struct {
	Messages []NormalizedMsg
	// SignBytes is what the wallet signs: SignDoc bytes in direct mode,
	// the EIP-712 digest for typed-data families.
	SignBytes []byte
	// TypedData is the EIP-712 payload, nil for direct mode.
	TypedData json.RawMessage
	Doc       UnsignedDoc
}

// FinishRequest is the input of Finish.
type FinishRequest struct {
	Network    models.Network
	PubKey     []byte
	PubKeyAlgo string // empty means the family default
	Messages   []NormalizedMsg
	Doc        UnsignedDoc
	Signature  []byte
}

// Client is implemented once per chain family.
type Client interface {
	Family() string
	// Normalize converts messages the same way Prepare does, for callers that
	// finish a doc prepared in another process.
	Normalize(msgs []messages.TransactionMsg) ([]NormalizedMsg, error)
	Prepare(ctx context.Context, req PrepareRequest) (*Prepared, error)
	Finish(req FinishRequest) (models.SigningResult, error)
	// Unsigned builds a transaction with an empty signature for simulation.
	Unsigned(req FinishRequest) ([]byte, error)
}

// Envelope parses the numeric fields of a doc.
// A missing timeout height is read as 0 so that docs stored before the field existed still finish.
func (d UnsignedDoc) Envelope() (models.SignedEnvelope, error) {
	accountNumber, err := strconv.ParseUint(d.AccountNumber, 10, 64)
	if err != nil {
		return models.SignedEnvelope{}, fmt.Errorf("invalid account_number %q: %w", d.AccountNumber, err)
	}
	sequence, err := strconv.ParseUint(d.Sequence, 10, 64)
	if err != nil {
		return models.SignedEnvelope{}, fmt.Errorf("invalid sequence %q: %w", d.Sequence, err)
	}
	timeoutHeight := uint64(0)
	if d.TimeoutHeight != "" {
		timeoutHeight, err = strconv.ParseUint(d.TimeoutHeight, 10, 64)
		if err != nil {
			return models.SignedEnvelope{}, fmt.Errorf("invalid timeout_height %q: %w", d.TimeoutHeight, err)
		}
	}
	return models.SignedEnvelope{
		ChainID:       d.ChainID,
		AccountNumber: accountNumber,
		Sequence:      sequence,
		TimeoutHeight: timeoutHeight,
		Memo:          d.Memo,
		Fee:           d.Fee,
	}, nil
}

// ProtoMessages returns the protobuf form of normalized messages.
func ProtoMessages(msgs []NormalizedMsg) []txcodec.Any {
	out := make([]txcodec.Any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Proto)
	}
	return out
}

// AminoMessages returns the JSON form of normalized messages.
func AminoMessages(msgs []NormalizedMsg) []AminoMsg {
	out := make([]AminoMsg, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Amino)
	}
	return out
}

// TxFee converts a models.Fee into the protobuf fee.
func TxFee(fee models.Fee) (txcodec.Fee, error) {
	gas := uint64(0)
	if fee.Gas != "" {
		var err error
		gas, err = strconv.ParseUint(fee.Gas, 10, 64)
		if err != nil {
			return txcodec.Fee{}, fmt.Errorf("invalid gas %q: %w", fee.Gas, err)
		}
	}
	return txcodec.Fee{Amount: fee.Amount, GasLimit: gas}, nil
}

// RESTEndpoint picks the override when set.
func (r PrepareRequest) RESTEndpoint() string {
	if r.RESTOverride != "" {
		return r.RESTOverride
	}
	return r.Network.REST
}
