// Package injective signs injective transactions with EIP-712 typed data.
//
// The wallet signs the typed data digest with an Ethereum key. Finish wraps the
// signature in a LEGACY_AMINO_JSON transaction carrying the Web3 extension so the
// chain knows which Ethereum chain id the typed data was built for.
package injective

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "injective-signer").Logger()
}

// SigningClient implements the two-phase protocol for injective chains.
type SigningClient struct {
	querier    query.ChainQuerier
	normalizer signing.Normalizer
}

var _ signing.Client = (*SigningClient)(nil)

// NewSigningClient creates an EIP-712 client on top of a chain querier.
func NewSigningClient(querier query.ChainQuerier) *SigningClient {
	return &SigningClient{
		querier:    querier,
		normalizer: Normalizer{},
	}
}

func (c *SigningClient) Family() string { return models.FamilyInjective }

func (c *SigningClient) Normalize(msgs []messages.TransactionMsg) ([]signing.NormalizedMsg, error) {
	return c.normalizer.Normalize(msgs)
}

// Prepare normalizes the messages, reads account and height and builds the typed data.
// SignBytes holds the EIP-712 digest, TypedData the payload for wallets that render it.
func (c *SigningClient) Prepare(ctx context.Context, req signing.PrepareRequest) (*signing.Prepared, error) {
	normalized, err := c.normalizer.Normalize(req.Messages)
	if err != nil {
		return nil, err
	}
	ethChainID, err := EthereumChainID(req.Network)
	if err != nil {
		return nil, err
	}
	fee, err := signing.ComputeFee(req.Network, req.FeeOptions)
	if err != nil {
		return nil, err
	}

	rest := req.RESTEndpoint()
	account, err := c.querier.FetchAccount(ctx, rest, req.Wallet.Account.Address)
	if err != nil {
		return nil, err
	}
	height, err := c.querier.FetchLatestHeight(ctx, rest)
	if err != nil {
		return nil, err
	}

	doc := signing.UnsignedDoc{
		ChainID:       req.Network.ChainID,
		AccountNumber: strconv.FormatUint(account.AccountNumber, 10),
		Sequence:      strconv.FormatUint(account.Sequence, 10),
		TimeoutHeight: strconv.FormatUint(height+signing.TimeoutBlocks, 10),
		Fee:           fee,
		Msgs:          signing.AminoMessages(normalized),
		Memo:          req.Memo,
	}

	typedData, err := BuildTypedData(ethChainID, doc)
	if err != nil {
		return nil, err
	}
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, &models.InvalidMessageError{Reason: fmt.Sprintf("failed to hash typed data: %v", err)}
	}
	payload, err := json.Marshal(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}

	log.Debug().
		Str("chain_id", req.Network.ChainID).
		Int64("eth_chain_id", ethChainID).
		Str("address", req.Wallet.Account.Address).
		Int("messages", len(normalized)).
		Msg("prepared eip712 payload")

	return &signing.Prepared{
		Messages:  normalized,
		SignBytes: digest,
		TypedData: payload,
		Doc:       doc,
	}, nil
}

// Finish builds the signed transaction from the doc. No network access.
func (c *SigningClient) Finish(req signing.FinishRequest) (models.SigningResult, error) {
	ethChainID, err := EthereumChainID(req.Network)
	if err != nil {
		return models.SigningResult{}, err
	}
	env, err := req.Doc.Envelope()
	if err != nil {
		return models.SigningResult{}, err
	}
	fee, err := signing.TxFee(env.Fee)
	if err != nil {
		return models.SigningResult{}, err
	}

	pk := txcodec.PubKey(txcodec.TypeEthSecp256k1PubKey, req.PubKey)
	body := txcodec.TxBody{
		Messages:         signing.ProtoMessages(req.Messages),
		Memo:             env.Memo,
		TimeoutHeight:    env.TimeoutHeight,
		ExtensionOptions: []txcodec.Any{txcodec.ExtensionOptionsWeb3Tx(uint64(ethChainID), "", nil)},
	}
	auth := txcodec.AuthInfo{
		SignerInfos: []txcodec.SignerInfo{{
			PublicKey: &pk,
			Mode:      txcodec.SignModeLegacyAminoJSON,
			Sequence:  env.Sequence,
		}},
		Fee: fee,
	}
	raw := txcodec.TxRaw{
		BodyBytes:     body.Marshal(),
		AuthInfoBytes: auth.Marshal(),
		Signatures:    [][]byte{req.Signature},
	}
	return models.SigningResult{
		Signatures: [][]byte{req.Signature},
		PubKey:     req.PubKey,
		TxRaw:      raw.Marshal(),
		Envelope:   &env,
	}, nil
}

// Unsigned builds the transaction with an empty signature for simulation.
func (c *SigningClient) Unsigned(req signing.FinishRequest) ([]byte, error) {
	req.Signature = []byte{}
	result, err := c.Finish(req)
	if err != nil {
		return nil, err
	}
	return result.TxRaw, nil
}
