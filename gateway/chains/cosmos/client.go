// Package cosmos signs transactions for Cosmos SDK chains in direct mode.
package cosmos

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "cosmos-signer").Logger()
}

// SigningClient implements the two-phase protocol with SIGN_MODE_DIRECT.
type SigningClient struct {
	querier    query.ChainQuerier
	normalizer signing.Normalizer
}

var _ signing.Client = (*SigningClient)(nil)

// NewSigningClient creates a direct-mode client on top of a chain querier.
func NewSigningClient(querier query.ChainQuerier) *SigningClient {
	return &SigningClient{
		querier:    querier,
		normalizer: Normalizer{},
	}
}

func (c *SigningClient) Family() string { return models.FamilyCosmos }

func (c *SigningClient) Normalize(msgs []messages.TransactionMsg) ([]signing.NormalizedMsg, error) {
	return c.normalizer.Normalize(msgs)
}

// Prepare normalizes the messages, resolves the fee and reads account and height from the chain.
// The returned SignBytes are the SignDoc the wallet signs.
func (c *SigningClient) Prepare(ctx context.Context, req signing.PrepareRequest) (*signing.Prepared, error) {
	// normalization errors must surface before any network call
	normalized, err := c.normalizer.Normalize(req.Messages)
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

	body, auth, err := buildTx(req.Wallet.Account, normalized, doc)
	if err != nil {
		return nil, err
	}
	env, err := doc.Envelope()
	if err != nil {
		return nil, err
	}
	signDoc := txcodec.SignDoc{
		BodyBytes:     body,
		AuthInfoBytes: auth,
		ChainID:       env.ChainID,
		AccountNumber: env.AccountNumber,
	}

	log.Debug().
		Str("chain_id", req.Network.ChainID).
		Str("address", req.Wallet.Account.Address).
		Uint64("sequence", env.Sequence).
		Int("messages", len(normalized)).
		Msg("prepared direct sign doc")

	return &signing.Prepared{
		Messages:  normalized,
		SignBytes: signDoc.Marshal(),
		Doc:       doc,
	}, nil
}

// Finish rebuilds the transaction from the doc and attaches the signature. No network access.
func (c *SigningClient) Finish(req signing.FinishRequest) (models.SigningResult, error) {
	account := models.WalletAccount{PubKey: req.PubKey, Algo: req.PubKeyAlgo}
	body, auth, err := buildTx(account, req.Messages, req.Doc)
	if err != nil {
		return models.SigningResult{}, err
	}
	env, err := req.Doc.Envelope()
	if err != nil {
		return models.SigningResult{}, err
	}

	raw := txcodec.TxRaw{
		BodyBytes:     body,
		AuthInfoBytes: auth,
		Signatures:    [][]byte{req.Signature},
	}
	return models.SigningResult{
		Signatures: [][]byte{req.Signature},
		PubKey:     req.PubKey,
		TxRaw:      raw.Marshal(),
		Envelope:   &env,
	}, nil
}

// Unsigned builds the transaction with an empty signature, as the simulate endpoint expects.
func (c *SigningClient) Unsigned(req signing.FinishRequest) ([]byte, error) {
	req.Signature = []byte{}
	result, err := c.Finish(req)
	if err != nil {
		return nil, err
	}
	return result.TxRaw, nil
}

func buildTx(account models.WalletAccount, msgs []signing.NormalizedMsg, doc signing.UnsignedDoc) ([]byte, []byte, error) {
	env, err := doc.Envelope()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sign doc: %w", err)
	}
	fee, err := signing.TxFee(env.Fee)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read fee: %w", err)
	}

	pubKeyType := txcodec.TypeSecp256k1PubKey
	if account.Algo == models.AlgoEthSecp256k1 {
		pubKeyType = txcodec.TypeEthSecp256k1PubKey
	}
	pk := txcodec.PubKey(pubKeyType, account.PubKey)

	body := txcodec.TxBody{
		Messages:      signing.ProtoMessages(msgs),
		Memo:          env.Memo,
		TimeoutHeight: env.TimeoutHeight,
	}
	auth := txcodec.AuthInfo{
		SignerInfos: []txcodec.SignerInfo{{
			PublicKey: &pk,
			Mode:      txcodec.SignModeDirect,
			Sequence:  env.Sequence,
		}},
		Fee: fee,
	}
	return body.Marshal(), auth.Marshal(), nil
}
