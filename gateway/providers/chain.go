package providers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Chain gives providers access to the signing clients and the chain endpoints.
type Chain struct {
	Clients *signing.Clients
	Querier query.ChainQuerier
}

type signFunc func(ctx context.Context, payload SignPayload) ([]byte, error)

func (c Chain) client(network models.Network) (signing.Client, error) {
	if c.Clients == nil {
		return nil, &models.ConfigurationError{Reason: "no signing clients configured"}
	}
	return c.Clients.ForNetwork(network)
}

// simulate runs the transaction with an empty signature and turns the gas usage into a fee.
func (c Chain) simulate(ctx context.Context, req TxRequest) (models.SimulateResult, error) {
	client, err := c.client(req.Wallet.Network)
	if err != nil {
		return models.SimulateResult{}, err
	}
	prepared, err := client.Prepare(ctx, req.prepareRequest())
	if err != nil {
		return models.SimulateResult{}, err
	}
	txBytes, err := client.Unsigned(signing.FinishRequest{
		Network:    req.Wallet.Network,
		PubKey:     req.Wallet.Account.PubKey,
		PubKeyAlgo: req.Wallet.Account.Algo,
		Messages:   prepared.Messages,
		Doc:        prepared.Doc,
	})
	if err != nil {
		return models.SimulateResult{}, fmt.Errorf("failed to build simulation tx: %w", err)
	}

	res, err := c.Querier.Simulate(ctx, req.RESTEndpoint(), txBytes)
	if err != nil {
		return models.SimulateResult{}, err
	}
	gasUsed, err := parseUint(res.GasInfo.GasUsed)
	if err != nil {
		return models.SimulateResult{}, fmt.Errorf("invalid gas_used: %w", err)
	}
	gasWanted, err := parseUint(res.GasInfo.GasWanted)
	if err != nil {
		return models.SimulateResult{}, fmt.Errorf("invalid gas_wanted: %w", err)
	}
	fee, err := signing.SimulatedFee(req.Wallet.Network, req.FeeOptions, gasUsed)
	if err != nil {
		return models.SimulateResult{}, err
	}
	return models.SimulateResult{
		Success:   true,
		GasUsed:   gasUsed,
		GasWanted: gasWanted,
		Fee:       &fee,
	}, nil
}

// sign runs prepare, hands the payload to the external signer and finishes the transaction.
func (c Chain) sign(ctx context.Context, req TxRequest, signer signFunc) (models.SigningResult, error) {
	client, err := c.client(req.Wallet.Network)
	if err != nil {
		return models.SigningResult{}, err
	}
	prepared, err := client.Prepare(ctx, req.prepareRequest())
	if err != nil {
		return models.SigningResult{}, err
	}

	signature, err := signer(ctx, SignPayload{
		ChainID:   req.Wallet.Network.ChainID,
		Signer:    req.Wallet.Account.Address,
		SignBytes: prepared.SignBytes,
		TypedData: prepared.TypedData,
		Doc:       prepared.Doc,
	})
	if err != nil {
		return models.SigningResult{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return client.Finish(signing.FinishRequest{
		Network:    req.Wallet.Network,
		PubKey:     req.Wallet.Account.PubKey,
		PubKeyAlgo: req.Wallet.Account.Algo,
		Messages:   prepared.Messages,
		Doc:        prepared.Doc,
		Signature:  signature,
	})
}

func (c Chain) broadcast(ctx context.Context, req TxRequest, signer signFunc) (models.BroadcastResult, error) {
	signed, err := c.sign(ctx, req, signer)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	return c.BroadcastRaw(ctx, req.RESTEndpoint(), signed.TxRaw)
}

// BroadcastRaw submits already signed transaction bytes.
func (c Chain) BroadcastRaw(ctx context.Context, restURL string, txRaw []byte) (models.BroadcastResult, error) {
	res, err := c.Querier.Broadcast(ctx, restURL, txRaw)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	height, err := strconv.ParseInt(orZero(res.TxResponse.Height), 10, 64)
	if err != nil {
		return models.BroadcastResult{}, fmt.Errorf("invalid height: %w", err)
	}
	result := models.BroadcastResult{
		Hash:   res.TxResponse.TxHash,
		Code:   res.TxResponse.Code,
		RawLog: res.TxResponse.RawLog,
		Height: height,
	}
	if result.Code != 0 {
		log.Warn().Str("hash", result.Hash).Uint32("code", result.Code).Str("raw_log", result.RawLog).Msg("transaction rejected by chain")
	}
	return result, nil
}

func signArbitrary(ctx context.Context, wallet models.WalletConnection, data []byte,
	sign func(ctx context.Context, chainID, signer string, data []byte) ([]byte, error),
) (ArbitrarySignature, error) {
	signature, err := sign(ctx, wallet.Network.ChainID, wallet.Account.Address, data)
	if err != nil {
		return ArbitrarySignature{}, fmt.Errorf("failed to sign arbitrary data: %w", err)
	}
	return ArbitrarySignature{
		PubKey:    wallet.Account.PubKey,
		Algo:      wallet.Account.Algo,
		Signature: signature,
	}, nil
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(orZero(s), 10, 64)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
