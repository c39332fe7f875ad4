package query

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "chain-query").Logger()
}

const broadcastModeSync = "BROADCAST_MODE_SYNC"

// ChainQuerier is what the signing clients need from a chain.
// Failures are returned as is; there is no retry at this level.
type ChainQuerier interface {
	FetchAccount(ctx context.Context, restURL, address string) (AccountInfo, error)
	FetchLatestHeight(ctx context.Context, restURL string) (uint64, error)
	Simulate(ctx context.Context, restURL string, txBytes []byte) (SimulateResponse, error)
	Broadcast(ctx context.Context, restURL string, txBytes []byte) (BroadcastResponse, error)
}

// RestClient queries the Cosmos SDK REST gateway of any network.
type RestClient struct {
	client *http.Client
}

var _ ChainQuerier = (*RestClient)(nil)

// NewRestClient creates a client with the given request timeout.
func NewRestClient(timeout time.Duration) *RestClient {
	return &RestClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

/*
FetchAccount loads the account number and sequence of an address.

Params:
- restURL: the network REST base url
- address: bech32 account address

Returns:
- AccountInfo
- error: *models.AccountFetchError on any failure
*/
func (c *RestClient) FetchAccount(ctx context.Context, restURL, address string) (AccountInfo, error) {
	fullURL := fmt.Sprintf("%s/cosmos/auth/v1beta1/accounts/%s", trimURL(restURL), address)

	body, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return AccountInfo{}, &models.AccountFetchError{Address: address, URL: fullURL, Err: err}
	}

	var response AccountResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return AccountInfo{}, &models.AccountFetchError{Address: address, URL: fullURL, Err: err}
	}

	base := BaseAccount{
		Address:       response.Account.Address,
		AccountNumber: response.Account.AccountNumber,
		Sequence:      response.Account.Sequence,
	}
	if response.Account.BaseAccount != nil {
		base = *response.Account.BaseAccount
	}

	info, err := parseBaseAccount(base)
	if err != nil {
		return AccountInfo{}, &models.AccountFetchError{Address: address, URL: fullURL, Err: err}
	}
	return info, nil
}

// FetchLatestHeight returns the height of the latest block.
func (c *RestClient) FetchLatestHeight(ctx context.Context, restURL string) (uint64, error) {
	fullURL := fmt.Sprintf("%s/cosmos/base/tendermint/v1beta1/blocks/latest", trimURL(restURL))

	body, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, &models.BlockFetchError{URL: fullURL, Err: err}
	}

	var response LatestBlockResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, &models.BlockFetchError{URL: fullURL, Err: err}
	}

	height, err := strconv.ParseUint(response.Block.Header.Height, 10, 64)
	if err != nil {
		return 0, &models.BlockFetchError{URL: fullURL, Err: fmt.Errorf("invalid height %q: %w", response.Block.Header.Height, err)}
	}
	return height, nil
}

// Simulate asks the chain to dry-run a transaction.
func (c *RestClient) Simulate(ctx context.Context, restURL string, txBytes []byte) (SimulateResponse, error) {
	fullURL := fmt.Sprintf("%s/cosmos/tx/v1beta1/simulate", trimURL(restURL))

	payload, err := json.Marshal(txRequest{TxBytes: base64.StdEncoding.EncodeToString(txBytes)})
	if err != nil {
		return SimulateResponse{}, fmt.Errorf("failed to marshal simulate request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, fullURL, payload)
	if err != nil {
		return SimulateResponse{}, fmt.Errorf("failed to simulate: %w", err)
	}

	var response SimulateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return SimulateResponse{}, fmt.Errorf("failed to parse simulate response: %w", err)
	}
	return response, nil
}

// Broadcast submits a signed transaction in sync mode.
func (c *RestClient) Broadcast(ctx context.Context, restURL string, txBytes []byte) (BroadcastResponse, error) {
	fullURL := fmt.Sprintf("%s/cosmos/tx/v1beta1/txs", trimURL(restURL))

	payload, err := json.Marshal(txRequest{
		TxBytes: base64.StdEncoding.EncodeToString(txBytes),
		Mode:    broadcastModeSync,
	})
	if err != nil {
		return BroadcastResponse{}, fmt.Errorf("failed to marshal broadcast request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, fullURL, payload)
	if err != nil {
		return BroadcastResponse{}, fmt.Errorf("failed to broadcast: %w", err)
	}

	var response BroadcastResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return BroadcastResponse{}, fmt.Errorf("failed to parse broadcast response: %w", err)
	}
	return response, nil
}

func (c *RestClient) do(ctx context.Context, method, fullURL string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	log.Debug().Str("method", method).Str("url", fullURL).Int("bytes", len(body)).Msg("chain query")
	return body, nil
}

func parseBaseAccount(base BaseAccount) (AccountInfo, error) {
	// a fresh account has no sequence in some gateway versions
	accountNumber, err := parseUintDefault(base.AccountNumber)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("invalid account_number: %w", err)
	}
	sequence, err := parseUintDefault(base.Sequence)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("invalid sequence: %w", err)
	}
	return AccountInfo{
		Address:       base.Address,
		AccountNumber: accountNumber,
		Sequence:      sequence,
	}, nil
}

func parseUintDefault(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func trimURL(u string) string {
	return strings.TrimSuffix(u, "/")
}
