package query

import "time"

// AccountInfo is the part of an account the signer needs.
type AccountInfo struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// BaseAccount is cosmos.auth.v1beta1.BaseAccount as served by the REST gateway.
type BaseAccount struct {
	Address       string `json:"address"`
	AccountNumber string `json:"account_number"`
	Sequence      string `json:"sequence"`
}

// AccountResponse covers BaseAccount and accounts that embed it (EthAccount, vesting accounts).
type AccountResponse struct {
	Account struct {
		Type          string       `json:"@type"`
		Address       string       `json:"address"`
		AccountNumber string       `json:"account_number"`
		Sequence      string       `json:"sequence"`
		BaseAccount   *BaseAccount `json:"base_account,omitempty"`
	} `json:"account"`
}

// LatestBlockResponse is the partial block data returned by the tendermint service.
type LatestBlockResponse struct {
	BlockID struct {
		Hash string `json:"hash"`
	} `json:"block_id"`
	Block struct {
		Header struct {
			ChainID string    `json:"chain_id"`
			Height  string    `json:"height"`
			Time    time.Time `json:"time"`
		} `json:"header"`
	} `json:"block"`
}

// SimulateResponse is the answer of /cosmos/tx/v1beta1/simulate.
type SimulateResponse struct {
	GasInfo struct {
		GasWanted string `json:"gas_wanted"`
		GasUsed   string `json:"gas_used"`
	} `json:"gas_info"`
}

// BroadcastResponse is the answer of /cosmos/tx/v1beta1/txs.
type BroadcastResponse struct {
	TxResponse struct {
		Height string `json:"height"`
		TxHash string `json:"txhash"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	} `json:"tx_response"`
}

// errorResponse is the grpc-gateway error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type txRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode,omitempty"`
}
