package models

// Coin is a {denom, amount} pair with the amount in minimal units.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Fee is the fee attached to a transaction.
type Fee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

// FeeAmountAuto is the sentinel fee amount that keeps the computed fee.
const FeeAmountAuto = "auto"

// FeeOptions are the optional fee inputs of a signing call.
type FeeOptions struct {
	Fee              *Fee   `json:"fee,omitempty"`
	FeeAmount        string `json:"fee_amount,omitempty"`
	GasLimit         string `json:"gas_limit,omitempty"`
	GasPrice         string `json:"gas_price,omitempty"`          // overrides the network gas price
	FeeCurrencyDenom string `json:"fee_currency_denom,omitempty"` // overrides the network fee currency
}

// SignedEnvelope holds the fields baked into a signed transaction.
type SignedEnvelope struct {
	ChainID       string `json:"chain_id"`
	AccountNumber uint64 `json:"account_number"`
	Sequence      uint64 `json:"sequence"`
	TimeoutHeight uint64 `json:"timeout_height"`
	Memo          string `json:"memo"`
	Fee           Fee    `json:"fee"`
}

// SigningResult is returned by sign and signArbitrary.
// TxRaw is only set for transaction signing and is ready to broadcast.
type SigningResult struct {
	Signatures [][]byte        `json:"signatures"`
	PubKey     []byte          `json:"pub_key,omitempty"`
	TxRaw      []byte          `json:"tx_raw,omitempty"`
	Envelope   *SignedEnvelope `json:"envelope,omitempty"`
}

// BroadcastResult is the chain response to a broadcast.
type BroadcastResult struct {
	Hash   string `json:"hash"`
	Code   uint32 `json:"code"`
	RawLog string `json:"raw_log,omitempty"`
	Height int64  `json:"height,omitempty"`
}

// SimulateResult carries the gas estimate reported by the chain.
type SimulateResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	GasUsed   uint64 `json:"gas_used"`
	GasWanted uint64 `json:"gas_wanted"`
	Fee       *Fee   `json:"fee,omitempty"`
}

// ConnectResponse is what a provider returns from connect.
// Mobile providers fill in the URLs and leave Wallet nil until the external app confirms.
type ConnectResponse struct {
	Wallet     *WalletConnection `json:"wallet,omitempty"`
	QRCodeURL  string            `json:"qr_code_url,omitempty"`
	IOSURL     string            `json:"ios_url,omitempty"`
	AndroidURL string            `json:"android_url,omitempty"`
}
