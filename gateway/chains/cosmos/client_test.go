package cosmos_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/cosmos"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query/querytest"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/txcodec"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

var pion = models.Network{
	Name:            "Neutron Testnet",
	ChainID:         "pion-1",
	REST:            "https://rest.pion.example",
	Bech32Prefix:    "neutron",
	DefaultCurrency: models.Currency{Denom: "NTRN", MinimalDenom: "untrn", Decimals: 6},
	GasPrice:        "0.025untrn",
}

func wallet() models.WalletConnection {
	account := models.WalletAccount{
		Address: "neutron1sender",
		PubKey:  []byte{0x02, 0x01, 0x02, 0x03},
		Algo:    models.AlgoSecp256k1,
	}
	return models.NewWalletConnection("keplr", "Keplr", pion, account, "")
}

func send(amount string) messages.MsgSend {
	return messages.MsgSend{
		FromAddress: "neutron1sender",
		ToAddress:   "neutron1receiver",
		Amount:      []models.Coin{{Denom: "untrn", Amount: amount}},
	}
}

func TestPrepareFinishUsesDocNotChain(t *testing.T) {
	q := querytest.Fixed(7, 3, 1000)
	client := NewSigningClient(q)

	prepared, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network:  pion,
		Wallet:   wallet(),
		Messages: []messages.TransactionMsg{send("1")},
		Memo:     "hello",
	})
	assert.NoError(t, err)
	assert.Equal(t, prepared.Doc.AccountNumber, "7")
	assert.Equal(t, prepared.Doc.Sequence, "3")
	assert.Equal(t, prepared.Doc.TimeoutHeight, "1120")
	assert.NotNil(t, prepared.SignBytes)
	assert.True(t, prepared.TypedData == nil)

	// chain state moves on between the two phases
	q.FetchAccountFn = func(context.Context, string, string) (query.AccountInfo, error) {
		return query.AccountInfo{AccountNumber: 99, Sequence: 99}, nil
	}
	q.FetchLatestHeightFn = func(context.Context, string) (uint64, error) { return 5000, nil }
	before := q.TotalCalls()

	result, err := client.Finish(signing.FinishRequest{
		Network:    pion,
		PubKey:     wallet().Account.PubKey,
		PubKeyAlgo: models.AlgoSecp256k1,
		Messages:   prepared.Messages,
		Doc:        prepared.Doc,
		Signature:  []byte("sig"),
	})
	assert.NoError(t, err)
	assert.Equal(t, q.TotalCalls(), before)

	assert.Equal(t, result.Envelope.ChainID, "pion-1")
	assert.Equal(t, result.Envelope.AccountNumber, uint64(7))
	assert.Equal(t, result.Envelope.Sequence, uint64(3))
	assert.Equal(t, result.Envelope.TimeoutHeight, uint64(1120))
	assert.Equal(t, result.Envelope.Memo, "hello")
	require.Equal(t, result.Envelope.Fee, prepared.Doc.Fee)

	raw, err := txcodec.UnmarshalTxRaw(result.TxRaw)
	assert.NoError(t, err)
	require.Equal(t, raw.Signatures, [][]byte{[]byte("sig")})

	// the signed body and auth info are exactly what the wallet signed
	require.Equal(t, prepared.SignBytes, txcodec.SignDoc{
		BodyBytes:     raw.BodyBytes,
		AuthInfoBytes: raw.AuthInfoBytes,
		ChainID:       "pion-1",
		AccountNumber: 7,
	}.Marshal())

	auth, err := txcodec.UnmarshalAuthInfo(raw.AuthInfoBytes)
	assert.NoError(t, err)
	assert.Equal(t, len(auth.SignerInfos), 1)
	assert.Equal(t, auth.SignerInfos[0].Mode, txcodec.SignModeDirect)
	assert.Equal(t, auth.SignerInfos[0].Sequence, uint64(3))
	assert.Equal(t, auth.SignerInfos[0].PublicKey.TypeURL, txcodec.TypeSecp256k1PubKey)
	assert.Equal(t, auth.Fee.GasLimit, uint64(25000))
}

func TestPrepareNormalizesAndKeepsOrder(t *testing.T) {
	q := querytest.Fixed(1, 0, 10)
	client := NewSigningClient(q)

	msgs := []messages.TransactionMsg{
		send("1"),
		messages.MsgCancelSpotOrder{Sender: "neutron1sender", MarketID: "0xabc"},
		messages.MsgExecuteContract{
			Sender:   "neutron1sender",
			Contract: "neutron1contract",
			Msg:      json.RawMessage(`{ "swap": {} }`),
		},
	}
	prepared, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network:  pion,
		Wallet:   wallet(),
		Messages: msgs,
	})
	assert.NoError(t, err)
	assert.Equal(t, len(prepared.Messages), 2)
	assert.Equal(t, prepared.Messages[0].Proto.TypeURL, messages.TypeMsgSend)
	assert.Equal(t, prepared.Messages[1].Proto.TypeURL, messages.TypeMsgExecuteContract)
	assert.Equal(t, len(prepared.Doc.Msgs), 2)
	assert.Equal(t, prepared.Doc.Msgs[0].Type, "cosmos-sdk/MsgSend")
	assert.Equal(t, prepared.Doc.Msgs[1].Type, "wasm/MsgExecuteContract")
}

func TestPrepareRejectsTransferWithoutTimeout(t *testing.T) {
	q := querytest.Fixed(1, 0, 10)
	client := NewSigningClient(q)

	_, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network: pion,
		Wallet:  wallet(),
		Messages: []messages.TransactionMsg{messages.MsgTransfer{
			SourcePort:    "transfer",
			SourceChannel: "channel-0",
			Token:         models.Coin{Denom: "untrn", Amount: "1"},
			Sender:        "neutron1sender",
			Receiver:      "cosmos1receiver",
		}},
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidMessage))
	assert.Equal(t, q.TotalCalls(), 0)
}

func TestPrepareAcceptsTransferWithTimestamp(t *testing.T) {
	client := NewSigningClient(querytest.Fixed(1, 0, 10))

	prepared, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network: pion,
		Wallet:  wallet(),
		Messages: []messages.TransactionMsg{messages.MsgTransfer{
			SourcePort:       "transfer",
			SourceChannel:    "channel-0",
			Token:            models.Coin{Denom: "untrn", Amount: "1"},
			Sender:           "neutron1sender",
			Receiver:         "cosmos1receiver",
			TimeoutTimestamp: 1700000000000000000,
		}},
	})
	assert.NoError(t, err)
	assert.Equal(t, prepared.Doc.Msgs[0].Value["timeout_timestamp"], "1700000000000000000")
}

func TestPrepareFee(t *testing.T) {
	client := NewSigningClient(querytest.Fixed(1, 0, 10))

	prepared, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network:  pion,
		Wallet:   wallet(),
		Messages: []messages.TransactionMsg{send("1")},
	})
	assert.NoError(t, err)
	require.Equal(t, prepared.Doc.Fee, models.Fee{
		Amount: []models.Coin{{Denom: "untrn", Amount: "25000"}},
		Gas:    "25000",
	})
}

func TestPrepareQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		q      *querytest.MockQuerier
		target error
	}{
		{
			name: "account",
			q: &querytest.MockQuerier{
				FetchAccountFn: func(_ context.Context, restURL, address string) (query.AccountInfo, error) {
					return query.AccountInfo{}, &models.AccountFetchError{Address: address, URL: restURL}
				},
			},
			target: models.ErrAccountFetch,
		},
		{
			name: "block",
			q: &querytest.MockQuerier{
				FetchLatestHeightFn: func(_ context.Context, restURL string) (uint64, error) {
					return 0, &models.BlockFetchError{URL: restURL}
				},
			},
			target: models.ErrBlockFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewSigningClient(tt.q)
			_, err := client.Prepare(context.Background(), signing.PrepareRequest{
				Network:  pion,
				Wallet:   wallet(),
				Messages: []messages.TransactionMsg{send("1")},
			})
			assert.True(t, errors.Is(err, tt.target))
		})
	}
}

func TestPrepareUsesRESTOverride(t *testing.T) {
	q := querytest.Fixed(1, 0, 10)
	client := NewSigningClient(q)

	_, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network:      pion,
		Wallet:       wallet(),
		Messages:     []messages.TransactionMsg{send("1")},
		RESTOverride: "http://localhost:1317",
	})
	assert.NoError(t, err)
	for _, u := range q.URLs() {
		assert.Equal(t, u, "http://localhost:1317")
	}
}

func TestUnsignedHasEmptySignature(t *testing.T) {
	client := NewSigningClient(querytest.Fixed(1, 0, 10))
	prepared, err := client.Prepare(context.Background(), signing.PrepareRequest{
		Network:  pion,
		Wallet:   wallet(),
		Messages: []messages.TransactionMsg{send("1")},
	})
	assert.NoError(t, err)

	txBytes, err := client.Unsigned(signing.FinishRequest{
		Network:  pion,
		PubKey:   wallet().Account.PubKey,
		Messages: prepared.Messages,
		Doc:      prepared.Doc,
	})
	assert.NoError(t, err)
	raw, err := txcodec.UnmarshalTxRaw(txBytes)
	assert.NoError(t, err)
	assert.Equal(t, len(raw.Signatures), 1)
	assert.Equal(t, len(raw.Signatures[0]), 0)
}
