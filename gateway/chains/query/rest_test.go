package query_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/zeebo/assert"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*RestClient, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRestClient(5 * time.Second), srv.URL + "/"
}

func TestFetchAccount(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantNum  uint64
		wantSeq  uint64
		wantAddr string
	}{
		{
			name:     "base account",
			body:     `{"account":{"@type":"/cosmos.auth.v1beta1.BaseAccount","address":"neutron1a","account_number":"12","sequence":"3"}}`,
			wantNum:  12,
			wantSeq:  3,
			wantAddr: "neutron1a",
		},
		{
			name:     "eth account",
			body:     `{"account":{"@type":"/injective.types.v1beta1.EthAccount","base_account":{"address":"inj1a","account_number":"99","sequence":"0"},"code_hash":"xx"}}`,
			wantNum:  99,
			wantSeq:  0,
			wantAddr: "inj1a",
		},
		{
			name:     "fresh account without sequence",
			body:     `{"account":{"@type":"/cosmos.auth.v1beta1.BaseAccount","address":"neutron1b","account_number":"5"}}`,
			wantNum:  5,
			wantSeq:  0,
			wantAddr: "neutron1b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, url := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, r.URL.Path, "/cosmos/auth/v1beta1/accounts/"+tt.wantAddr)
				_, _ = w.Write([]byte(tt.body))
			})

			info, err := client.FetchAccount(context.Background(), url, tt.wantAddr)
			assert.NoError(t, err)
			assert.Equal(t, info.AccountNumber, tt.wantNum)
			assert.Equal(t, info.Sequence, tt.wantSeq)
			assert.Equal(t, info.Address, tt.wantAddr)
		})
	}
}

func TestFetchAccountNotFound(t *testing.T) {
	client, url := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":5,"message":"account neutron1x not found"}`))
	})

	_, err := client.FetchAccount(context.Background(), url, "neutron1x")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAccountFetch))

	var accErr *models.AccountFetchError
	assert.True(t, errors.As(err, &accErr))
	assert.Equal(t, accErr.Address, "neutron1x")
}

func TestFetchLatestHeight(t *testing.T) {
	client, url := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/cosmos/base/tendermint/v1beta1/blocks/latest")
		_, _ = w.Write([]byte(`{"block_id":{"hash":"AA"},"block":{"header":{"chain_id":"pion-1","height":"1500","time":"2024-01-01T00:00:00Z"}}}`))
	})

	height, err := client.FetchLatestHeight(context.Background(), url)
	assert.NoError(t, err)
	assert.Equal(t, height, uint64(1500))
}

func TestFetchLatestHeightErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"bad height", http.StatusOK, `{"block":{"header":{"height":"abc"}}}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, url := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.FetchLatestHeight(context.Background(), url)
			assert.True(t, errors.Is(err, models.ErrBlockFetch))
		})
	}
}

func TestSimulateAndBroadcast(t *testing.T) {
	txBytes := []byte{0x0a, 0x01, 0x02}
	client, url := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, req["tx_bytes"], base64.StdEncoding.EncodeToString(txBytes))

		switch r.URL.Path {
		case "/cosmos/tx/v1beta1/simulate":
			_, _ = w.Write([]byte(`{"gas_info":{"gas_wanted":"0","gas_used":"81234"}}`))
		case "/cosmos/tx/v1beta1/txs":
			assert.Equal(t, req["mode"], "BROADCAST_MODE_SYNC")
			_, _ = w.Write([]byte(`{"tx_response":{"height":"0","txhash":"ABCDEF","code":0,"raw_log":""}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sim, err := client.Simulate(context.Background(), url, txBytes)
	assert.NoError(t, err)
	assert.Equal(t, sim.GasInfo.GasUsed, "81234")

	res, err := client.Broadcast(context.Background(), url, txBytes)
	assert.NoError(t, err)
	assert.Equal(t, res.TxResponse.TxHash, "ABCDEF")
	assert.Equal(t, res.TxResponse.Code, uint32(0))
}
