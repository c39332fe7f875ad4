package providers_test

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers/providertest"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func TestArbitrarySignDoc(t *testing.T) {
	doc := ArbitrarySignDoc("neutron1abc", []byte("hello"))
	assert.Equal(t, string(doc),
		`{"account_number":"0","chain_id":"","fee":{"amount":[],"gas":"0"},"memo":"",`+
			`"msgs":[{"type":"sign/MsgSignData","value":{"data":"aGVsbG8=","signer":"neutron1abc"}}],"sequence":"0"}`)
}

func TestVerifyArbitrarySecp256k1(t *testing.T) {
	acc := newAccount(t)
	other := newAccount(t)
	data := []byte("login nonce 42")
	sig, err := acc.SignArbitrary(data)
	require.NoError(t, err)
	good := ArbitrarySignature{PubKey: acc.Account.PubKey, Algo: models.AlgoSecp256k1, Signature: sig}

	tests := []struct {
		name   string
		signer string
		data   []byte
		sig    ArbitrarySignature
		want   bool
	}{
		{name: "valid", signer: acc.Account.Address, data: data, sig: good, want: true},
		{name: "other data", signer: acc.Account.Address, data: []byte("login nonce 43"), sig: good},
		{name: "key of another address", signer: other.Account.Address, data: data, sig: good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyArbitrary(tt.signer, tt.data, tt.sig)
			assert.NoError(t, err)
			assert.Equal(t, ok, tt.want)
		})
	}
}

func TestVerifyArbitraryEthSecp256k1(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.CompressPubkey(&key.PublicKey)
	addr, err := DeriveAddress("inj", pub, models.AlgoEthSecp256k1)
	require.NoError(t, err)

	data := []byte("injective login")
	sig, err := crypto.Sign(crypto.Keccak256(ArbitrarySignDoc(addr, data)), key)
	require.NoError(t, err)

	ok, err := VerifyArbitrary(addr, data, ArbitrarySignature{PubKey: pub, Algo: models.AlgoEthSecp256k1, Signature: sig})
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyArbitrary(addr, []byte("other"), ArbitrarySignature{PubKey: pub, Algo: models.AlgoEthSecp256k1, Signature: sig})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyArbitraryThroughProvider(t *testing.T) {
	acc := newAccount(t)
	adapter := &providertest.MockAdapter{
		SignArbitraryFn: func(_ context.Context, _, _ string, data []byte) ([]byte, error) {
			return acc.SignArbitrary(data)
		},
	}
	p := readyExtension(t, adapter, nil)
	wallet := models.NewWalletConnection("keplr", "Keplr", pion, acc.Account, "")

	sig, err := p.SignArbitrary(context.Background(), wallet, []byte("data"))
	assert.NoError(t, err)
	ok, err := p.VerifyArbitrary(context.Background(), wallet, []byte("data"), sig)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestDeriveAddressErrors(t *testing.T) {
	_, err := DeriveAddress("neutron", []byte{1, 2, 3}, models.AlgoSecp256k1)
	assert.Error(t, err)
	_, err = DeriveAddress("neutron", make([]byte, 33), "ed25519")
	assert.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	acc := newAccount(t)
	assert.NoError(t, ValidateAddress(acc.Account.Address, "neutron"))
	assert.NoError(t, ValidateAddress(acc.Account.Address, ""))
	assert.Error(t, ValidateAddress(acc.Account.Address, "osmo"))
	assert.Error(t, ValidateAddress("not-an-address", "neutron"))
}
