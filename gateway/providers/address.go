package providers

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// ValidateAddress checks that address is valid bech32 with the expected prefix.
// An empty prefix accepts any valid address.
func ValidateAddress(address, prefix string) error {
	hrp, _, err := bech32.Decode(address)
	if err != nil {
		return &models.ConfigurationError{Reason: fmt.Sprintf("wallet returned invalid address %q", address), Err: err}
	}
	if prefix != "" && hrp != prefix {
		return &models.ConfigurationError{
			Reason: fmt.Sprintf("wallet returned a %s address, network expects %s", hrp, prefix),
		}
	}
	return nil
}

// VerifyAccount checks the address of account and, when the account carries a
// public key, that the key derives that address on the network's prefix.
func VerifyAccount(account models.WalletAccount, prefix string) error {
	if err := ValidateAddress(account.Address, prefix); err != nil {
		return err
	}
	if len(account.PubKey) == 0 {
		return nil
	}
	hrp, _, _ := bech32.Decode(account.Address)
	derived, err := DeriveAddress(hrp, account.PubKey, account.Algo)
	if err != nil {
		return &models.InvalidAddressError{Address: account.Address, Reason: "public key cannot be read", Err: err}
	}
	if derived != account.Address {
		return &models.InvalidAddressError{
			Address: account.Address,
			Reason:  fmt.Sprintf("public key derives %s", derived),
		}
	}
	return nil
}

/*
DeriveAddress computes the bech32 account address of a public key.

Params:
- prefix: the bech32 human readable part
- pubKey: compressed (33 bytes) or, for ethsecp256k1, uncompressed (65 bytes) key
- algo: models.AlgoSecp256k1 or models.AlgoEthSecp256k1

Returns:
- string: the address
- error: if the key cannot be parsed or the algo is unknown
*/
func DeriveAddress(prefix string, pubKey []byte, algo string) (string, error) {
	var raw []byte
	switch algo {
	case models.AlgoSecp256k1, "":
		if len(pubKey) != 33 {
			return "", fmt.Errorf("secp256k1 public key must be 33 bytes, got %d", len(pubKey))
		}
		raw = btcutil.Hash160(pubKey)
	case models.AlgoEthSecp256k1:
		pk, err := parseEthPubKey(pubKey)
		if err != nil {
			return "", err
		}
		raw = crypto.PubkeyToAddress(*pk).Bytes()
	default:
		return "", fmt.Errorf("unknown key algo %q", algo)
	}

	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	return bech32.Encode(prefix, conv)
}
