package providers

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// ADR-036 sign doc. Field order is alphabetical so the encoding is canonical.
type arbitraryDoc struct {
	AccountNumber string         `json:"account_number"`
	ChainID       string         `json:"chain_id"`
	Fee           arbitraryFee   `json:"fee"`
	Memo          string         `json:"memo"`
	Msgs          []arbitraryMsg `json:"msgs"`
	Sequence      string         `json:"sequence"`
}

type arbitraryFee struct {
	Amount []any  `json:"amount"`
	Gas    string `json:"gas"`
}

type arbitraryMsg struct {
	Type  string            `json:"type"`
	Value arbitraryMsgValue `json:"value"`
}

type arbitraryMsgValue struct {
	Data   string `json:"data"`
	Signer string `json:"signer"`
}

// ArbitrarySignDoc returns the ADR-036 document a wallet signs for arbitrary data.
func ArbitrarySignDoc(signer string, data []byte) []byte {
	doc := arbitraryDoc{
		AccountNumber: "0",
		Fee:           arbitraryFee{Amount: []any{}, Gas: "0"},
		Msgs: []arbitraryMsg{{
			Type:  "sign/MsgSignData",
			Value: arbitraryMsgValue{Data: base64.StdEncoding.EncodeToString(data), Signer: signer},
		}},
		Sequence: "0",
	}
	b, _ := json.Marshal(doc)
	return b
}

/*
VerifyArbitrary checks an ADR-036 signature made by signer over data.

The public key must derive to the signer address, the signature must be the
64 byte r||s form (a trailing recovery byte is tolerated for ethsecp256k1).
The doc is hashed with sha256 for secp256k1 and keccak256 for ethsecp256k1.

Params:
- signer: the bech32 address that claims the signature
- data: the signed data
- sig: public key, algo and signature

Returns:
- bool: whether the signature is valid for signer
- error: if the input cannot be parsed
*/
func VerifyArbitrary(signer string, data []byte, sig ArbitrarySignature) (bool, error) {
	hrp, _, err := bech32.Decode(signer)
	if err != nil {
		return false, fmt.Errorf("failed to decode signer address: %w", err)
	}
	derived, err := DeriveAddress(hrp, sig.PubKey, sig.Algo)
	if err != nil {
		return false, err
	}
	if derived != signer {
		return false, nil
	}

	doc := ArbitrarySignDoc(signer, data)
	switch sig.Algo {
	case models.AlgoSecp256k1, "":
		return verifySecp256k1(doc, sig.PubKey, sig.Signature)
	case models.AlgoEthSecp256k1:
		return verifyEthSecp256k1(doc, sig.PubKey, sig.Signature)
	}
	return false, fmt.Errorf("unknown key algo %q", sig.Algo)
}

func verifySecp256k1(doc, pubKey, signature []byte) (bool, error) {
	if len(signature) != 64 {
		return false, fmt.Errorf("signature must be 64 bytes, got %d", len(signature))
	}
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key: %w", err)
	}
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow {
		return false, nil
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow {
		return false, nil
	}
	// cosmos rejects malleable signatures
	if s.IsOverHalfOrder() {
		return false, nil
	}
	hash := sha256.Sum256(doc)
	return btcecdsa.NewSignature(&r, &s).Verify(hash[:], pk), nil
}

func verifyEthSecp256k1(doc, pubKey, signature []byte) (bool, error) {
	if len(signature) == 65 {
		signature = signature[:64]
	}
	if len(signature) != 64 {
		return false, fmt.Errorf("signature must be 64 or 65 bytes, got %d", len(signature))
	}
	pk, err := parseEthPubKey(pubKey)
	if err != nil {
		return false, err
	}
	hash := crypto.Keccak256(doc)
	return crypto.VerifySignature(crypto.CompressPubkey(pk), hash, signature), nil
}

func parseEthPubKey(pubKey []byte) (*ecdsa.PublicKey, error) {
	switch len(pubKey) {
	case 33:
		pk, err := crypto.DecompressPubkey(pubKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress public key: %w", err)
		}
		return pk, nil
	case 65:
		pk, err := crypto.UnmarshalPubkey(pubKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		return pk, nil
	}
	return nil, fmt.Errorf("public key must be 33 or 65 bytes, got %d", len(pubKey))
}
