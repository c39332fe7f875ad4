package injective

import (
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"
	"unicode"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	domainName              = "Injective Web3"
	domainVersion           = "1.0.0"
	domainVerifyingContract = "cosmos"
	domainSalt              = "0"

	primaryType  = "Tx"
	msgValueType = "MsgValue"
)

// Ethereum chain ids injective networks sign typed data with.
var ethereumChainIDs = map[string]int64{
	"injective-1":   1,
	"injective-888": 11155111,
	"injective-777": 1337,
}

// EthereumChainID returns the chain id used in the EIP-712 domain.
// A value on the network wins over the built-in table.
func EthereumChainID(network models.Network) (int64, error) {
	if network.EthereumChainID > 0 {
		return network.EthereumChainID, nil
	}
	if id, ok := ethereumChainIDs[network.ChainID]; ok {
		return id, nil
	}
	return 0, &models.ConfigurationError{
		Reason: fmt.Sprintf("no ethereum chain id known for %s", network.ChainID),
	}
}

/*
BuildTypedData turns an unsigned doc into the EIP-712 payload injective verifies.

The message types are derived from the amino values of the messages, so every
message in one transaction must have the same shape.

Params:
- ethChainID: the chain id of the EIP-712 domain
- doc: the unsigned doc produced by Prepare

Returns:
- apitypes.TypedData
- error: InvalidMessageError if the messages cannot share one payload
*/
func BuildTypedData(ethChainID int64, doc signing.UnsignedDoc) (apitypes.TypedData, error) {
	types := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "string"},
			{Name: "salt", Type: "string"},
		},
		primaryType: {
			{Name: "account_number", Type: "string"},
			{Name: "chain_id", Type: "string"},
			{Name: "fee", Type: "Fee"},
			{Name: "memo", Type: "string"},
			{Name: "msgs", Type: "Msg[]"},
			{Name: "sequence", Type: "string"},
			{Name: "timeout_height", Type: "string"},
		},
		"Fee": {
			{Name: "amount", Type: "Coin[]"},
			{Name: "gas", Type: "string"},
		},
		"Coin": {
			{Name: "denom", Type: "string"},
			{Name: "amount", Type: "string"},
		},
		"Msg": {
			{Name: "type", Type: "string"},
			{Name: "value", Type: msgValueType},
		},
	}

	if len(doc.Msgs) == 0 {
		return apitypes.TypedData{}, &models.InvalidMessageError{Reason: "transaction has no messages"}
	}

	var shape apitypes.Types
	msgs := make([]any, 0, len(doc.Msgs))
	for i, msg := range doc.Msgs {
		b := &typeBuilder{types: apitypes.Types{}}
		fields, value, err := b.object(msgValueType, msg.Value)
		if err != nil {
			return apitypes.TypedData{}, &models.InvalidMessageError{
				TypeURL: msg.Type,
				Reason:  err.Error(),
			}
		}
		b.types[msgValueType] = fields
		if i == 0 {
			shape = b.types
		} else if !sameTypes(shape, b.types) {
			return apitypes.TypedData{}, &models.InvalidMessageError{
				TypeURL: msg.Type,
				Reason:  "messages of different shapes cannot be signed in one EIP-712 payload",
			}
		}
		msgs = append(msgs, map[string]any{"type": msg.Type, "value": value})
	}
	for name, fields := range shape {
		if _, taken := types[name]; taken {
			return apitypes.TypedData{}, &models.InvalidMessageError{
				TypeURL: doc.Msgs[0].Type,
				Reason:  fmt.Sprintf("message type %s collides with a reserved type", name),
			}
		}
		types[name] = fields
	}

	coins := make([]any, 0, len(doc.Fee.Amount))
	for _, c := range doc.Fee.Amount {
		coins = append(coins, map[string]any{"denom": c.Denom, "amount": c.Amount})
	}
	timeout := doc.TimeoutHeight
	if timeout == "" {
		timeout = "0"
	}

	return apitypes.TypedData{
		Types:       types,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(ethChainID),
			VerifyingContract: domainVerifyingContract,
			Salt:              domainSalt,
		},
		Message: apitypes.TypedDataMessage{
			"account_number": doc.AccountNumber,
			"chain_id":       doc.ChainID,
			"fee":            map[string]any{"amount": coins, "gas": doc.Fee.Gas},
			"memo":           doc.Memo,
			"msgs":           msgs,
			"sequence":       doc.Sequence,
			"timeout_height": timeout,
		},
	}, nil
}

// typeBuilder derives EIP-712 struct types from decoded JSON values.
// Nested types are named after their path, "TypeOrderOrderInfo" for value.order.order_info.
type typeBuilder struct {
	types apitypes.Types
}

// object returns the fields of one struct type together with the value rewritten
// for hashing. Keys are sorted, nulls and empty collections are left out.
func (b *typeBuilder) object(name string, value map[string]any) ([]apitypes.Type, map[string]any, error) {
	fields := make([]apitypes.Type, 0, len(value))
	out := make(map[string]any, len(value))
	for _, key := range slices.Sorted(maps.Keys(value)) {
		typ, v, err := b.field(name, key, value[key])
		if err != nil {
			return nil, nil, err
		}
		if typ == "" {
			continue
		}
		fields = append(fields, apitypes.Type{Name: key, Type: typ})
		out[key] = v
	}
	return fields, out, nil
}

func (b *typeBuilder) field(parent, key string, value any) (string, any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil, nil
	case string:
		return "string", v, nil
	case bool:
		return "bool", v, nil
	case float64:
		if v != float64(int64(v)) {
			return "", nil, fmt.Errorf("field %s: fractional numbers are not supported, use a string", key)
		}
		return "int64", v, nil
	case int32:
		return "int32", big.NewInt(int64(v)), nil
	case int:
		return "int64", big.NewInt(int64(v)), nil
	case int64:
		return "int64", big.NewInt(v), nil
	case uint64:
		return "uint64", new(big.Int).SetUint64(v), nil
	case map[string]any:
		if len(v) == 0 {
			return "", nil, nil
		}
		name := nestedName(parent, key)
		fields, out, err := b.object(name, v)
		if err != nil {
			return "", nil, err
		}
		if len(fields) == 0 {
			return "", nil, nil
		}
		if err := b.register(name, fields); err != nil {
			return "", nil, err
		}
		return name, out, nil
	case []any:
		return b.array(parent, key, v)
	case []string:
		items := make([]any, 0, len(v))
		for _, s := range v {
			items = append(items, s)
		}
		return b.array(parent, key, items)
	}
	return "", nil, fmt.Errorf("field %s: unsupported value of type %T", key, value)
}

func (b *typeBuilder) array(parent, key string, items []any) (string, any, error) {
	if len(items) == 0 {
		return "", nil, nil
	}
	var elemType string
	out := make([]any, 0, len(items))
	for i, item := range items {
		var (
			typ string
			v   any
			err error
		)
		if obj, ok := item.(map[string]any); ok {
			name := nestedName(parent, key)
			var fields []apitypes.Type
			fields, v, err = b.object(name, obj)
			if err == nil {
				err = b.register(name, fields)
			}
			typ = name
		} else {
			typ, v, err = b.field(parent, key, item)
			if err == nil && (typ == "" || strings.HasSuffix(typ, "[]")) {
				err = fmt.Errorf("field %s: nested or null array items are not supported", key)
			}
		}
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			elemType = typ
		} else if typ != elemType {
			return "", nil, fmt.Errorf("field %s: array items have different types", key)
		}
		out = append(out, v)
	}
	return elemType + "[]", out, nil
}

// register adds a struct type, failing if the name already holds another shape.
func (b *typeBuilder) register(name string, fields []apitypes.Type) error {
	if existing, ok := b.types[name]; ok {
		if !slices.Equal(existing, fields) {
			return fmt.Errorf("type %s is used with different shapes", name)
		}
		return nil
	}
	b.types[name] = fields
	return nil
}

func nestedName(parent, key string) string {
	prefix := parent
	if parent == msgValueType {
		prefix = "Type"
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	upper := true
	for _, r := range key {
		if !isAlnum(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// type names must stay ASCII to pass the EIP-712 reference type check
func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func sameTypes(a, b apitypes.Types) bool {
	return maps.EqualFunc(a, b, func(x, y []apitypes.Type) bool {
		return slices.Equal(x, y)
	})
}
