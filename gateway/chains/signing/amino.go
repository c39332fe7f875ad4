package signing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// CoinsValue renders coins as the JSON array used in amino values.
func CoinsValue(coins []models.Coin) []any {
	out := make([]any, 0, len(coins))
	for _, c := range coins {
		out = append(out, map[string]any{"denom": c.Denom, "amount": c.Amount})
	}
	return out
}

// ContractMsg validates a contract message and returns it compacted
// together with its decoded form.
func ContractMsg(typeURL string, raw json.RawMessage) ([]byte, any, error) {
	if len(raw) == 0 {
		return nil, nil, &models.InvalidMessageError{TypeURL: typeURL, Reason: "contract msg is empty"}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, nil, &models.InvalidMessageError{TypeURL: typeURL, Reason: fmt.Sprintf("contract msg is not valid json: %v", err)}
	}
	var decoded any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		return nil, nil, &models.InvalidMessageError{TypeURL: typeURL, Reason: err.Error()}
	}
	return buf.Bytes(), decoded, nil
}
