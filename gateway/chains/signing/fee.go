package signing

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/shopspring/decimal"
)

// Fallbacks used when neither the caller nor the network supplies a value.
var (
	DefaultGasPrice = "0.025uatom"
	DefaultCurrency = models.Currency{Denom: "ATOM", MinimalDenom: "uatom", Decimals: 6}
)

// DefaultGasAdjustment multiplies simulated gas when a network sets none.
const DefaultGasAdjustment = 1.3

var gasPriceRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]*)?$`)

// GasPrice is a parsed "<amount><denom>" string.
type GasPrice struct {
	Amount decimal.Decimal
	Denom  string
}

// ParseGasPrice parses strings like "0.025untrn". The denom is optional.
func ParseGasPrice(s string) (GasPrice, error) {
	m := gasPriceRe.FindStringSubmatch(s)
	if m == nil {
		return GasPrice{}, fmt.Errorf("invalid gas price %q", s)
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return GasPrice{}, fmt.Errorf("invalid gas price amount %q: %w", m[1], err)
	}
	return GasPrice{Amount: amount, Denom: m[2]}, nil
}

// ResolveGasPrice applies override > network > fallback.
func ResolveGasPrice(network models.Network, opts models.FeeOptions) (GasPrice, error) {
	raw := DefaultGasPrice
	switch {
	case opts.GasPrice != "":
		raw = opts.GasPrice
	case network.GasPrice != "":
		raw = network.GasPrice
	}
	return ParseGasPrice(raw)
}

// ResolveFeeCurrency applies override > network fee currencies > network default > fallback.
// An override must name a currency the network knows about.
func ResolveFeeCurrency(network models.Network, opts models.FeeOptions) (models.Currency, error) {
	if opts.FeeCurrencyDenom != "" {
		candidates := append([]models.Currency{network.DefaultCurrency}, network.FeeCurrencies...)
		for _, c := range candidates {
			if c.MinimalDenom == opts.FeeCurrencyDenom {
				return c, nil
			}
		}
		return models.Currency{}, &models.ConfigurationError{
			Reason: fmt.Sprintf("fee currency %s is not configured for %s", opts.FeeCurrencyDenom, network.ChainID),
		}
	}
	if len(network.FeeCurrencies) > 0 {
		return network.FeeCurrencies[0], nil
	}
	if network.DefaultCurrency.MinimalDenom != "" {
		return network.DefaultCurrency, nil
	}
	return DefaultCurrency, nil
}

/*
ComputeFee resolves the fee of a transaction.

An explicit fee is used as is. Otherwise the base amount is gas_price * 10^decimals
of the fee currency, rounded up to a whole minimal unit, and used both as the coin
amount and as the gas limit. A fee amount other than "auto" replaces the coin amount
and a gas limit replaces the gas.

Params:
- network: the network the transaction is for
- opts: the caller's fee inputs

Returns:
- models.Fee
- error: if the gas price cannot be parsed or the fee currency is unknown
*/
func ComputeFee(network models.Network, opts models.FeeOptions) (models.Fee, error) {
	if opts.Fee != nil {
		return *opts.Fee, nil
	}

	gasPrice, err := ResolveGasPrice(network, opts)
	if err != nil {
		return models.Fee{}, &models.ConfigurationError{Reason: "invalid gas price", Err: err}
	}
	currency, err := ResolveFeeCurrency(network, opts)
	if err != nil {
		return models.Fee{}, err
	}

	gas := gasPrice.Amount.Shift(currency.Decimals).Ceil().String()

	amount := gas
	if opts.FeeAmount != "" && opts.FeeAmount != models.FeeAmountAuto {
		amount = opts.FeeAmount
	}
	gasLimit := gas
	if opts.GasLimit != "" {
		gasLimit = opts.GasLimit
	}

	return models.Fee{
		Amount: []models.Coin{{Denom: currency.MinimalDenom, Amount: amount}},
		Gas:    gasLimit,
	}, nil
}

// SimulatedFee turns a simulated gas usage into a fee: gas = ceil(used * adjustment),
// amount = ceil(gas * gas price) in the resolved fee currency.
func SimulatedFee(network models.Network, opts models.FeeOptions, gasUsed uint64) (models.Fee, error) {
	gasPrice, err := ResolveGasPrice(network, opts)
	if err != nil {
		return models.Fee{}, &models.ConfigurationError{Reason: "invalid gas price", Err: err}
	}
	currency, err := ResolveFeeCurrency(network, opts)
	if err != nil {
		return models.Fee{}, err
	}

	adjustment := network.GasAdjustment
	if adjustment <= 0 {
		adjustment = DefaultGasAdjustment
	}
	gas := decimal.NewFromInt(int64(gasUsed)).Mul(decimal.NewFromFloat(adjustment)).Ceil()
	amount := gas.Mul(gasPrice.Amount).Ceil()

	return models.Fee{
		Amount: []models.Coin{{Denom: currency.MinimalDenom, Amount: amount.String()}},
		Gas:    strconv.FormatInt(gas.IntPart(), 10),
	}, nil
}
