package numutil

import (
	"fmt"
	"math/big"
)

// ToDisplay converts a base-unit integer amount (as returned by chain REST
// APIs, e.g. "1234500" uatom) to display units using the token's decimals.
// Example: raw="1234500", decimals=6 => 1.2345.
func ToDisplay(raw string, decimals int) (float64, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return 0, fmt.Errorf("invalid integer amount %q", raw)
	}
	if amount.Sign() < 0 {
		return 0, fmt.Errorf("negative amount %q", raw)
	}
	if decimals == 0 {
		value, _ := new(big.Float).SetInt(amount).Float64()
		return value, nil
	}

	value := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	result, _ := new(big.Float).Quo(value, divisor).Float64()
	return result, nil
}
