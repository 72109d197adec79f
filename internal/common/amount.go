package common

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenAmount converts a raw uint256 event value to a token-native decimal
// amount using the token's decimals.
func TokenAmount(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(value, -decimals)
}

func HexToBigInt(hex string) *big.Int {
	i, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return big.NewInt(0)
	}

	return i
}
