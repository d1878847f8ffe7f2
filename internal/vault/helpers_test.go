package vault_test

import "math/big"

// maxInt is the largest value an sdkmath.Int can hold.
func maxInt() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}
