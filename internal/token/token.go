package token

import "cosmossdk.io/math"

// Token is the fungible token surface the pool consumes. Declared transfer
// results are never trusted for amount accounting; callers difference
// BalanceOf before and after instead.
type Token interface {
	Transfer(from, to string, amount math.Int) error
	BalanceOf(addr string) math.Int
}
