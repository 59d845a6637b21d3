package pool

import "math/big"

// sharesForDeposit implements spec.md §4.B's share-issuance rule: first
// deposit into an empty pool mints 1:1, subsequent deposits mint
// proportional to the current exchange rate, floored.
func sharesForDeposit(receivedAmount, totalShares, totalLiquidity *big.Int) *big.Int {
	if totalShares.Sign() == 0 {
		return new(big.Int).Set(receivedAmount)
	}
	issued := new(big.Int).Mul(receivedAmount, totalShares)
	issued.Quo(issued, totalLiquidity)
	return issued
}

// assetOwedForShares implements spec.md §4.B's withdrawal conversion,
// floored; any remainder is deliberately left in the pool.
func assetOwedForShares(sharesRedeemed, totalLiquidity, totalShares *big.Int) *big.Int {
	if totalShares.Sign() == 0 {
		return big.NewInt(0)
	}
	owed := new(big.Int).Mul(sharesRedeemed, totalLiquidity)
	owed.Quo(owed, totalShares)
	return owed
}

// sharesForAssetAmount inverts assetOwedForShares, used by
// withdraw_fees_only to find the share redemption covering the target asset
// amount. Per spec.md §9, this is floor-rounded like every other share
// conversion: "the reference 'fees-only withdraw' uses a floor-rounded share
// redemption, which can leave a sub-unit of 'fees' un-withdrawable until the
// next loan; preserve this behavior intentionally rather than rounding up."
func sharesForAssetAmount(amount, totalLiquidity, totalShares *big.Int) *big.Int {
	if totalLiquidity.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(amount, totalShares)
	return numerator.Quo(numerator, totalLiquidity)
}

// floorMulDiv computes floor(a * b / c), the basis-point fee arithmetic used
// throughout spec.md §4.C and §4.D.
func floorMulDiv(a *big.Int, bps uint64, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, new(big.Int).SetUint64(bps))
	out.Quo(out, denominator)
	return out
}
