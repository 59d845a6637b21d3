package types

import "math/big"

// Account is the ledger entry the engine debits and credits when moving
// assets in and out of pools, collateral, and fee buckets. Unlike the
// teacher's single-chain Account (fixed NHB/ZNHB balances), this engine is
// multi-asset, so balances are keyed by AssetId.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// BalanceOf returns the account's balance for the given asset key, treating
// an absent entry as zero.
func (a *Account) BalanceOf(assetKey string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[assetKey]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance assigns the account's balance for the given asset key.
func (a *Account) SetBalance(assetKey string, amount *big.Int) {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	a.Balances[assetKey] = amount
}

// EnsureDefaults guarantees the Balances map is non-nil so callers can index
// it freely after loading from storage.
func (a *Account) EnsureDefaults() {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
}
