package engine

import (
	"math/big"

	"flashvault/crypto"
	"flashvault/native/pool"
)

// GetDepositedTokens implements spec.md §4.F's get_deposited_tokens().
func (e *Engine) GetDepositedTokens() ([]crypto.Address, error) {
	if e == nil || e.state == nil {
		return nil, pool.ErrNilState
	}
	return e.state.ListDepositedAssets()
}

// GetUserDepositedTokens implements spec.md §4.F's
// get_user_deposited_tokens(account).
func (e *Engine) GetUserDepositedTokens(account crypto.Address) ([]crypto.Address, error) {
	if e == nil || e.state == nil {
		return nil, pool.ErrNilState
	}
	return e.state.ListAccountDepositedAssets(account)
}

// TotalLiquidity implements spec.md §4.F's total_liquidity(asset).
func (e *Engine) TotalLiquidity(asset crypto.Address) (*big.Int, error) {
	p, err := e.loadPoolView(asset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.TotalLiquidity), nil
}

// TotalShares implements spec.md §4.F's total_shares(asset).
func (e *Engine) TotalShares(asset crypto.Address) (*big.Int, error) {
	p, err := e.loadPoolView(asset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.TotalShares), nil
}

// GetEffectiveLPFee implements spec.md §4.F's get_effective_lp_fee(asset).
func (e *Engine) GetEffectiveLPFee(asset crypto.Address) (uint64, error) {
	p, err := e.loadPoolView(asset)
	if err != nil {
		return 0, err
	}
	return p.EffectiveLPFeeBps(), nil
}

// GetWithdrawableAmount implements spec.md §4.F's
// get_withdrawable_amount(asset, account).
func (e *Engine) GetWithdrawableAmount(asset, account crypto.Address) (pool.Withdrawable, error) {
	if e == nil || e.state == nil {
		return pool.Withdrawable{}, pool.ErrNilState
	}
	return e.pool.WithdrawableOf(asset, account)
}

// ProposedFeeChanges implements spec.md §4.F's proposed_fee_changes(asset, bps):
// the earliest block the candidate may execute at, or 0 if no live proposal.
func (e *Engine) ProposedFeeChanges(asset crypto.Address, bps uint64) (uint64, error) {
	p, err := e.loadPoolView(asset)
	if err != nil {
		return 0, err
	}
	return p.ProposedFeeExecBlock[bps], nil
}

// LPFeeSharesTotalVotes implements spec.md §4.F's
// lp_fee_shares_total_votes(asset, bps).
func (e *Engine) LPFeeSharesTotalVotes(asset crypto.Address, bps uint64) (*big.Int, error) {
	p, err := e.loadPoolView(asset)
	if err != nil {
		return nil, err
	}
	votes, ok := p.FeeVotes[bps]
	if !ok || votes == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(votes), nil
}

func (e *Engine) loadPoolView(asset crypto.Address) (*pool.Pool, error) {
	if e == nil || e.state == nil {
		return nil, pool.ErrNilState
	}
	p, err := e.state.GetPool(asset)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &pool.Pool{Asset: asset}
	}
	p.EnsureDefaults()
	return p, nil
}
