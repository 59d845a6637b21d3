package pool

import (
	"math/big"

	"flashvault/core/events"
	"flashvault/crypto"
	"flashvault/native/common"
)

// Deposit implements spec.md §4.B's deposit contract: pull the asset via the
// adapter using the observed delta, issue shares at the current exchange
// rate, and update principal/shares bookkeeping (including the vote-weight
// mirror required by §4.D).
func (e *Engine) Deposit(depositor, asset crypto.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.guard.Enter(); err != nil {
		return nil, common.ErrReentrant
	}
	defer e.guard.Exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Cmp(MinimumDeposit) < 0 {
		return nil, ErrDepositTooSmall
	}

	p, err := e.loadPool(asset)
	if err != nil {
		return nil, err
	}
	if p.Paused {
		return nil, ErrPoolPaused
	}

	adapter := e.adapterFor(asset)
	received, err := adapter.TransferFromObserved(depositor, e.engineHolder, amount)
	if err != nil {
		return nil, err
	}
	if received == nil || received.Sign() <= 0 {
		return nil, ErrInsufficientBalance
	}

	issued := sharesForDeposit(received, p.TotalShares, p.TotalLiquidity)
	if issued.Sign() == 0 {
		return nil, ErrDepositTooSmall
	}

	pos, err := e.loadPosition(asset, depositor)
	if err != nil {
		return nil, err
	}
	wasEmpty := pos.Shares.Sign() == 0

	pos.Principal = new(big.Int).Add(pos.Principal, received)
	pos.Shares = new(big.Int).Add(pos.Shares, issued)

	p.TotalLiquidity = new(big.Int).Add(p.TotalLiquidity, received)
	p.TotalShares = new(big.Int).Add(p.TotalShares, issued)

	if pos.VoteSelectionBps != 0 {
		addVoteWeight(p, pos.VoteSelectionBps, issued)
	}

	if err := e.state.PutPosition(asset, pos); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}
	if wasEmpty {
		if err := e.state.MarkDeposited(asset, depositor); err != nil {
			return nil, err
		}
	}

	e.emit(events.Deposited{User: depositor, Asset: asset, Amount: received, Shares: issued})
	return issued, nil
}

// WithdrawAll implements spec.md §4.B's withdraw_all: redeem every share the
// caller holds, clear principal and vote selection, and transfer the owed
// asset amount out.
func (e *Engine) WithdrawAll(withdrawer, asset crypto.Address) (principal *big.Int, fees *big.Int, err error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if err := e.guard.Enter(); err != nil {
		return nil, nil, common.ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.loadPool(asset)
	if err != nil {
		return nil, nil, err
	}
	pos, err := e.loadPosition(asset, withdrawer)
	if err != nil {
		return nil, nil, err
	}
	if pos.Shares.Sign() <= 0 {
		return nil, nil, ErrNothingToWithdraw
	}

	owed := assetOwedForShares(pos.Shares, p.TotalLiquidity, p.TotalShares)

	p.TotalLiquidity = new(big.Int).Sub(p.TotalLiquidity, owed)
	p.TotalShares = new(big.Int).Sub(p.TotalShares, pos.Shares)

	if pos.VoteSelectionBps != 0 {
		removeVoteWeight(p, pos.VoteSelectionBps, pos.Shares)
	}

	principalPortion := new(big.Int).Set(pos.Principal)
	feesPortion := new(big.Int).Sub(owed, principalPortion)
	if feesPortion.Sign() < 0 {
		feesPortion = big.NewInt(0)
	}

	pos.Shares = big.NewInt(0)
	pos.Principal = big.NewInt(0)
	pos.VoteSelectionBps = 0

	if owed.Sign() > 0 {
		adapter := e.adapterFor(asset)
		if err := adapter.TransferTo(e.engineHolder, withdrawer, owed); err != nil {
			return nil, nil, err
		}
	}

	if err := e.state.PutPosition(asset, pos); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutPool(p); err != nil {
		return nil, nil, err
	}
	if err := e.state.ClearDeposited(asset, withdrawer); err != nil {
		return nil, nil, err
	}

	e.emit(events.Withdrew{User: withdrawer, Asset: asset, Principal: principalPortion, Fees: feesPortion})
	return principalPortion, feesPortion, nil
}

// WithdrawFeesOnly implements spec.md §4.B's withdraw_fees_only: redeems
// floor(fees * totalShares / totalLiquidity) shares and pays out what those
// shares are worth, rounded down, so the payout can be slightly below the
// accrued fee portion. Principal stays in place and the position stays live.
func (e *Engine) WithdrawFeesOnly(withdrawer, asset crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.guard.Enter(); err != nil {
		return nil, common.ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.loadPool(asset)
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(asset, withdrawer)
	if err != nil {
		return nil, err
	}
	if pos.Shares.Sign() <= 0 {
		return nil, ErrNothingToWithdraw
	}

	view := withdrawableView(p, pos)
	if view.Fees.Sign() <= 0 {
		return nil, ErrNothingToWithdraw
	}

	redeemShares := sharesForAssetAmount(view.Fees, p.TotalLiquidity, p.TotalShares)
	if redeemShares.Cmp(pos.Shares) > 0 {
		redeemShares = new(big.Int).Set(pos.Shares)
	}
	if redeemShares.Sign() <= 0 {
		return nil, ErrNothingToWithdraw
	}

	payout := assetOwedForShares(redeemShares, p.TotalLiquidity, p.TotalShares)

	p.TotalLiquidity = new(big.Int).Sub(p.TotalLiquidity, payout)
	p.TotalShares = new(big.Int).Sub(p.TotalShares, redeemShares)

	if pos.VoteSelectionBps != 0 {
		removeVoteWeight(p, pos.VoteSelectionBps, redeemShares)
	}
	pos.Shares = new(big.Int).Sub(pos.Shares, redeemShares)

	if payout.Sign() > 0 {
		adapter := e.adapterFor(asset)
		if err := adapter.TransferTo(e.engineHolder, withdrawer, payout); err != nil {
			return nil, err
		}
	}

	if err := e.state.PutPosition(asset, pos); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}

	e.emit(events.Withdrew{User: withdrawer, Asset: asset, Principal: big.NewInt(0), Fees: payout})
	return payout, nil
}

// WithdrawableOf implements spec.md §4.B/§4.F's pure view:
// (net, gross, principal, fees, exit_fee).
func (e *Engine) WithdrawableOf(asset, account crypto.Address) (Withdrawable, error) {
	if e == nil || e.state == nil {
		return Withdrawable{}, ErrNilState
	}
	p, err := e.loadPool(asset)
	if err != nil {
		return Withdrawable{}, err
	}
	pos, err := e.loadPosition(asset, account)
	if err != nil {
		return Withdrawable{}, err
	}
	return withdrawableView(p, pos), nil
}

func withdrawableView(p *Pool, pos *Position) Withdrawable {
	gross := assetOwedForShares(pos.Shares, p.TotalLiquidity, p.TotalShares)
	fees := new(big.Int).Sub(gross, pos.Principal)
	if fees.Sign() < 0 {
		fees = big.NewInt(0)
	}
	// No exit fee mechanism is defined by spec.md beyond reserving the
	// field in the view tuple (§4.F); this engine never charges one.
	exitFee := big.NewInt(0)
	net := new(big.Int).Sub(gross, exitFee)
	return Withdrawable{
		Net:       net,
		Gross:     gross,
		Principal: new(big.Int).Set(pos.Principal),
		Fees:      fees,
		ExitFee:   exitFee,
	}
}
