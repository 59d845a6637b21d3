package flashloan

import (
	"errors"
	"math/big"

	"flashvault/core/events"
	"flashvault/crypto"
	"flashvault/native/assetadapter"
	"flashvault/native/common"
	"flashvault/native/pool"
)

const moduleName = "flashloan"

// Engine implements spec.md §4.C directly on top of the Pool Accounting
// ledger (native/pool.State), the way the teacher's native/lending keeps
// borrow and supply on one Market record rather than splitting modules at
// the storage layer.
type Engine struct {
	state            pool.State
	engineHolder     crypto.Address
	pauses           common.PauseView
	emitter          events.Emitter
	guard            *common.ReentrancyGuard
	managementFeePct uint64
}

// NewEngine constructs a flash-loan engine custodying liquidity at holder.
func NewEngine(holder crypto.Address) *Engine {
	return &Engine{
		engineHolder: holder,
		emitter:      events.NoopEmitter{},
		guard:        &common.ReentrancyGuard{},
	}
}

func (e *Engine) SetState(state pool.State)             { e.state = state }
func (e *Engine) SetPauses(p common.PauseView)          { e.pauses = p }
func (e *Engine) SetManagementFeePercentage(pct uint64) { e.managementFeePct = pct }

// SetGuard wires the reentrancy latch shared across every mutating entry
// point of the engine facade. The facade constructs one guard and shares it
// with native/pool so a receiver callback cannot reenter
// deposit/withdraw/vote/propose/execute mid-loan (spec.md §5, §9).
func (e *Engine) SetGuard(g *common.ReentrancyGuard) { e.guard = g }

// SetEmitter wires the event sink; a nil emitter resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// computeFee implements spec.md §4.C's fee computation, both terms floored
// independently before summing.
func computeFee(amount *big.Int, lpFeeBps, managementFeePct uint64) Fee {
	lpFee := new(big.Int).Mul(amount, new(big.Int).SetUint64(lpFeeBps))
	lpFee.Quo(lpFee, new(big.Int).SetUint64(pool.FeeBpsDenominator))

	mgmt := new(big.Int).Mul(amount, new(big.Int).SetUint64(lpFeeBps))
	mgmt.Mul(mgmt, new(big.Int).SetUint64(managementFeePct))
	mgmt.Quo(mgmt, new(big.Int).SetUint64(pool.MgmtFeeDenominator))

	return Fee{LPFee: lpFee, MgmtFee: mgmt}
}

// FlashLoan implements spec.md §4.C's single-asset flash_loan.
func (e *Engine) FlashLoan(borrower, asset crypto.Address, amount *big.Int, receiver Receiver, params []byte) error {
	if e == nil || e.state == nil {
		return pool.ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if receiver == nil {
		return ErrReceiverCallFailed
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.state.GetPool(asset)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrInsufficientLiquidity
	}
	p.EnsureDefaults()
	if p.Paused {
		return pool.ErrPoolPaused
	}
	if amount.Cmp(p.TotalLiquidity) > 0 {
		return ErrInsufficientLiquidity
	}

	adapter := assetadapter.New(e.state, asset)
	preBalance, err := adapter.BalanceOf(e.engineHolder)
	if err != nil {
		return err
	}
	accountedFor := new(big.Int).Add(p.TotalLiquidity, p.CollectedManagementFee)
	if preBalance.Cmp(accountedFor) < 0 {
		return ErrSolvencyViolation
	}

	fee := computeFee(amount, p.EffectiveLPFeeBps(), e.managementFeePct)
	totalFee := fee.Total()

	if err := adapter.TransferTo(e.engineHolder, receiver.Address(), amount); err != nil {
		return err
	}

	if err := receiver.OnFlashLoan(asset, amount, totalFee, params); err != nil {
		if errors.Is(err, common.ErrReentrant) {
			return ErrReentrant
		}
		return ErrReceiverCallFailed
	}

	postBalance, err := adapter.BalanceOf(e.engineHolder)
	if err != nil {
		return err
	}
	required := new(big.Int).Add(preBalance, totalFee)
	if postBalance.Cmp(required) < 0 {
		return ErrNotRepaid
	}

	p.TotalLiquidity = new(big.Int).Add(p.TotalLiquidity, fee.LPFee)
	p.CollectedManagementFee = new(big.Int).Add(p.CollectedManagementFee, fee.MgmtFee)

	if err := e.state.PutPool(p); err != nil {
		return err
	}

	e.emit(events.FlashLoaned{
		Borrower: borrower,
		Receiver: receiver.Address(),
		Asset:    asset,
		Amount:   amount,
		Fee:      totalFee,
	})
	return nil
}

// MultiFlashLoan implements spec.md §4.C's multi_flash_loan: every asset
// must pass its own repayment check, or the whole unit reverts with no
// partial fee credit.
func (e *Engine) MultiFlashLoan(borrower crypto.Address, assets []crypto.Address, amounts []*big.Int, receiver MultiReceiver, params []byte) error {
	if e == nil || e.state == nil {
		return pool.ErrNilState
	}
	if len(assets) == 0 {
		return ErrEmptyAssetList
	}
	if len(assets) != len(amounts) {
		return ErrLengthMismatch
	}
	if receiver == nil {
		return ErrReceiverCallFailed
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return ErrReentrant
	}
	defer e.guard.Exit()

	pools := make([]*pool.Pool, len(assets))
	adapters := make([]*assetadapter.Adapter, len(assets))
	preBalances := make([]*big.Int, len(assets))
	fees := make([]Fee, len(assets))

	for i, asset := range assets {
		amount := amounts[i]
		if amount == nil || amount.Sign() <= 0 {
			return ErrInvalidAmount
		}

		p, err := e.state.GetPool(asset)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrInsufficientLiquidity
		}
		p.EnsureDefaults()
		if p.Paused {
			return pool.ErrPoolPaused
		}
		if amount.Cmp(p.TotalLiquidity) > 0 {
			return ErrInsufficientLiquidity
		}

		adapter := assetadapter.New(e.state, asset)
		preBalance, err := adapter.BalanceOf(e.engineHolder)
		if err != nil {
			return err
		}
		accountedFor := new(big.Int).Add(p.TotalLiquidity, p.CollectedManagementFee)
		if preBalance.Cmp(accountedFor) < 0 {
			return ErrSolvencyViolation
		}

		pools[i] = p
		adapters[i] = adapter
		preBalances[i] = preBalance
		fees[i] = computeFee(amount, p.EffectiveLPFeeBps(), e.managementFeePct)
	}

	for i := range assets {
		if err := adapters[i].TransferTo(e.engineHolder, receiver.Address(), amounts[i]); err != nil {
			return err
		}
	}

	totalFees := make([]*big.Int, len(assets))
	for i, f := range fees {
		totalFees[i] = f.Total()
	}

	if err := receiver.OnMultiFlashLoan(assets, amounts, totalFees, params); err != nil {
		if errors.Is(err, common.ErrReentrant) {
			return ErrReentrant
		}
		return ErrReceiverCallFailed
	}

	for i, adapter := range adapters {
		postBalance, err := adapter.BalanceOf(e.engineHolder)
		if err != nil {
			return err
		}
		required := new(big.Int).Add(preBalances[i], totalFees[i])
		if postBalance.Cmp(required) < 0 {
			return ErrNotRepaid
		}
	}

	for i, p := range pools {
		p.TotalLiquidity = new(big.Int).Add(p.TotalLiquidity, fees[i].LPFee)
		p.CollectedManagementFee = new(big.Int).Add(p.CollectedManagementFee, fees[i].MgmtFee)
		if err := e.state.PutPool(p); err != nil {
			return err
		}
	}

	for i, asset := range assets {
		e.emit(events.FlashLoaned{
			Borrower: borrower,
			Receiver: receiver.Address(),
			Asset:    asset,
			Amount:   amounts[i],
			Fee:      totalFees[i],
		})
	}
	return nil
}
