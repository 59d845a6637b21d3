// Package engine implements spec.md §4.F: the single authenticated entry
// surface that composes Asset Adapter, Pool Accounting, Flash-Loan
// Protocol, and Fee Governance behind one guarded facade, the way the
// teacher's native/lending.Engine is the one type every RPC handler calls
// into rather than reaching into sub-packages directly.
package engine

import (
	"math/big"

	"flashvault/core/events"
	"flashvault/crypto"
	"flashvault/native/assetadapter"
	"flashvault/native/common"
	"flashvault/native/flashloan"
	"flashvault/native/pool"
)

// Engine is the facade described in spec.md §4.F. It owns no ledger state
// itself beyond its two sub-engines; everything mutable is reached through
// State.
type Engine struct {
	state   State
	holder  crypto.Address
	pauses  common.PauseView
	emitter events.Emitter

	pool      *pool.Engine
	flashloan *flashloan.Engine
	guard     *common.ReentrancyGuard

	blockHeight uint64
}

// NewEngine constructs a facade custodying pooled liquidity at holder (the
// AccountId every deposit/flash-loan transfer targets). A single reentrancy
// guard is shared between the pool and flash-loan sub-engines so the guard
// forbidden by spec.md §4.C covers every mutating entry point
// (deposit/withdraw/flash-loan/vote/propose/execute), not just flash_loan.
func NewEngine(holder crypto.Address) *Engine {
	guard := &common.ReentrancyGuard{}
	poolEngine := pool.NewEngine(holder)
	poolEngine.SetGuard(guard)
	flashloanEngine := flashloan.NewEngine(holder)
	flashloanEngine.SetGuard(guard)
	return &Engine{
		holder:    holder,
		emitter:   events.NoopEmitter{},
		pool:      poolEngine,
		flashloan: flashloanEngine,
		guard:     guard,
	}
}

// SetState wires the facade and both sub-engines to a persistence layer.
func (e *Engine) SetState(state State) {
	e.state = state
	e.pool.SetState(state)
	e.flashloan.SetState(state)
}

// SetPauses wires the module-pause view consulted by the deposit, withdraw
// and flash-loan entry points (spec.md §5, SPEC_FULL.md §10).
func (e *Engine) SetPauses(p common.PauseView) {
	e.pauses = p
	e.pool.SetPauses(p)
	e.flashloan.SetPauses(p)
}

// SetEmitter wires the event sink shared by every component.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.pool.SetEmitter(emitter)
	e.flashloan.SetEmitter(emitter)
}

// SetBlockHeight records the host's current block height, consulted by the
// governance timelock.
func (e *Engine) SetBlockHeight(height uint64) {
	e.blockHeight = height
	e.pool.SetBlockHeight(height)
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) requireOwner(caller crypto.Address) error {
	owner, ok, err := e.state.GetOwner()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	if !caller.Equal(owner) {
		return ErrNotOwner
	}
	return nil
}

func (e *Engine) requireInitialized() error {
	initialized, err := e.state.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		return ErrNotInitialized
	}
	return nil
}

// Initialize implements spec.md §6's one-shot initialize(management_fee_percentage):
// sets the caller as owner and seeds the management fee percentage.
func (e *Engine) Initialize(caller crypto.Address, managementFeePct uint64) error {
	if e == nil || e.state == nil {
		return pool.ErrNilState
	}
	initialized, err := e.state.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		return ErrAlreadyInitialized
	}
	if managementFeePct < pool.MinMgmtFeePct || managementFeePct > pool.MaxMgmtFeePct {
		return ErrFeeOutOfRange
	}

	if err := e.state.SetOwner(caller); err != nil {
		return err
	}
	if err := e.state.SetManagementFeePercentage(managementFeePct); err != nil {
		return err
	}
	if err := e.state.SetInitialized(); err != nil {
		return err
	}
	e.flashloan.SetManagementFeePercentage(managementFeePct)
	return nil
}

// Deposit implements spec.md §4.B's deposit, gated on initialization.
func (e *Engine) Deposit(depositor, asset crypto.Address, amount *big.Int) (*big.Int, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return e.pool.Deposit(depositor, asset, amount)
}

// WithdrawAll implements spec.md §6's withdraw(asset).
func (e *Engine) WithdrawAll(withdrawer, asset crypto.Address) (*big.Int, *big.Int, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, nil, err
	}
	return e.pool.WithdrawAll(withdrawer, asset)
}

// WithdrawFeesOnly implements spec.md §6's withdraw_fees(asset).
func (e *Engine) WithdrawFeesOnly(withdrawer, asset crypto.Address) (*big.Int, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return e.pool.WithdrawFeesOnly(withdrawer, asset)
}

// FlashLoan implements spec.md §4.C's single-asset flash_loan.
func (e *Engine) FlashLoan(borrower, asset crypto.Address, amount *big.Int, receiver flashloan.Receiver, params []byte) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.flashloan.FlashLoan(borrower, asset, amount, receiver, params)
}

// MultiFlashLoan implements spec.md §4.C's multi_flash_loan.
func (e *Engine) MultiFlashLoan(borrower crypto.Address, assets []crypto.Address, amounts []*big.Int, receiver flashloan.MultiReceiver, params []byte) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.flashloan.MultiFlashLoan(borrower, assets, amounts, receiver, params)
}

// VoteForLPFee implements spec.md §4.D's vote_for_lp_fee.
func (e *Engine) VoteForLPFee(voter, asset crypto.Address, bps uint64) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.pool.VoteForLPFee(voter, asset, bps)
}

// ProposeLPFeeChange implements spec.md §4.D's propose_lp_fee_change.
func (e *Engine) ProposeLPFeeChange(asset crypto.Address, bps uint64) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.pool.ProposeLPFeeChange(asset, bps, e.blockHeight)
}

// ExecuteLPFeeChange implements spec.md §4.D's execute_lp_fee_change.
func (e *Engine) ExecuteLPFeeChange(asset crypto.Address, bps uint64) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.pool.ExecuteLPFeeChange(asset, bps, e.blockHeight)
}

// SetLPFee implements spec.md §6's owner-only set_lp_fee(asset, bps).
func (e *Engine) SetLPFee(caller, asset crypto.Address, bps uint64) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.pool.SetLPFee(caller, asset, bps)
}

// SetPoolPaused implements SPEC_FULL.md §10's owner-only pool circuit
// breaker, adapted from the teacher's native/lending.ActionPauses surface.
func (e *Engine) SetPoolPaused(caller, asset crypto.Address, paused bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.pool.SetPoolPaused(caller, asset, paused)
}

// GovernanceAuditLog implements SPEC_FULL.md §10's governance audit trail
// read view.
func (e *Engine) GovernanceAuditLog(asset crypto.Address) ([]pool.GovernanceAuditRecord, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return e.pool.GovernanceAuditLog(asset)
}

// SetManagementFee implements spec.md §4.F's set_management_fee(pct).
func (e *Engine) SetManagementFee(caller crypto.Address, pct uint64) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if pct < pool.MinMgmtFeePct || pct > pool.MaxMgmtFeePct {
		return ErrFeeOutOfRange
	}
	oldPct, err := e.state.GetManagementFeePercentage()
	if err != nil {
		return err
	}
	if err := e.state.SetManagementFeePercentage(pct); err != nil {
		return err
	}
	e.flashloan.SetManagementFeePercentage(pct)
	e.emit(events.ManagementFeeChanged{OldPct: oldPct, NewPct: pct})
	return nil
}

// WithdrawManagementFees implements spec.md §4.F's
// withdraw_management_fees(asset): transfers the asset's collected
// management fee bucket to the owner and zeros it.
func (e *Engine) WithdrawManagementFees(caller, asset crypto.Address) (*big.Int, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}

	p, err := e.state.GetPool(asset)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return big.NewInt(0), nil
	}
	p.EnsureDefaults()
	amount := new(big.Int).Set(p.CollectedManagementFee)
	if amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	adapter := assetadapter.New(e.state, asset)
	if err := adapter.TransferTo(e.holder, caller, amount); err != nil {
		return nil, err
	}

	p.CollectedManagementFee = big.NewInt(0)
	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}

	e.emit(events.ManagementFeeWithdrawn{Asset: asset, Amount: amount})
	return amount, nil
}

// TransferOwnership implements spec.md §4.F's transfer_ownership(new_owner).
func (e *Engine) TransferOwnership(caller, newOwner crypto.Address) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.state.SetOwner(newOwner)
}
