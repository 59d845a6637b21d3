// Package flashloan implements spec.md §4.C: an atomic "borrow, act, repay
// plus fee" primitive in single- and multi-asset flavors, built directly on
// top of native/pool's ledger the way the teacher's native/lending folds
// borrow/repay into the same Market record it uses for supply/withdraw.
package flashloan

import (
	"errors"
	"math/big"

	"flashvault/crypto"
)

var (
	// ErrInvalidAmount covers non-positive loan amounts; amounts above the
	// pool's liquidity return ErrInsufficientLiquidity instead.
	ErrInvalidAmount = errors.New("flashloan: amount must be positive")
	// ErrInsufficientLiquidity is spec.md §7's InsufficientLiquidity.
	ErrInsufficientLiquidity = errors.New("flashloan: amount exceeds pool liquidity")
	// ErrEmptyAssetList is spec.md §7's EmptyAssetList, for multi_flash_loan.
	ErrEmptyAssetList = errors.New("flashloan: asset list must not be empty")
	// ErrLengthMismatch is spec.md §7's LengthMismatch.
	ErrLengthMismatch = errors.New("flashloan: assets and amounts length mismatch")
	// ErrReentrant is spec.md §7's Reentrant, surfaced through
	// native/common.ReentrancyGuard.
	ErrReentrant = errors.New("flashloan: reentrant call")
	// ErrReceiverCallFailed is spec.md §7's ReceiverCallFailed.
	ErrReceiverCallFailed = errors.New("flashloan: receiver callback failed")
	// ErrNotRepaid is spec.md §7's NotRepaid: the post-call balance did not
	// cover principal plus fee.
	ErrNotRepaid = errors.New("flashloan: loan not repaid with fee")
	// ErrSolvencyViolation guards invariant I1 (pre-loan balance must cover
	// total_liquidity + collected_management_fee) before any transfer.
	ErrSolvencyViolation = errors.New("flashloan: engine balance below accounted liquidity")
)

// Receiver is the single-asset flash-loan callback contract (spec.md §4.C).
// Address identifies where the engine disburses the loan; by the time
// OnFlashLoan returns, the engine's balance of asset must be at least
// pre_balance + fee, which the engine verifies itself rather than trusting
// the callback's return value.
type Receiver interface {
	Address() crypto.Address
	OnFlashLoan(asset crypto.Address, amount, fee *big.Int, params []byte) error
}

// MultiReceiver is the multi-asset flash-loan callback contract.
type MultiReceiver interface {
	Address() crypto.Address
	OnMultiFlashLoan(assets []crypto.Address, amounts, fees []*big.Int, params []byte) error
}

// Fee bundles a loan's computed LP and management fee components (spec.md
// §4.C's fee computation), floor-rounded.
type Fee struct {
	LPFee   *big.Int
	MgmtFee *big.Int
}

// Total returns lp_fee + mgmt_fee.
func (f Fee) Total() *big.Int {
	return new(big.Int).Add(f.LPFee, f.MgmtFee)
}
