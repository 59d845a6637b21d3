package events

import (
	"math/big"

	"flashvault/core/types"
	"flashvault/crypto"
)

// Event type identifiers, one per spec.md §6 event.
const (
	TypeDeposited              = "flashvault.deposited"
	TypeWithdrew               = "flashvault.withdrew"
	TypeFlashLoaned            = "flashvault.flash_loaned"
	TypeVoteCast               = "flashvault.vote_cast"
	TypeProposalCreated        = "flashvault.proposal_created"
	TypeProposalExecuted       = "flashvault.proposal_executed"
	TypeLPFeeChanged           = "flashvault.lp_fee_changed"
	TypeManagementFeeChanged   = "flashvault.management_fee_changed"
	TypeManagementFeeWithdrawn = "flashvault.management_fee_withdrawn"
	TypePoolPauseChanged       = "flashvault.pool_pause_changed"
)

// Deposited is emitted when a depositor's liquidity mints shares.
type Deposited struct {
	User   crypto.Address
	Asset  crypto.Address
	Amount *big.Int
	Shares *big.Int
}

func (Deposited) EventType() string { return TypeDeposited }

func (e Deposited) Event() *types.Event {
	return &types.Event{
		Type: TypeDeposited,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset.String(),
			"amount": formatAmount(e.Amount),
			"shares": formatAmount(e.Shares),
		},
	}
}

// Withdrew is emitted when a depositor redeems shares for principal and fees.
type Withdrew struct {
	User      crypto.Address
	Asset     crypto.Address
	Principal *big.Int
	Fees      *big.Int
}

func (Withdrew) EventType() string { return TypeWithdrew }

func (e Withdrew) Event() *types.Event {
	return &types.Event{
		Type: TypeWithdrew,
		Attributes: map[string]string{
			"user":      e.User.String(),
			"asset":     e.Asset.String(),
			"principal": formatAmount(e.Principal),
			"fees":      formatAmount(e.Fees),
		},
	}
}

// FlashLoaned is emitted once a flash loan's repayment has been verified.
type FlashLoaned struct {
	Borrower crypto.Address
	Receiver crypto.Address
	Asset    crypto.Address
	Amount   *big.Int
	Fee      *big.Int
}

func (FlashLoaned) EventType() string { return TypeFlashLoaned }

func (e FlashLoaned) Event() *types.Event {
	return &types.Event{
		Type: TypeFlashLoaned,
		Attributes: map[string]string{
			"borrower": e.Borrower.String(),
			"receiver": e.Receiver.String(),
			"asset":    e.Asset.String(),
			"amount":   formatAmount(e.Amount),
			"fee":      formatAmount(e.Fee),
		},
	}
}

// VoteCast is emitted when an account's fee vote selection changes.
type VoteCast struct {
	Asset       crypto.Address
	Voter       crypto.Address
	Bps         uint64
	VoterShares *big.Int
}

func (VoteCast) EventType() string { return TypeVoteCast }

func (e VoteCast) Event() *types.Event {
	return &types.Event{
		Type: TypeVoteCast,
		Attributes: map[string]string{
			"asset":       e.Asset.String(),
			"voter":       e.Voter.String(),
			"bps":         formatUint(e.Bps),
			"voterShares": formatAmount(e.VoterShares),
		},
	}
}

// ProposalCreated is emitted when a candidate fee wins plurality and a
// timelock is started.
type ProposalCreated struct {
	Asset          crypto.Address
	Bps            uint64
	ExecutionBlock uint64
}

func (ProposalCreated) EventType() string { return TypeProposalCreated }

func (e ProposalCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeProposalCreated,
		Attributes: map[string]string{
			"asset":          e.Asset.String(),
			"bps":            formatUint(e.Bps),
			"executionBlock": formatUint(e.ExecutionBlock),
		},
	}
}

// ProposalExecuted is emitted when a matured, still-winning proposal flips
// the pool's active fee.
type ProposalExecuted struct {
	Asset  crypto.Address
	OldBps uint64
	NewBps uint64
}

func (ProposalExecuted) EventType() string { return TypeProposalExecuted }

func (e ProposalExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeProposalExecuted,
		Attributes: map[string]string{
			"asset":  e.Asset.String(),
			"oldBps": formatUint(e.OldBps),
			"newBps": formatUint(e.NewBps),
		},
	}
}

// LPFeeChanged is emitted when the owner admin override sets lp_fee_bps;
// a governance execution emits ProposalExecuted instead.
type LPFeeChanged struct {
	Asset  crypto.Address
	OldBps uint64
	NewBps uint64
}

func (LPFeeChanged) EventType() string { return TypeLPFeeChanged }

func (e LPFeeChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeLPFeeChanged,
		Attributes: map[string]string{
			"asset":  e.Asset.String(),
			"oldBps": formatUint(e.OldBps),
			"newBps": formatUint(e.NewBps),
		},
	}
}

// ManagementFeeChanged is emitted when the owner updates the global
// management fee percentage.
type ManagementFeeChanged struct {
	OldPct uint64
	NewPct uint64
}

func (ManagementFeeChanged) EventType() string { return TypeManagementFeeChanged }

func (e ManagementFeeChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeManagementFeeChanged,
		Attributes: map[string]string{
			"oldPct": formatUint(e.OldPct),
			"newPct": formatUint(e.NewPct),
		},
	}
}

// ManagementFeeWithdrawn is emitted when the owner drains the accrued
// management fee bucket for an asset.
type ManagementFeeWithdrawn struct {
	Asset  crypto.Address
	Amount *big.Int
}

func (ManagementFeeWithdrawn) EventType() string { return TypeManagementFeeWithdrawn }

func (e ManagementFeeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeManagementFeeWithdrawn,
		Attributes: map[string]string{
			"asset":  e.Asset.String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// PoolPauseChanged is emitted when the owner trips or clears a pool's
// circuit breaker (SPEC_FULL.md §10).
type PoolPauseChanged struct {
	Asset  crypto.Address
	Paused bool
}

func (PoolPauseChanged) EventType() string { return TypePoolPauseChanged }

func (e PoolPauseChanged) Event() *types.Event {
	paused := "false"
	if e.Paused {
		paused = "true"
	}
	return &types.Event{
		Type: TypePoolPauseChanged,
		Attributes: map[string]string{
			"asset":  e.Asset.String(),
			"paused": paused,
		},
	}
}

func formatUint(v uint64) string {
	return big.NewInt(0).SetUint64(v).String()
}
