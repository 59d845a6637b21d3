package pool

import (
	"math/big"

	"flashvault/crypto"
)

// Pool is the per-asset ledger described in spec.md §3. Amount fields are
// big.Int to match arbitrary-precision on-chain accounting the way the
// teacher's native/lending.Market does.
type Pool struct {
	Asset crypto.Address

	TotalLiquidity         *big.Int
	TotalShares            *big.Int
	LPFeeBps               uint64
	CollectedManagementFee *big.Int

	// FeeVotes maps a candidate fee (bps) to the total shares currently
	// voting for it (spec.md §3, §4.D).
	FeeVotes map[uint64]*big.Int
	// ProposedFeeExecBlock maps a candidate fee (bps) to the earliest block
	// height at which it may be executed; absent/zero means no live
	// proposal for that candidate.
	ProposedFeeExecBlock map[uint64]uint64

	// Paused is the per-pool circuit breaker described in SPEC_FULL.md §10,
	// adapted from the teacher's native/lending.ActionPauses.
	Paused bool

	// AuditLog is the append-only governance history described in
	// SPEC_FULL.md §10, adapted from the teacher's governance.AuditRecord.
	AuditLog []GovernanceAuditRecord
}

// GovernanceAuditRecord captures one governance lifecycle entry (a vote, a
// proposal, an execution, or an owner override) against a pool's LP fee.
// Records are immutable once appended and ordered by Sequence, giving
// indexers a stable feed independent of the raw event log (SPEC_FULL.md
// §10).
type GovernanceAuditRecord struct {
	Sequence    uint64
	BlockHeight uint64
	Event       string
	Actor       crypto.Address
	Bps         uint64
}

// EnsureDefaults fills nil fields so a freshly loaded or zero-value Pool is
// safe to operate on.
func (p *Pool) EnsureDefaults() {
	if p.TotalLiquidity == nil {
		p.TotalLiquidity = big.NewInt(0)
	}
	if p.TotalShares == nil {
		p.TotalShares = big.NewInt(0)
	}
	if p.CollectedManagementFee == nil {
		p.CollectedManagementFee = big.NewInt(0)
	}
	if p.FeeVotes == nil {
		p.FeeVotes = make(map[uint64]*big.Int)
	}
	if p.ProposedFeeExecBlock == nil {
		p.ProposedFeeExecBlock = make(map[uint64]uint64)
	}
}

// EffectiveLPFeeBps returns the pool's active fee, substituting the default
// when unset (spec.md GLOSSARY: "Effective LP fee").
func (p *Pool) EffectiveLPFeeBps() uint64 {
	if p.LPFeeBps == 0 {
		return DefaultLPFeeBps
	}
	return p.LPFeeBps
}

// Position is the per-depositor record described in spec.md §3.
type Position struct {
	Account crypto.Address

	Principal        *big.Int
	Shares           *big.Int
	VoteSelectionBps uint64
}

// EnsureDefaults fills nil fields so a freshly loaded or zero-value Position
// is safe to operate on.
func (pos *Position) EnsureDefaults() {
	if pos.Principal == nil {
		pos.Principal = big.NewInt(0)
	}
	if pos.Shares == nil {
		pos.Shares = big.NewInt(0)
	}
}

// Withdrawable bundles the view spec.md §4.B requires from
// withdrawable_of/get_withdrawable_amount.
type Withdrawable struct {
	Net       *big.Int
	Gross     *big.Int
	Principal *big.Int
	Fees      *big.Int
	ExitFee   *big.Int
}
