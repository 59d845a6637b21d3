package pool

import "math/big"

// Constants table, spec.md §6.
const (
	DefaultLPFeeBps     uint64 = 1
	MaxLPFeeBps         uint64 = 100
	MinMgmtFeePct       uint64 = 100
	MaxMgmtFeePct       uint64 = 500
	ProposalDelayBlocks uint64 = 10
	FeeBpsDenominator   uint64 = 10_000
	MgmtFeeDenominator  uint64 = 100_000_000
)

// MinimumDeposit is spec.md §6's MINIMUM_DEPOSIT, kept as a package variable
// (rather than a const) so tests can exercise boundary behavior against a
// lowered threshold the way the teacher's RiskParameters are configured per
// engine instance rather than hard-coded.
var MinimumDeposit = big.NewInt(1000)

var (
	bpsDenominator  = new(big.Int).SetUint64(FeeBpsDenominator)
	mgmtDenominator = new(big.Int).SetUint64(MgmtFeeDenominator)
)
