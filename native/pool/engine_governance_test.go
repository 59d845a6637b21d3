package pool

import (
	"errors"
	"math/big"
	"testing"
)

func TestVoteForLPFeeMovesWeightBetweenCandidates(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))

	e := NewEngine(holder)
	e.SetState(state)

	if _, err := e.Deposit(a, asset, big.NewInt(100_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote 25: %v", err)
	}
	p, _ := state.GetPool(asset)
	if p.FeeVotes[25].Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("expected 100000 votes for 25, got %v", p.FeeVotes[25])
	}

	if err := e.VoteForLPFee(a, asset, 50); err != nil {
		t.Fatalf("vote 50: %v", err)
	}
	p, _ = state.GetPool(asset)
	if _, ok := p.FeeVotes[25]; ok {
		t.Fatalf("expected candidate 25 vote weight cleared, still present: %v", p.FeeVotes[25])
	}
	if p.FeeVotes[50].Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("expected 100000 votes for 50, got %v", p.FeeVotes[50])
	}
}

func TestVoteForSameCandidateTwiceIsIdempotent(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))

	e := NewEngine(holder)
	e.SetState(state)
	if _, err := e.Deposit(a, asset, big.NewInt(100_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote 1: %v", err)
	}
	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote 2: %v", err)
	}

	p, _ := state.GetPool(asset)
	if p.FeeVotes[25].Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("expected vote weight to remain 100000, got %v", p.FeeVotes[25])
	}
}

func TestVoteWithNoSharesFails(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	e := NewEngine(holder)
	e.SetState(state)

	if err := e.VoteForLPFee(a, asset, 25); !errors.Is(err, ErrNothingToWithdraw) {
		t.Fatalf("expected ErrNothingToWithdraw, got %v", err)
	}
}

func TestVoteOutOfRangeFails(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))
	e := NewEngine(holder)
	e.SetState(state)
	if _, err := e.Deposit(a, asset, big.NewInt(100_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := e.VoteForLPFee(a, asset, 0); !errors.Is(err, ErrBpsOutOfRange) {
		t.Fatalf("expected ErrBpsOutOfRange for 0, got %v", err)
	}
	if err := e.VoteForLPFee(a, asset, MaxLPFeeBps+1); !errors.Is(err, ErrBpsOutOfRange) {
		t.Fatalf("expected ErrBpsOutOfRange above max, got %v", err)
	}
}

func TestFullWithdrawClearsVoteSelection(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))
	e := NewEngine(holder)
	e.SetState(state)

	if _, err := e.Deposit(a, asset, big.NewInt(100_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if _, _, err := e.WithdrawAll(a, asset); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	p, _ := state.GetPool(asset)
	if _, ok := p.FeeVotes[25]; ok {
		t.Fatalf("expected fee votes for 25 cleared, got %v", p.FeeVotes[25])
	}
	pos, _ := state.GetPosition(asset, a)
	if pos.VoteSelectionBps != 0 {
		t.Fatalf("expected vote selection cleared, got %d", pos.VoteSelectionBps)
	}
}

// Scenario S4 from spec.md §8: two voters, strict plurality winner proposed
// and executed only once the timelock has matured.
func TestProposeAndExecuteLPFeeChangeHonorsTimelock(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	b := accountAddr(0x03)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))
	state.fund(b, asset, big.NewInt(1_000_000))
	e := NewEngine(holder)
	e.SetState(state)

	if _, err := e.Deposit(a, asset, big.NewInt(60_000)); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if _, err := e.Deposit(b, asset, big.NewInt(40_000)); err != nil {
		t.Fatalf("deposit b: %v", err)
	}
	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote a: %v", err)
	}
	if err := e.VoteForLPFee(b, asset, 50); err != nil {
		t.Fatalf("vote b: %v", err)
	}

	const now = 1000
	if err := e.ProposeLPFeeChange(asset, 25, now); err != nil {
		t.Fatalf("propose: %v", err)
	}

	if err := e.ExecuteLPFeeChange(asset, 25, now+ProposalDelayBlocks-1); !errors.Is(err, ErrProposalNotReady) {
		t.Fatalf("expected ErrProposalNotReady one block early, got %v", err)
	}

	if err := e.ExecuteLPFeeChange(asset, 25, now+ProposalDelayBlocks); err != nil {
		t.Fatalf("execute: %v", err)
	}

	p, _ := state.GetPool(asset)
	if p.EffectiveLPFeeBps() != 25 {
		t.Fatalf("expected active fee 25, got %d", p.EffectiveLPFeeBps())
	}
	if _, ok := p.ProposedFeeExecBlock[25]; ok {
		t.Fatalf("expected proposal slot cleared after execution")
	}
}

func TestProposeRequiresStrictWinner(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	b := accountAddr(0x03)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))
	state.fund(b, asset, big.NewInt(1_000_000))
	e := NewEngine(holder)
	e.SetState(state)

	if _, err := e.Deposit(a, asset, big.NewInt(50_000)); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if _, err := e.Deposit(b, asset, big.NewInt(50_000)); err != nil {
		t.Fatalf("deposit b: %v", err)
	}
	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote a: %v", err)
	}
	if err := e.VoteForLPFee(b, asset, 50); err != nil {
		t.Fatalf("vote b: %v", err)
	}

	if err := e.ProposeLPFeeChange(asset, 25, 0); !errors.Is(err, ErrProposalNoLongerWinning) {
		t.Fatalf("expected ErrProposalNoLongerWinning on a tie, got %v", err)
	}
}

func TestProposeWithNoVotesReturnsNoVoteRecorded(t *testing.T) {
	holder := accountAddr(0x01)
	a := accountAddr(0x02)
	asset := assetAddr(0x10)

	state := newMockState()
	state.fund(a, asset, big.NewInt(1_000_000))
	e := NewEngine(holder)
	e.SetState(state)

	if _, err := e.Deposit(a, asset, big.NewInt(50_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := e.VoteForLPFee(a, asset, 25); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if err := e.ProposeLPFeeChange(asset, 50, 0); !errors.Is(err, ErrNoVoteRecorded) {
		t.Fatalf("expected ErrNoVoteRecorded for a candidate nobody voted for, got %v", err)
	}
}

func TestExecuteWithoutProposalFails(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := newMockState()
	e := NewEngine(holder)
	e.SetState(state)

	if err := e.ExecuteLPFeeChange(asset, 25, 100); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("expected ErrNoProposal, got %v", err)
	}
}

func TestSetLPFeeAdminOverride(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := newMockState()
	e := NewEngine(holder)
	e.SetState(state)

	owner := accountAddr(0x02)
	if err := e.SetLPFee(owner, asset, 80); err != nil {
		t.Fatalf("set lp fee: %v", err)
	}
	p, _ := state.GetPool(asset)
	if p.EffectiveLPFeeBps() != 80 {
		t.Fatalf("expected active fee 80, got %d", p.EffectiveLPFeeBps())
	}
	if len(p.AuditLog) != 1 || p.AuditLog[0].Event != "lp_fee_override" || !p.AuditLog[0].Actor.Equal(owner) {
		t.Fatalf("expected lp_fee_override audit entry for owner, got %+v", p.AuditLog)
	}

	if err := e.SetLPFee(owner, asset, MaxLPFeeBps+1); !errors.Is(err, ErrBpsOutOfRange) {
		t.Fatalf("expected ErrBpsOutOfRange, got %v", err)
	}
}
