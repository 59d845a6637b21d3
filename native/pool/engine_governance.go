package pool

import (
	"math/big"

	"flashvault/core/events"
	"flashvault/crypto"
	"flashvault/native/common"
)

// VoteForLPFee implements spec.md §4.D's vote_for_lp_fee: move the caller's
// entire share weight from its previous candidate (if any) onto bps.
func (e *Engine) VoteForLPFee(voter, asset crypto.Address, bps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if bps == 0 || bps > MaxLPFeeBps {
		return ErrBpsOutOfRange
	}
	if err := e.guard.Enter(); err != nil {
		return common.ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.loadPool(asset)
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(asset, voter)
	if err != nil {
		return err
	}
	if pos.Shares.Sign() <= 0 {
		return ErrNothingToWithdraw
	}

	if pos.VoteSelectionBps != 0 {
		removeVoteWeight(p, pos.VoteSelectionBps, pos.Shares)
	}
	addVoteWeight(p, bps, pos.Shares)
	pos.VoteSelectionBps = bps

	appendAudit(p, e.blockHeight, "vote_cast", voter, bps)

	if err := e.state.PutPosition(asset, pos); err != nil {
		return err
	}
	if err := e.state.PutPool(p); err != nil {
		return err
	}

	e.emit(events.VoteCast{Asset: asset, Voter: voter, Bps: bps, VoterShares: new(big.Int).Set(pos.Shares)})
	return nil
}

// strictPluralityWinner reports whether bps strictly outpolls every other
// live candidate in pool.FeeVotes (spec.md §4.D's winner definition: a tie
// disqualifies execution).
func strictPluralityWinner(p *Pool, bps uint64) bool {
	weight, ok := p.FeeVotes[bps]
	if !ok || weight == nil || weight.Sign() <= 0 {
		return false
	}
	for candidate, votes := range p.FeeVotes {
		if candidate == bps {
			continue
		}
		if votes == nil {
			continue
		}
		if votes.Cmp(weight) >= 0 {
			return false
		}
	}
	return true
}

// ProposeLPFeeChange implements spec.md §4.D's propose_lp_fee_change.
func (e *Engine) ProposeLPFeeChange(asset crypto.Address, bps uint64, currentBlock uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if bps == 0 || bps > MaxLPFeeBps {
		return ErrBpsOutOfRange
	}
	if err := e.guard.Enter(); err != nil {
		return common.ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.loadPool(asset)
	if err != nil {
		return err
	}
	if weight, ok := p.FeeVotes[bps]; !ok || weight == nil || weight.Sign() <= 0 {
		return ErrNoVoteRecorded
	}
	if bps == p.EffectiveLPFeeBps() {
		return ErrProposalNoLongerWinning
	}
	if !strictPluralityWinner(p, bps) {
		return ErrProposalNoLongerWinning
	}

	execBlock := currentBlock + ProposalDelayBlocks
	p.ProposedFeeExecBlock[bps] = execBlock

	// Propose/execute are permissionless (spec.md §4.D): the audit entry
	// records the winning candidate, not a caller identity.
	appendAudit(p, currentBlock, "proposal_created", crypto.Address{}, bps)

	if err := e.state.PutPool(p); err != nil {
		return err
	}

	e.emit(events.ProposalCreated{Asset: asset, Bps: bps, ExecutionBlock: execBlock})
	return nil
}

// ExecuteLPFeeChange implements spec.md §4.D's execute_lp_fee_change: the
// timelock must have matured and the candidate must still be the strict
// plurality winner at execution time, not merely at proposal time.
func (e *Engine) ExecuteLPFeeChange(asset crypto.Address, bps uint64, currentBlock uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.guard.Enter(); err != nil {
		return common.ErrReentrant
	}
	defer e.guard.Exit()

	p, err := e.loadPool(asset)
	if err != nil {
		return err
	}
	execBlock, ok := p.ProposedFeeExecBlock[bps]
	if !ok || execBlock == 0 {
		return ErrNoProposal
	}
	if currentBlock < execBlock {
		return ErrProposalNotReady
	}
	if !strictPluralityWinner(p, bps) {
		return ErrProposalNoLongerWinning
	}

	oldBps := p.EffectiveLPFeeBps()
	p.LPFeeBps = bps
	delete(p.ProposedFeeExecBlock, bps)

	appendAudit(p, currentBlock, "proposal_executed", crypto.Address{}, bps)

	if err := e.state.PutPool(p); err != nil {
		return err
	}

	e.emit(events.ProposalExecuted{Asset: asset, OldBps: oldBps, NewBps: bps})
	return nil
}

// SetLPFee implements spec.md §4.D's owner-only admin override, bypassing the
// vote but still bounded by MAX_LP_FEE_BPS. Owner verification happens at the
// engine facade (spec.md §4.F); actor is carried through only to label the
// audit trail entry.
func (e *Engine) SetLPFee(actor, asset crypto.Address, bps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if bps == 0 || bps > MaxLPFeeBps {
		return ErrBpsOutOfRange
	}

	p, err := e.loadPool(asset)
	if err != nil {
		return err
	}
	oldBps := p.EffectiveLPFeeBps()
	p.LPFeeBps = bps

	appendAudit(p, e.blockHeight, "lp_fee_override", actor, bps)

	if err := e.state.PutPool(p); err != nil {
		return err
	}

	e.emit(events.LPFeeChanged{Asset: asset, OldBps: oldBps, NewBps: bps})
	return nil
}
