package executor

import (
	"math/big"

	"github.com/google/uuid"

	"flashvault/crypto"
)

// Executor is a single owner-gated script runner. One Executor instance
// corresponds to one deployed instance in spec.md §4.E's informal
// "contract" model; ID is its audit-trail correlation identifier.
type Executor struct {
	ID         uuid.UUID
	owner      crypto.Address
	address    crypto.Address
	dispatcher Dispatcher

	running bool
	pending Script
}

// NewExecutor constructs an Executor owned by owner, identified by address
// (the AccountId the flash-loan engine disburses into and the owner's
// scripts act as), routing script operations through dispatcher.
func NewExecutor(owner, address crypto.Address, dispatcher Dispatcher) *Executor {
	return &Executor{
		ID:         uuid.New(),
		owner:      owner,
		address:    address,
		dispatcher: dispatcher,
	}
}

// Owner reports the current owner.
func (x *Executor) Owner() crypto.Address { return x.owner }

// Address implements flashloan.Receiver: where the loaned asset lands.
func (x *Executor) Address() crypto.Address { return x.address }

// TransferOwnership reassigns the owner capability (spec.md §4.F's
// transfer_ownership, mirrored at the per-executor level for the factory
// path described in §4.E).
func (x *Executor) TransferOwnership(caller, newOwner crypto.Address) error {
	if !caller.Equal(x.owner) {
		return ErrNotExecutorOwner
	}
	x.owner = newOwner
	return nil
}

// ExecuteFlashLoan implements spec.md §4.E's execute_flash_loan: only the
// owner may queue a script, and flashLoan is the callback the caller's
// flash-loan engine invokes to actually disburse funds and run it.
//
// flashLoan is injected as a function rather than a concrete *flashloan.Engine
// so this package has no import-time dependency on native/flashloan; the
// caller supplies the closure.
func (x *Executor) ExecuteFlashLoan(caller, asset crypto.Address, amount *big.Int, script Script, flashLoan FlashLoanFunc) error {
	if !caller.Equal(x.owner) {
		return ErrNotExecutorOwner
	}
	if len(script) == 0 {
		return ErrEmptyScript
	}
	if x.running {
		return ErrAlreadyRunning
	}

	x.pending = script
	defer func() { x.pending = nil }()

	return flashLoan(caller, asset, amount, x, nil)
}

// OnFlashLoan implements flashloan.Receiver: runs the pending script in
// order, aborting on the first operation that fails (spec.md §4.E).
func (x *Executor) OnFlashLoan(asset crypto.Address, amount, fee *big.Int, params []byte) error {
	if x.running {
		return ErrAlreadyRunning
	}
	x.running = true
	defer func() { x.running = false }()

	for _, op := range x.pending {
		if err := x.dispatcher.Dispatch(op); err != nil {
			return ErrOperationFailed
		}
	}
	return nil
}
