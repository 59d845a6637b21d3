package executor

import (
	"math/big"

	"flashvault/crypto"
)

// Factory deploys fresh Executor instances. It is itself a stand-in owner
// for the brief window between construction and the ownership handoff in
// CreateAndExecute (spec.md §4.E's create_and_execute).
type Factory struct {
	address    crypto.Address
	dispatcher Dispatcher
	addresser  func() crypto.Address
}

// NewFactory constructs a Factory identified by address, using dispatcher
// for every Executor it deploys and addresser to mint a fresh AccountId per
// deployed Executor (the caller supplies a deterministic or randomized
// allocator).
func NewFactory(address crypto.Address, dispatcher Dispatcher, addresser func() crypto.Address) *Factory {
	return &Factory{address: address, dispatcher: dispatcher, addresser: addresser}
}

// CreateAndExecute implements spec.md §4.E's create_and_execute: deploy an
// Executor owned temporarily by the factory, run the script as a flash
// loan, then hand ownership to caller. Any failure — including the
// constructed Executor never reaching a successful flash loan — reverts the
// whole operation, so the caller never receives a half-initialized
// Executor.
func (f *Factory) CreateAndExecute(caller, asset crypto.Address, amount *big.Int, script Script, flashLoan FlashLoanFunc) (*Executor, error) {
	addr := f.address
	if f.addresser != nil {
		addr = f.addresser()
	}

	x := NewExecutor(f.address, addr, f.dispatcher)

	if err := x.ExecuteFlashLoan(f.address, asset, amount, script, flashLoan); err != nil {
		return nil, err
	}

	if err := x.TransferOwnership(f.address, caller); err != nil {
		return nil, err
	}
	return x, nil
}
