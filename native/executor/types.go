// Package executor implements spec.md §4.E: a personal, caller-owned script
// runner that doubles as a flash-loan receiver, modeled on the teacher's
// native/escrow engine's owner-gated action pattern.
package executor

import (
	"errors"
	"math/big"

	"flashvault/crypto"
)

var (
	// ErrNotExecutorOwner is spec.md §7's NotExecutorOwner.
	ErrNotExecutorOwner = errors.New("executor: caller is not the owner")
	// ErrOperationFailed is spec.md §7's ReceiverCallFailed as it surfaces
	// from a single script step.
	ErrOperationFailed = errors.New("executor: operation failed")
	// ErrEmptyScript rejects a flash loan with nothing to execute.
	ErrEmptyScript = errors.New("executor: script must not be empty")
	// ErrAlreadyRunning guards against a script re-entering its own executor
	// via a second concurrent flash loan.
	ErrAlreadyRunning = errors.New("executor: already executing a script")
)

// Operation is one step of a script: invoke Target with Data (and Value if
// non-zero), exactly as spec.md §4.E describes.
type Operation struct {
	Target crypto.Address
	Data   []byte
	Value  *big.Int
}

// Dispatcher performs the side effect an Operation names. The caller of
// NewExecutor or NewFactory supplies the concrete implementation (typically routing Data to one of its
// own entry points, e.g. a second deposit or withdrawal), so an executor
// script can compose arbitrary engine calls the way spec.md §4.E's
// informal "contract call" model implies.
type Dispatcher interface {
	Dispatch(op Operation) error
}

// Script is an ordered list of operations, executed in order with
// abort-on-first-failure semantics.
type Script []Operation

// FlashLoanReceiver mirrors native/flashloan.Receiver's method set
// structurally, letting Executor satisfy it without this package importing
// native/flashloan (which in turn would need to import native/executor to
// let the facade wire callers the other way).
type FlashLoanReceiver interface {
	Address() crypto.Address
	OnFlashLoan(asset crypto.Address, amount, fee *big.Int, params []byte) error
}

// FlashLoanFunc is the shape of native/flashloan.Engine.FlashLoan, injected
// into ExecuteFlashLoan so this package stays decoupled from that one.
type FlashLoanFunc func(borrower, asset crypto.Address, amount *big.Int, receiver FlashLoanReceiver, params []byte) error
