package engine

import (
	"flashvault/crypto"
	"flashvault/native/pool"
)

// State extends native/pool.State with the facade-level globals spec.md §3
// calls out: owner, management_fee_percentage, and the one-shot
// initialization latch. A single concrete store (storage.MemoryStore or
// storage.BoltStore) implements this whole interface, the way the
// teacher's native/lending.engineState is one interface backed by one
// persistence object rather than one interface per sub-module.
type State interface {
	pool.State

	GetOwner() (crypto.Address, bool, error)
	SetOwner(owner crypto.Address) error

	GetManagementFeePercentage() (uint64, error)
	SetManagementFeePercentage(pct uint64) error

	IsInitialized() (bool, error)
	SetInitialized() error
}
