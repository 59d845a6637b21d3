// Package storage provides the two persistence layers behind engine.State:
// an in-memory implementation for tests, grounded on the teacher's
// hand-rolled fakes in native/lending's test suite, and a durable
// go.etcd.io/bbolt-backed implementation grounded on
// services/identity-gateway/store.go's bucket-per-concern layout.
package storage

import (
	"math/big"
	"sync"

	"flashvault/core/types"
	"flashvault/crypto"
	"flashvault/native/pool"
)

// MemoryStore implements engine.State entirely in process memory. It is not
// safe for use by more than one goroutine concurrently beyond the mutex
// below, which is sufficient for spec.md §5's single-threaded execution
// model in tests.
type MemoryStore struct {
	mu sync.Mutex

	pools     map[string]*pool.Pool
	positions map[string]*pool.Position
	accounts  map[string]*types.Account

	depositedAssets       []crypto.Address
	depositedIndex        map[string]int
	accountDeposited      map[string][]crypto.Address
	accountDepositedIndex map[string]map[string]int

	owner    crypto.Address
	hasOwner bool

	mgmtFeePct  uint64
	initialized bool
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:                 make(map[string]*pool.Pool),
		positions:             make(map[string]*pool.Position),
		accounts:              make(map[string]*types.Account),
		depositedIndex:        make(map[string]int),
		accountDeposited:      make(map[string][]crypto.Address),
		accountDepositedIndex: make(map[string]map[string]int),
	}
}

func positionKey(asset, account crypto.Address) string {
	return asset.String() + "|" + account.String()
}

func clonePool(p *pool.Pool) *pool.Pool {
	if p == nil {
		return nil
	}
	clone := &pool.Pool{
		Asset:    p.Asset.Clone(),
		LPFeeBps: p.LPFeeBps,
		Paused:   p.Paused,
	}
	if p.TotalLiquidity != nil {
		clone.TotalLiquidity = new(big.Int).Set(p.TotalLiquidity)
	}
	if p.TotalShares != nil {
		clone.TotalShares = new(big.Int).Set(p.TotalShares)
	}
	if p.CollectedManagementFee != nil {
		clone.CollectedManagementFee = new(big.Int).Set(p.CollectedManagementFee)
	}
	if p.FeeVotes != nil {
		clone.FeeVotes = make(map[uint64]*big.Int, len(p.FeeVotes))
		for bps, votes := range p.FeeVotes {
			clone.FeeVotes[bps] = new(big.Int).Set(votes)
		}
	}
	if p.ProposedFeeExecBlock != nil {
		clone.ProposedFeeExecBlock = make(map[uint64]uint64, len(p.ProposedFeeExecBlock))
		for bps, block := range p.ProposedFeeExecBlock {
			clone.ProposedFeeExecBlock[bps] = block
		}
	}
	if p.AuditLog != nil {
		clone.AuditLog = make([]pool.GovernanceAuditRecord, len(p.AuditLog))
		for i, rec := range p.AuditLog {
			rec.Actor = rec.Actor.Clone()
			clone.AuditLog[i] = rec
		}
	}
	return clone
}

func clonePosition(pos *pool.Position) *pool.Position {
	if pos == nil {
		return nil
	}
	clone := &pool.Position{
		Account:          pos.Account.Clone(),
		VoteSelectionBps: pos.VoteSelectionBps,
	}
	if pos.Principal != nil {
		clone.Principal = new(big.Int).Set(pos.Principal)
	}
	if pos.Shares != nil {
		clone.Shares = new(big.Int).Set(pos.Shares)
	}
	return clone
}

func cloneAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return nil
	}
	clone := &types.Account{Nonce: acc.Nonce}
	if acc.Balances != nil {
		clone.Balances = make(map[string]*big.Int, len(acc.Balances))
		for k, v := range acc.Balances {
			clone.Balances[k] = new(big.Int).Set(v)
		}
	}
	return clone
}

// GetPool implements pool.State.
func (s *MemoryStore) GetPool(asset crypto.Address) (*pool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePool(s.pools[asset.String()]), nil
}

// PutPool implements pool.State.
func (s *MemoryStore) PutPool(p *pool.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Asset.String()] = clonePool(p)
	return nil
}

// GetPosition implements pool.State.
func (s *MemoryStore) GetPosition(asset, account crypto.Address) (*pool.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePosition(s.positions[positionKey(asset, account)]), nil
}

// PutPosition implements pool.State.
func (s *MemoryStore) PutPosition(asset crypto.Address, position *pool.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey(asset, position.Account)] = clonePosition(position)
	return nil
}

// GetAccount implements assetadapter.Ledger via pool.State.
func (s *MemoryStore) GetAccount(addr crypto.Address) (*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAccount(s.accounts[addr.String()]), nil
}

// PutAccount implements assetadapter.Ledger via pool.State.
func (s *MemoryStore) PutAccount(addr crypto.Address, account *types.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[addr.String()] = cloneAccount(account)
	return nil
}

// MarkDeposited implements pool.State's enumeration index (spec.md §9's
// "arena + index" recommendation).
func (s *MemoryStore) MarkDeposited(asset, account crypto.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assetKey := asset.String()
	if _, ok := s.depositedIndex[assetKey]; !ok {
		s.depositedAssets = append(s.depositedAssets, asset.Clone())
		s.depositedIndex[assetKey] = len(s.depositedAssets)
	}

	accountKey := account.String()
	index, ok := s.accountDepositedIndex[accountKey]
	if !ok {
		index = make(map[string]int)
		s.accountDepositedIndex[accountKey] = index
	}
	if _, ok := index[assetKey]; !ok {
		s.accountDeposited[accountKey] = append(s.accountDeposited[accountKey], asset.Clone())
		index[assetKey] = len(s.accountDeposited[accountKey])
	}
	return nil
}

// ClearDeposited implements pool.State's enumeration index, dropping account
// from asset's per-account index after a full withdrawal. The asset stays
// in the global deposited_assets set: a pool having once existed persists
// forever per spec.md §3's lifecycle note.
func (s *MemoryStore) ClearDeposited(asset, account crypto.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountKey := account.String()
	assetKey := asset.String()
	index, ok := s.accountDepositedIndex[accountKey]
	if !ok {
		return nil
	}
	pos, ok := index[assetKey]
	if !ok {
		return nil
	}
	list := s.accountDeposited[accountKey]
	i := pos - 1
	list = append(list[:i], list[i+1:]...)
	s.accountDeposited[accountKey] = list
	delete(index, assetKey)
	for k, v := range index {
		if v > pos {
			index[k] = v - 1
		}
	}
	return nil
}

// ListDepositedAssets implements pool.State.
func (s *MemoryStore) ListDepositedAssets() ([]crypto.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]crypto.Address, len(s.depositedAssets))
	for i, a := range s.depositedAssets {
		out[i] = a.Clone()
	}
	return out, nil
}

// ListAccountDepositedAssets implements pool.State.
func (s *MemoryStore) ListAccountDepositedAssets(account crypto.Address) ([]crypto.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.accountDeposited[account.String()]
	out := make([]crypto.Address, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out, nil
}

// GetOwner implements engine.State.
func (s *MemoryStore) GetOwner() (crypto.Address, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasOwner {
		return crypto.Address{}, false, nil
	}
	return s.owner.Clone(), true, nil
}

// SetOwner implements engine.State.
func (s *MemoryStore) SetOwner(owner crypto.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner.Clone()
	s.hasOwner = true
	return nil
}

// GetManagementFeePercentage implements engine.State.
func (s *MemoryStore) GetManagementFeePercentage() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgmtFeePct, nil
}

// SetManagementFeePercentage implements engine.State.
func (s *MemoryStore) SetManagementFeePercentage(pct uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mgmtFeePct = pct
	return nil
}

// IsInitialized implements engine.State.
func (s *MemoryStore) IsInitialized() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized, nil
}

// SetInitialized implements engine.State.
func (s *MemoryStore) SetInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}
