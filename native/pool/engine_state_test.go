package pool

import (
	"math/big"

	"flashvault/core/types"
	"flashvault/crypto"
)

// mockState is a minimal in-package fake of State, mirroring the teacher's
// native/lending mockEngineState used by engine_*_test.go.
type mockState struct {
	pools     map[string]*Pool
	positions map[string]*Position
	accounts  map[string]*types.Account

	depositedAssets  []crypto.Address
	accountDeposited map[string][]crypto.Address
}

func newMockState() *mockState {
	return &mockState{
		pools:            make(map[string]*Pool),
		positions:        make(map[string]*Position),
		accounts:         make(map[string]*types.Account),
		accountDeposited: make(map[string][]crypto.Address),
	}
}

func (s *mockState) GetPool(asset crypto.Address) (*Pool, error) {
	return s.pools[asset.String()], nil
}

func (s *mockState) PutPool(p *Pool) error {
	s.pools[p.Asset.String()] = p
	return nil
}

func (s *mockState) GetPosition(asset, account crypto.Address) (*Position, error) {
	return s.positions[asset.String()+"|"+account.String()], nil
}

func (s *mockState) PutPosition(asset crypto.Address, position *Position) error {
	s.positions[asset.String()+"|"+position.Account.String()] = position
	return nil
}

func (s *mockState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return s.accounts[addr.String()], nil
}

func (s *mockState) PutAccount(addr crypto.Address, account *types.Account) error {
	s.accounts[addr.String()] = account
	return nil
}

func (s *mockState) MarkDeposited(asset, account crypto.Address) error {
	s.depositedAssets = append(s.depositedAssets, asset)
	s.accountDeposited[account.String()] = append(s.accountDeposited[account.String()], asset)
	return nil
}

func (s *mockState) ClearDeposited(asset, account crypto.Address) error {
	list := s.accountDeposited[account.String()]
	for i, a := range list {
		if a.Equal(asset) {
			s.accountDeposited[account.String()] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (s *mockState) ListDepositedAssets() ([]crypto.Address, error) {
	return s.depositedAssets, nil
}

func (s *mockState) ListAccountDepositedAssets(account crypto.Address) ([]crypto.Address, error) {
	return s.accountDeposited[account.String()], nil
}

func (s *mockState) fund(account, asset crypto.Address, amount *big.Int) {
	acc := s.accounts[account.String()]
	if acc == nil {
		acc = &types.Account{}
	}
	acc.EnsureDefaults()
	acc.SetBalance(asset.String(), amount)
	s.accounts[account.String()] = acc
}

func (s *mockState) balance(account, asset crypto.Address) *big.Int {
	acc := s.accounts[account.String()]
	if acc == nil {
		return big.NewInt(0)
	}
	return acc.BalanceOf(asset.String())
}
