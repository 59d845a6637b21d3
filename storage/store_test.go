package storage

import (
	"math/big"
	"path/filepath"
	"testing"

	"flashvault/core/types"
	"flashvault/crypto"
	"flashvault/native/pool"
)

// conformingState is the subset of engine.State exercised by these
// conformance tests, avoided importing package engine (which itself depends
// on storage via the facade, though not directly on this package) to keep
// the dependency direction simple.
type conformingState interface {
	pool.State
	GetOwner() (crypto.Address, bool, error)
	SetOwner(owner crypto.Address) error
	GetManagementFeePercentage() (uint64, error)
	SetManagementFeePercentage(pct uint64) error
	IsInitialized() (bool, error)
	SetInitialized() error
}

func addr(prefix crypto.AddressPrefix, b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(prefix, raw)
}

func assetAddr(b byte) crypto.Address   { return addr(crypto.AssetPrefix, b) }
func accountAddr(b byte) crypto.Address { return addr(crypto.AccountPrefix, b) }

func withStores(t *testing.T, run func(t *testing.T, s conformingState)) {
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryStore())
	})
	t.Run("bolt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flashvault.db")
		store, err := NewBoltStore(path, nil)
		if err != nil {
			t.Fatalf("open bolt store: %v", err)
		}
		defer store.Close()
		run(t, store)
	})
}

func TestStorePoolRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s conformingState) {
		asset := assetAddr(0x10)
		if p, err := s.GetPool(asset); err != nil || p != nil {
			t.Fatalf("expected no pool before first write, got %+v err %v", p, err)
		}

		p := &pool.Pool{
			Asset:                  asset,
			TotalLiquidity:         big.NewInt(12345),
			TotalShares:            big.NewInt(6789),
			LPFeeBps:               25,
			CollectedManagementFee: big.NewInt(42),
			FeeVotes:               map[uint64]*big.Int{25: big.NewInt(100), 50: big.NewInt(7)},
			ProposedFeeExecBlock:   map[uint64]uint64{25: 900},
		}
		if err := s.PutPool(p); err != nil {
			t.Fatalf("put pool: %v", err)
		}

		got, err := s.GetPool(asset)
		if err != nil {
			t.Fatalf("get pool: %v", err)
		}
		if got.TotalLiquidity.Cmp(big.NewInt(12345)) != 0 {
			t.Fatalf("expected total liquidity 12345, got %s", got.TotalLiquidity)
		}
		if got.TotalShares.Cmp(big.NewInt(6789)) != 0 {
			t.Fatalf("expected total shares 6789, got %s", got.TotalShares)
		}
		if got.LPFeeBps != 25 {
			t.Fatalf("expected lp fee bps 25, got %d", got.LPFeeBps)
		}
		if got.CollectedManagementFee.Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("expected collected mgmt fee 42, got %s", got.CollectedManagementFee)
		}
		if got.FeeVotes[25].Cmp(big.NewInt(100)) != 0 || got.FeeVotes[50].Cmp(big.NewInt(7)) != 0 {
			t.Fatalf("expected fee votes preserved, got %v", got.FeeVotes)
		}
		if got.ProposedFeeExecBlock[25] != 900 {
			t.Fatalf("expected proposal exec block 900, got %d", got.ProposedFeeExecBlock[25])
		}
	})
}

func TestStorePositionRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s conformingState) {
		asset := assetAddr(0x10)
		account := accountAddr(0x20)

		pos := &pool.Position{
			Account:          account,
			Principal:        big.NewInt(500),
			Shares:           big.NewInt(400),
			VoteSelectionBps: 25,
		}
		if err := s.PutPosition(asset, pos); err != nil {
			t.Fatalf("put position: %v", err)
		}

		got, err := s.GetPosition(asset, account)
		if err != nil {
			t.Fatalf("get position: %v", err)
		}
		if got.Principal.Cmp(big.NewInt(500)) != 0 || got.Shares.Cmp(big.NewInt(400)) != 0 {
			t.Fatalf("expected principal/shares preserved, got %+v", got)
		}
		if got.VoteSelectionBps != 25 {
			t.Fatalf("expected vote selection 25, got %d", got.VoteSelectionBps)
		}
	})
}

func TestStoreAccountBalanceRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s conformingState) {
		account := accountAddr(0x20)
		asset := assetAddr(0x10)

		acc := &types.Account{}
		acc.EnsureDefaults()
		acc.SetBalance(asset.String(), big.NewInt(999))
		if err := s.PutAccount(account, acc); err != nil {
			t.Fatalf("put account: %v", err)
		}

		got, err := s.GetAccount(account)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		if got.BalanceOf(asset.String()).Cmp(big.NewInt(999)) != 0 {
			t.Fatalf("expected balance 999, got %s", got.BalanceOf(asset.String()))
		}
	})
}

func TestStoreDepositedAssetIndexes(t *testing.T) {
	withStores(t, func(t *testing.T, s conformingState) {
		assetX := assetAddr(0x10)
		assetY := assetAddr(0x11)
		account := accountAddr(0x20)

		if err := s.MarkDeposited(assetX, account); err != nil {
			t.Fatalf("mark x: %v", err)
		}
		if err := s.MarkDeposited(assetY, account); err != nil {
			t.Fatalf("mark y: %v", err)
		}
		// Idempotent remark must not duplicate entries.
		if err := s.MarkDeposited(assetX, account); err != nil {
			t.Fatalf("remark x: %v", err)
		}

		all, err := s.ListDepositedAssets()
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 globally deposited assets, got %d", len(all))
		}

		mine, err := s.ListAccountDepositedAssets(account)
		if err != nil {
			t.Fatalf("list account: %v", err)
		}
		if len(mine) != 2 {
			t.Fatalf("expected 2 account-deposited assets, got %d", len(mine))
		}

		if err := s.ClearDeposited(assetX, account); err != nil {
			t.Fatalf("clear x: %v", err)
		}
		mine, err = s.ListAccountDepositedAssets(account)
		if err != nil {
			t.Fatalf("list account after clear: %v", err)
		}
		if len(mine) != 1 || !mine[0].Equal(assetY) {
			t.Fatalf("expected only asset Y to remain for account, got %v", mine)
		}

		// The global set persists even after an account's last withdrawal
		// (spec.md §3's pool lifecycle: a pool persists forever).
		all, err = s.ListDepositedAssets()
		if err != nil {
			t.Fatalf("list all after clear: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected global deposited-asset set unaffected by a per-account clear, got %d", len(all))
		}
	})
}

func TestStoreOwnerAndInitializationLifecycle(t *testing.T) {
	withStores(t, func(t *testing.T, s conformingState) {
		if _, ok, err := s.GetOwner(); err != nil || ok {
			t.Fatalf("expected no owner before SetOwner, ok=%v err=%v", ok, err)
		}
		if initialized, err := s.IsInitialized(); err != nil || initialized {
			t.Fatalf("expected uninitialized store, got %v err %v", initialized, err)
		}

		owner := accountAddr(0x99)
		if err := s.SetOwner(owner); err != nil {
			t.Fatalf("set owner: %v", err)
		}
		if err := s.SetManagementFeePercentage(250); err != nil {
			t.Fatalf("set mgmt pct: %v", err)
		}
		if err := s.SetInitialized(); err != nil {
			t.Fatalf("set initialized: %v", err)
		}

		gotOwner, ok, err := s.GetOwner()
		if err != nil || !ok {
			t.Fatalf("expected owner present, ok=%v err=%v", ok, err)
		}
		if !gotOwner.Equal(owner) {
			t.Fatalf("expected owner round-trip to match")
		}

		pct, err := s.GetManagementFeePercentage()
		if err != nil || pct != 250 {
			t.Fatalf("expected mgmt pct 250, got %d err %v", pct, err)
		}

		initialized, err := s.IsInitialized()
		if err != nil || !initialized {
			t.Fatalf("expected initialized true, got %v err %v", initialized, err)
		}
	})
}
