package pool

import (
	"fmt"
	"math/big"

	"github.com/BurntSushi/toml"

	"flashvault/crypto"
)

// Manifest bootstraps a set of pools at startup, mirroring the way the
// teacher's native/lending.Config is loaded from a TOML file and then
// applied to freshly constructed pool state.
type Manifest struct {
	Pools []PoolManifestEntry `toml:"pool"`
}

// PoolManifestEntry describes one pool's genesis parameters. Asset is the
// bech32 string form of the pool's AssetId; LPFeeBps seeds the initial
// active fee (defaulting to DefaultLPFeeBps when zero).
type PoolManifestEntry struct {
	Asset    string `toml:"asset"`
	LPFeeBps uint64 `toml:"lp_fee_bps"`
	Paused   bool   `toml:"paused"`
}

// LoadManifest reads and parses a pool bootstrap manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("pool: decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// Materialize turns the manifest's entries into zero-liquidity Pool
// records, ready to be persisted via State.PutPool before the engine
// accepts its first deposit.
func (m *Manifest) Materialize() ([]*Pool, error) {
	out := make([]*Pool, 0, len(m.Pools))
	for _, entry := range m.Pools {
		asset, err := crypto.DecodeAddress(entry.Asset)
		if err != nil {
			return nil, fmt.Errorf("pool: manifest asset %q: %w", entry.Asset, err)
		}
		p := &Pool{
			Asset:                  asset,
			TotalLiquidity:         big.NewInt(0),
			TotalShares:            big.NewInt(0),
			LPFeeBps:               entry.LPFeeBps,
			CollectedManagementFee: big.NewInt(0),
			FeeVotes:               make(map[uint64]*big.Int),
			ProposedFeeExecBlock:   make(map[uint64]uint64),
			Paused:                 entry.Paused,
		}
		p.EnsureDefaults()
		out = append(out, p)
	}
	return out, nil
}

// ApplyManifest loads path and persists every pool it describes via state,
// skipping pools that already exist so re-running a manifest at startup is
// idempotent.
func ApplyManifest(path string, state State) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	pools, err := m.Materialize()
	if err != nil {
		return err
	}
	for _, p := range pools {
		existing, err := state.GetPool(p.Asset)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := state.PutPool(p); err != nil {
			return err
		}
	}
	return nil
}
