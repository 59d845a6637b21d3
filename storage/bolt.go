package storage

import (
	"encoding/json"
	"errors"
	"math/big"
	"time"

	bolt "go.etcd.io/bbolt"

	"flashvault/core/types"
	"flashvault/crypto"
	"flashvault/native/pool"
)

var (
	bucketPools     = []byte("pools")
	bucketPositions = []byte("positions")
	bucketAccounts  = []byte("accounts")
	bucketAssets    = []byte("deposited_assets")
	bucketByAccount = []byte("deposited_by_account")
	bucketGlobals   = []byte("globals")

	globalsOwnerKey = []byte("owner")
	globalsMgmtKey  = []byte("management_fee_pct")
	globalsInitKey  = []byte("initialized")

	// ErrNotFound mirrors the teacher's identitygateway.ErrNotFound for
	// records this store expects but cannot locate.
	ErrNotFound = errors.New("storage: record not found")
)

// BoltStore implements engine.State durably atop go.etcd.io/bbolt, one
// bucket per concern, grounded on
// services/identity-gateway/store.go's bucket-per-concern layout.
type BoltStore struct {
	db *bolt.DB
}

// poolRecord is the JSON-on-disk shape of a Pool; big.Int fields are held
// as base-10 strings, converted through bigToString and stringToBig.
type poolRecord struct {
	Asset                  string            `json:"asset"`
	TotalLiquidity         string            `json:"totalLiquidity"`
	TotalShares            string            `json:"totalShares"`
	LPFeeBps               uint64            `json:"lpFeeBps"`
	CollectedManagementFee string            `json:"collectedManagementFee"`
	FeeVotes               map[string]string `json:"feeVotes"`
	ProposedFeeExecBlock   map[string]uint64 `json:"proposedFeeExecBlock"`
	Paused                 bool              `json:"paused"`
	AuditLog               []auditRecord     `json:"auditLog,omitempty"`
}

// auditRecord is the JSON-on-disk shape of a pool.GovernanceAuditRecord
// (SPEC_FULL.md §10's governance audit trail).
type auditRecord struct {
	Sequence    uint64 `json:"sequence"`
	BlockHeight uint64 `json:"blockHeight"`
	Event       string `json:"event"`
	Actor       string `json:"actor"`
	Bps         uint64 `json:"bps"`
}

type positionRecord struct {
	Account          string `json:"account"`
	Principal        string `json:"principal"`
	Shares           string `json:"shares"`
	VoteSelectionBps uint64 `json:"voteSelectionBps"`
}

type accountRecord struct {
	Nonce    uint64            `json:"nonce"`
	Balances map[string]string `json:"balances"`
}

// NewBoltStore opens (creating if absent) a bbolt database at path and
// ensures every bucket this store needs exists.
func NewBoltStore(path string, options *bolt.Options) (*BoltStore, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPools, bucketPositions, bucketAccounts, bucketAssets, bucketByAccount, bucketGlobals} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func bigToString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func stringToBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func poolToRecord(p *pool.Pool) poolRecord {
	rec := poolRecord{
		Asset:                  p.Asset.String(),
		TotalLiquidity:         bigToString(p.TotalLiquidity),
		TotalShares:            bigToString(p.TotalShares),
		LPFeeBps:               p.LPFeeBps,
		CollectedManagementFee: bigToString(p.CollectedManagementFee),
		Paused:                 p.Paused,
	}
	if len(p.FeeVotes) > 0 {
		rec.FeeVotes = make(map[string]string, len(p.FeeVotes))
		for bps, votes := range p.FeeVotes {
			rec.FeeVotes[bpsKey(bps)] = bigToString(votes)
		}
	}
	if len(p.ProposedFeeExecBlock) > 0 {
		rec.ProposedFeeExecBlock = make(map[string]uint64, len(p.ProposedFeeExecBlock))
		for bps, block := range p.ProposedFeeExecBlock {
			rec.ProposedFeeExecBlock[bpsKey(bps)] = block
		}
	}
	if len(p.AuditLog) > 0 {
		rec.AuditLog = make([]auditRecord, len(p.AuditLog))
		for i, entry := range p.AuditLog {
			rec.AuditLog[i] = auditRecord{
				Sequence:    entry.Sequence,
				BlockHeight: entry.BlockHeight,
				Event:       entry.Event,
				Actor:       entry.Actor.String(),
				Bps:         entry.Bps,
			}
		}
	}
	return rec
}

func recordToPool(rec poolRecord) (*pool.Pool, error) {
	asset, err := crypto.DecodeAddress(rec.Asset)
	if err != nil {
		return nil, err
	}
	p := &pool.Pool{
		Asset:                  asset,
		TotalLiquidity:         stringToBig(rec.TotalLiquidity),
		TotalShares:            stringToBig(rec.TotalShares),
		LPFeeBps:               rec.LPFeeBps,
		CollectedManagementFee: stringToBig(rec.CollectedManagementFee),
		Paused:                 rec.Paused,
	}
	p.EnsureDefaults()
	for bps, votes := range rec.FeeVotes {
		p.FeeVotes[bpsFromKey(bps)] = stringToBig(votes)
	}
	for bps, block := range rec.ProposedFeeExecBlock {
		p.ProposedFeeExecBlock[bpsFromKey(bps)] = block
	}
	if len(rec.AuditLog) > 0 {
		p.AuditLog = make([]pool.GovernanceAuditRecord, len(rec.AuditLog))
		for i, entry := range rec.AuditLog {
			actor, err := decodeActor(entry.Actor)
			if err != nil {
				return nil, err
			}
			p.AuditLog[i] = pool.GovernanceAuditRecord{
				Sequence:    entry.Sequence,
				BlockHeight: entry.BlockHeight,
				Event:       entry.Event,
				Actor:       actor,
				Bps:         entry.Bps,
			}
		}
	}
	return p, nil
}

// decodeActor decodes an audit record's actor, tolerating the empty string
// recorded for permissionless propose/execute entries (pool.GovernanceAuditRecord's
// zero-value crypto.Address, per native/pool/engine_governance.go).
func decodeActor(s string) (crypto.Address, error) {
	if s == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(s)
}

func bpsKey(bps uint64) string { return bigToString(new(big.Int).SetUint64(bps)) }
func bpsFromKey(key string) uint64 {
	return stringToBig(key).Uint64()
}

func positionToRecord(pos *pool.Position) positionRecord {
	return positionRecord{
		Account:          pos.Account.String(),
		Principal:        bigToString(pos.Principal),
		Shares:           bigToString(pos.Shares),
		VoteSelectionBps: pos.VoteSelectionBps,
	}
}

func recordToPosition(rec positionRecord) (*pool.Position, error) {
	account, err := crypto.DecodeAddress(rec.Account)
	if err != nil {
		return nil, err
	}
	pos := &pool.Position{
		Account:          account,
		Principal:        stringToBig(rec.Principal),
		Shares:           stringToBig(rec.Shares),
		VoteSelectionBps: rec.VoteSelectionBps,
	}
	pos.EnsureDefaults()
	return pos, nil
}

func accountToRecord(acc *types.Account) accountRecord {
	rec := accountRecord{Nonce: acc.Nonce}
	if len(acc.Balances) > 0 {
		rec.Balances = make(map[string]string, len(acc.Balances))
		for asset, bal := range acc.Balances {
			rec.Balances[asset] = bigToString(bal)
		}
	}
	return rec
}

func recordToAccount(rec accountRecord) *types.Account {
	acc := &types.Account{Nonce: rec.Nonce}
	acc.EnsureDefaults()
	for asset, bal := range rec.Balances {
		acc.Balances[asset] = stringToBig(bal)
	}
	return acc
}

// GetPool implements pool.State.
func (s *BoltStore) GetPool(asset crypto.Address) (*pool.Pool, error) {
	var rec *poolRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPools).Get([]byte(asset.String()))
		if raw == nil {
			return nil
		}
		var r poolRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return recordToPool(*rec)
}

// PutPool implements pool.State.
func (s *BoltStore) PutPool(p *pool.Pool) error {
	payload, err := json.Marshal(poolToRecord(p))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPools).Put([]byte(p.Asset.String()), payload)
	})
}

// GetPosition implements pool.State.
func (s *BoltStore) GetPosition(asset, account crypto.Address) (*pool.Position, error) {
	var rec *positionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPositions).Get([]byte(positionKey(asset, account)))
		if raw == nil {
			return nil
		}
		var r positionRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return recordToPosition(*rec)
}

// PutPosition implements pool.State.
func (s *BoltStore) PutPosition(asset crypto.Address, position *pool.Position) error {
	payload, err := json.Marshal(positionToRecord(position))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPositions).Put([]byte(positionKey(asset, position.Account)), payload)
	})
}

// GetAccount implements assetadapter.Ledger via pool.State.
func (s *BoltStore) GetAccount(addr crypto.Address) (*types.Account, error) {
	var rec *accountRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAccounts).Get([]byte(addr.String()))
		if raw == nil {
			return nil
		}
		var r accountRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return recordToAccount(*rec), nil
}

// PutAccount implements assetadapter.Ledger via pool.State.
func (s *BoltStore) PutAccount(addr crypto.Address, account *types.Account) error {
	payload, err := json.Marshal(accountToRecord(account))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put([]byte(addr.String()), payload)
	})
}

// MarkDeposited implements pool.State's enumeration index. bucketAssets maps
// asset -> "1" (presence only); bucketByAccount maps
// account|asset -> "1", with a parallel JSON list under the bare account key
// for ordered enumeration.
func (s *BoltStore) MarkDeposited(asset, account crypto.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		assets := tx.Bucket(bucketAssets)
		if assets.Get([]byte(asset.String())) == nil {
			if err := assets.Put([]byte(asset.String()), []byte("1")); err != nil {
				return err
			}
			if err := appendAssetList(assets, []byte("__order__"), asset); err != nil {
				return err
			}
		}

		byAccount := tx.Bucket(bucketByAccount)
		presenceKey := []byte(account.String() + "|" + asset.String())
		if byAccount.Get(presenceKey) == nil {
			if err := byAccount.Put(presenceKey, []byte("1")); err != nil {
				return err
			}
			if err := appendAssetList(byAccount, []byte(account.String()+"__order__"), asset); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearDeposited implements pool.State's enumeration index.
func (s *BoltStore) ClearDeposited(asset, account crypto.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		byAccount := tx.Bucket(bucketByAccount)
		presenceKey := []byte(account.String() + "|" + asset.String())
		if err := byAccount.Delete(presenceKey); err != nil {
			return err
		}
		return removeFromAssetList(byAccount, []byte(account.String()+"__order__"), asset)
	})
}

// ListDepositedAssets implements pool.State.
func (s *BoltStore) ListDepositedAssets() ([]crypto.Address, error) {
	var out []crypto.Address
	err := s.db.View(func(tx *bolt.Tx) error {
		list, err := readAssetList(tx.Bucket(bucketAssets), []byte("__order__"))
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	return out, err
}

// ListAccountDepositedAssets implements pool.State.
func (s *BoltStore) ListAccountDepositedAssets(account crypto.Address) ([]crypto.Address, error) {
	var out []crypto.Address
	err := s.db.View(func(tx *bolt.Tx) error {
		list, err := readAssetList(tx.Bucket(bucketByAccount), []byte(account.String()+"__order__"))
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	return out, err
}

func appendAssetList(bucket *bolt.Bucket, key []byte, asset crypto.Address) error {
	list, err := readAssetList(bucket, key)
	if err != nil {
		return err
	}
	list = append(list, asset)
	return writeAssetList(bucket, key, list)
}

func removeFromAssetList(bucket *bolt.Bucket, key []byte, asset crypto.Address) error {
	list, err := readAssetList(bucket, key)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, a := range list {
		if !a.Equal(asset) {
			filtered = append(filtered, a)
		}
	}
	return writeAssetList(bucket, key, filtered)
}

func readAssetList(bucket *bolt.Bucket, key []byte) ([]crypto.Address, error) {
	raw := bucket.Get(key)
	if raw == nil {
		return nil, nil
	}
	var encoded []string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(encoded))
	for _, s := range encoded {
		addr, err := crypto.DecodeAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func writeAssetList(bucket *bolt.Bucket, key []byte, list []crypto.Address) error {
	encoded := make([]string, len(list))
	for i, a := range list {
		encoded[i] = a.String()
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	return bucket.Put(key, payload)
}

// GetOwner implements engine.State.
func (s *BoltStore) GetOwner() (crypto.Address, bool, error) {
	var addr crypto.Address
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketGlobals).Get(globalsOwnerKey)
		if raw == nil {
			return nil
		}
		decoded, err := crypto.DecodeAddress(string(raw))
		if err != nil {
			return err
		}
		addr = decoded
		found = true
		return nil
	})
	return addr, found, err
}

// SetOwner implements engine.State.
func (s *BoltStore) SetOwner(owner crypto.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGlobals).Put(globalsOwnerKey, []byte(owner.String()))
	})
}

// GetManagementFeePercentage implements engine.State.
func (s *BoltStore) GetManagementFeePercentage() (uint64, error) {
	var pct uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketGlobals).Get(globalsMgmtKey)
		if raw == nil {
			return nil
		}
		pct = stringToBig(string(raw)).Uint64()
		return nil
	})
	return pct, err
}

// SetManagementFeePercentage implements engine.State.
func (s *BoltStore) SetManagementFeePercentage(pct uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGlobals).Put(globalsMgmtKey, []byte(bpsKey(pct)))
	})
}

// IsInitialized implements engine.State.
func (s *BoltStore) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketGlobals).Get(globalsInitKey)
		initialized = raw != nil
		return nil
	})
	return initialized, err
}

// SetInitialized implements engine.State.
func (s *BoltStore) SetInitialized() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGlobals).Put(globalsInitKey, []byte("1"))
	})
}
