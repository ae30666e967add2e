package keeper

import (
	"encoding/binary"
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// Store key prefixes
var (
	PoolStateKey      = []byte{0x01}
	BucketKeyPrefix   = []byte{0x02}
	RegistryHeadKey   = []byte{0x03}
	RegistryTailKey   = []byte{0x04}
)

// Keeper manages the bondmarket pool state. All public operations are
// atomic: they stage mutations on a cached context and commit only after
// every check, including the external token calls, has passed.
type Keeper struct {
	storeKey storetypes.StoreKey
	params   types.Params

	cashKeeper  types.CashKeeper
	bondKeeper  types.BondKeeper
	shareKeeper types.ShareKeeper

	logger log.Logger
}

// NewKeeper creates a new bondmarket keeper
func NewKeeper(
	storeKey storetypes.StoreKey,
	params types.Params,
	cashKeeper types.CashKeeper,
	bondKeeper types.BondKeeper,
	shareKeeper types.ShareKeeper,
	logger log.Logger,
) (*Keeper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Keeper{
		storeKey:    storeKey,
		params:      params,
		cashKeeper:  cashKeeper,
		bondKeeper:  bondKeeper,
		shareKeeper: shareKeeper,
		logger:      logger.With("module", "x/"+types.ModuleName),
	}, nil
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// Params returns the immutable pool configuration
func (k *Keeper) Params() types.Params {
	return k.params
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// ============ Pool State ============

// GetPoolState retrieves the pool aggregate, or an empty state if unset
func (k *Keeper) GetPoolState(ctx sdk.Context) *types.PoolState {
	store := k.GetStore(ctx)
	bz := store.Get(PoolStateKey)
	if bz == nil {
		return types.NewPoolState()
	}
	var state types.PoolState
	if err := json.Unmarshal(bz, &state); err != nil {
		return types.NewPoolState()
	}
	return &state
}

// SetPoolState saves the pool aggregate
func (k *Keeper) SetPoolState(ctx sdk.Context, state *types.PoolState) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(state)
	store.Set(PoolStateKey, bz)
}

// ============ Maturity Buckets ============

func bucketKey(maturity int64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(maturity))
	return append(BucketKeyPrefix, bz...)
}

// GetBucket retrieves the bucket for a maturity, or nil if never created
func (k *Keeper) GetBucket(ctx sdk.Context, maturity int64) *types.MaturityBucket {
	store := k.GetStore(ctx)
	bz := store.Get(bucketKey(maturity))
	if bz == nil {
		return nil
	}
	var bucket types.MaturityBucket
	if err := json.Unmarshal(bz, &bucket); err != nil {
		return nil
	}
	return &bucket
}

// SetBucket saves a maturity bucket
func (k *Keeper) SetBucket(ctx sdk.Context, bucket *types.MaturityBucket) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(bucket)
	store.Set(bucketKey(bucket.Maturity), bz)
}

// ============ Registry Head/Tail ============

func (k *Keeper) getTimestampKey(ctx sdk.Context, key []byte) int64 {
	bz := k.GetStore(ctx).Get(key)
	if bz == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(bz))
}

func (k *Keeper) setTimestampKey(ctx sdk.Context, key []byte, ts int64) {
	store := k.GetStore(ctx)
	if ts == 0 {
		store.Delete(key)
		return
	}
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(ts))
	store.Set(key, bz)
}

// GetHead returns the earliest active maturity, 0 if the registry is empty
func (k *Keeper) GetHead(ctx sdk.Context) int64 {
	return k.getTimestampKey(ctx, RegistryHeadKey)
}

// GetTail returns the latest active maturity, 0 if the registry is empty
func (k *Keeper) GetTail(ctx sdk.Context) int64 {
	return k.getTimestampKey(ctx, RegistryTailKey)
}

func (k *Keeper) setHead(ctx sdk.Context, ts int64) {
	k.setTimestampKey(ctx, RegistryHeadKey, ts)
}

func (k *Keeper) setTail(ctx sdk.Context, ts int64) {
	k.setTimestampKey(ctx, RegistryTailKey, ts)
}
