package services

import (
	"context"
	"testing"

	"spinwin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := Keys{DeviceID: "dev-1"}.Quota("u1", "pizza-palace", "2026-04-10")

	var q models.SpinQuota
	found, err := store.Load(ctx, key, &q)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, key, models.SpinQuota{SpinsUsed: 1}))
	require.NoError(t, store.Save(ctx, key, models.SpinQuota{SpinsUsed: 2}))

	found, err = store.Load(ctx, key, &q)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, q.SpinsUsed)

	require.NoError(t, store.Remove(ctx, key))
	found, err = store.Load(ctx, key, &q)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalStoreSchemaMismatchAndCorruption(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	keys := Keys{DeviceID: "dev-1"}

	require.NoError(t, store.Save(ctx, keys.Session(), models.AnonymousSession()))
	require.NoError(t, store.DB.Model(&models.LocalRecord{}).
		Where("record_key = ?", keys.Session().String()).
		Update("schema", RecordSchemaVersion+1).Error)

	var sess models.Session
	_, err := store.Load(ctx, keys.Session(), &sess)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	require.NoError(t, store.Save(ctx, keys.GenericQuota(), models.SpinQuota{}))
	require.NoError(t, store.DB.Model(&models.LocalRecord{}).
		Where("record_key = ?", keys.GenericQuota().String()).
		Update("payload", "{not json").Error)

	var q models.SpinQuota
	_, err = store.Load(ctx, keys.GenericQuota(), &q)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestKeysAreDeviceScopedAndEscaped(t *testing.T) {
	a := Keys{DeviceID: "dev/a"}
	b := Keys{DeviceID: "dev-b"}

	assert.NotEqual(t, a.Session().String(), b.Session().String())
	assert.Equal(t, "v1/dev%2Fa/session", a.Session().String())
	assert.Equal(t, "v1/dev-b/quota/u1/pizza-palace/2026-04-10", b.Quota("u1", "pizza-palace", "2026-04-10").String())
	assert.Equal(t, "2026-04-10", b.Quota("u1", "pizza-palace", "2026-04-10").Day)
}

func TestPruneQuotasBeforeKeepsOtherKinds(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	keys := Keys{DeviceID: "dev-1"}

	require.NoError(t, store.Save(ctx, keys.Quota("u1", "r", "2026-01-01"), models.SpinQuota{}))
	require.NoError(t, store.Save(ctx, keys.Quota("u1", "r", "2026-04-10"), models.SpinQuota{}))
	require.NoError(t, store.Save(ctx, keys.Session(), models.AnonymousSession()))

	n, err := store.PruneQuotasBefore(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var q models.SpinQuota
	found, err := store.Load(ctx, keys.Quota("u1", "r", "2026-04-10"), &q)
	require.NoError(t, err)
	assert.True(t, found)
	var sess models.Session
	found, err = store.Load(ctx, keys.Session(), &sess)
	require.NoError(t, err)
	assert.True(t, found)
}
