package services

import (
	"context"
	"errors"
	"testing"

	"spinwin/models"
	"spinwin/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedSession() models.Session {
	return models.Session{
		Identity: models.Identity{
			Kind:  models.IdentityAuthenticated,
			UID:   "uid-1",
			Email: "ada@example.com",
			Name:  "Ada",
			Phone: "919876543210",
		},
		BearerToken: "token-1",
	}
}

func TestClaimIsIdempotentPerOffer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	backend := &stubBackend{}
	ledger := NewRewardLedger(backend, env.store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("pizza-palace")
	offer := &models.OfferInstance{SpinID: "spin-1", RestaurantID: "pizza-palace", Text: "Free Soda"}

	first, err := ledger.Claim(ctx, ClaimRequest{Session: authedSession(), Restaurant: restaurant, Offer: offer})
	require.NoError(t, err)
	second, err := ledger.Claim(ctx, ClaimRequest{Session: authedSession(), Restaurant: restaurant, Offer: offer})
	require.NoError(t, err)

	assert.Equal(t, first.CouponCode, second.CouponCode)
	assert.True(t, utils.ValidCouponCode(first.CouponCode))
	assert.True(t, offer.Claimed)
	assert.Len(t, backend.claims, 1)
	assert.False(t, backend.claims[0].Redeemed)
	assert.Equal(t, "uid-1", backend.claims[0].UID)
	assert.Equal(t, "919876543210", backend.claims[0].WhatsappNumber)

	local, err := ledger.LocalRewards(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, first.CouponCode, local[0].CouponCode)
}

func TestClaimKeepsLocalCopyWhenBackendFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	backend := &stubBackend{err: &NetworkError{Op: "reward-claim", Err: errors.New("connection refused")}}
	ledger := NewRewardLedger(backend, env.store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("pizza-palace")

	reward, err := ledger.Claim(ctx, ClaimRequest{
		Session:    authedSession(),
		Restaurant: restaurant,
		Offer:      &models.OfferInstance{SpinID: "s", RestaurantID: "pizza-palace", Text: "Free Pizza"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Free Pizza", reward.OfferText)
	assert.False(t, reward.Redeemed)

	local, err := ledger.LocalRewards(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, local, 1)
}

func TestClaimWithoutTokenSkipsBackend(t *testing.T) {
	env := newTestEnv(t)
	backend := &stubBackend{}
	ledger := NewRewardLedger(backend, env.store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("pizza-palace")
	sess := authedSession()
	sess.BearerToken = ""

	_, err := ledger.Claim(context.Background(), ClaimRequest{
		Session:    sess,
		Restaurant: restaurant,
		Offer:      &models.OfferInstance{SpinID: "s", RestaurantID: "pizza-palace", Text: "Free Pizza"},
	})
	require.NoError(t, err)
	assert.Empty(t, backend.claims)
}

func TestClaimRejectsOfferFromAnotherRestaurant(t *testing.T) {
	env := newTestEnv(t)
	ledger := NewRewardLedger(&stubBackend{}, env.store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("sushi-heaven")

	_, err := ledger.Claim(context.Background(), ClaimRequest{
		Session:    authedSession(),
		Restaurant: restaurant,
		Offer:      &models.OfferInstance{SpinID: "s", RestaurantID: "pizza-palace", Text: "Free Pizza"},
	})
	assert.Error(t, err)
}

func TestClaimCouponCodesAreUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewRewardLedger(&stubBackend{}, env.store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("pizza-palace")

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r, err := ledger.Claim(ctx, ClaimRequest{
			Session:    authedSession(),
			Restaurant: restaurant,
			Offer:      &models.OfferInstance{SpinID: string(rune('a' + i)), RestaurantID: "pizza-palace", Text: "Free Pizza"},
		})
		require.NoError(t, err)
		assert.False(t, seen[r.CouponCode])
		seen[r.CouponCode] = true
	}
}

// failingRewardsStore fails the first n reward list writes.
type failingRewardsStore struct {
	KeyValueStore
	failures int
}

func (s *failingRewardsStore) Save(ctx context.Context, key StoreKey, v any) error {
	if key.Kind == models.RecordKindRewards && s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	return s.KeyValueStore.Save(ctx, key, v)
}

func TestClaimRetryAfterLocalFailureWritesOneRemoteReward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	backend := &stubBackend{}
	store := &failingRewardsStore{KeyValueStore: env.store, failures: 1}
	ledger := NewRewardLedger(backend, store, env.keys("dev-1"), env.clock)
	restaurant, _ := env.catalog.Get("pizza-palace")
	offer := &models.OfferInstance{SpinID: "spin-1", RestaurantID: "pizza-palace", Text: "Free Soda"}

	_, err := ledger.Claim(ctx, ClaimRequest{Session: authedSession(), Restaurant: restaurant, Offer: offer})
	require.ErrorContains(t, err, "disk full")
	assert.False(t, offer.Claimed)
	assert.Empty(t, backend.claims)

	reward, err := ledger.Claim(ctx, ClaimRequest{Session: authedSession(), Restaurant: restaurant, Offer: offer})
	require.NoError(t, err)
	require.Len(t, backend.claims, 1)
	assert.Equal(t, reward.CouponCode, backend.claims[0].CouponCode)

	_, err = ledger.Claim(ctx, ClaimRequest{Session: authedSession(), Restaurant: restaurant, Offer: offer})
	require.NoError(t, err)
	assert.Len(t, backend.claims, 1)
}
