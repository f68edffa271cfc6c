// services/dashboard.go
package services

import (
	"context"
	"log"
	"sort"

	"spinwin/models"
)

// SpinProgress is the per-restaurant spin summary shown on the dashboard.
type SpinProgress struct {
	Points         int `json:"current_spin_points"`
	Spins          int `json:"number_of_spins"`
	RemainingToday int `json:"remaining_today"`
}

// RewardGroup is one restaurant tab of the dashboard.
type RewardGroup struct {
	RestaurantID   string                 `json:"restaurant_id"`
	RestaurantName string                 `json:"restaurant_name"`
	SpinProgress   SpinProgress           `json:"spin_progress"`
	Rewards        []models.ClaimedReward `json:"claimed_rewards"`
}

// GroupedRewards is the loaded dashboard. Source=local means the backend was
// unreachable and redeemed status is unknown.
type GroupedRewards struct {
	Source models.RewardSource `json:"source"`
	Groups []RewardGroup       `json:"restaurants"`
}

// Select returns the group for restaurantID without touching the backend.
func (g *GroupedRewards) Select(restaurantID string) (*RewardGroup, bool) {
	for i := range g.Groups {
		if g.Groups[i].RestaurantID == restaurantID {
			return &g.Groups[i], true
		}
	}
	return nil, false
}

// DashboardAggregator loads a user's rewards grouped by restaurant.
type DashboardAggregator struct {
	backend Backend
	ledger  *RewardLedger
	spins   *SpinEngine
	catalog *Catalog
}

func NewDashboardAggregator(backend Backend, ledger *RewardLedger, spins *SpinEngine, catalog *Catalog) *DashboardAggregator {
	return &DashboardAggregator{backend: backend, ledger: ledger, spins: spins, catalog: catalog}
}

// Load fetches the backend dashboard and falls back to the local reward list
// on any failure.
func (d *DashboardAggregator) Load(ctx context.Context, sess models.Session) (*GroupedRewards, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	resp, err := d.backend.UserDashboard(ctx, sess.BearerToken, sess.Identity.UID)
	if err == nil {
		grouped := d.groupRemote(ctx, sess, resp)
		dashboardLoads.WithLabelValues(string(models.RewardSourceRemote)).Inc()
		return grouped, nil
	}

	log.Printf("[DASHBOARD] ⚠️ Backend dashboard failed for %s, using local rewards: %v", sess.Identity.UID, err)
	local, lerr := d.ledger.LocalRewards(ctx, sess.RewardOwner())
	if lerr != nil {
		return nil, lerr
	}
	grouped := d.groupLocal(ctx, sess, local)
	dashboardLoads.WithLabelValues(string(models.RewardSourceLocal)).Inc()
	return grouped, nil
}

func (d *DashboardAggregator) groupRemote(ctx context.Context, sess models.Session, resp *DashboardResponse) *GroupedRewards {
	out := &GroupedRewards{Source: models.RewardSourceRemote, Groups: []RewardGroup{}}

	if len(resp.Dashboard) > 0 {
		for _, r := range resp.Dashboard {
			name := r.RestaurantName
			if name == "" {
				name = d.catalog.Name(r.RestaurantID)
			}
			group := RewardGroup{
				RestaurantID:   r.RestaurantID,
				RestaurantName: name,
				SpinProgress: SpinProgress{
					Points:         r.SpinProgress.CurrentSpinPoints,
					Spins:          r.SpinProgress.NumberOfSpins,
					RemainingToday: d.remaining(ctx, sess, r.RestaurantID),
				},
			}
			for _, rw := range r.ClaimedRewards {
				group.Rewards = append(group.Rewards, remoteToClaimed(rw, name))
			}
			sortRewards(group.Rewards)
			out.Groups = append(out.Groups, group)
		}
		return out
	}

	index := map[string]int{}
	for _, rw := range resp.ClaimedRewards {
		i, ok := index[rw.RestaurantID]
		if !ok {
			i = len(out.Groups)
			index[rw.RestaurantID] = i
			out.Groups = append(out.Groups, d.newGroup(ctx, sess, rw.RestaurantID, d.catalog.Name(rw.RestaurantID)))
		}
		out.Groups[i].Rewards = append(out.Groups[i].Rewards, remoteToClaimed(rw, out.Groups[i].RestaurantName))
	}
	for i := range out.Groups {
		sortRewards(out.Groups[i].Rewards)
	}
	return out
}

func (d *DashboardAggregator) groupLocal(ctx context.Context, sess models.Session, rewards []models.ClaimedReward) *GroupedRewards {
	out := &GroupedRewards{Source: models.RewardSourceLocal, Groups: []RewardGroup{}}
	index := map[string]int{}
	for _, rw := range rewards {
		rw.Redeemed = false
		rw.RedeemedAt = nil
		rw.Source = models.RewardSourceLocal

		i, ok := index[rw.RestaurantID]
		if !ok {
			name := rw.RestaurantName
			if name == "" {
				name = d.catalog.Name(rw.RestaurantID)
			}
			i = len(out.Groups)
			index[rw.RestaurantID] = i
			out.Groups = append(out.Groups, d.newGroup(ctx, sess, rw.RestaurantID, name))
		}
		out.Groups[i].Rewards = append(out.Groups[i].Rewards, rw)
	}
	for i := range out.Groups {
		sortRewards(out.Groups[i].Rewards)
	}
	return out
}

// newGroup fills spin progress from today's local quota.
func (d *DashboardAggregator) newGroup(ctx context.Context, sess models.Session, restaurantID, name string) RewardGroup {
	group := RewardGroup{RestaurantID: restaurantID, RestaurantName: name}
	q, err := d.spins.Quota(ctx, restaurantID, sess.UserID())
	if err != nil {
		log.Printf("[DASHBOARD] ⚠️ Quota unavailable for %s: %v", restaurantID, err)
		group.SpinProgress.RemainingToday = models.DailySpinLimit
		return group
	}
	group.SpinProgress = SpinProgress{
		Points:         q.PointsAccrued,
		Spins:          q.SpinsUsed,
		RemainingToday: q.Remaining(),
	}
	return group
}

func (d *DashboardAggregator) remaining(ctx context.Context, sess models.Session, restaurantID string) int {
	q, err := d.spins.Quota(ctx, restaurantID, sess.UserID())
	if err != nil {
		return models.DailySpinLimit
	}
	return q.Remaining()
}

func remoteToClaimed(rw RemoteReward, restaurantName string) models.ClaimedReward {
	return models.ClaimedReward{
		RestaurantID:   rw.RestaurantID,
		RestaurantName: restaurantName,
		OfferText:      rw.RewardName,
		CouponCode:     rw.CouponCode,
		ClaimedAt:      rw.ClaimedAt,
		Redeemed:       rw.Redeemed,
		RedeemedAt:     rw.RedeemedAt,
		Source:         models.RewardSourceRemote,
	}
}

// sortRewards puts unredeemed first, newest claim first within each half.
func sortRewards(rewards []models.ClaimedReward) {
	sort.SliceStable(rewards, func(i, j int) bool {
		if rewards[i].Redeemed != rewards[j].Redeemed {
			return !rewards[i].Redeemed
		}
		return rewards[i].ClaimedAt.After(rewards[j].ClaimedAt)
	})
}
