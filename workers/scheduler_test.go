package workers

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff string
	rows   int64
}

func (f *fakePruner) PruneQuotasBefore(_ context.Context, day string) (int64, error) {
	f.cutoff = day
	return f.rows, nil
}

func TestPruneQuotasUsesRetentionWindow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	pruner := &fakePruner{rows: 4}
	m := &Maintenance{Store: pruner, Clock: clock, Location: time.UTC, RetentionDays: 30}

	n, err := m.PruneQuotas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "2026-02-13", pruner.cutoff)
}

func TestPruneQuotasCutoffFollowsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 20:00 UTC on the 1st is already the 2nd at UTC+10.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	pruner := &fakePruner{}
	m := &Maintenance{Store: pruner, Clock: clock, Location: loc, RetentionDays: 1}

	_, err := m.PruneQuotas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", pruner.cutoff)
}
