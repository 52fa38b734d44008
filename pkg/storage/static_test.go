package storage

import (
	"context"
	"testing"

	"github.com/essboard/essboard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDashboard(t *testing.T) {
	d := BuiltinDashboard()
	require.NoError(t, d.Validate())

	assert.Equal(t, 91.6, d.AverageHealthScore)
	assert.Equal(t, []string{"北京一号站", "上海储能中心", "深圳湾电站", "成都高新站"}, d.SiteNames())
	assert.Len(t, d.HealthTrend, 7)
	assert.Len(t, d.Alerts, 3)
	assert.Len(t, d.KeyMetrics, 6)
	assert.Equal(t, 2000, d.PendingUpgrades())

	groups := d.GroupedSoftware()
	require.Len(t, groups, 3)
	assert.Equal(t, "ESS", groups[0].DeviceType)
	assert.Equal(t, "PCS", groups[1].DeviceType)
	assert.Equal(t, "BMS", groups[2].DeviceType)

	soc := d.KeyMetrics[0]
	assert.Equal(t, "电池SOC", soc.Name)
	require.Len(t, soc.Offices, 3)
	assert.Equal(t, "上海代表处", soc.Offices[1].Office)
	assert.Equal(t, types.NumberValue(82.1), soc.Offices[1].Value)

	// each call is independent
	d.SiteHealthRanks[0].Site = "changed"
	assert.Equal(t, "北京一号站", BuiltinDashboard().SiteHealthRanks[0].Site)
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	s := NewStaticProvider("fleet", BuiltinDashboard())

	d, err := s.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, BuiltinDashboard(), d)

	t.Run("copies", func(t *testing.T) {
		d, err := s.GetDashboard(ctx)
		require.NoError(t, err)
		d.Alerts[0].Site = "changed"

		again, err := s.GetDashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, "北京一号站", again.Alerts[0].Site)
	})

	t.Run("put", func(t *testing.T) {
		require.NoError(t, s.PutDashboard(ctx, types.Dashboard{AverageHealthScore: 75}))
		d, err := s.GetDashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, 75.0, d.AverageHealthScore)
		assert.Empty(t, d.SiteNames())
	})

	ids, err := s.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fleet"}, ids)
	assert.NoError(t, s.Close())
}
