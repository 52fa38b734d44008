package storage

import "github.com/essboard/essboard/pkg/types"

// BuiltinDashboard returns the demonstration fleet served by the static
// provider and written by the seed command. Every call builds a new value.
func BuiltinDashboard() types.Dashboard {
	return types.Dashboard{
		AverageHealthScore: 91.6,
		OfficeHealthRanks: []types.OfficeHealthRank{
			{Office: "北京代表处", Score: 94.2},
			{Office: "上海代表处", Score: 91.8},
			{Office: "深圳代表处", Score: 89.5},
			{Office: "杭州代表处", Score: 87.2},
		},
		SiteHealthRanks: []types.HealthRank{
			{Site: "北京一号站", Score: 98},
			{Site: "上海储能中心", Score: 95},
			{Site: "深圳湾电站", Score: 92},
			{Site: "成都高新站", Score: 88},
		},
		HealthTrend: []types.HealthTrend{
			{Time: "01", Value: 92},
			{Time: "05", Value: 94},
			{Time: "10", Value: 91},
			{Time: "15", Value: 95},
			{Time: "20", Value: 93},
			{Time: "25", Value: 96},
			{Time: "30", Value: 94},
		},
		Alerts: []types.AlertItem{
			{ID: "1", Address: "B1-F3-01", Status: types.AlertStatusCritical, Site: "北京一号站", Type: "电池组模块过温告警", Time: "10:22:15"},
			{ID: "2", Address: "S2-G1-12", Status: types.AlertStatusMajor, Site: "上海储能中心", Type: "主回路通讯链路异常", Time: "11:05:42"},
			{ID: "3", Address: "Z1-K4-05", Status: types.AlertStatusMinor, Site: "深圳湾电站", Type: "三相电网频率失稳", Time: "11:30:00"},
		},
		PreWarnings: []types.PreWarningItem{
			{ID: "pw1", Site: "深圳湾电站", Device: "Rack #04", Description: "电芯一致性偏差预警", Prediction: "预计48h内触发故障", Confidence: 92},
			{ID: "pw2", Site: "上海储能中心", Device: "PCS-02", Description: "变流器散热效率下降", Prediction: "建议1周内维护风道", Confidence: 85},
			{ID: "pw3", Site: "北京一号站", Device: "BMS-01", Description: "绝缘阻抗分级预警", Prediction: "阻抗值持续呈下降趋势", Confidence: 78},
		},
		RiskClosures: []types.ClosureStat{
			{Label: "Pcare问题单", Total: 125, Closed: 118, Rate: 94.4},
			{Label: "Agrid工单", Total: 85, Closed: 80, Rate: 94.1},
			{Label: "巡检风险闭环", Total: 42, Closed: 35, Rate: 83.3},
			{Label: "重特大告警", Total: 18, Closed: 18, Rate: 100},
		},
		Stock: types.StockData{Shipped: 12000, Booted: 11500, Connected: 10800, ConnectionRate: 90},
		OfficeCloudStats: []types.OfficeCloudSiteStat{
			{Office: "北京代表处", TotalSites: 120, CloudSites: 115, Rate: 95.8, Offline: 3, OfflineRate: 2.5},
			{Office: "上海代表处", TotalSites: 95, CloudSites: 92, Rate: 96.8, Offline: 1, OfflineRate: 1.1},
			{Office: "深圳代表处", TotalSites: 150, CloudSites: 142, Rate: 94.7, Offline: 8, OfflineRate: 5.3},
			{Office: "杭州代表处", TotalSites: 110, CloudSites: 102, Rate: 92.7, Offline: 4, OfflineRate: 3.6},
		},
		OfficeESSRanks: []types.OfficeESSRank{
			{Office: "深圳代表处", ESSCount: 245, Capacity: "450MWh"},
			{Office: "北京代表处", ESSCount: 188, Capacity: "320MWh"},
			{Office: "上海代表处", ESSCount: 162, Capacity: "280MWh"},
		},
		DeviceTypes: []types.DeviceTypeStat{
			{Type: "BMS电池管理", Count: 5400, Percentage: 45},
			{Type: "PCS变流器", Count: 3200, Percentage: 27},
			{Type: "智能电表", Count: 1800, Percentage: 15},
			{Type: "监控网关", Count: 1600, Percentage: 13},
		},
		SoftwareVersions: []types.SoftwareVersion{
			{DeviceType: "ESS", Version: "ESS-V2.5.0", Count: 2800, Percentage: 65},
			{DeviceType: "ESS", Version: "ESS-V2.4.2", Count: 800, Percentage: 20, IsRequiredUpgrade: true},
			{DeviceType: "PCS", Version: "PCS-P3.1.0", Count: 1500, Percentage: 50},
			{DeviceType: "PCS", Version: "PCS-P2.9.8", Count: 1200, Percentage: 40, IsRequiredUpgrade: true},
			{DeviceType: "BMS", Version: "BMS-B1.0.5", Count: 1100, Percentage: 80},
		},
		KeyMetrics: []types.KeyMetric{
			keyMetric("电池SOC", 85.2, "%", types.MetricTrendUp, 88.5, 82.1, 86.4),
			keyMetric("电池SOH", 98.4, "%", types.MetricTrendStable, 99.1, 97.8, 98.5),
			keyMetric("电芯最高温", 32.5, "℃", types.MetricTrendDown, 28.5, 35.2, 36.8),
			keyMetric("等效循环", 452, "次", "", 320, 580, 512),
			keyMetric("累计充电", 12.5, "GWh", "", 3.2, 4.5, 2.8),
			keyMetric("RTE效率", 92.4, "%", types.MetricTrendStable, 93.5, 91.2, 92.8),
		},
	}
}

var metricOffices = []string{"北京代表处", "上海代表处", "深圳代表处"}

func keyMetric(name string, value float64, unit string, trend types.MetricTrend, perOffice ...float64) types.KeyMetric {
	m := types.KeyMetric{
		Name:   name,
		Value:  types.NumberValue(value),
		Unit:   unit,
		Trend:  trend,
		Status: types.MetricStatusNormal,
	}
	for i, v := range perOffice {
		m.Offices = append(m.Offices, types.OfficeMetric{Office: metricOffices[i], Value: types.NumberValue(v)})
	}
	return m
}
