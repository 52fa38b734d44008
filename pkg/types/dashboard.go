package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AlertStatus is the severity of an active alarm.
type AlertStatus string

const (
	AlertStatusCritical AlertStatus = "Critical"
	AlertStatusMajor    AlertStatus = "Major"
	AlertStatusMinor    AlertStatus = "Minor"
	AlertStatusWarning  AlertStatus = "Warning"
)

// Valid reports whether s is one of the known severities.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusCritical, AlertStatusMajor, AlertStatusMinor, AlertStatusWarning:
		return true
	}
	return false
}

// Tone returns the palette name used to render the severity badge.
func (s AlertStatus) Tone() string {
	switch s {
	case AlertStatusCritical:
		return "rose"
	case AlertStatusMajor:
		return "orange"
	case AlertStatusMinor:
		return "amber"
	default:
		return "cyan"
	}
}

type MetricTrend string

const (
	MetricTrendUp     MetricTrend = "up"
	MetricTrendDown   MetricTrend = "down"
	MetricTrendStable MetricTrend = "stable"
)

type MetricStatus string

const (
	MetricStatusNormal   MetricStatus = "normal"
	MetricStatusWarning  MetricStatus = "warning"
	MetricStatusCritical MetricStatus = "critical"
)

type OfficeHealthRank struct {
	Office string  `json:"office"`
	Score  float64 `json:"score"`
}

type HealthRank struct {
	Site  string  `json:"site"`
	Score float64 `json:"score"`
}

type HealthTrend struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type AlertItem struct {
	ID      string      `json:"id"`
	Address string      `json:"address"`
	Status  AlertStatus `json:"status"`
	Site    string      `json:"site"`
	Type    string      `json:"type"`
	Time    string      `json:"time"`
}

type PreWarningItem struct {
	ID          string `json:"id"`
	Site        string `json:"site"`
	Device      string `json:"device"`
	Description string `json:"description"`
	Prediction  string `json:"prediction"`
	// Confidence is a percentage.
	Confidence float64 `json:"confidence"`
}

// ClosureStat tracks how many issues of one kind have been closed.
type ClosureStat struct {
	Label  string  `json:"label"`
	Total  int     `json:"total"`
	Closed int     `json:"closed"`
	Rate   float64 `json:"rate"`
}

type StockData struct {
	Shipped        int     `json:"shipped"`
	Booted         int     `json:"booted"`
	Connected      int     `json:"connected"`
	ConnectionRate float64 `json:"connectionRate"`
}

type OfficeCloudSiteStat struct {
	Office      string  `json:"office"`
	TotalSites  int     `json:"totalSites"`
	CloudSites  int     `json:"cloudSites"`
	Rate        float64 `json:"rate"`
	Offline     int     `json:"offline"`
	OfflineRate float64 `json:"offlineRate"`
}

type OfficeESSRank struct {
	Office   string `json:"office"`
	ESSCount int    `json:"essCount"`
	Capacity string `json:"capacity"`
}

type DeviceTypeStat struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SoftwareVersion struct {
	DeviceType        string  `json:"deviceType"`
	Version           string  `json:"version"`
	Count             int     `json:"count"`
	Percentage        float64 `json:"percentage"`
	IsRequiredUpgrade bool    `json:"isRequiredUpgrade"`
}

// MetricValue is either a number or free text. It marshals back to whichever
// form it was given.
type MetricValue struct {
	Number float64
	Text   string
	IsText bool
}

func NumberValue(v float64) MetricValue {
	return MetricValue{Number: v}
}

func TextValue(v string) MetricValue {
	return MetricValue{Text: v, IsText: true}
}

// Float returns the numeric value. Text values are parsed when possible.
func (v MetricValue) Float() (float64, bool) {
	if !v.IsText {
		return v.Number, true
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v MetricValue) String() string {
	if v.IsText {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON implements the json.Marshaler interface.
func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (v *MetricValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("metric value must be a number or string: %w", err)
	}
	*v = NumberValue(f)
	return nil
}

type OfficeMetric struct {
	Office string      `json:"office"`
	Value  MetricValue `json:"value"`
}

type KeyMetric struct {
	Name    string         `json:"name"`
	Value   MetricValue    `json:"value"`
	Unit    string         `json:"unit"`
	Trend   MetricTrend    `json:"trend,omitempty"`
	Status  MetricStatus   `json:"status"`
	Offices []OfficeMetric `json:"offices,omitempty"`
}

// BarPercent is the width of the metric's progress bar. Percentages are used
// directly and other units are scaled down by ten, capped at 100.
func (m KeyMetric) BarPercent() float64 {
	v, ok := m.Value.Float()
	if !ok {
		return 0
	}
	if m.Unit != "%" {
		v *= 0.1
	}
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// SoftwareGroup is every version of one device type.
type SoftwareGroup struct {
	DeviceType string            `json:"deviceType"`
	Versions   []SoftwareVersion `json:"versions"`
}

// Dashboard is everything the fleet overview renders.
type Dashboard struct {
	AverageHealthScore float64               `json:"averageHealthScore"`
	OfficeHealthRanks  []OfficeHealthRank    `json:"officeHealthRanks"`
	SiteHealthRanks    []HealthRank          `json:"siteHealthRanks"`
	HealthTrend        []HealthTrend         `json:"healthTrend"`
	Alerts             []AlertItem           `json:"alerts"`
	PreWarnings        []PreWarningItem      `json:"preWarnings"`
	RiskClosures       []ClosureStat         `json:"riskClosures"`
	Stock              StockData             `json:"stock"`
	OfficeCloudStats   []OfficeCloudSiteStat `json:"officeCloudStats"`
	OfficeESSRanks     []OfficeESSRank       `json:"officeEssRanks"`
	DeviceTypes        []DeviceTypeStat      `json:"deviceTypes"`
	SoftwareVersions   []SoftwareVersion     `json:"softwareVersions"`
	KeyMetrics         []KeyMetric           `json:"keyMetrics"`
}

// SiteNames returns the sites in health-rank order. It is never nil.
func (d Dashboard) SiteNames() []string {
	names := make([]string, 0, len(d.SiteHealthRanks))
	for _, r := range d.SiteHealthRanks {
		names = append(names, r.Site)
	}
	return names
}

// GroupedSoftware groups versions by device type with groups in the order
// their type first appears.
func (d Dashboard) GroupedSoftware() []SoftwareGroup {
	var groups []SoftwareGroup
	idx := map[string]int{}
	for _, v := range d.SoftwareVersions {
		i, ok := idx[v.DeviceType]
		if !ok {
			i = len(groups)
			idx[v.DeviceType] = i
			groups = append(groups, SoftwareGroup{DeviceType: v.DeviceType})
		}
		groups[i].Versions = append(groups[i].Versions, v)
	}
	return groups
}

// PendingUpgrades counts devices running a version that must be upgraded.
func (d Dashboard) PendingUpgrades() int {
	var n int
	for _, v := range d.SoftwareVersions {
		if v.IsRequiredUpgrade {
			n += v.Count
		}
	}
	return n
}

// Validate checks the fields the interpretation depends on.
func (d Dashboard) Validate() error {
	for _, a := range d.Alerts {
		if !a.Status.Valid() {
			return fmt.Errorf("alert %s: invalid status %q", a.ID, a.Status)
		}
	}
	for _, r := range d.SiteHealthRanks {
		if r.Site == "" {
			return fmt.Errorf("site health rank with empty site")
		}
	}
	return nil
}
