package types

// HealthLevel is a display bucket for a 0-100 health score.
type HealthLevel struct {
	Label string `json:"label"`
	// Tone is the palette name used by the dashboard (emerald, cyan, orange, rose).
	Tone string `json:"tone"`
	Min  float64 `json:"min"`
}

// HealthLevels are ordered from best to worst.
var HealthLevels = []HealthLevel{
	{Label: "优", Tone: "emerald", Min: 90},
	{Label: "良", Tone: "cyan", Min: 80},
	{Label: "中", Tone: "orange", Min: 60},
	{Label: "差", Tone: "rose", Min: 0},
}

// HealthLevelFor returns the level a score falls into. Scores below zero land
// in the worst bucket.
func HealthLevelFor(score float64) HealthLevel {
	for _, l := range HealthLevels {
		if score >= l.Min {
			return l
		}
	}
	return HealthLevels[len(HealthLevels)-1]
}
