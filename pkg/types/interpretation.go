package types

// HealthInterpretation is a natural-language reading of an aggregate fleet
// health score. Values are never modified after construction; a refresh
// produces a whole new value.
type HealthInterpretation struct {
	Summary         string   `json:"summary"`
	Causes          []string `json:"causes"`
	Recommendations []string `json:"recommendations"`
}

// Clone returns a deep copy so callers can't share the underlying slices.
func (h HealthInterpretation) Clone() HealthInterpretation {
	return HealthInterpretation{
		Summary:         h.Summary,
		Causes:          cloneStrings(h.Causes),
		Recommendations: cloneStrings(h.Recommendations),
	}
}

// Normalized returns a copy with absent lists replaced by empty ones.
func (h HealthInterpretation) Normalized() HealthInterpretation {
	c := h.Clone()
	if c.Causes == nil {
		c.Causes = []string{}
	}
	if c.Recommendations == nil {
		c.Recommendations = []string{}
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
