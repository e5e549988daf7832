package adaptive

import "github.com/abhisek/quizadapt/internal/store"

// FilterZPD keeps the templates whose concept mastery lies inside band,
// inclusive. When nothing survives, the input is returned unchanged.
func FilterZPD(templates []store.Template, mastery map[int64]float64, band ZPDBand) []store.Template {
	kept := make([]store.Template, 0, len(templates))
	for _, t := range templates {
		m, ok := mastery[t.ConceptID]
		if !ok {
			m = band.DefaultMastery
		}
		if m >= band.MinMastery && m <= band.MaxMastery {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return templates
	}
	return kept
}
