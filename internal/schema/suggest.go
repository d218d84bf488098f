package schema

import "regexp"

// Suggestion is one proposed assignment of a source column to a canonical
// field, with the matcher's confidence.
type Suggestion struct {
	Column     string  `json:"column"`
	Confidence float64 `json:"confidence"`
}

// SuggestMappings proposes a column for every canonical field it can match,
// in three phases over the header list. A header consumed by an earlier
// phase is unavailable to later ones, and a field assigned once is skipped,
// so no column ever serves two fields. Mappings already present in existing
// are respected and their columns treated as consumed.
//
// Phase A matches the critical identification fields with cleaned headers
// and a low bar, so noisy headers like "MRN (string)" are still captured.
// Phase B assigns exact normalized-name matches at confidence 1.0. Phase C
// runs general pattern scoring for whatever is left.
func SuggestMappings(columns []string, existing map[string]string) map[string]Suggestion {
	suggestions := make(map[string]Suggestion)
	used := make(map[string]bool)
	for _, col := range existing {
		used[col] = true
	}

	assigned := func(name string) bool {
		if _, ok := existing[name]; ok {
			return true
		}
		_, ok := suggestions[name]
		return ok
	}

	// Phase A: critical fields first.
	for _, field := range Fields {
		if !field.Critical || assigned(field.Name) {
			continue
		}

		bestCol := ""
		bestScore := 0.0
		for _, col := range columns {
			if used[col] {
				continue
			}
			clean := CleanDecorations(col)
			score := criticalScore(clean, field)
			if score > bestScore {
				bestScore = score
				bestCol = col
			}
		}

		if bestCol != "" && bestScore > 0.5 {
			suggestions[field.Name] = Suggestion{Column: bestCol, Confidence: bestScore}
			used[bestCol] = true
		}
	}

	// Phase B: exact normalized-name matches.
	for _, field := range Fields {
		if assigned(field.Name) {
			continue
		}
		for _, col := range columns {
			if used[col] {
				continue
			}
			if Squash(CleanDecorations(col)) == Squash(field.Name) {
				suggestions[field.Name] = Suggestion{Column: col, Confidence: 1.0}
				used[col] = true
				break
			}
		}
	}

	// Phase C: general pattern matching for the rest.
	for _, field := range Fields {
		if assigned(field.Name) {
			continue
		}

		bestCol := ""
		bestScore := 0.0
		for _, col := range columns {
			if used[col] {
				continue
			}
			score := MatchScore(CleanDecorations(col), field.Patterns)
			if score > bestScore {
				bestScore = score
				bestCol = col
			}
		}

		threshold := 0.3
		if highValueFields[field.Name] {
			threshold = 0.1
		}
		if bestCol != "" && bestScore > threshold {
			suggestions[field.Name] = Suggestion{Column: bestCol, Confidence: bestScore}
			used[bestCol] = true
		}
	}

	return suggestions
}

// criticalScore scores a cleaned header against a critical field: exact
// separator-free equality with a pattern literal or the field's own name is
// 1.0, a regexp hit is 0.95.
func criticalScore(clean string, field Field) float64 {
	squashed := Squash(clean)
	best := 0.0

	for _, pattern := range field.Patterns {
		if squashed == Squash(stripPatternMeta(pattern)) {
			return 1.0
		}
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			continue
		}
		if re.MatchString(clean) && 0.95 > best {
			best = 0.95
		}
	}

	if squashed == Squash(field.Name) {
		return 1.0
	}
	return best
}

// AutoMap turns suggestions into a plain canonical-field -> column map,
// keeping every suggestion with confidence above min.
func AutoMap(columns []string, existing map[string]string, min float64) map[string]string {
	mapped := make(map[string]string)
	for name, s := range SuggestMappings(columns, existing) {
		if s.Confidence > min {
			mapped[name] = s.Column
		}
	}
	return mapped
}
