package schema

import "regexp"

// MatchScore scores how well a header matches a pattern list, in [0, 1].
// For each pattern, taking the maximum:
//   - anchored full match of the normalized header -> 1.0
//   - normalized header equals the pattern with anchors/wildcards stripped -> 0.95
//   - partial regexp match -> min(matched length / header length, 0.9)
//
// A second pass compares header and pattern with every separator removed;
// equality there also scores 1.0. Malformed patterns are skipped.
func MatchScore(header string, patterns []string) float64 {
	normalized := Normalize(header)
	if normalized == "" {
		return 0.0
	}

	best := 0.0
	for _, pattern := range patterns {
		re, err := regexp.Compile(`(?i)^` + pattern + `$`)
		if err != nil {
			continue
		}

		var score float64
		switch {
		case re.MatchString(normalized):
			score = 1.0
		case normalized == stripPatternMeta(pattern):
			score = 0.95
		default:
			partial, err := regexp.Compile(`(?i)` + pattern)
			if err != nil {
				continue
			}
			if m := partial.FindString(normalized); m != "" {
				score = float64(len(m)) / float64(len(normalized))
				if score > 0.9 {
					score = 0.9
				}
			}
		}

		if score > best {
			best = score
		}
	}

	// Separator-free comparison: "First_Name" should match "first name"
	// exactly even when the regex passes scored lower.
	squashed := Squash(normalized)
	for _, pattern := range patterns {
		if squashed == Squash(stripPatternMeta(pattern)) {
			return 1.0
		}
	}

	return best
}
