// Package match provides normalized fuzzy name matching, used to resolve
// partial subscriber names typed on the command line.
package match

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Confidence represents the confidence level of a name match.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // Score < 0.70
	ConfidenceLow                      // Score >= 0.70
	ConfidenceMedium                   // Score >= 0.85
	ConfidenceHigh                     // Score >= 0.95
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// Result represents the result of a fuzzy name match.
type Result struct {
	Name       string     // The matched candidate name
	Score      float64    // Jaro-Winkler similarity score (0.0-1.0)
	Confidence Confidence // Confidence level based on score
}

// Normalize prepares a name for comparison: lowercase, accents removed,
// punctuation replaced with spaces, whitespace collapsed.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = removeAccents(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Best finds the best match for input against candidate names.
// Uses Jaro-Winkler similarity, which favors prefix matches, so a typed
// prefix of a name usually wins. An exact normalized match always scores 1.
func Best(input string, candidates []string) Result {
	if len(candidates) == 0 {
		return Result{Confidence: ConfidenceNone}
	}

	normalizedInput := Normalize(input)
	best := Result{Confidence: ConfidenceNone}

	for _, candidate := range candidates {
		normalizedCandidate := Normalize(candidate)

		var score float64
		if normalizedInput == normalizedCandidate {
			score = 1.0
		} else {
			score = float64(edlib.JaroWinklerSimilarity(normalizedInput, normalizedCandidate))
		}

		if score > best.Score {
			best.Name = candidate
			best.Score = score
		}
	}

	switch {
	case best.Score >= 0.95:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.85:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.70:
		best.Confidence = ConfidenceLow
	default:
		best.Confidence = ConfidenceNone
		best.Name = ""
	}

	return best
}
