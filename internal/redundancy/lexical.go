// Package redundancy decides when two pieces of text say the same thing. It
// combines cheap fuzzy-string scoring with a semantic judgment from the
// oracle and applies both to name lists and whole trees.
package redundancy

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

var (
	numberedPattern = regexp.MustCompile(`^\s*\d+\.\s*(.+)$`)
	indelParams     = levenshtein.NewParams().SubCost(2)
)

// Normalize lowercases, collapses whitespace and strips punctuation. Two
// texts with equal Normalize output are exact duplicates.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Ratio is the indel similarity of a and b scaled to 0..100.
func Ratio(a, b string) int {
	return round(ratio(a, b))
}

func ratio(a, b string) float64 {
	la, lb := runeLen(a), runeLen(b)
	if la == 0 || lb == 0 {
		return 0
	}
	lensum := float64(la + lb)
	dist := float64(levenshtein.Distance(a, b, indelParams))
	return (lensum - dist) / lensum * 100
}

// PartialRatio is the best Ratio of the shorter string against every window
// of the same length in the longer one.
func PartialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	short := string(ra)
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		r := ratio(short, string(rb[i:i+len(ra)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return round(best)
}

// TokenSortRatio compares the alphabetically sorted token lists.
func TokenSortRatio(a, b string) int {
	return round(ratio(sortedTokens(a), sortedTokens(b)))
}

// TokenSetRatio compares the shared tokens against each side's remainder and
// takes the best pairing, so a name that is a token subset of another scores
// high.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var inter, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := max(ratio(t0, t1), ratio(t0, t2), ratio(t1, t2))
	return round(best)
}

// tokens lowercases and splits on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedTokens(s string) string {
	t := tokens(s)
	sort.Strings(t)
	return strings.Join(t, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}

func runeLen(s string) int {
	return len([]rune(s))
}

func round(f float64) int {
	return int(math.Round(f))
}

func baseThreshold(kind concept.Kind) float64 {
	switch kind {
	case concept.KindSubtopic:
		return 70
	case concept.KindDetail:
		return 65
	}
	return 75
}

// Threshold is the score a pair of texts of length n must exceed to be
// considered redundant.
func Threshold(kind concept.Kind, n int) float64 {
	t := baseThreshold(kind)
	switch {
	case n < 10:
		t = math.Min(t+10, 95)
	case n > 100:
		t = math.Max(t-15, 55)
	}
	switch kind {
	case concept.KindSubtopic:
		t = math.Max(t-10, 60)
	case concept.KindDetail:
		t = math.Max(t-10, 55)
	}
	return t
}

// score weighs the similarity of two normalized texts for kind. ua and ub
// are the same texts with any leading "1." style numbering removed.
func score(a, b, ua, ub string, kind concept.Kind) float64 {
	basic := float64(Ratio(a, b))
	partial := float64(PartialRatio(a, b))
	tsort := float64(TokenSortRatio(a, b))
	tset := float64(TokenSetRatio(a, b))
	if ua != a || ub != b {
		basic = math.Max(basic, float64(Ratio(ua, ub)))
	}

	var final float64
	switch kind {
	case concept.KindSubtopic:
		final = max(basic, partial, tsort*0.95, tset*0.9)
	case concept.KindDetail:
		final = max(basic*0.95, partial*0.9, tsort*0.85, tset*0.8)
	default:
		final = max(basic, tsort*1.1, tset)
	}
	if max(runeLen(a), runeLen(b)) < 30 {
		final *= 1.1
	}
	return final
}

func stripNumber(s string) string {
	if m := numberedPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// IsRedundant reports whether a and b are lexically close enough to count as
// the same item of the given kind. The check is symmetric: lengths are taken
// over the pair rather than from either argument.
func IsRedundant(a, b string, kind concept.Kind) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	la, lb := runeLen(na), runeLen(nb)
	longest, shortest := max(la, lb), min(la, lb)
	if float64(longest-shortest) > float64(shortest)*0.7 {
		return false
	}
	ua, ub := Normalize(stripNumber(a)), Normalize(stripNumber(b))
	return score(na, nb, ua, ub, kind) > Threshold(kind, longest)
}

// SimilarToAny reports whether name is redundant with any of existing.
func SimilarToAny(name string, existing []string, kind concept.Kind) bool {
	return indexSimilar(name, existing, kind) >= 0
}

func indexSimilar(name string, existing []string, kind concept.Kind) int {
	for i, e := range existing {
		if IsRedundant(name, e, kind) {
			return i
		}
	}
	return -1
}
