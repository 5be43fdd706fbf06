// Package ranking orders groups by their aggregate rating.
package ranking

import (
	"math"
	"sort"
	"strconv"

	"github.com/okian/grouprank/internal/domain/model"
)

// Rank sorts rows by Stats.TotalRating descending and assigns 1-based
// positions. Equal totals keep their input order. Unrounded totals are
// compared. The input slice is not modified.
func Rank(rows []model.RankedGroup) []model.RankedGroup {
	out := make([]model.RankedGroup, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stats.TotalRating > out[j].Stats.TotalRating
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Ordinal renders a position for display: 1st, 2nd, 3rd, then Nth.
func Ordinal(n int) string {
	s := strconv.Itoa(n)
	switch n {
	case 1:
		return s + "st"
	case 2:
		return s + "nd"
	case 3:
		return s + "rd"
	default:
		return s + "th"
	}
}

// Round1 rounds v to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
