package bureau

import "math"

// AggregateScores returns the rounded mean of the non-nil scores, or 0 when
// there are none. The zero keeps summary fields non-optional.
func AggregateScores(scores []*int) int {
	sum, n := 0, 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
