// Package correlation computes pairwise co-occurrence scores from
// historical draws. Scores measure how far a pair's observed
// co-occurrence deviates from the count expected under independence.
package correlation

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Pair is an unordered number pair key with Lo < Hi.
type Pair struct {
	Lo int
	Hi int
}

// MakePair builds the canonical key for (i, j). Self-pairs are not
// representable; ok is false when i == j.
func MakePair(i, j int) (Pair, bool) {
	if i == j {
		return Pair{}, false
	}
	if i < j {
		return Pair{Lo: i, Hi: j}, true
	}
	return Pair{Lo: j, Hi: i}, true
}

// Entry is one scored pair, used for API listings.
type Entry struct {
	A     int     `json:"a"`
	B     int     `json:"b"`
	Score float64 `json:"score"`
}

// Matrix is a sparse symmetric map of pair scores. Entries with
// |score| below the builder's threshold are omitted to bound memory;
// Score returns 0 for omitted, unknown and self pairs.
type Matrix struct {
	LotteryID     string
	PoolSize      int
	BuiltAt       time.Time
	latestContest int64
	drawCount     int
	scores        map[Pair]float64
}

// Score returns the score for the pair (i, j). Symmetric:
// Score(i, j) == Score(j, i). Self-pairs score 0.
func (m *Matrix) Score(i, j int) float64 {
	key, ok := MakePair(i, j)
	if !ok {
		return 0
	}
	return m.scores[key]
}

// Len returns the number of retained pair entries.
func (m *Matrix) Len() int {
	return len(m.scores)
}

// DrawCount returns the number of draws the matrix was built from.
func (m *Matrix) DrawCount() int {
	return m.drawCount
}

// LatestContest returns the most recent contest id seen at build time.
func (m *Matrix) LatestContest() int64 {
	return m.latestContest
}

// Entries returns all retained pairs sorted by |score| descending,
// ties broken by (Lo, Hi) ascending for stable output.
func (m *Matrix) Entries() []Entry {
	out := make([]Entry, 0, len(m.scores))
	for pair, score := range m.scores {
		out = append(out, Entry{A: pair.Lo, B: pair.Hi, Score: score})
	}
	sort.Slice(out, func(a, b int) bool {
		sa, sb := abs(out[a].Score), abs(out[b].Score)
		if sa != sb {
			return sa > sb
		}
		if out[a].A != out[b].A {
			return out[a].A < out[b].A
		}
		return out[a].B < out[b].B
	})
	return out
}

// Summary describes the retained score distribution.
type Summary struct {
	Pairs  int     `json:"pairs"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary computes distribution statistics over retained scores.
func (m *Matrix) Summary() Summary {
	if len(m.scores) == 0 {
		return Summary{}
	}

	values := make([]float64, 0, len(m.scores))
	for _, s := range m.scores {
		values = append(values, s)
	}
	sort.Float64s(values)

	return Summary{
		Pairs:  len(values),
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Min:    values[0],
		Max:    values[len(values)-1],
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
