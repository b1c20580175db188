package domain

import (
	"fmt"
	"slices"
)

// Candidate is a single playable number set: exactly k unique values in
// [1, poolSize], kept sorted ascending by every producer. This is the
// central unit the generation engine manipulates.
type Candidate []int

// Clone returns an independent copy of the candidate.
func (c Candidate) Clone() Candidate {
	out := make(Candidate, len(c))
	copy(out, c)
	return out
}

// Sum returns the sum of the candidate's numbers.
func (c Candidate) Sum() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Contains reports whether n is part of the candidate.
func (c Candidate) Contains(n int) bool {
	_, found := slices.BinarySearch(c, n)
	return found
}

// Validate checks the structural invariants: length == pick, all values
// unique, all values within [1, poolSize], sorted ascending.
func (c Candidate) Validate(poolSize, pick int) error {
	if len(c) != pick {
		return fmt.Errorf("%w: candidate has %d numbers, want %d", ErrInvalidParameter, len(c), pick)
	}
	for i, n := range c {
		if n < 1 || n > poolSize {
			return fmt.Errorf("%w: number %d outside pool [1, %d]", ErrInvalidParameter, n, poolSize)
		}
		if i > 0 {
			if n == c[i-1] {
				return fmt.Errorf("%w: duplicate number %d", ErrInvalidParameter, n)
			}
			if n < c[i-1] {
				return fmt.Errorf("%w: numbers not sorted ascending", ErrInvalidParameter)
			}
		}
	}
	return nil
}

// HammingDistance returns the size of the symmetric difference between
// two candidates' number sets. Both candidates must be sorted ascending.
// For equal-size sets the distance is always even.
func HammingDistance(a, b Candidate) int {
	i, j, shared := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			shared++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return len(a) + len(b) - 2*shared
}
