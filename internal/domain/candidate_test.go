package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		poolSize  int
		pick      int
		wantErr   bool
	}{
		{"valid", Candidate{3, 11, 24, 37, 45, 58}, 60, 6, false},
		{"wrong length", Candidate{1, 2, 3}, 60, 6, true},
		{"duplicate", Candidate{1, 2, 2, 4, 5, 6}, 60, 6, true},
		{"out of range high", Candidate{1, 2, 3, 4, 5, 61}, 60, 6, true},
		{"out of range low", Candidate{0, 2, 3, 4, 5, 6}, 60, 6, true},
		{"unsorted", Candidate{2, 1, 3, 4, 5, 6}, 60, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candidate.Validate(tt.poolSize, tt.pick)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHammingDistance(t *testing.T) {
	a := Candidate{1, 2, 3, 4, 5, 6}

	assert.Equal(t, 0, HammingDistance(a, Candidate{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, 2, HammingDistance(a, Candidate{1, 2, 3, 4, 5, 7}))
	assert.Equal(t, 12, HammingDistance(a, Candidate{7, 8, 9, 10, 11, 12}))

	// Symmetric.
	b := Candidate{4, 5, 6, 7, 8, 9}
	assert.Equal(t, HammingDistance(a, b), HammingDistance(b, a))
}

func TestCandidateCloneIsIndependent(t *testing.T) {
	a := Candidate{1, 2, 3}
	b := a.Clone()
	b[0] = 99

	assert.Equal(t, 1, a[0])
	assert.Equal(t, 99, b[0])
}

func TestStrategyValid(t *testing.T) {
	assert.True(t, Strategy("").Valid())
	assert.True(t, StrategyHot.Valid())
	assert.True(t, StrategyCorrelated.Valid())
	assert.False(t, Strategy("quantum").Valid())
}
