package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilar(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"ABC Store", "abc store", true},
		{"  ABC Store ", "abc store", true},
		{"A", "Alpha Mart", true},
		{"Alpha Mart", "A", true},
		{"Beta", "Gamma", false},
		{"Mart Alpha", "Alpha Mart", false},
		{"Big Bazaar", "Big Bazaar Express", true},
		{"BÜFE ÇAĞ", "büfe çağ", true},
	}

	var m NameMatcher
	for _, tc := range tests {
		t.Run(tc.a+"|"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.expected, m.Similar(tc.a, tc.b))
		})
	}
}

// An empty name is a substring of every name, so a shop with no name looks
// like a duplicate of any neighbour. This documents the current policy.
func TestSimilarEmptyNameIsVacuouslyTrue(t *testing.T) {
	var m NameMatcher
	assert.True(t, m.Similar("", "Gamma"))
	assert.True(t, m.Similar("Gamma", "   "))
	assert.True(t, m.Similar("", ""))
}

func TestSimilarFoldAccents(t *testing.T) {
	assert.False(t, NameMatcher{}.Similar("Café Roma", "cafe roma"))
	assert.True(t, NameMatcher{FoldAccents: true}.Similar("Café Roma", "cafe roma"))
	assert.True(t, NameMatcher{FoldAccents: true}.Similar("Ñandú", "nandu kiosk"))
}

func TestNormalize(t *testing.T) {
	var m NameMatcher
	assert.Equal(t, "abc store", m.Normalize("  ABC Store\t"))
	assert.Equal(t, "", m.Normalize(""))
}
