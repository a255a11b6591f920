package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "the quick brown fox", b: "the quick brown fox", want: 1},
		{name: "disjoint", a: "alpha beta", b: "gamma delta", want: 0},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "alpha", b: "", want: 0},
		{name: "case and punctuation insensitive", a: "Hello, World!", b: "hello world", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 0.001)
		})
	}
}

func TestSimilarity_PartialOverlap(t *testing.T) {
	// 3 shared tokens, 5 in the union
	got := Similarity("one two three four", "one two three five")
	assert.InDelta(t, 0.6, got, 0.001)
}

func TestNearDuplicate(t *testing.T) {
	assert.True(t, NearDuplicate("breaking news today", "breaking news today", 0.85))
	assert.False(t, NearDuplicate("breaking news today", "totally different words here", 0.85))

	// non-positive threshold falls back to the default
	assert.True(t, NearDuplicate("same text", "same text", 0))
}
