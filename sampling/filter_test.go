package sampling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter sampling.Filter
		labels []string
		want   bool
	}{
		{"any accepts labelled", sampling.MatchAny(), []string{"Paper"}, true},
		{"any accepts unlabelled", sampling.MatchAny(), nil, true},
		{"zero value is any", sampling.Filter{}, []string{"X"}, true},
		{"one of hit", sampling.OneOf("Paper", "Author"), []string{"Venue", "Author"}, true},
		{"one of miss", sampling.OneOf("Paper"), []string{"Author"}, false},
		{"one of unlabelled", sampling.OneOf("Paper"), nil, false},
		{"empty one of", sampling.OneOf(), []string{"Paper"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.MatchesAny(tc.labels))
		})
	}
}

func TestFilter_Names(t *testing.T) {
	f := sampling.OneOf("b", "a", "b")
	assert.False(t, f.IsAny())
	assert.Equal(t, []string{"a", "b"}, f.Names())
	assert.True(t, f.Matches("a"))
	assert.False(t, f.Matches("c"))
	assert.Equal(t, "[a,b]", f.String())

	assert.Nil(t, sampling.MatchAny().Names())
	assert.Equal(t, "*", sampling.MatchAny().String())
}
