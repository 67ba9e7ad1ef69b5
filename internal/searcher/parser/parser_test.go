package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		search    []string
		excluded  []string
		highlight []string
		objects   []string
	}{
		{
			name:      "single word is stemmed",
			query:     "Optimization",
			search:    []string{"optim"},
			highlight: []string{"optimization"},
			objects:   []string{"optimization"},
		},
		{
			name:      "stop words and numbers dropped",
			query:     "the CHSH inequality 2",
			search:    []string{"chsh", "inequ"},
			highlight: []string{"chsh", "inequality"},
			objects:   []string{"the", "chsh", "inequality", "2"},
		},
		{
			name:      "exclusion",
			query:     "network -tomography",
			search:    []string{"network"},
			excluded:  []string{"tomographi"},
			highlight: []string{"network"},
			objects:   []string{"network", "tomography"},
		},
		{
			name:      "dotted names split",
			query:     "qnetvo.NetworkAnsatz",
			search:    []string{"qnetvo", "networkansatz"},
			highlight: []string{"qnetvo", "networkansatz"},
			objects:   []string{"qnetvo", "networkansatz"},
		},
		{
			name:      "duplicates collapse",
			query:     "prepare prepare",
			search:    []string{"prepar"},
			highlight: []string{"prepare"},
			objects:   []string{"prepare"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.search, plan.SearchTerms)
			assert.Equal(t, tt.excluded, plan.ExcludedTerms)
			assert.Equal(t, tt.highlight, plan.HighlightTerms)
			assert.Equal(t, tt.objects, plan.ObjectTerms)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "-"} {
		plan := Parse(q)
		assert.Empty(t, plan.SearchTerms, q)
	}
	assert.True(t, Parse("  ").Empty())
	assert.False(t, Parse("the").Empty(), "stop words still reach title and object search")
}

func TestParseLowerTrimmed(t *testing.T) {
	assert.Equal(t, "chsh inequality", Parse("  CHSH Inequality ").Lower)
}

func TestParseLowerCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "chsh inequality", Parse("CHSH  \tInequality").Lower)
	assert.Equal(t, Normalize("CHSH Inequality"), Parse("chsh   inequality").Lower)
}
