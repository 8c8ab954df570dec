package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchKeywords(t *testing.T) {
	records := sampleRecords()
	tests := []struct {
		query string
		want  []string
	}{
		{"A123", []string{"A12345-B"}},
		{"a123", []string{"A12345-B"}},
		{"steel bolt", []string{"A12345-B"}},
		{"BOLT   steel", []string{"A12345-B"}},
		{"A123 bolt", []string{}},
		{"pipe", []string{"C300", "D400"}},
		{"nut brass", []string{"B200"}},
		{"00", []string{"B200", "C300", "D400", "E500"}},
		{"titanium", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, itemNos(SearchKeywords(tt.query, records)))
		})
	}
}

func TestSearchKeywords_BlankQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		got := SearchKeywords(q, sampleRecords())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestSearchKeywords_NoRecords(t *testing.T) {
	assert.Empty(t, SearchKeywords("bolt", nil))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"steel", "hex", "bolt"}, Tokenize("  Steel\tHEX\nbolt "))
	assert.Empty(t, Tokenize(" "))
}
