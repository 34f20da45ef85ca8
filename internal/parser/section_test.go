package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSections_Order(t *testing.T) {
	doc := Normalize(sampleNewsletter)
	spans := Sections(doc)

	var names []string
	for _, s := range spans {
		names = append(names, s.Name)
		assert.False(t, s.Malformed, s.Name)
	}
	assert.Equal(t, []string{
		MarketSummarySection,
		MarketCommentarySection,
		KeyLevelsSection,
		"Trade Plan Monday",
		ClosingSection,
	}, names)
}

func TestLookup(t *testing.T) {
	doc := Normalize(sampleNewsletter)

	text, err := Lookup(doc, MarketCommentarySection)
	require.NoError(t, err)
	assert.Equal(t, "Buyers defended the lows again.\n\nSellers could not extend below 5650.", text)

	text, err = Lookup(doc, KeyLevelsSection)
	require.NoError(t, err)
	assert.Contains(t, text, "5650: strong historical pivot")
	assert.NotContains(t, text, "Supports are")

	text, err = Lookup(doc, TradePlanSection)
	require.NoError(t, err, "weekday form resolves the canonical trade plan")
	assert.Contains(t, text, "Supports are:")

	text, err = Lookup(doc, MarketSummarySection)
	require.NoError(t, err)
	assert.Equal(t, "Futures chopped all session and closed flat.", text)
}

func TestLookup_Missing(t *testing.T) {
	doc := Normalize("Just a paragraph")

	_, err := Lookup(doc, KeyLevelsSection)
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Equal(t, "", ExtractSection(doc, KeyLevelsSection))
}

func TestLookup_Malformed(t *testing.T) {
	t.Run("no end marker", func(t *testing.T) {
		doc := "[[Key Levels]]Key Levels\n\n5650: pivot"
		_, err := Lookup(doc, KeyLevelsSection)
		assert.ErrorIs(t, err, ErrMalformedSection)
		assert.Equal(t, "", ExtractSection(doc, KeyLevelsSection))
	})

	t.Run("repeated marker", func(t *testing.T) {
		doc := "[[Key Levels]][[/Key Levels]]\na\n[[Key Levels]][[/Key Levels]]\nb"
		_, err := Lookup(doc, KeyLevelsSection)
		assert.ErrorIs(t, err, ErrMalformedSection)
	})
}

func TestLookup_EmptyDocument(t *testing.T) {
	assert.Equal(t, "", ExtractSection("", TradePlanSection))
}

func TestLookup_BracketsInContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"inside a line", "Key Levels\n5650: pivot [[x]] more\n5600: y", "5650: pivot [[x]] more\n5600: y"},
		{"at line start", "Key Levels\n[[x]] more\n5600: y", "[[x]] more\n5600: y"},
		{"end marker text", "Key Levels\n5650: [[/Key Levels]] pivot\n5600: y", "5650: [[/Key Levels]] pivot\n5600: y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Normalize(tt.raw)

			text, err := Lookup(doc, KeyLevelsSection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)

			var names []string
			for _, s := range Sections(doc) {
				names = append(names, s.Name)
			}
			assert.Equal(t, []string{MarketSummarySection, KeyLevelsSection, ClosingSection}, names)
		})
	}
}
