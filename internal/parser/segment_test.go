package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedSegmenter []string

func (f fixedSegmenter) Sentences(string) []string { return f }

func TestRegexSegmenter(t *testing.T) {
	got := RegexSegmenter{}.Sentences("Buy 5700.25 dips.  Avoid chasing!\nWait for\nconfirmation")

	assert.Equal(t, []string{"Buy 5700.25 dips.", "Avoid chasing!", "Wait for confirmation"}, got)
	assert.Nil(t, RegexSegmenter{}.Sentences("  "))
}

func TestPlanSummary(t *testing.T) {
	t.Run("first sentence of plan", func(t *testing.T) {
		assert.Equal(t, "Longs only above 5700.", PlanSummary("", "Longs only above 5700. Shorts below 5650.", nil))
	})

	t.Run("plan summary section wins", func(t *testing.T) {
		doc := Normalize("Plan Summary\nStay patient\nand flat.")
		assert.Equal(t, "Stay patient and flat.", PlanSummary(doc, "Longs only above 5700.", nil))
	})

	t.Run("injected segmenter", func(t *testing.T) {
		assert.Equal(t, "custom", PlanSummary("", "anything", fixedSegmenter{"custom", "other"}))
	})

	t.Run("empty plan", func(t *testing.T) {
		assert.Equal(t, "", PlanSummary("", "", nil))
	})
}
