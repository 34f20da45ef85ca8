package levels

import (
	"testing"

	"NewsletterDigest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindNearestMarker_DemotedCategoryLoses(t *testing.T) {
	markers := []model.MarkerRef{
		{Price: 100, MarkerType: "A"},
		{Price: 101, MarkerType: "Skyline"},
	}

	got := FindNearestMarker(100.5, markers, 3)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.MarkerType)
	assert.Equal(t, 100.0, got.Price)
}

func TestFindNearestMarker_DemotedBeforePreferredInScanOrder(t *testing.T) {
	markers := []model.MarkerRef{
		{Price: 100.5, MarkerType: "Skyline"},
		{Price: 102, MarkerType: "Weekly"},
	}

	got := FindNearestMarker(100.5, markers, 3)
	require.NotNil(t, got)
	assert.Equal(t, "Weekly", got.MarkerType, "a further non-demoted marker still outranks an exact demoted one")
}

func TestFindNearestMarker(t *testing.T) {
	markers := []model.MarkerRef{
		{Price: 5690, MarkerType: "Daily"},
		{Price: 5702, MarkerType: "Weekly"},
		{Price: 5703, MarkerType: "Monthly"},
		{Price: 5760, MarkerType: "Skyline"},
		{Price: 5762, MarkerType: "skyline"},
	}

	tests := []struct {
		name     string
		price    float64
		wantType string
		wantNil  bool
	}{
		{"no match", 5650, "", true},
		{"single match", 5688, "Daily", false},
		{"earliest preferred wins", 5700, "Weekly", false},
		{"exact tolerance edge", 5687, "Daily", false},
		{"only demoted in range", 5761, "Skyline", false},
		{"just outside tolerance", 5686.9, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindNearestMarker(tt.price, markers, DefaultTolerance)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.MarkerType)
		})
	}
}

func TestFindNearestMarker_EmptyMarkers(t *testing.T) {
	assert.Nil(t, FindNearestMarker(5700, nil, DefaultTolerance))
}

func TestMatcher_CustomDemotedType(t *testing.T) {
	m := &Matcher{Tolerance: 1, DemotedType: "Minor"}
	markers := []model.MarkerRef{
		{Price: 10, MarkerType: "Minor"},
		{Price: 10.5, MarkerType: "Skyline"},
	}

	got := m.Find(10, markers)
	require.NotNil(t, got)
	assert.Equal(t, "Skyline", got.MarkerType)
}

func TestFind_ReturnsCopy(t *testing.T) {
	markers := []model.MarkerRef{{Price: 100, MarkerType: "A"}}

	got := FindNearestMarker(100, markers, 1)
	require.NotNil(t, got)
	got.MarkerType = "changed"
	assert.Equal(t, "A", markers[0].MarkerType)
}
