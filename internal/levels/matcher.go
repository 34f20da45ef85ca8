package levels

import (
	"math"
	"strings"

	"NewsletterDigest/internal/model"
)

const (
	// DefaultTolerance is the widest price distance at which a marker still annotates a level.
	DefaultTolerance = 3.0
	// DefaultDemotedType is the marker category ranked below every other category.
	DefaultDemotedType = "Skyline"
)

// Matcher associates price levels with reference markers.
type Matcher struct {
	Tolerance   float64
	DemotedType string
}

// NewMatcher returns a Matcher with the default tolerance and demoted category.
func NewMatcher() *Matcher {
	return &Matcher{Tolerance: DefaultTolerance, DemotedType: DefaultDemotedType}
}

// FindNearestMarker is Matcher.Find with the default demoted category.
func FindNearestMarker(price float64, markers []model.MarkerRef, tolerance float64) *model.MarkerRef {
	m := Matcher{Tolerance: tolerance, DemotedType: DefaultDemotedType}
	return m.Find(price, markers)
}

// Find returns the marker to attach to price, or nil when none is within
// tolerance. Markers of the demoted category only win when no other category
// is in range; within a tier the first marker in scan order wins.
func (m *Matcher) Find(price float64, markers []model.MarkerRef) *model.MarkerRef {
	var preferred, demoted *model.MarkerRef
	for i := range markers {
		mk := &markers[i]
		if math.Abs(mk.Price-price) > m.Tolerance {
			continue
		}
		if strings.EqualFold(mk.MarkerType, m.DemotedType) {
			if demoted == nil {
				demoted = mk
			}
			continue
		}
		if preferred == nil {
			preferred = mk
		}
	}

	found := preferred
	if found == nil {
		found = demoted
	}
	if found == nil {
		return nil
	}
	ref := *found
	return &ref
}
