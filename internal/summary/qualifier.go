// Package summary builds revenue potential narratives from column statistics and
// writes them into a text field of a tabular data source.
package summary

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrLookupMiss is returned when a floored deviation has no qualifier.
var ErrLookupMiss = eris.New("summary: deviation outside qualifier range")

// qualifiers maps a floored standard deviation to a single-metric qualifier.
var qualifiers = map[int]string{
	3:  "exceptionally strong",
	2:  "very strong",
	1:  "strong",
	0:  "positive",
	-1: "weak",
	-2: "very weak",
	-3: "exceptionally weak",
}

// combinedQualifiers maps the sum of two floored deviations to a qualifier.
var combinedQualifiers = map[int]string{
	6:  "very exceptional",
	5:  "exceptional",
	4:  "very strong",
	3:  "strong",
	2:  "good",
	1:  "above average",
	0:  "average",
	-1: "below average",
	-2: "sub par",
	-3: "weak",
	-4: "very weak",
	-5: "poor",
	-6: "very poor",
}

// Qualifier returns the descriptive word for a standard deviation, floored to
// its integer bucket. Buckets outside [-3, 3] wrap ErrLookupMiss.
func Qualifier(deviation float64) (string, error) {
	bucket, err := floorBucket(deviation)
	if err != nil {
		return "", err
	}
	q, ok := qualifiers[bucket]
	if !ok {
		return "", eris.Wrapf(ErrLookupMiss, "summary: no qualifier for bucket %d", bucket)
	}
	return q, nil
}

// CombinedQualifier floors both deviations independently and looks up their sum.
// Sums outside [-6, 6] wrap ErrLookupMiss.
func CombinedQualifier(grossDeviation, averageDeviation float64) (string, error) {
	gross, err := floorBucket(grossDeviation)
	if err != nil {
		return "", err
	}
	average, err := floorBucket(averageDeviation)
	if err != nil {
		return "", err
	}
	q, ok := combinedQualifiers[gross+average]
	if !ok {
		return "", eris.Wrapf(ErrLookupMiss, "summary: no combined qualifier for bucket %d", gross+average)
	}
	return q, nil
}

// floorBucket floors v. Values that cannot be represented as a small integer
// (NaN, infinities, magnitudes past int32) are lookup misses rather than
// silently wrapping.
func floorBucket(v float64) (int, error) {
	f := math.Floor(v)
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, eris.Wrapf(ErrLookupMiss, "summary: deviation %v has no bucket", v)
	}
	return int(f), nil
}
