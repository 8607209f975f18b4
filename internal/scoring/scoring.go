// Package scoring turns answer timing into points and keeps a run's tally.
package scoring

import (
	"math"
	"time"
)

const (
	// FloorPoints is awarded for any correct answer slower than the last step,
	// and whenever the round has no recorded start.
	FloorPoints = 10

	// CompletionBonus is added once when every item of a round set is matched.
	CompletionBonus = 50
)

type step struct {
	upTo   time.Duration
	points int
}

// Evaluated in order, first match wins. Bounds are inclusive.
var decay = []step{
	{1 * time.Second, 100},
	{2 * time.Second, 90},
	{3 * time.Second, 80},
	{4 * time.Second, 70},
	{5 * time.Second, 60},
	{6 * time.Second, 50},
	{7 * time.Second, 40},
	{8 * time.Second, 30},
	{9 * time.Second, 20},
}

// PointsForElapsed maps the decision time of a correct answer to points.
// A negative elapsed time counts as an instant answer.
func PointsForElapsed(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	for _, s := range decay {
		if elapsed <= s.upTo {
			return s.points
		}
	}
	return FloorPoints
}

// PointsForSeconds is PointsForElapsed for fractional seconds. NaN and
// anything past the last step earn FloorPoints; negatives count as zero.
func PointsForSeconds(seconds float64) int {
	last := decay[len(decay)-1].upTo.Seconds()
	switch {
	case math.IsNaN(seconds), seconds > last:
		return FloorPoints
	case seconds < 0:
		seconds = 0
	}
	return PointsForElapsed(time.Duration(seconds * float64(time.Second)))
}

// PointsBetween scores an answer judged at now for a round started at start.
// A zero start means no first input was registered and yields FloorPoints.
func PointsBetween(start, now time.Time) int {
	if start.IsZero() {
		return FloorPoints
	}
	return PointsForElapsed(now.Sub(start))
}
