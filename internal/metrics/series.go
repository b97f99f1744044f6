package metrics

import (
	"fmt"
)

// Time units for exported per-frame series.
var secondsMultiplier = map[string]float64{
	"s":    1,
	"min":  1.0 / 60,
	"h":    1.0 / (60 * 60),
	"days": 1.0 / (24 * 60 * 60),
}

// TimePoints returns the elapsed time of each of n flow frames in the
// requested unit ("s", "min", "h" or "days"), derived from the nominal
// frame interval.
func TimePoints(n int, fintervalMs float64, tunit string) ([]float64, error) {
	mult, ok := secondsMultiplier[tunit]
	if !ok {
		return nil, fmt.Errorf("time unit has to be one of s, min, h, days; got %q", tunit)
	}

	perFrame := mult * fintervalMs / 1000
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * perFrame
	}
	return out, nil
}
