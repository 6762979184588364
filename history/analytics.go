package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/graph"
)

// Trend labels for debt projections.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDegrading = "degrading"
)

// Hotspot is a module ranked by its violation count in the current scan.
type Hotspot struct {
	Module string `json:"module"`
	Count  int    `json:"count"`
}

// DebtProjection extrapolates the violation trajectory from the timeline.
type DebtProjection struct {
	Velocity       float64   `json:"velocity"`
	Projection30d  int       `json:"projection_30d"`
	Trend          string    `json:"trend"`
	Hotspots       []Hotspot `json:"hotspots"`
	Recommendation string    `json:"recommendation"`
}

// Velocity is the mean violation delta per day over consecutive snapshot
// pairs. Pairs closer together than a measurable interval are skipped.
// The second return is false when fewer than two usable snapshots exist.
func Velocity(snaps []Snapshot) (float64, bool) {
	var deltas []float64
	for i := 1; i < len(snaps); i++ {
		earlier, err := time.Parse(time.RFC3339, snaps[i-1].Timestamp)
		if err != nil {
			continue
		}
		later, err := time.Parse(time.RFC3339, snaps[i].Timestamp)
		if err != nil {
			continue
		}
		days := later.Sub(earlier).Hours() / 24
		if days <= 0 {
			continue
		}
		deltas = append(deltas, float64(snaps[i].Total()-snaps[i-1].Total())/days)
	}
	if len(deltas) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, d := range deltas {
		sum += d
	}
	return sum / float64(len(deltas)), true
}

// TrendOf classifies a velocity. Movement within half a violation per day
// in either direction counts as stable.
func TrendOf(velocity float64) string {
	switch {
	case velocity > 0.5:
		return TrendDegrading
	case velocity < -0.5:
		return TrendImproving
	default:
		return TrendStable
	}
}

// Hotspots ranks modules by violation count, highest first, top three.
// Ties break alphabetically so output is stable across runs.
func Hotspots(violations []engine.Violation) []Hotspot {
	counts := map[string]int{}
	for _, v := range violations {
		if v.File == "" {
			continue
		}
		counts[graph.FileModule(v.File)]++
	}

	spots := make([]Hotspot, 0, len(counts))
	for mod, n := range counts {
		spots = append(spots, Hotspot{Module: mod, Count: n})
	}
	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Count != spots[j].Count {
			return spots[i].Count > spots[j].Count
		}
		return spots[i].Module < spots[j].Module
	})
	if len(spots) > 3 {
		spots = spots[:3]
	}
	return spots
}

// Project builds a debt projection from the timeline and the current
// scan's violations. It returns nil when the timeline is too short to
// measure a velocity.
func Project(snaps []Snapshot, current []engine.Violation) *DebtProjection {
	velocity, ok := Velocity(snaps)
	if !ok {
		return nil
	}

	projection := int(math.Round(velocity * 30))
	if projection < 0 {
		projection = 0
	}

	trend := TrendOf(velocity)
	return &DebtProjection{
		Velocity:       math.Round(velocity*100) / 100,
		Projection30d:  projection,
		Trend:          trend,
		Hotspots:       Hotspots(current),
		Recommendation: recommendation(trend, projection),
	}
}

func recommendation(trend string, projection int) string {
	switch trend {
	case TrendDegrading:
		return fmt.Sprintf("violations are accumulating; on the current pace expect roughly %d more within 30 days. Schedule debt reduction for the top hotspots.", projection)
	case TrendImproving:
		return "violations are trending down; keep the current pace."
	default:
		return "violation count is flat; target the top hotspots to make progress."
	}
}
