package level

import (
	"fmt"
	"sort"
	"strings"
)

// Resolve returns the first level of levels (sorted by MinPoints) containing points.
// Gapped or overlapping levels resolve to the first match in list order.
func Resolve(levels []Level, points int) (Level, bool) {
	for _, lvl := range levels {
		if lvl.Contains(points) {
			return lvl, true
		}
	}
	return Level{}, false
}

// Fraction returns how far points went through lvl, in [0, 1].
// Unbounded and single-point levels are always full.
func Fraction(lvl Level, points int) float64 {
	if lvl.MaxPoints == nil || *lvl.MaxPoints <= lvl.MinPoints {
		return 1
	}
	f := float64(points-lvl.MinPoints) / float64(*lvl.MaxPoints-lvl.MinPoints)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Next returns the level that follows the tier points currently fall in:
// the first level starting above points.
func Next(levels []Level, points int) (Level, bool) {
	for _, lvl := range levels {
		if lvl.MinPoints > points {
			return lvl, true
		}
	}
	return Level{}, false
}

// ResolveJourney combines Resolve, Fraction and Next.
func ResolveJourney(levels []Level, points int) Journey {
	j := Journey{Points: points}
	if cur, ok := Resolve(levels, points); ok {
		j.Current = &cur
		j.Fraction = Fraction(cur, points)
	}
	if next, ok := Next(levels, points); ok {
		j.Next = &next
		j.PointsToNext = next.MinPoints - points
	}
	return j
}

// Issue kinds
const (
	IssueGap      = "gap"
	IssueOverlap  = "overlap"
	IssueBounds   = "bounds"
	IssueNoBottom = "no_bottom"
)

type Issue struct {
	Kind   string `json:"kind"`
	Level  string `json:"level"`
	Detail string `json:"detail"`
}

func (iss Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", iss.Kind, iss.Level, iss.Detail)
}

// IntegrityError lists the problems found by Validate.
type IntegrityError struct {
	Issues []Issue
}

func (err *IntegrityError) Error() string {
	msgs := make([]string, len(err.Issues))
	for i, iss := range err.Issues {
		msgs[i] = iss.String()
	}
	return "invalid levels: " + strings.Join(msgs, "; ")
}

// Validate checks that levels form a contiguous ladder starting at 0 points:
// every level ends right before the next one starts and only the last one may be unbounded.
// It returns nil or an *IntegrityError.
func Validate(levels []Level) error {
	if len(levels) == 0 {
		return nil
	}
	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	var issues []Issue
	if sorted[0].MinPoints > 0 {
		issues = append(issues, Issue{
			Kind:   IssueNoBottom,
			Level:  sorted[0].Name,
			Detail: fmt.Sprintf("points 0..%d have no level", sorted[0].MinPoints-1),
		})
	}
	for i, lvl := range sorted {
		if lvl.MaxPoints != nil && *lvl.MaxPoints < lvl.MinPoints {
			issues = append(issues, Issue{
				Kind:   IssueBounds,
				Level:  lvl.Name,
				Detail: fmt.Sprintf("max %d is below min %d", *lvl.MaxPoints, lvl.MinPoints),
			})
			continue
		}
		if i == len(sorted)-1 {
			break
		}
		next := sorted[i+1]
		if lvl.MaxPoints == nil {
			issues = append(issues, Issue{
				Kind:   IssueOverlap,
				Level:  lvl.Name,
				Detail: fmt.Sprintf("unbounded level overlaps %q", next.Name),
			})
			continue
		}
		switch end := *lvl.MaxPoints; {
		case next.MinPoints > end+1:
			issues = append(issues, Issue{
				Kind:   IssueGap,
				Level:  lvl.Name,
				Detail: fmt.Sprintf("points %d..%d have no level", end+1, next.MinPoints-1),
			})
		case next.MinPoints <= end:
			issues = append(issues, Issue{
				Kind:   IssueOverlap,
				Level:  lvl.Name,
				Detail: fmt.Sprintf("overlaps %q on points %d..%d", next.Name, next.MinPoints, end),
			})
		}
	}

	if len(issues) > 0 {
		return &IntegrityError{Issues: issues}
	}
	return nil
}
