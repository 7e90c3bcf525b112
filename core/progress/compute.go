package progress

import (
	"math"

	"github.com/pkg/errors"
)

const (
	MinPercent = 0
	MaxPercent = 100
	FirstPage  = 1
)

var ErrInvalidRange = errors.New("value out of range")

// ComputeProgress returns the course percentage once the lesson at index (0-based) of total lessons
// is completed: round((index+1)/total*100), halves rounded up.
func ComputeProgress(index, total int) (int, error) {
	if total < 1 {
		return 0, errors.Wrap(ErrInvalidRange, "course has no lessons")
	}
	if index < 0 || index >= total {
		return 0, errors.Wrapf(ErrInvalidRange, "lesson index %d not in [0, %d)", index, total)
	}
	return int(math.Round(float64(index+1) / float64(total) * 100)), nil
}

// ClampPercent bounds p to [MinPercent, MaxPercent].
func ClampPercent(p int) int {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// ClampPage bounds page to [FirstPage, totalPages].
func ClampPage(page, totalPages int) (int, error) {
	if totalPages < FirstPage {
		return 0, errors.Wrap(ErrInvalidRange, "ebook has no pages")
	}
	if page < FirstPage {
		return FirstPage, nil
	}
	if page > totalPages {
		return totalPages, nil
	}
	return page, nil
}
