// Package wheel summarizes a life-area wheel: average score, rating bands
// and the areas that most need attention.
package wheel

import (
	"math"
	"sort"

	"github.com/dukerupert/precrastine/internal/model"
)

type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingFair             Rating = "fair"
	RatingNeedsImprovement Rating = "needs_improvement"
)

// Rate maps a score to its band.
func Rate(score float64) Rating {
	switch {
	case score >= 8:
		return RatingExcellent
	case score >= 6:
		return RatingGood
	case score >= 4:
		return RatingFair
	default:
		return RatingNeedsImprovement
	}
}

// Average returns the mean score rounded to one decimal, or 0 for no areas.
func Average(areas []model.LifeArea) float64 {
	if len(areas) == 0 {
		return 0
	}
	sum := 0
	for _, a := range areas {
		sum += a.Score
	}
	return round1(float64(sum) / float64(len(areas)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Weakest returns up to n areas with the lowest scores. Ties keep wheel order.
func Weakest(areas []model.LifeArea, n int) []model.LifeArea {
	sorted := make([]model.LifeArea, len(areas))
	copy(sorted, areas)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	if n < len(sorted) {
		sorted = sorted[:max(n, 0)]
	}
	return sorted
}

type AreaRating struct {
	model.LifeArea
	Rating Rating `json:"rating"`
}

type Summary struct {
	Average float64      `json:"average"`
	Rating  Rating       `json:"rating"`
	Areas   []AreaRating `json:"areas"`
	Focus   []string     `json:"focus"`
}

// FocusCount is how many of the weakest areas a summary suggests working on.
const FocusCount = 3

func Summarize(areas []model.LifeArea) Summary {
	avg := Average(areas)
	s := Summary{
		Average: avg,
		Rating:  Rate(avg),
		Areas:   make([]AreaRating, 0, len(areas)),
		Focus:   []string{},
	}
	for _, a := range areas {
		s.Areas = append(s.Areas, AreaRating{LifeArea: a, Rating: Rate(float64(a.Score))})
	}
	for _, a := range Weakest(areas, FocusCount) {
		s.Focus = append(s.Focus, a.ID)
	}
	return s
}
