package model

import "time"

const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

type LifeArea struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	UserID      string    `json:"userId"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
