package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is identified by (Username, ProductID).
type Review struct {
	Username  string
	ProductID int64
	Rating    int
	Text      string
	Date      time.Time
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
