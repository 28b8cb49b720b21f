package letterboxd

import "strings"

// Unrated is returned by DecodeRating for films the user has logged without a rating.
const Unrated float64 = -1

var ratingGlyphs = map[string]float64{
	"½":     0.5,
	"★":     1,
	"★½":    1.5,
	"★★":    2,
	"★★½":   2.5,
	"★★★":   3,
	"★★★½":  3.5,
	"★★★★":  4,
	"★★★★½": 4.5,
	"★★★★★": 5,
}

// DecodeRating maps a star token like "★★★½" to its numeric value. Empty or unknown
// tokens decode to Unrated.
func DecodeRating(token string) float64 {
	value, ok := ratingGlyphs[strings.TrimSpace(token)]
	if !ok {
		return Unrated
	}
	return value
}
