package letterboxd

import "testing"

func TestDecodeRating(t *testing.T) {
	cases := []struct {
		token    string
		expected float64
	}{
		{token: "½", expected: 0.5},
		{token: "★", expected: 1},
		{token: "★½", expected: 1.5},
		{token: "★★", expected: 2},
		{token: "★★½", expected: 2.5},
		{token: "★★★", expected: 3},
		{token: "★★★½", expected: 3.5},
		{token: "★★★★", expected: 4},
		{token: "★★★★½", expected: 4.5},
		{token: "★★★★★", expected: 5},
		{token: "  ★★★½\n", expected: 3.5},
		{token: "", expected: Unrated},
		{token: "★★★★★★", expected: Unrated},
		{token: "½★", expected: Unrated},
		{token: "3.5", expected: Unrated},
	}

	for _, test := range cases {
		got := DecodeRating(test.token)
		if got != test.expected {
			t.Errorf("DecodeRating(%q) = %v, expected %v", test.token, got, test.expected)
		}
	}
}

func TestDecodedRatingsAreOnTheHalfStarScale(t *testing.T) {
	for token := range ratingGlyphs {
		value := DecodeRating(token)
		if value < 0.5 || value > 5 {
			t.Errorf("%q decoded out of range: %v", token, value)
		}
		if value*2 != float64(int(value*2)) {
			t.Errorf("%q decoded off the half star scale: %v", token, value)
		}
	}
}
