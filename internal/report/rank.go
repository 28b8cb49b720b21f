package report

import (
	"boxdstats/internal/dataset"
	"math"
	"sort"
	"strconv"
)

func formatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', 1, 64)
}

type tally struct {
	name        string
	link        string
	appearances int
	count       float64
	liked       float64
	ratingSum   float64
}

func (t *tally) add(film dataset.Film, weight float64) {
	t.appearances++
	t.count += weight
	if film.Liked {
		t.liked += weight
	}
	t.ratingSum += film.UserRating
}

type tallies struct {
	order []string
	byKey map[string]*tally
}

func (t *tallies) get(key, name, link string) *tally {
	if t.byKey == nil {
		t.byKey = map[string]*tally{}
	}
	entry, ok := t.byKey[key]
	if !ok {
		entry = &tally{name: name, link: link}
		t.byKey[key] = entry
		t.order = append(t.order, key)
	}
	return entry
}

func (t *tallies) list() []*tally {
	out := make([]*tally, len(t.order))
	for i, key := range t.order {
		out[i] = t.byKey[key]
	}
	return out
}

// rankCredits tallies people across the user's films. With `weighted` each credit
// counts for 1 - order/n where n is the size of the film's cast, so leads weigh more
// than the rest of the cast. This assumes the cast list is in billing order.
func rankCredits(credits []dataset.Credit, films map[int64]dataset.Film, weighted bool) []*tally {
	castSize := map[int64]int{}
	for _, c := range credits {
		castSize[c.FilmId]++
	}

	var t tallies
	for _, c := range credits {
		film, ok := films[c.FilmId]
		if !ok {
			continue
		}
		weight := 1.0
		if weighted {
			weight = 1 - float64(c.CreditOrder)/float64(castSize[c.FilmId])
		}
		t.get(c.Name+"\x00"+c.Link, c.Name, c.Link).add(film, weight)
	}
	return t.list()
}

func rankAttributes(attributes []dataset.Attribute, films map[int64]dataset.Film) []*tally {
	var t tallies
	for _, a := range attributes {
		film, ok := films[a.FilmId]
		if !ok {
			continue
		}
		t.get(a.Name, a.Name, "").add(film, 1)
	}
	return t.list()
}

// standardize returns the z-scores of values, a column without variance scores 0.
func standardize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(values)))
	if std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// top drops entries that appear `minAppearances` times or less, scores the rest and
// returns the best n.
func top(entries []*tally, n int, minAppearances float64) []Ranked {
	var kept []Ranked
	for _, e := range entries {
		if float64(e.appearances) <= minAppearances {
			continue
		}
		kept = append(kept, Ranked{
			Name:       e.name,
			Link:       e.link,
			Count:      e.count,
			Liked:      e.liked,
			MeanRating: e.ratingSum / float64(e.appearances),
		})
	}

	column := func(get func(Ranked) float64) []float64 {
		values := make([]float64, len(kept))
		for i, r := range kept {
			values[i] = get(r)
		}
		return standardize(values)
	}
	counts := column(func(r Ranked) float64 { return r.Count })
	liked := column(func(r Ranked) float64 { return r.Liked })
	ratings := column(func(r Ranked) float64 { return r.MeanRating })
	for i := range kept {
		kept[i].Score = counts[i] + liked[i] + ratings[i]
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Name < kept[j].Name
	})
	if n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	return kept
}
