package dataset

import (
	"time"
)

// Snapshot is the set of film ids already present in a persisted dataset.
type Snapshot map[int64]struct{}

func NewSnapshot(ids ...int64) Snapshot {
	snapshot := make(Snapshot, len(ids))
	for _, id := range ids {
		snapshot[id] = struct{}{}
	}
	return snapshot
}

func (s Snapshot) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// With returns a copy of the snapshot that also contains ids, the receiver is left as is.
func (s Snapshot) With(ids ...int64) Snapshot {
	out := make(Snapshot, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Delta returns the films of fresh whose id is not in the snapshot, each id once, in
// the order of fresh.
func Delta(snapshot Snapshot, fresh []Film) []Film {
	var out []Film
	seen := make(map[int64]bool, len(fresh))
	for _, f := range fresh {
		if snapshot.Has(f.Id) || seen[f.Id] {
			continue
		}
		seen[f.Id] = true
		out = append(out, f)
	}
	return out
}

// Run identifies one merge, every row it appends is stamped with it.
type Run struct {
	Id   string
	Date time.Time
}

// Dataset is the persisted film metadata, shared across users.
type Dataset struct {
	Films     []StoredFilm
	Actors    []Credit
	Directors []Credit
	Genres    []Attribute
	Themes    []Attribute
	Countries []Attribute
	Languages []Attribute
}

func (d Dataset) Snapshot() Snapshot {
	snapshot := make(Snapshot, len(d.Films))
	for _, f := range d.Films {
		snapshot[f.Id] = struct{}{}
	}
	return snapshot
}

// Merge appends the films of fresh that old does not know about, stamped with run. It
// returns the merged dataset and the appended rows. Rows of films old already has are
// ignored, old is never modified.
func Merge(old Dataset, fresh Tables, run Run) (Dataset, Tables) {
	films, added := Append(old.Snapshot(), fresh, run)
	merged := Dataset{
		Films:     append(cloneSlice(old.Films), films...),
		Actors:    append(cloneSlice(old.Actors), added.Actors...),
		Directors: append(cloneSlice(old.Directors), added.Directors...),
		Genres:    append(cloneSlice(old.Genres), added.Genres...),
		Themes:    append(cloneSlice(old.Themes), added.Themes...),
		Countries: append(cloneSlice(old.Countries), added.Countries...),
		Languages: append(cloneSlice(old.Languages), added.Languages...),
	}
	return merged, added
}

// Append is Merge for callers that only hold the snapshot of the old dataset. It returns
// the film rows to append and the tables restricted to the new films.
func Append(snapshot Snapshot, fresh Tables, run Run) ([]StoredFilm, Tables) {
	keep := make(map[int64]bool, len(fresh.Films))
	for _, f := range Delta(snapshot, fresh.Films) {
		keep[f.Id] = true
	}
	added := fresh.Restrict(keep)
	// Restrict keeps duplicates of a film id, the Film table holds each id once
	added.Films = Delta(nil, added.Films)

	details := make(map[int64]FilmDetail, len(added.Details))
	for _, d := range added.Details {
		if _, ok := details[d.FilmId]; !ok {
			details[d.FilmId] = d
		}
	}
	return stamp(added.Films, details, run), added
}

func stamp(films []Film, details map[int64]FilmDetail, run Run) []StoredFilm {
	out := make([]StoredFilm, len(films))
	for i, f := range films {
		out[i] = StoredFilm{
			Id:               f.Id,
			Title:            f.Title,
			DetailLink:       f.DetailLink,
			Detail:           details[f.Id],
			LastModifiedDate: run.Date,
			RunId:            run.Id,
		}
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
