// Package rank orders and deduplicates scored corpus entries.
//
// Rank is the only step of an analysis that looks across sequences. It is a
// pure function of the multiset of entries: the input is sorted under a total
// order before anything else happens, so any worker interleaving that produces
// the same entries produces the same Ranking.
package rank

import (
	"cmp"
	"slices"

	"github.com/roach88/seqscore/internal/ir"
)

// Entry is one scored sequence offered for ranking.
type Entry struct {
	ID       int64             `json:"id"`
	Path     string            `json:"path"`
	Strategy ir.Strategy       `json:"strategy"`
	Metrics  ir.QualityMetrics `json:"metrics"`

	// OK is the validation verdict; Scored is false when scoring failed.
	OK     bool `json:"ok"`
	Scored bool `json:"scored"`

	// Fingerprint is the shape fingerprint of Metrics. Computed by Rank
	// when empty.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Ranked is an entry that survived filtering and deduplication.
type Ranked struct {
	Entry
	Position      int      `json:"position"`
	NovelBranches []string `json:"novel_branches"`
}

// Duplicate records an entry dropped because a better-ranked entry has the
// same shape fingerprint.
type Duplicate struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
	Of   int64  `json:"of"`
}

// StrategySummary aggregates entries per generation strategy.
type StrategySummary struct {
	Total     int     `json:"total"`
	Valid     int     `json:"valid"`
	Ranked    int     `json:"ranked"`
	BestScore float64 `json:"best_score"`
	MeanScore float64 `json:"mean_score"`
}

// Ranking is the result of Rank.
type Ranking struct {
	Ranked     []Ranked                        `json:"ranked"`
	Duplicates []Duplicate                     `json:"duplicates"`
	Excluded   []int64                         `json:"excluded"`
	Strategies map[ir.Strategy]StrategySummary `json:"strategies"`
}

// IDs returns the ranked sequence ids in rank order.
func (r Ranking) IDs() []int64 {
	ids := make([]int64, len(r.Ranked))
	for i, e := range r.Ranked {
		ids[i] = e.ID
	}
	return ids
}

// Merge concatenates partial entry lists. Rank is insensitive to the order
// of its input, so Merge needs no ordering of its own.
func Merge(parts ...[]Entry) []Entry {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Entry, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Compare orders entries by score desc, visited desc, density desc, id asc,
// path asc.
func Compare(a, b Entry) int {
	if c := cmp.Compare(b.Metrics.Score, a.Metrics.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Metrics.Visited, a.Metrics.Visited); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Metrics.Density, a.Metrics.Density); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.Path, b.Path)
}

// Rank filters, sorts and deduplicates entries.
//
// Entries that failed validation or scoring are excluded. The rest are
// sorted with Compare, and of each group sharing a shape fingerprint only the
// first is kept. NovelBranches lists the branch keys of a ranked entry that
// no other ranked entry exercises.
func Rank(entries []Entry) (Ranking, error) {
	sorted := slices.Clone(entries)
	for i := range sorted {
		if sorted[i].Fingerprint != "" || !sorted[i].Scored {
			continue
		}
		fp, err := ir.ShapeFingerprint(sorted[i].Metrics.LibraryCalls, sorted[i].Metrics.BranchKeys())
		if err != nil {
			return Ranking{}, err
		}
		sorted[i].Fingerprint = fp
	}
	slices.SortFunc(sorted, Compare)

	r := Ranking{
		Ranked:     []Ranked{},
		Duplicates: []Duplicate{},
		Excluded:   []int64{},
		Strategies: make(map[ir.Strategy]StrategySummary),
	}

	kept := make(map[string]int64)
	for _, e := range sorted {
		if !e.OK || !e.Scored {
			r.Excluded = append(r.Excluded, e.ID)
			continue
		}
		if of, dup := kept[e.Fingerprint]; dup {
			r.Duplicates = append(r.Duplicates, Duplicate{ID: e.ID, Path: e.Path, Of: of})
			continue
		}
		kept[e.Fingerprint] = e.ID
		r.Ranked = append(r.Ranked, Ranked{Entry: e, Position: len(r.Ranked) + 1})
	}
	slices.Sort(r.Excluded)

	owners := make(map[string]int)
	for _, e := range r.Ranked {
		for k := range e.Metrics.UniqueBranches {
			owners[k]++
		}
	}
	for i := range r.Ranked {
		novel := []string{}
		for _, k := range r.Ranked[i].Metrics.BranchKeys() {
			if owners[k] == 1 {
				novel = append(novel, k)
			}
		}
		r.Ranked[i].NovelBranches = novel
	}

	summarize(&r, sorted)
	return r, nil
}

func summarize(r *Ranking, sorted []Entry) {
	sums := make(map[ir.Strategy]float64)
	for _, e := range sorted {
		s := r.Strategies[e.Strategy]
		s.Total++
		if e.OK && e.Scored {
			if s.Valid == 0 || e.Metrics.Score > s.BestScore {
				s.BestScore = e.Metrics.Score
			}
			s.Valid++
			sums[e.Strategy] += e.Metrics.Score
		}
		r.Strategies[e.Strategy] = s
	}
	for _, e := range r.Ranked {
		s := r.Strategies[e.Strategy]
		s.Ranked++
		r.Strategies[e.Strategy] = s
	}
	for st, s := range r.Strategies {
		if s.Valid > 0 {
			s.MeanScore = sums[st] / float64(s.Valid)
		}
		r.Strategies[st] = s
	}
}
