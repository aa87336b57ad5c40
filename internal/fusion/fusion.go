// Package fusion merges ranked candidate lists from multiple search sources
// into a single ordering. Every function here is pure: results depend only on
// the input lists, never on the order sources happened to finish in.
package fusion

import (
	"math"
	"sort"
)

// rrfK is the rank smoothing constant for reciprocal rank fusion. The
// standard value of 60 keeps the top handful of ranks dominant without
// letting rank 1 swamp everything below it.
const rrfK = 60

// Provenance records where a candidate appeared: which source, at which
// 1-based rank, with what source-local score, and the weight that source
// carried in the plan.
type Provenance struct {
	Source string  `json:"source"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Candidate is a single result. Score is the fused score; Provenance lists
// every source appearance that contributed to it.
type Candidate struct {
	ID         string                 `json:"id"`
	Score      float64                `json:"score"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Provenance []Provenance           `json:"provenance"`
}

// List is one source's ranked output. Candidates are ordered best first and
// their Provenance carries the source-local rank.
type List struct {
	Source     string
	Weight     float64
	Candidates []Candidate
}

// RRF applies reciprocal rank fusion: each appearance contributes
// 1/(60+rank) and a candidate's fused score is the sum over its
// appearances. Scores from the sources are ignored, only ranks matter.
func RRF(lists []List) []Candidate {
	merged := mergeByID(lists)
	for i := range merged {
		var score float64
		for _, p := range merged[i].Provenance {
			score += 1.0 / float64(rrfK+p.Rank)
		}
		merged[i].Score = score
	}
	sortCandidates(merged)
	return merged
}

// WeightedSum fuses by summing weight-scaled source scores. Source scores
// are expected to already be normalized into [0,1].
func WeightedSum(lists []List) []Candidate {
	merged := mergeByID(lists)
	for i := range merged {
		var score float64
		for _, p := range merged[i].Provenance {
			score += p.Weight * p.Score
		}
		merged[i].Score = score
	}
	sortCandidates(merged)
	return merged
}

// Concat appends the lists in plan order without rescoring. Duplicate ids
// keep their first appearance and absorb later provenance.
func Concat(lists []List) []Candidate {
	var out []Candidate
	index := map[string]int{}
	for _, list := range lists {
		for _, c := range list.Candidates {
			if at, seen := index[c.ID]; seen {
				out[at].Provenance = append(out[at].Provenance, c.Provenance...)
				continue
			}
			index[c.ID] = len(out)
			out = append(out, c)
		}
	}
	return out
}

// Single passes a lone list through unchanged, sorted by its own scores.
func Single(list List) []Candidate {
	out := make([]Candidate, len(list.Candidates))
	copy(out, list.Candidates)
	sortCandidates(out)
	return out
}

// NormalizeCosine maps a cosine similarity from [-1,1] into [0,1] and
// clamps anything that drifted outside the interval.
func NormalizeCosine(s float64) float64 {
	return math.Max(0, math.Min(1, (s+1)/2))
}

// mergeByID collapses appearances of the same id across lists into one
// candidate carrying the union of provenance. The representative payload
// comes from the appearance with the highest source-local score.
func mergeByID(lists []List) []Candidate {
	var out []Candidate
	index := map[string]int{}
	best := map[string]float64{}
	for _, list := range lists {
		for _, c := range list.Candidates {
			at, seen := index[c.ID]
			if !seen {
				index[c.ID] = len(out)
				best[c.ID] = bestScore(c.Provenance)
				out = append(out, c)
				continue
			}
			out[at].Provenance = append(out[at].Provenance, c.Provenance...)
			if s := bestScore(c.Provenance); s > best[c.ID] {
				best[c.ID] = s
				out[at].Payload = c.Payload
			}
		}
	}
	return out
}

func bestScore(provenance []Provenance) float64 {
	score := math.Inf(-1)
	for _, p := range provenance {
		if p.Score > score {
			score = p.Score
		}
	}
	return score
}

// sortCandidates orders by fused score descending. Ties fall back to the
// highest contributing weight, then the smallest rank, then the id, so the
// ordering is total and stable across runs.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aw, bw := maxWeight(a.Provenance), maxWeight(b.Provenance)
		if aw != bw {
			return aw > bw
		}
		ar, br := minRank(a.Provenance), minRank(b.Provenance)
		if ar != br {
			return ar < br
		}
		return a.ID < b.ID
	})
}

func maxWeight(provenance []Provenance) float64 {
	w := math.Inf(-1)
	for _, p := range provenance {
		if p.Weight > w {
			w = p.Weight
		}
	}
	return w
}

func minRank(provenance []Provenance) int {
	r := math.MaxInt
	for _, p := range provenance {
		if p.Rank < r {
			r = p.Rank
		}
	}
	return r
}
