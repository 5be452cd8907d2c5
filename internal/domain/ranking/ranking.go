// Package ranking orders candidate papers against a query embedding.
//
// Ranking is a linear scan. All functions are pure and safe for concurrent use;
// candidate papers are referenced, never modified.
package ranking

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/similarity"
)

// PageSize is the fixed page length in paged mode.
const PageSize = 25

// Mode tells clients how the list was produced.
type Mode string

// Ranking modes.
const (
	ModeTopN  Mode = "top_n"
	ModePaged Mode = "paged"
)

// Pagination describes the returned slice. Page fields are meaningful only in paged mode.
type Pagination struct {
	Mode       Mode
	Current    int
	TotalPages int
	TotalCount int
	PrevPage   *int
	NextPage   *int
}

// Result is an ordered list of scored candidates.
type Result struct {
	Items      []paper.Scored
	Pagination Pagination
}

// Query holds the ranking inputs that come from the request.
type Query struct {
	Embedding []float32
	// TopN is the raw client value; anything but a positive integer means "absent".
	TopN string
	Page int
}

// ParseTopN returns the requested count when raw is a positive integer.
func ParseTopN(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Rank scores candidates when an embedding is given and returns either the
// top N by score or a fixed-size page in repository order.
func Rank(candidates []paper.Paper, q Query) Result {
	scored := Score(candidates, q.Embedding)

	if n, ok := ParseTopN(q.TopN); ok && len(q.Embedding) > 0 {
		return topN(scored, n)
	}
	return page(scored, q.Page)
}

// Score wraps every candidate and attaches a similarity score to those whose
// embedding is non-empty and matches the query dimensionality.
func Score(candidates []paper.Paper, query []float32) []paper.Scored {
	out := make([]paper.Scored, len(candidates))
	for i := range candidates {
		p := &candidates[i]
		out[i] = paper.Scored{Paper: p}
		if len(query) == 0 || len(p.Embedding) == 0 || len(p.Embedding) != len(query) {
			continue
		}
		s := similarity.Cosine(query, p.Embedding)
		out[i].Score = &s
	}
	return out
}

func topN(items []paper.Scored, n int) Result {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Score, items[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	if n < len(items) {
		items = items[:n]
	}
	return Result{
		Items: items,
		Pagination: Pagination{
			Mode:       ModeTopN,
			Current:    1,
			TotalPages: 1,
			TotalCount: len(items),
		},
	}
}

func page(items []paper.Scored, current int) Result {
	if current < 1 {
		current = 1
	}
	total := len(items)
	totalPages := (total + PageSize - 1) / PageSize

	start := (current - 1) * PageSize
	if start > total {
		start = total
	}
	end := min(start+PageSize, total)

	p := Pagination{
		Mode:       ModePaged,
		Current:    current,
		TotalPages: totalPages,
		TotalCount: total,
	}
	if current > 1 {
		prev := current - 1
		p.PrevPage = &prev
	}
	if current < totalPages {
		next := current + 1
		p.NextPage = &next
	}

	return Result{Items: items[start:end], Pagination: p}
}
