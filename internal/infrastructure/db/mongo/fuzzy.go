package mongo

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

// maxEdits returns how many edits a query term of the given length may be
// away from a document token: none up to 2 runes, one up to 5, two beyond.
// A swap of adjacent letters counts as one edit.
func maxEdits(term string) int {
	switch n := len([]rune(term)); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fuzzyMatcher scores records against a query by edit distance. Each query
// term contributes the highest weight among the fields holding a close
// enough token.
type fuzzyMatcher struct {
	terms  []string
	fields []ports.SearchField
}

func newFuzzyMatcher(query string, fields []ports.SearchField) fuzzyMatcher {
	return fuzzyMatcher{terms: tokenize(query), fields: fields}
}

func (m fuzzyMatcher) score(rec domain.TaskRecord) int {
	tokens := make([][]string, len(m.fields))
	for i, f := range m.fields {
		tokens[i] = tokenize(fieldText(rec, f.Name))
	}

	total := 0
	for _, term := range m.terms {
		best := 0
		for i, f := range m.fields {
			if f.Weight > best && anyWithin(term, tokens[i]) {
				best = f.Weight
			}
		}
		total += best
	}
	return total
}

func anyWithin(term string, tokens []string) bool {
	limit := maxEdits(term)
	n := len([]rune(term))
	for _, tok := range tokens {
		if d := len([]rune(tok)) - n; d > limit || -d > limit {
			continue
		}
		if edlib.OSADamerauLevenshteinDistance(term, tok) <= limit {
			return true
		}
	}
	return false
}

func fieldText(rec domain.TaskRecord, name string) string {
	switch name {
	case "title":
		return rec.Title
	case "description":
		return rec.Description
	default:
		return ""
	}
}

type scoredRecord struct {
	rec   domain.TaskRecord
	score int
}

// rank orders hits by score, highest first, and keeps at most size of them.
func rank(hits []scoredRecord, size int) []domain.TaskRecord {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].rec.ID < hits[j].rec.ID
	})
	if size > 0 && len(hits) > size {
		hits = hits[:size]
	}
	out := make([]domain.TaskRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}
