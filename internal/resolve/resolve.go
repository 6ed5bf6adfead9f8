// Package resolve matches user-typed refuge name fragments against the
// directory. Matching is accent- and case-insensitive: refuge names are
// full of characters ("Gîte", "Goûter") nobody types correctly.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

// ErrNoMatch reports a fragment that matched nothing. It is per-fragment:
// callers keep resolving the remaining fragments.
var ErrNoMatch = errors.New("no refuge matches fragment")

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and collapses whitespace, giving
// the canonical form both fragments and refuge names are compared in.
func Normalize(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Resolve returns the candidate refuges for a fragment, best first.
//
// A numeric fragment is an id lookup; an id the directory does not know
// still resolves, to an "Unknown refuge" placeholder, since ids come from
// the site and may outlive a catalog snapshot.
//
// Name fragments match in three tiers: whole-fragment substring matches,
// then token-containment matches (every fragment token a substring of the
// name, any order), then a typo tier where tokens may miss by a small edit
// distance. Within the first two tiers directory order is preserved; the
// typo tier orders by distance first.
func Resolve(fragment string, dir *refuge.Directory) ([]refuge.Refuge, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("%w: empty fragment", ErrNoMatch)
	}

	if id, err := strconv.Atoi(fragment); err == nil {
		if r, ok := dir.ByID(id); ok {
			return []refuge.Refuge{r}, nil
		}
		return []refuge.Refuge{refuge.Unknown(id)}, nil
	}

	needle := Normalize(fragment)
	tokens := strings.Fields(needle)

	var exact, contained []refuge.Refuge
	type nearMatch struct {
		ref  refuge.Refuge
		dist int
	}
	var near []nearMatch

	for _, r := range dir.All() {
		name := Normalize(r.Name)
		switch {
		case strings.Contains(name, needle):
			exact = append(exact, r)
		case containsAllTokens(name, tokens):
			contained = append(contained, r)
		default:
			if d, ok := editDistance(name, tokens); ok {
				near = append(near, nearMatch{ref: r, dist: d})
			}
		}
	}

	if len(exact) > 0 {
		return exact, nil
	}
	if len(contained) > 0 {
		return contained, nil
	}
	if len(near) > 0 {
		sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
		out := make([]refuge.Refuge, len(near))
		for i, n := range near {
			out[i] = n.ref
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNoMatch, fragment)
}

// containsAllTokens reports whether every token appears somewhere in name.
func containsAllTokens(name string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(name, tok) {
			return false
		}
	}
	return true
}

// editDistance reports the summed edit distance of the closest name token
// for each fragment token, or false when any token misses by more than the
// allowed distance for its length.
func editDistance(name string, tokens []string) (int, bool) {
	nameTokens := strings.Fields(name)
	total := 0
	for _, tok := range tokens {
		best := -1
		for _, cand := range nameTokens {
			d := levenshtein.ComputeDistance(tok, cand)
			if best < 0 || d < best {
				best = d
			}
		}
		if best < 0 || best > distanceLimit(len(tok)) {
			return 0, false
		}
		total += best
	}
	return total, true
}

func distanceLimit(tokenLen int) int {
	switch {
	case tokenLen <= 3:
		return 0
	case tokenLen <= 6:
		return 1
	default:
		return 2
	}
}

// Outcome is the per-fragment result of a batch resolution. One bad
// fragment never blocks the rest of the batch.
type Outcome struct {
	Fragment string
	Matches  []refuge.Refuge
	Err      error
}

func (o Outcome) Resolved() bool {
	return o.Err == nil && len(o.Matches) > 0
}

// Best returns the top candidate. Only valid when Resolved.
func (o Outcome) Best() refuge.Refuge {
	return o.Matches[0]
}

// ResolveAll resolves every fragment independently.
func ResolveAll(fragments []string, dir *refuge.Directory) []Outcome {
	outcomes := make([]Outcome, 0, len(fragments))
	for _, f := range fragments {
		matches, err := Resolve(f, dir)
		outcomes = append(outcomes, Outcome{Fragment: f, Matches: matches, Err: err})
	}
	return outcomes
}
