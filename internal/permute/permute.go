// Package permute generates the deterministic option orderings used to
// probe answer-order sensitivity. Generation is pure: identical inputs
// always yield identical, order-stable output, which resumability and
// cross-run comparability depend on.
package permute

import (
	"sort"

	"github.com/shuffleval/shuffleval/internal/models"
)

// Size is the number of options in every question.
const Size = 4

// Total is the number of distinct orderings of Size options.
const Total = 24

// Mode selects a permutation family.
type Mode string

const (
	// ModeCircular yields the 4 rotations of the identity ordering.
	ModeCircular Mode = "circular"
	// ModeFactorial yields a prefix of the 24 orderings in lexicographic
	// order.
	ModeFactorial Mode = "factorial"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCircular, ModeFactorial:
		return Mode(s), nil
	default:
		return "", models.NewConfigError("unknown permutation mode %q (want circular or factorial)", s)
	}
}

// Permutation maps each new position to the original option index that
// occupies it: p[i] is the original index shown at position i.
type Permutation [Size]int

// Identity returns the ordering that leaves options in place.
func Identity() Permutation {
	return Permutation{0, 1, 2, 3}
}

// FromIndices builds a Permutation from a slice, checking that it is a
// bijection on {0..3}.
func FromIndices(idx []int) (Permutation, error) {
	var p Permutation
	if len(idx) != Size {
		return p, models.NewConfigError("permutation must have %d entries, got %d", Size, len(idx))
	}
	copy(p[:], idx)
	if !p.Valid() {
		return p, models.NewConfigError("permutation %v is not a bijection on {0..3}", idx)
	}
	return p, nil
}

// Indices returns the permutation as a plain slice.
func (p Permutation) Indices() []int {
	out := make([]int, Size)
	copy(out, p[:])
	return out
}

// Valid reports whether p is a bijection on {0..3}.
func (p Permutation) Valid() bool {
	var seen [Size]bool
	for _, v := range p {
		if v < 0 || v >= Size || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Label renders the arrangement of the original letters under p. The
// identity is "ABCD"; a rotation by one is "DABC".
func (p Permutation) Label() string {
	b := make([]byte, Size)
	for i, orig := range p {
		b[i] = byte('A' + orig)
	}
	return string(b)
}

// Apply reorders choices so that position i holds the original option p[i].
func (p Permutation) Apply(choices [Size]string) [Size]string {
	var out [Size]string
	for i, orig := range p {
		out[i] = choices[orig]
	}
	return out
}

// NewPosition returns where the original option index ends up under p.
func (p Permutation) NewPosition(original int) int {
	for i, orig := range p {
		if orig == original {
			return i
		}
	}
	return -1
}

// RemapLabel returns the letter of the original option index in the
// permuted arrangement. With original correct index 1 ("B") and permutation
// DABC, the correct letter becomes "C".
func (p Permutation) RemapLabel(original int) string {
	return string(rune('A' + p.NewPosition(original)))
}

// Generate produces the ordered permutation sequence for a mode.
//
// Circular ignores count when it is zero, and otherwise requires it to be
// exactly 4. Factorial returns the first count permutations of the
// lexicographic enumeration, 1 <= count <= 24.
func Generate(mode Mode, count int) ([]Permutation, error) {
	switch mode {
	case ModeCircular:
		if count != 0 && count != Size {
			return nil, models.NewConfigError("circular permutations always number %d, got count %d", Size, count)
		}
		return circular(), nil
	case ModeFactorial:
		if count < 1 || count > Total {
			return nil, models.NewConfigError("factorial count must be in [1,%d], got %d", Total, count)
		}
		return lexicographic()[:count], nil
	default:
		return nil, models.NewConfigError("unknown permutation mode %q", mode)
	}
}

// circular returns the 4 rotations in the canonical order
// ABCD, DABC, CDAB, BCDA (each step rotates the arrangement right by one).
func circular() []Permutation {
	out := make([]Permutation, 0, Size)
	p := Identity()
	for range Size {
		out = append(out, p)
		p = Permutation{p[3], p[0], p[1], p[2]}
	}
	return out
}

// lexicographic returns all 24 permutations ordered by their index tuples.
func lexicographic() []Permutation {
	out := make([]Permutation, 0, Total)
	var build func(prefix []int, rest []int)
	build = func(prefix, rest []int) {
		if len(rest) == 0 {
			var p Permutation
			copy(p[:], prefix)
			out = append(out, p)
			return
		}
		for i, v := range rest {
			next := make([]int, 0, len(rest)-1)
			next = append(next, rest[:i]...)
			next = append(next, rest[i+1:]...)
			build(append(prefix, v), next)
		}
	}
	start := Identity().Indices()
	sort.Ints(start)
	build(nil, start)
	return out
}
