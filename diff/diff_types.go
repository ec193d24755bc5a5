package diff

import "fmt"

// Delta represents the type of difference found when comparing two sorted tables.
// It indicates whether a record is unique to the first table (OLD) or the second (NEW).
type Delta int

const (
	// NEW indicates a record that exists only in the second table (B).
	NEW Delta = iota // +

	// OLD indicates a record that exists only in the first table (A).
	OLD // -
)

// ResultFunc is called once for each record that appears in only one of the two inputs.
// If it returns an error, the diff stops and returns that error.
type ResultFunc[T any] func(Delta, T) error

// CompareFunc orders records the way both inputs are sorted, as cmp.Compare does.
type CompareFunc[T any] func(a, b T) int

func (d Delta) String() string {
	switch d {
	case NEW:
		return ">"
	case OLD:
		return "<"
	default:
		return "?"
	}
}

// Result contains counts describing the differences between two sorted inputs.
type Result struct {
	// ExtraA is the count of records that exist only in A (OLD records)
	ExtraA uint64

	// ExtraB is the count of records that exist only in B (NEW records)
	ExtraB uint64

	// TotalA is the total count of records read from A
	TotalA uint64

	// TotalB is the total count of records read from B
	TotalB uint64

	// Common is the count of records present in both
	Common uint64
}

// Same reports whether both inputs held the same multiset of records.
func (r *Result) Same() bool {
	return r.ExtraA == 0 && r.ExtraB == 0
}

func (r *Result) String() string {
	out := fmt.Sprintf("A: %d/%d\tB: %d/%d\tC: %d", r.ExtraA, r.TotalA, r.ExtraB, r.TotalB, r.Common)
	return out
}
