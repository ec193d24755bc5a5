package pagesort

// Compare is the ordering used by a sort.
// It must implement a strict weak ordering and returns a negative integer if a
// should be ordered before b, zero if they are equal, and a positive integer if
// a should be ordered after b, following the same semantics as cmp.Compare.
// A Compare must not mutate shared state; it is called many times per record.
type Compare[E any] func(a, b E) int

// Less is a boolean ordering predicate: it reports whether a sorts before b.
// Comparator builders that produce predicates can be adapted with FromLess.
type Less[E any] func(a, b E) bool

// FromLess adapts a Less predicate into a Compare. Two records are equal when
// neither sorts before the other.
func FromLess[E any](less Less[E]) Compare[E] {
	return func(a, b E) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	}
}

// Reverse returns a Compare ordering records in the opposite direction.
func Reverse[E any](compare Compare[E]) Compare[E] {
	return func(a, b E) int {
		return compare(b, a)
	}
}

// Stats describes the work done by the last Sort call of a Sorter.
type Stats struct {
	// Runs is the number of sorted runs written during phase 1
	Runs int
	// MergePasses counts k-way merge passes, including the final one into the destination
	MergePasses int
	// RecordsRead is the number of records read from the source table
	RecordsRead int64
	// RecordsWritten is the number of records appended to the destination table
	RecordsWritten int64
	// PeakResidentPages is the highest number of sort-owned pages held in memory at once
	PeakResidentPages int
	// TempTables is the number of temporary tables created
	TempTables int
	// CleanupFailures is the number of temporary tables that could not be dropped
	CleanupFailures int
}
