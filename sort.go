// Package pagesort implements a two-phase multiway merge sort (TPMMS) of paged
// tables that are too large to be held in memory.
//
// Phase 1 reads the source table runSize pages at a time, sorts each group in
// memory and writes it to a temporary table as a sorted run. Phase 2 merges all
// runs with a k-way priority merge into the destination table. Temporary runs
// are dropped when the sort returns, whether it succeeded or not.
package pagesort

import (
	"cmp"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/table"
)

// Sorter sorts tables of E, keeping its temporary runs in a Store.
// A Sorter may be reused but not shared between goroutines.
type Sorter[E any] struct {
	config  Config
	store   table.Store[E]
	compare Compare[E]
	stats   Stats
}

// New returns a Sorter that orders records with compare and creates
// temporary runs in store. config can be nil to use the defaults, or only set
// the non-default values desired.
func New[E any](store table.Store[E], compare Compare[E], config *Config) *Sorter[E] {
	return &Sorter[E]{
		config:  *mergeConfig(config),
		store:   store,
		compare: guardCompare(compare),
	}
}

// Sort performs a TPMMS of src, appending the result to dst.
//
// runSize is the number of source pages that may be held in memory at once
// during phase 1. Phase 2 merges at most Config.MergeBudget-1 runs per pass
// (the run size when unset), adding intermediate passes when there are more.
//
// dst is flushed on success. On failure dst may hold a partial result; the
// caller decides whether to discard it. ctx is checked between pages and
// between merged records; cancelling it aborts the sort with ctx.Err().
func Sort[E any](ctx context.Context, runSize int, src, dst table.Table[E], store table.Store[E], compare Compare[E], config *Config) error {
	return New(store, compare, config).Sort(ctx, runSize, src, dst)
}

// SortOrdered sorts tables of cmp.Ordered records in ascending order.
func SortOrdered[E cmp.Ordered](ctx context.Context, runSize int, src, dst table.Table[E], store table.Store[E], config *Config) error {
	return New(store, cmp.Compare[E], config).Sort(ctx, runSize, src, dst)
}

// Stats returns the statistics of the last Sort call.
func (s *Sorter[E]) Stats() Stats {
	return s.stats
}

// Sort sorts src into dst. See the package level Sort.
func (s *Sorter[E]) Sort(ctx context.Context, runSize int, src, dst table.Table[E]) (err error) {
	s.stats = Stats{}
	if runSize <= 0 {
		return &ConfigError{Field: "runSize", Value: runSize, Reason: "must be at least 1"}
	}
	if src == nil || dst == nil {
		return errors.New("pagesort: source and destination tables must not be nil")
	}
	if s.store == nil {
		return &ConfigError{Field: "store", Value: nil, Reason: "a store is needed for temporary runs"}
	}

	// a run never spans more pages than the source has
	runSize = min(runSize, max(src.PageCount(), 1))

	// phase 1 holds the run plus one output page and one partially read
	// input page per side of a pair merge
	alloc, err := page.NewAllocator[E](src.PageCapacity(), runSize+2)
	if err != nil {
		return err
	}
	temps := newTempRuns(s.store, &s.config)
	defer func() {
		_ = temps.dropAll()
		s.stats.TempTables = temps.created
		s.stats.CleanupFailures = temps.failed
		s.stats.PeakResidentPages = alloc.Peak()
	}()
	defer recoverComparison(&err, "Sort")

	runs, err := s.generateRuns(ctx, runSize, src, alloc, temps)
	if err != nil {
		return err
	}
	return s.mergeRuns(ctx, s.config.fanIn(runSize), runs, dst, alloc, temps)
}

// generateRuns is phase 1: it writes one sorted temporary table per group of
// runSize source pages. Groups without records produce no run.
func (s *Sorter[E]) generateRuns(ctx context.Context, runSize int, src table.Table[E], alloc *page.Allocator[E], temps *tempRuns[E]) ([]table.Table[E], error) {
	pageCount := src.PageCount()
	runs := make([]table.Table[E], 0, (pageCount+runSize-1)/runSize)

	for from := 0; from < pageCount; from += runSize {
		to := min(from+runSize, pageCount)
		run, err := s.sortGroup(ctx, src, from, to, alloc)
		if err != nil {
			return runs, err
		}
		if countRecords(run) == 0 {
			for _, p := range run {
				alloc.Release(p)
			}
			continue
		}

		t, err := temps.create(temps.name(0, len(runs)), alloc.Capacity())
		if err != nil {
			return runs, err
		}
		n, err := materialize(t, run, alloc)
		if err != nil {
			return runs, err
		}
		runs = append(runs, t)
		s.stats.Runs++
		s.config.Logger.Debug().Str("table", t.Name()).Int("first_page", from).
			Int("pages", t.PageCount()).Int64("records", n).Msg("run written")
	}
	return runs, nil
}

// sortGroup loads source pages [from, to), sorts each page, then pair-merges
// adjacent runs bottom-up until one run remains. An odd run out at any depth
// moves up unchanged. On error, pages still held are left to the allocator, which is discarded with the sort.
func (s *Sorter[E]) sortGroup(ctx context.Context, src table.Table[E], from, to int, alloc *page.Allocator[E]) ([]*page.Page[E], error) {
	runs := make([][]*page.Page[E], 0, to-from)
	for i := from; i < to; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := alloc.Allocate()
		if err != nil {
			return nil, err
		}
		if err := src.ReadPage(i, p); err != nil {
			return nil, NewDiskError(err, "read page", src.Name())
		}
		s.stats.RecordsRead += int64(p.Len())
		p.Sort(s.compare)
		runs = append(runs, []*page.Page[E]{p})
	}

	for len(runs) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make([][]*page.Page[E], 0, (len(runs)+1)/2)
		for i := 0; i < len(runs); i += 2 {
			if i+1 >= len(runs) {
				next = append(next, runs[i])
				continue
			}
			merged, err := mergeIntoList(alloc, newRunCursor(alloc, runs[i]), newRunCursor(alloc, runs[i+1]), s.compare)
			if err != nil {
				return nil, err
			}
			next = append(next, merged)
		}
		runs = next
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func countRecords[E any](run []*page.Page[E]) int {
	n := 0
	for _, p := range run {
		n += p.Len()
	}
	return n
}

// materialize appends the records of an in-memory run to t page by page,
// releasing each page once written, and flushes t.
func materialize[E any](t table.Table[E], run []*page.Page[E], alloc *page.Allocator[E]) (int64, error) {
	var n int64
	for i, p := range run {
		for rec := range p.All() {
			if err := t.Append(rec); err != nil {
				return n, NewDiskError(err, "append", t.Name())
			}
			n++
		}
		alloc.Release(p)
		run[i] = nil
	}
	if err := t.Flush(); err != nil {
		return n, NewDiskError(err, "flush", t.Name())
	}
	return n, nil
}

// mergeRuns is phase 2. While there are more runs than fanIn, it merges
// groups of fanIn runs into new temporary runs, dropping the inputs. The
// remaining runs are merged into dst.
func (s *Sorter[E]) mergeRuns(ctx context.Context, fanIn int, runs []table.Table[E], dst table.Table[E], alloc *page.Allocator[E], temps *tempRuns[E]) error {
	// from here on the allocator only hands out one buffer page per open run
	alloc.SetBudget(fanIn)

	for pass := 1; len(runs) > fanIn; pass++ {
		next := make([]table.Table[E], 0, (len(runs)+fanIn-1)/fanIn)
		for i := 0; i < len(runs); i += fanIn {
			group := runs[i:min(i+fanIn, len(runs))]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			out, err := temps.create(temps.name(pass, len(next)), alloc.Capacity())
			if err != nil {
				return err
			}
			n, err := s.mergeGroup(ctx, group, out, alloc, false)
			if err != nil {
				return err
			}
			if err := out.Flush(); err != nil {
				return NewDiskError(err, "flush", out.Name())
			}
			for _, r := range group {
				temps.drop(r)
			}
			next = append(next, out)
			s.config.Logger.Debug().Int("pass", pass).Int("inputs", len(group)).
				Str("table", out.Name()).Int64("records", n).Msg("runs merged")
		}
		runs = next
		s.stats.MergePasses++
	}

	if len(runs) > 0 {
		n, err := s.mergeGroup(ctx, runs, dst, alloc, s.config.Distinct)
		s.stats.RecordsWritten = n
		if err != nil {
			return err
		}
		s.stats.MergePasses++
		s.config.Logger.Debug().Int("inputs", len(runs)).Str("table", dst.Name()).
			Int64("records", n).Msg("final merge")
	}
	if err := dst.Flush(); err != nil {
		return NewDiskError(err, "flush", dst.Name())
	}
	return nil
}

// mergeGroup opens a cursor with its own buffer page over every run and
// k-way merges them into dst.
func (s *Sorter[E]) mergeGroup(ctx context.Context, runs []table.Table[E], dst table.Table[E], alloc *page.Allocator[E], distinct bool) (int64, error) {
	sources := make([]page.Source[E], 0, len(runs))
	bufs := make([]*page.Page[E], 0, len(runs))
	defer func() {
		for _, buf := range bufs {
			alloc.Release(buf)
		}
	}()
	for _, run := range runs {
		buf, err := alloc.Allocate()
		if err != nil {
			return 0, err
		}
		bufs = append(bufs, buf)
		sources = append(sources, table.NewCursor(run, buf))
	}
	return mergeIntoTable(ctx, dst, sources, s.compare, distinct)
}
