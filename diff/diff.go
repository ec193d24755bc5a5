// Package diff compares two sorted tables record by record and reports the
// records that exist in only one of them. Duplicates are matched one to one,
// so two tables holding the same multiset produce no differences.
package diff

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/table"
)

// differ holds the state of one diff between two sorted sources.
type differ[T any] struct {
	ctx        context.Context
	a, b       page.Source[T]
	resultFunc ResultFunc[T]
	compare    CompareFunc[T]
}

// Tables diffs two tables sorted by compareFunc, holding one page of each in memory.
//
// The function assumes both tables are sorted according to compareFunc.
// This assumption is not validated for performance reasons.
func Tables[T any](ctx context.Context, a, b table.Table[T], compareFunc CompareFunc[T], resultFunc ResultFunc[T]) (Result, error) {
	if a == nil || b == nil {
		return Result{}, errors.New("diff.Tables() tables must not be nil")
	}
	return Sources(ctx,
		table.NewCursor(a, page.New[T](a.PageCapacity())),
		table.NewCursor(b, page.New[T](b.PageCapacity())),
		compareFunc, resultFunc)
}

// Sources diffs two sorted sources, each positioned before its first record,
// calling resultFunc for each record found in only one of them.
func Sources[T any](ctx context.Context, a, b page.Source[T], compareFunc CompareFunc[T], resultFunc ResultFunc[T]) (Result, error) {
	if ctx == nil || a == nil || b == nil || compareFunc == nil || resultFunc == nil {
		return Result{}, errors.New("diff.Sources() arguments must not be nil")
	}
	d := differ[T]{
		ctx:        ctx,
		a:          a,
		b:          b,
		resultFunc: resultFunc,
		compare:    compareFunc,
	}
	return d.diff()
}

// next advances src and returns its new current record.
func (d *differ[T]) next(src page.Source[T]) (T, bool, error) {
	var zero T
	if err := d.ctx.Err(); err != nil {
		return zero, false, err
	}
	if !src.Advance() {
		return zero, false, src.Err()
	}
	rec, err := src.Current()
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

func (d *differ[T]) diff() (r Result, err error) {
	dataA, okA, err := d.next(d.a)
	if err != nil {
		return r, err
	}
	dataB, okB, err := d.next(d.b)
	if err != nil {
		return r, err
	}

	for okA && okB {
		c := d.compare(dataA, dataB)
		switch {
		case c > 0:
			r.TotalB++
			r.ExtraB++
			if err = d.resultFunc(NEW, dataB); err != nil {
				return r, err
			}
			if dataB, okB, err = d.next(d.b); err != nil {
				return r, err
			}
		case c < 0:
			r.TotalA++
			r.ExtraA++
			if err = d.resultFunc(OLD, dataA); err != nil {
				return r, err
			}
			if dataA, okA, err = d.next(d.a); err != nil {
				return r, err
			}
		default:
			// common
			r.Common++
			r.TotalA++
			r.TotalB++
			if dataA, okA, err = d.next(d.a); err != nil {
				return r, err
			}
			if dataB, okB, err = d.next(d.b); err != nil {
				return r, err
			}
		}
	}

	// if only A has data left
	for okA {
		r.TotalA++
		r.ExtraA++
		if err = d.resultFunc(OLD, dataA); err != nil {
			return r, err
		}
		if dataA, okA, err = d.next(d.a); err != nil {
			return r, err
		}
	}
	// if only B has data left
	for okB {
		r.TotalB++
		r.ExtraB++
		if err = d.resultFunc(NEW, dataB); err != nil {
			return r, err
		}
		if dataB, okB, err = d.next(d.b); err != nil {
			return r, err
		}
	}
	return r, nil
}

// PrintDiff is a utility function that can be used as a ResultFunc to print
// differences to stdout. It formats each difference with the Delta symbol
// (< for OLD, > for NEW) followed by the record.
func PrintDiff[T any](d Delta, rec T) error {
	_, err := fmt.Printf("%s %v\n", d, rec)
	return err
}
